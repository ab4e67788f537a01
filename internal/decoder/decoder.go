// Package decoder finds QR symbols in camera frames.
package decoder

import (
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// FrameSource is anything that can copy its current frame into an RGBA image.
// A source that is not ready reports a zero size.
type FrameSource interface {
	Size() (width, height int)
	Draw(dst *image.RGBA)
}

// Buffer is the scratch image frames are copied into. Reused across calls;
// the zero value is ready to use. Not safe for concurrent use.
type Buffer struct {
	img *image.RGBA
}

func (b *Buffer) fit(w, h int) *image.RGBA {
	if b.img != nil && b.img.Rect.Dx() == w && b.img.Rect.Dy() == h {
		return b.img
	}
	n := 4 * w * h
	var pix []uint8
	if b.img != nil && cap(b.img.Pix) >= n {
		pix = b.img.Pix[:n]
	} else {
		pix = make([]uint8, n)
	}
	b.img = &image.RGBA{Pix: pix, Stride: 4 * w, Rect: image.Rect(0, 0, w, h)}
	return b.img
}

// Image returns the last frame copied into the buffer.
func (b *Buffer) Image() *image.RGBA { return b.img }

// Decoder is stateless; one value can serve any number of sources.
type Decoder struct {
	hints map[gozxing.DecodeHintType]interface{}
}

// New returns a QR decoder. tryHarder trades speed for better detection of
// small or skewed symbols.
func New(tryHarder bool) *Decoder {
	d := &Decoder{}
	if tryHarder {
		d.hints = map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		}
	}
	return d
}

// Decode copies the current frame of src into buf at native resolution and
// returns the QR payload, if any.
func (d *Decoder) Decode(src FrameSource, buf *Buffer) (string, bool) {
	if src == nil || buf == nil {
		return "", false
	}
	w, h := src.Size()
	if w <= 0 || h <= 0 {
		return "", false
	}
	dst := buf.fit(w, h)
	src.Draw(dst)
	return d.DecodeImage(dst)
}

// DecodeImage decodes a still image.
func (d *Decoder) DecodeImage(img image.Image) (string, bool) {
	if img == nil || img.Bounds().Empty() {
		return "", false
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", false
	}
	res, err := qrcode.NewQRCodeReader().Decode(bmp, d.hints)
	if err != nil {
		return "", false
	}
	return res.GetText(), true
}
