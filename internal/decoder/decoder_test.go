package decoder

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

type staticSource struct {
	img   image.Image
	draws int
}

func (s *staticSource) Size() (int, int) {
	if s.img == nil {
		return 0, 0
	}
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

func (s *staticSource) Draw(dst *image.RGBA) {
	s.draws++
	draw.Draw(dst, dst.Bounds(), s.img, s.img.Bounds().Min, draw.Src)
}

func qrImage(t *testing.T, text string, size int) image.Image {
	t.Helper()
	m, err := qrcode.NewQRCodeWriter().Encode(text, gozxing.BarcodeFormat_QR_CODE, size, size, nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return m
}

func TestDecodeFrame(t *testing.T) {
	src := &staticSource{img: qrImage(t, "TICKET-42", 240)}
	var buf Buffer
	got, ok := New(false).Decode(src, &buf)
	if !ok || got != "TICKET-42" {
		t.Fatalf("Decode = %q, %v", got, ok)
	}
	if b := buf.Image().Bounds(); b.Dx() != 240 || b.Dy() != 240 {
		t.Errorf("buffer size = %v, want native 240x240", b)
	}
}

func TestDecodeNotReadySource(t *testing.T) {
	src := &staticSource{}
	var buf Buffer
	if _, ok := New(false).Decode(src, &buf); ok {
		t.Fatal("zero sized source decoded")
	}
	if src.draws != 0 {
		t.Error("Draw called on a source that is not ready")
	}
}

func TestDecodeBlankFrame(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	var buf Buffer
	if got, ok := New(true).Decode(&staticSource{img: img}, &buf); ok {
		t.Fatalf("blank frame decoded to %q", got)
	}
}

func TestBufferReused(t *testing.T) {
	var buf Buffer
	first := buf.fit(100, 100)
	again := buf.fit(100, 100)
	if first != again {
		t.Fatal("same size reallocated")
	}
	smaller := buf.fit(50, 40)
	if &smaller.Pix[0] != &first.Pix[0] {
		t.Error("smaller frame did not reuse pixels")
	}
	if smaller.Stride != 200 || smaller.Rect.Dx() != 50 || smaller.Rect.Dy() != 40 {
		t.Errorf("bad geometry: stride=%d rect=%v", smaller.Stride, smaller.Rect)
	}
}

func TestDecodeImageNil(t *testing.T) {
	if _, ok := New(false).DecodeImage(nil); ok {
		t.Fatal("nil image decoded")
	}
}
