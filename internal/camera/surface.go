package camera

import (
	"context"
	"errors"
	"image"
	"image/draw"
	"sync"
)

// ImageStream is a Stream that delivers already decoded frames.
type ImageStream interface {
	Stream
	// Ready is closed once the first frame arrived.
	Ready() <-chan struct{}
	// Done is closed when the stream ended; Err tells why.
	Done() <-chan struct{}
	Err() error
	Latest() image.Image
}

var errNoStream = errors.New("camera: no stream attached")

// ImageSurface is a Surface over an ImageStream.
type ImageSurface struct {
	mu      sync.Mutex
	stream  Stream
	src     ImageStream
	playing bool
}

func NewImageSurface() *ImageSurface {
	return &ImageSurface{}
}

func (s *ImageSurface) Attach(st Stream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stream = st
	s.src, _ = st.(ImageStream)
	s.playing = false
}

func (s *ImageSurface) WaitMetadata(ctx context.Context) error {
	s.mu.Lock()
	src := s.src
	s.mu.Unlock()
	if src == nil {
		return ErrNotSupported
	}
	select {
	case <-src.Ready():
		return nil
	case <-src.Done():
		if err := src.Err(); err != nil {
			return err
		}
		return ErrNotFound
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ImageSurface) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return errNoStream
	}
	s.playing = true
	return nil
}

func (s *ImageSurface) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stream = nil
	s.src = nil
	s.playing = false
}

func (s *ImageSurface) Source() Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream
}

func (s *ImageSurface) frame() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing || s.src == nil {
		return nil
	}
	return s.src.Latest()
}

// Size is zero until playback started and a frame is available.
func (s *ImageSurface) Size() (int, int) {
	img := s.frame()
	if img == nil {
		return 0, 0
	}
	b := img.Bounds()
	return b.Dx(), b.Dy()
}

func (s *ImageSurface) Draw(dst *image.RGBA) {
	img := s.frame()
	if img == nil || dst == nil {
		return
	}
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
}
