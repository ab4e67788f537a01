// Package cameratest provides in-memory cameras for tests.
package cameratest

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"sync"

	"github.com/psds-microservice/checkin-scanner/internal/camera"
)

// Track records Stop calls.
type Track struct {
	mu    sync.Mutex
	id    string
	state camera.TrackState
	stops int
}

func (t *Track) ID() string { return t.id }

func (t *Track) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = camera.TrackStopped
	t.stops++
}

func (t *Track) State() camera.TrackState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Stops returns how many times Stop was called.
func (t *Track) Stops() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stops
}

// Stream is a stream with a fixed set of tracks.
type Stream struct {
	id     string
	tracks []*Track

	mu   sync.Mutex
	done chan struct{}
	err  error
}

// NewStream returns a stream with n live tracks.
func NewStream(id string, n int) *Stream {
	s := &Stream{id: id, done: make(chan struct{})}
	for i := 0; i < n; i++ {
		s.tracks = append(s.tracks, &Track{id: fmt.Sprintf("%s/%d", id, i), state: camera.TrackLive})
	}
	return s
}

func (s *Stream) ID() string { return s.id }

func (s *Stream) Tracks() []camera.Track {
	out := make([]camera.Track, 0, len(s.tracks))
	for _, t := range s.tracks {
		out = append(out, t)
	}
	return out
}

// Done is closed by End.
func (s *Stream) Done() <-chan struct{} { return s.done }

func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// End ends the stream from the device side, as when a camera is unplugged.
func (s *Stream) End(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
		return
	default:
	}
	s.err = err
	close(s.done)
}

// AllStopped reports whether every track was stopped.
func (s *Stream) AllStopped() bool {
	for _, t := range s.tracks {
		if t.State() != camera.TrackStopped {
			return false
		}
	}
	return true
}

// Device hands out fake streams, or fails with Err.
type Device struct {
	mu          sync.Mutex
	Err         error
	TracksEach  int
	streams     []*Stream
	constraints []camera.Constraints
}

func (d *Device) Open(ctx context.Context, c camera.Constraints) (camera.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.constraints = append(d.constraints, c)
	if d.Err != nil {
		return nil, d.Err
	}
	n := d.TracksEach
	if n == 0 {
		n = 1
	}
	s := NewStream(fmt.Sprintf("stream-%d", len(d.streams)+1), n)
	d.streams = append(d.streams, s)
	return s, nil
}

// Streams returns every stream granted so far.
func (d *Device) Streams() []*Stream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Stream(nil), d.streams...)
}

// Constraints returns the constraints of every Open call.
func (d *Device) Constraints() []camera.Constraints {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]camera.Constraints(nil), d.constraints...)
}

// Surface is a video surface showing a fixed Frame once played.
type Surface struct {
	mu          sync.Mutex
	Frame       image.Image
	MetadataErr error
	PlayErr     error
	attached    camera.Stream
	played      bool
	detaches    int
}

func (s *Surface) Attach(st camera.Stream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attached = st
}

func (s *Surface) WaitMetadata(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.MetadataErr
}

func (s *Surface) Play(ctx context.Context) error {
	if s.PlayErr != nil {
		return s.PlayErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.played = true
	return nil
}

func (s *Surface) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attached = nil
	s.played = false
	s.detaches++
}

func (s *Surface) Source() camera.Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached
}

// Detaches returns how many times Detach was called.
func (s *Surface) Detaches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detaches
}

func (s *Surface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.played || s.Frame == nil {
		return 0, 0
	}
	b := s.Frame.Bounds()
	return b.Dx(), b.Dy()
}

func (s *Surface) Draw(dst *image.RGBA) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Frame == nil {
		return
	}
	draw.Draw(dst, dst.Bounds(), s.Frame, s.Frame.Bounds().Min, draw.Src)
}
