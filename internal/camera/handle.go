package camera

import (
	"context"
	"fmt"
	"sync"
)

// Handle owns one acquired camera: the granted stream and the surface it is
// attached to. Release is the only way to give the device back.
type Handle struct {
	mu       sync.Mutex
	stream   Stream
	surface  Surface
	released bool
	done     chan struct{}
}

// endingStream is a stream the device can end on its own.
type endingStream interface {
	Done() <-chan struct{}
	Err() error
}

// Acquire opens a stream on dev, attaches it to surf, waits for metadata and
// starts playback. On any failure after the stream was granted, the stream is
// released before the error is returned.
func Acquire(ctx context.Context, dev Device, surf Surface, c Constraints) (*Handle, error) {
	if dev == nil || surf == nil {
		return nil, ErrNotSupported
	}
	stream, err := dev.Open(ctx, c)
	if err != nil {
		return nil, err
	}
	h := &Handle{stream: stream, surface: surf, done: make(chan struct{})}
	surf.Attach(stream)
	if err := surf.WaitMetadata(ctx); err != nil {
		h.Release()
		return nil, fmt.Errorf("wait metadata: %w", err)
	}
	if err := surf.Play(ctx); err != nil {
		h.Release()
		return nil, fmt.Errorf("play: %w", err)
	}
	return h, nil
}

// Release stops every track and detaches the surface. Safe on nil and on an
// already released handle.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return
	}
	h.released = true
	if h.done != nil {
		close(h.done)
	}
	if h.stream != nil {
		for _, t := range h.stream.Tracks() {
			t.Stop()
		}
	}
	if h.surface != nil {
		h.surface.Detach()
	}
}

// Released reports whether Release has run.
func (h *Handle) Released() bool {
	if h == nil {
		return true
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

// Surface returns the surface frames are sampled from.
func (h *Handle) Surface() Surface {
	if h == nil {
		return nil
	}
	return h.surface
}

// StreamID returns the id of the held stream.
func (h *Handle) StreamID() string {
	if h == nil || h.stream == nil {
		return ""
	}
	return h.stream.ID()
}

// ReleasedC is closed by Release.
func (h *Handle) ReleasedC() <-chan struct{} {
	if h == nil {
		return nil
	}
	return h.done
}

// Lost is closed when the device ends the held stream, whether or not Release
// was called. It is nil for streams that only end through Release.
func (h *Handle) Lost() <-chan struct{} {
	if h == nil {
		return nil
	}
	if es, ok := h.stream.(endingStream); ok {
		return es.Done()
	}
	return nil
}

// Err returns why the device ended the stream. A stream that ended without a
// reason reports ErrNotFound.
func (h *Handle) Err() error {
	if h == nil {
		return nil
	}
	es, ok := h.stream.(endingStream)
	if !ok {
		return nil
	}
	select {
	case <-es.Done():
	default:
		return nil
	}
	if err := es.Err(); err != nil {
		return err
	}
	return ErrNotFound
}
