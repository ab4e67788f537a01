package service

import (
	"encoding/json"
	"image"
	"sync"

	"github.com/google/uuid"
	"github.com/psds-microservice/checkin-scanner/internal/camera"
)

// remoteStream is a camera stream fed by frames a camera peer pushes over
// its WebSocket. It has a single video track.
type remoteStream struct {
	id    string
	peer  *Peer
	track *remoteTrack

	mu      sync.Mutex
	latest  image.Image
	ready   chan struct{}
	done    chan struct{}
	err     error
	started bool
	ended   bool
}

var _ camera.ImageStream = (*remoteStream)(nil)

func newRemoteStream(p *Peer) *remoteStream {
	st := &remoteStream{
		id:    uuid.New().String(),
		peer:  p,
		ready: make(chan struct{}),
		done:  make(chan struct{}),
	}
	st.track = &remoteTrack{stream: st, state: camera.TrackLive}
	return st
}

func (s *remoteStream) ID() string { return s.id }

func (s *remoteStream) Tracks() []camera.Track { return []camera.Track{s.track} }

func (s *remoteStream) Ready() <-chan struct{} { return s.ready }

func (s *remoteStream) Done() <-chan struct{} { return s.done }

func (s *remoteStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *remoteStream) Latest() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// push stores a frame. It reports true for the first frame.
func (s *remoteStream) push(img image.Image) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return false
	}
	s.latest = img
	if s.started {
		return false
	}
	s.started = true
	close(s.ready)
	return true
}

// fail ends the stream. err may be nil for a clean stop.
func (s *remoteStream) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true
	s.err = err
	s.latest = nil
	close(s.done)
}

// detach clears st as the peer's active stream.
func (p *Peer) detach(st *remoteStream) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream == st {
		p.stream = nil
	}
}

type remoteTrack struct {
	stream *remoteStream

	mu    sync.Mutex
	state camera.TrackState
}

func (t *remoteTrack) ID() string { return t.stream.id + "/video" }

func (t *remoteTrack) State() camera.TrackState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Stop tells the camera peer to stop capturing. Safe to call repeatedly.
func (t *remoteTrack) Stop() {
	t.mu.Lock()
	if t.state == camera.TrackStopped {
		t.mu.Unlock()
		return
	}
	t.state = camera.TrackStopped
	t.mu.Unlock()

	st := t.stream
	st.peer.detach(st)
	st.fail(nil)
	raw, _ := json.Marshal(cameraCommand{Type: "stop", StreamID: st.id})
	st.peer.send(raw)
}
