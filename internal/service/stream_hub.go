package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/psds-microservice/checkin-scanner/internal/camera"
	"github.com/psds-microservice/checkin-scanner/internal/model"
	"github.com/psds-microservice/checkin-scanner/internal/scanner"
	"go.uber.org/zap"
)

// PeerRole is camera (frame source) or operator (scanner UI).
type PeerRole string

const (
	PeerRoleCamera   PeerRole = "camera"
	PeerRoleOperator PeerRole = "operator"
)

// Peer represents a WebSocket connection.
type Peer struct {
	ID         string
	Role       PeerRole
	FacingMode camera.FacingMode
	Conn       *websocket.Conn
	Send       chan []byte

	mu     sync.Mutex
	closed bool
	stream *remoteStream // active stream, camera peers only
}

// send queues data unless the peer is gone or its buffer is full.
func (p *Peer) send(data []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	select {
	case p.Send <- data:
		return true
	default:
		return false
	}
}

// close ends the Send queue. The connection's writer drains it and closes
// the connection; nothing else writes to Conn.
func (p *Peer) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.Send)
	}
}

func (p *Peer) activeStream() *remoteStream {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stream
}

// StreamHubForHandler: то, что нужно WebSocket handler от хаба.
type StreamHubForHandler interface {
	Register(id string, role PeerRole, facing camera.FacingMode, conn *websocket.Conn) (*Peer, func())
	Upgrader() *websocket.Upgrader
	HandleCameraMessage(p *Peer, messageType int, data []byte)
}

// Control messages exchanged with camera peers.
type cameraCommand struct {
	Type     string `json:"type"`
	StreamID string `json:"stream_id"`
	camera.Constraints
}

type cameraEvent struct {
	Event    string `json:"event"`
	StreamID string `json:"stream_id,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Messages pushed to operator peers.
type operatorMessage struct {
	Type         string              `json:"type"`
	State        *scanner.View       `json:"state,omitempty"`
	Notification *model.Notification `json:"notification,omitempty"`
}

// StreamHub tracks camera and operator connections. It is the camera.Device
// the scanner acquires streams from and the scanner.Notifier that fans state
// out to operators.
type StreamHub struct {
	mu         sync.RWMutex
	peers      map[PeerRole]map[*Peer]struct{}
	joined     chan struct{} // closed when a camera registers, then replaced
	lastState  []byte
	upgrader   websocket.Upgrader
	maxMsgSize int64
	deviceID   string
	log        *zap.Logger
}

// NewStreamHub creates a new stream hub.
func NewStreamHub(maxMessageSize int64, log *zap.Logger) *StreamHub {
	if log == nil {
		log = zap.NewNop()
	}
	return &StreamHub{
		peers: map[PeerRole]map[*Peer]struct{}{
			PeerRoleCamera:   {},
			PeerRoleOperator: {},
		},
		joined:     make(chan struct{}),
		maxMsgSize: maxMessageSize,
		log:        log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024 * 4,
			WriteBufferSize: 1024 * 4,
			// Allow all origins for dev; in prod set CheckOrigin.
		},
	}
}

// SetReadLimit sets max message size for connections.
func (h *StreamHub) SetReadLimit(n int64) { h.maxMsgSize = n }

// SetBufferSizes sets the upgrader I/O buffer sizes.
func (h *StreamHub) SetBufferSizes(read, write int) {
	if read > 0 {
		h.upgrader.ReadBufferSize = read
	}
	if write > 0 {
		h.upgrader.WriteBufferSize = write
	}
}

// SetDeviceID pins Open to one camera peer. Empty means any.
func (h *StreamHub) SetDeviceID(id string) { h.deviceID = id }

// Register adds a peer and returns a cleanup function.
func (h *StreamHub) Register(id string, role PeerRole, facing camera.FacingMode, conn *websocket.Conn) (*Peer, func()) {
	if h.maxMsgSize > 0 && conn != nil {
		conn.SetReadLimit(h.maxMsgSize)
	}
	p := &Peer{
		ID:         id,
		Role:       role,
		FacingMode: facing,
		Conn:       conn,
		Send:       make(chan []byte, 256),
	}
	h.mu.Lock()
	h.peers[role][p] = struct{}{}
	if role == PeerRoleCamera {
		close(h.joined)
		h.joined = make(chan struct{})
	}
	last := h.lastState
	h.mu.Unlock()

	if role == PeerRoleOperator && last != nil {
		p.send(last)
	}

	h.log.Info("peer registered",
		zap.String("peer_id", id),
		zap.String("role", string(role)),
		zap.String("facing_mode", string(facing)))

	cleanup := func() {
		h.unregister(p)
	}
	return p, cleanup
}

func (h *StreamHub) unregister(p *Peer) {
	h.mu.Lock()
	delete(h.peers[p.Role], p)
	h.mu.Unlock()

	p.mu.Lock()
	st := p.stream
	p.stream = nil
	p.mu.Unlock()
	p.close()
	if st != nil {
		st.fail(camera.ErrNotFound)
	}
	h.log.Info("peer unregistered",
		zap.String("peer_id", p.ID),
		zap.String("role", string(p.Role)))
}

// Open implements camera.Device. It waits for a camera peer until ctx is done.
func (h *StreamHub) Open(ctx context.Context, c camera.Constraints) (camera.Stream, error) {
	for {
		h.mu.RLock()
		p := h.pickCamera(c.FacingMode)
		joined := h.joined
		h.mu.RUnlock()
		if p != nil {
			return h.startStream(p, c)
		}
		select {
		case <-joined:
		case <-ctx.Done():
			return nil, camera.ErrNotFound
		}
	}
}

// pickCamera prefers the configured device, then the requested facing mode,
// then any camera. Caller holds h.mu.
func (h *StreamHub) pickCamera(facing camera.FacingMode) *Peer {
	var fallback *Peer
	for p := range h.peers[PeerRoleCamera] {
		if h.deviceID != "" {
			if p.ID == h.deviceID {
				return p
			}
			continue
		}
		if p.FacingMode == facing {
			return p
		}
		if fallback == nil {
			fallback = p
		}
	}
	return fallback
}

func (h *StreamHub) startStream(p *Peer, c camera.Constraints) (camera.Stream, error) {
	st := newRemoteStream(p)
	p.mu.Lock()
	prev := p.stream
	p.stream = st
	p.mu.Unlock()
	if prev != nil {
		prev.fail(errCameraReassigned)
	}
	raw, _ := json.Marshal(cameraCommand{Type: "start", StreamID: st.id, Constraints: c})
	if !p.send(raw) {
		p.detach(st)
		return nil, camera.ErrNotFound
	}
	h.log.Info("camera stream requested",
		zap.String("device_id", p.ID),
		zap.String("stream_id", st.id))
	return st, nil
}

var errCameraReassigned = errors.New("camera was taken by another scanner")

// HandleCameraMessage handles one message read from a camera peer: binary
// messages are encoded frames, text messages are control events.
func (h *StreamHub) HandleCameraMessage(p *Peer, messageType int, data []byte) {
	st := p.activeStream()
	if st == nil {
		return
	}
	switch messageType {
	case websocket.BinaryMessage:
		img, format, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			h.log.Debug("frame decode failed", zap.String("device_id", p.ID), zap.Error(err))
			return
		}
		if st.push(img) {
			h.log.Info("camera metadata loaded",
				zap.String("stream_id", st.id),
				zap.String("format", format),
				zap.Int("width", img.Bounds().Dx()),
				zap.Int("height", img.Bounds().Dy()))
		}
	case websocket.TextMessage:
		var ev cameraEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			h.log.Debug("invalid camera event", zap.String("device_id", p.ID), zap.Error(err))
			return
		}
		if ev.StreamID != "" && ev.StreamID != st.id {
			return
		}
		if err := cameraEventError(ev); err != nil {
			h.log.Warn("camera reported failure", zap.String("device_id", p.ID), zap.Error(err))
			p.detach(st)
			st.fail(err)
		}
	}
}

func cameraEventError(ev cameraEvent) error {
	switch ev.Event {
	case "permission_denied":
		return camera.ErrPermissionDenied
	case "not_found":
		return camera.ErrNotFound
	case "unsupported":
		return camera.ErrNotSupported
	case "error":
		if ev.Message == "" {
			return errors.New("Unknown error.")
		}
		return errors.New(ev.Message)
	}
	return nil
}

// Notify implements scanner.Notifier.
func (h *StreamHub) Notify(n model.Notification) {
	raw, _ := json.Marshal(operatorMessage{Type: "notification", Notification: &n})
	h.broadcast(raw)
}

// PublishState implements scanner.Notifier. The last state is replayed to
// operators that connect later.
func (h *StreamHub) PublishState(v scanner.View) {
	raw, _ := json.Marshal(operatorMessage{Type: "state", State: &v})
	h.mu.Lock()
	h.lastState = raw
	h.mu.Unlock()
	h.broadcast(raw)
}

func (h *StreamHub) broadcast(data []byte) {
	h.mu.RLock()
	// Copy peers so we don't hold lock while writing
	peers := make([]*Peer, 0, len(h.peers[PeerRoleOperator]))
	for p := range h.peers[PeerRoleOperator] {
		peers = append(peers, p)
	}
	h.mu.RUnlock()

	for _, p := range peers {
		if !p.send(data) {
			h.log.Warn("operator send buffer full", zap.String("peer_id", p.ID))
		}
	}
}

// CloseAll queues a shutdown event to every peer and ends its send queue;
// each connection closes once its writer has flushed.
func (h *StreamHub) CloseAll() {
	h.mu.Lock()
	var all []*Peer
	for _, m := range h.peers {
		for p := range m {
			all = append(all, p)
		}
	}
	h.mu.Unlock()

	raw, _ := json.Marshal(map[string]string{"event": "shutdown"})
	for _, p := range all {
		p.send(raw)
		p.close()
	}
	h.log.Info("hub closed", zap.Int("peers", len(all)))
}

// Upgrader returns the WebSocket upgrader for HTTP handlers.
func (h *StreamHub) Upgrader() *websocket.Upgrader {
	return &h.upgrader
}

// PeerCount returns the number of connected peers with the role.
func (h *StreamHub) PeerCount(role PeerRole) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers[role])
}
