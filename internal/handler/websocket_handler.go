package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/psds-microservice/checkin-scanner/internal/camera"
	"github.com/psds-microservice/checkin-scanner/internal/service"
	"go.uber.org/zap"
)

// StreamWSHandler handles WebSocket connections of cameras and operator UIs.
type StreamWSHandler struct {
	hub    service.StreamHubForHandler
	logger *zap.Logger
}

// NewStreamWSHandler creates the WebSocket handler.
func NewStreamWSHandler(hub service.StreamHubForHandler, logger *zap.Logger) *StreamWSHandler {
	return &StreamWSHandler{hub: hub, logger: logger}
}

// ServeCamera upgrades a camera device connection.
// Path: /ws/camera/:device_id?facing=environment|user
// The device receives start/stop commands and answers with binary frames
// (JPEG or PNG) or JSON events.
func (h *StreamWSHandler) ServeCamera(c *gin.Context) {
	deviceID := c.Param("device_id")
	if deviceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "device_id required"})
		return
	}
	facing := camera.FacingMode(c.DefaultQuery("facing", string(camera.FacingEnvironment)))
	if facing != camera.FacingEnvironment && facing != camera.FacingUser {
		c.JSON(http.StatusBadRequest, gin.H{"error": "facing must be environment or user"})
		return
	}
	h.serve(c, deviceID, service.PeerRoleCamera, facing)
}

// ServeOperator upgrades an operator UI connection.
// Path: /ws/operator/:user_id
// The operator receives scanner state snapshots and notifications.
func (h *StreamWSHandler) ServeOperator(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}
	h.serve(c, userID, service.PeerRoleOperator, "")
}

func (h *StreamWSHandler) serve(c *gin.Context, id string, role service.PeerRole, facing camera.FacingMode) {
	conn, err := h.hub.Upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	peer, cleanup := h.hub.Register(id, role, facing, conn)
	defer cleanup()

	// Writer goroutine: send from peer.Send to connection
	go h.writePump(peer)

	h.readPump(peer)
}

func (h *StreamWSHandler) readPump(p *service.Peer) {
	defer func() {
		_ = p.Conn.Close()
	}()
	for {
		mt, data, err := p.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("read error", zap.String("peer_id", p.ID), zap.Error(err))
			}
			break
		}
		if p.Role == service.PeerRoleCamera {
			h.hub.HandleCameraMessage(p, mt, data)
		}
		// Operators drive the scanner through REST; their messages are ignored.
	}
}

func (h *StreamWSHandler) writePump(p *service.Peer) {
	defer func() {
		_ = p.Conn.Close()
	}()
	for data := range p.Send {
		if err := p.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	_ = p.Conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown"))
}
