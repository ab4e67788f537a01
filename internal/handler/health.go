package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles health and ready checks.
type HealthHandler struct {
	check   func() error
	cameras func() int
}

// NewHealthHandler creates a health handler. check reports whether the
// session store is reachable; cameras counts connected camera peers.
func NewHealthHandler(check func() error, cameras func() int) *HealthHandler {
	return &HealthHandler{check: check, cameras: cameras}
}

// Health responds to GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "checkin-scanner",
		"time":    time.Now().Unix(),
	})
}

// Ready responds to GET /ready (for k8s readiness). Формат {"status": "ready"} для единообразия с остальными сервисами.
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.check != nil {
		if err := h.check(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "message": err.Error()})
			return
		}
	}
	resp := gin.H{"status": "ready"}
	if h.cameras != nil {
		resp["cameras"] = h.cameras()
	}
	c.JSON(http.StatusOK, resp)
}
