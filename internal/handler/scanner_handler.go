package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/checkin-scanner/internal/scanner"
	"github.com/psds-microservice/checkin-scanner/internal/service"
)

// ScannerHandler exposes the scanner controls. Commands are asynchronous:
// the response carries the state at the time of the call, later changes are
// pushed to operator WebSockets.
type ScannerHandler struct {
	svc service.ScannerServicer
}

// NewScannerHandler creates a scanner handler.
func NewScannerHandler(svc service.ScannerServicer) *ScannerHandler {
	return &ScannerHandler{svc: svc}
}

func (h *ScannerHandler) command(c *gin.Context, fn func() (scanner.View, error)) {
	v, err := fn()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, v)
}

// Start godoc
// POST /scanner/start
func (h *ScannerHandler) Start(c *gin.Context) { h.command(c, h.svc.Start) }

// Stop godoc
// POST /scanner/stop
func (h *ScannerHandler) Stop(c *gin.Context) { h.command(c, h.svc.Stop) }

// Next godoc
// POST /scanner/next
func (h *ScannerHandler) Next(c *gin.Context) { h.command(c, h.svc.Next) }

// Back godoc
// POST /scanner/back
func (h *ScannerHandler) Back(c *gin.Context) {
	if err := h.svc.Back(); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// State godoc
// GET /scanner/state
func (h *ScannerHandler) State(c *gin.Context) {
	v, err := h.svc.State()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}
