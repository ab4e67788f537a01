package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/checkin-scanner/internal/model"
	"github.com/psds-microservice/checkin-scanner/internal/service"
)

// SessionHandler handles login, logout and event selection.
type SessionHandler struct {
	svc    service.SessionServicer
	events service.EventServicer
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(svc service.SessionServicer, events service.EventServicer) *SessionHandler {
	return &SessionHandler{svc: svc, events: events}
}

func sessionResponse(s *model.Session) model.SessionResponse {
	return model.SessionResponse{SessionID: s.ID, EventID: s.EventID, EventName: s.EventName}
}

// Login godoc
// POST /auth/login
func (h *SessionHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return
	}
	sess, err := h.svc.Login(c.Request.Context(), req.OTP)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionResponse(sess))
}

// Logout godoc
// POST /auth/logout
func (h *SessionHandler) Logout(c *gin.Context) {
	if err := h.svc.Logout(); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetSession godoc
// GET /auth/session
func (h *SessionHandler) GetSession(c *gin.Context) {
	sess, err := h.svc.Current()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(sess))
}

// SelectEvent godoc
// PUT /auth/session/event
func (h *SessionHandler) SelectEvent(c *gin.Context) {
	var req model.SelectEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return
	}
	sess, err := h.events.SelectEvent(c.Request.Context(), req.EventID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(sess))
}

// GetOrganizer godoc
// GET /organizer
func (h *SessionHandler) GetOrganizer(c *gin.Context) {
	org, err := h.events.Organizer(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, org)
}
