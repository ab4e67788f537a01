package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/checkin-scanner/internal/service"
)

// EventHandler serves the event dashboard and attendee lists.
type EventHandler struct {
	svc service.EventServicer
}

// NewEventHandler creates an event handler.
func NewEventHandler(svc service.EventServicer) *EventHandler {
	return &EventHandler{svc: svc}
}

// ListEvents godoc
// GET /events
func (h *EventHandler) ListEvents(c *gin.Context) {
	events, err := h.svc.Events(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// ListAttendees godoc
// GET /events/:id/attendees?search=&page=&page_size=
func (h *EventHandler) ListAttendees(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || eventID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}
	q := service.AttendeeQuery{Search: c.Query("search")}
	if q.Page, err = queryInt(c, "page", 1); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return
	}
	if q.PageSize, err = queryInt(c, "page_size", 0); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page_size"})
		return
	}
	page, err := h.svc.Attendees(c.Request.Context(), eventID, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
