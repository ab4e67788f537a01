package model

import "time"

// Session is the API view of the operator session (not GORM entity).
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"-"`
	EventID   int64     `json:"event_id,omitempty"`
	EventName string    `json:"event_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HasEvent reports whether an event has been selected for scanning.
func (s *Session) HasEvent() bool {
	return s != nil && s.EventID != 0
}

// LoginRequest is the request body for POST /auth/login.
type LoginRequest struct {
	OTP string `json:"otp" binding:"required"`
}

// SelectEventRequest is the request body for PUT /auth/session/event.
type SelectEventRequest struct {
	EventID int64 `json:"event_id" binding:"required"`
}

// SessionResponse is the response for GET /auth/session and POST /auth/login.
type SessionResponse struct {
	SessionID string `json:"session_id"`
	EventID   int64  `json:"event_id,omitempty"`
	EventName string `json:"event_name,omitempty"`
}
