package model

// ScanResultType is the outcome class of one scan attempt.
type ScanResultType string

const (
	ScanResultSuccess ScanResultType = "success"
	ScanResultError   ScanResultType = "error"
	ScanResultWarning ScanResultType = "warning"
)

// ScanResult is the result card shown after a submission. Never persisted.
type ScanResult struct {
	AttemptID     string         `json:"attempt_id"`
	Type          ScanResultType `json:"type"`
	Message       string         `json:"message"`
	Payload       string         `json:"payload"`
	AttendeeName  string         `json:"attendee_name,omitempty"`
	AttendeeEmail string         `json:"attendee_email,omitempty"`
	ScanTime      string         `json:"scan_time,omitempty"`
}

// NotificationLevel mirrors the toast variants of the operator UI.
type NotificationLevel string

const (
	NotificationInfo        NotificationLevel = "info"
	NotificationDestructive NotificationLevel = "destructive"
)

// Notification is a transient message pushed to operators.
type Notification struct {
	Level       NotificationLevel `json:"level"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
}
