// Package scanner implements the live QR check-in loop: camera acquisition,
// frame sampling, decode, submission and the result lifecycle.
//
// Transition is a pure function from (State, Event) to the next State and
// the Effects to perform. Runner performs the effects and feeds their
// outcomes back as events on a single goroutine.
package scanner

import (
	"github.com/psds-microservice/checkin-scanner/internal/camera"
	"github.com/psds-microservice/checkin-scanner/internal/model"
)

// Phase is the scanner state shown to the operator.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseStarting      Phase = "starting"
	PhaseScanning      Phase = "scanning"
	PhaseProcessing    Phase = "processing"
	PhaseResultSuccess Phase = "result-success"
	PhaseResultError   Phase = "result-error"
	PhaseResultWarning Phase = "result-warning"
	PhaseCameraError   Phase = "camera-error"
)

// IsResult reports whether a result card is displayed.
func (p Phase) IsResult() bool {
	return p == PhaseResultSuccess || p == PhaseResultError || p == PhaseResultWarning
}

// State of the check-in scanner. The zero value is idle.
type State struct {
	Phase       Phase
	Result      *model.ScanResult
	CameraError string

	// Processing is set while a submission is in flight.
	Processing bool
	// HasScannedTicket gates Start until the operator dismisses the result.
	HasScannedTicket bool
	TimerArmed       bool

	// Camera is the one handle the scanner holds, nil when released.
	Camera *camera.Handle
	// Generation identifies the current acquisition; bumped by Start and Stop.
	Generation uint64
	AttemptID  string

	Expired bool
	Closed  bool
}

// View is the read-only projection of State published to operators.
type View struct {
	Phase            Phase             `json:"phase"`
	Scanning         bool              `json:"is_scanning"`
	Processing       bool              `json:"is_processing"`
	HasScannedTicket bool              `json:"has_scanned_ticket"`
	CameraError      string            `json:"camera_error,omitempty"`
	Result           *model.ScanResult `json:"result,omitempty"`
	StreamID         string            `json:"stream_id,omitempty"`
	EventID          int64             `json:"event_id"`
	EventName        string            `json:"event_name"`
}

// View projects the state; the event fields are filled in by the runner.
func (s State) View() View {
	v := View{
		Phase:            s.Phase,
		Scanning:         s.Phase == PhaseScanning,
		Processing:       s.Processing,
		HasScannedTicket: s.HasScannedTicket,
		CameraError:      s.CameraError,
		StreamID:         s.Camera.StreamID(),
	}
	if v.Phase == "" {
		v.Phase = PhaseIdle
	}
	if s.Result != nil {
		r := *s.Result
		v.Result = &r
	}
	return v
}
