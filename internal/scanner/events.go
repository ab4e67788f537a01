package scanner

import (
	"time"

	"github.com/psds-microservice/checkin-scanner/internal/camera"
	"github.com/psds-microservice/checkin-scanner/internal/model"
)

// Event is an input of Transition.
type Event interface{ isEvent() }

type (
	// StartRequested: operator pressed "Start Camera".
	StartRequested struct{}
	// CameraReady: acquisition of Generation succeeded.
	CameraReady struct {
		Generation uint64
		Camera     *camera.Handle
	}
	// CameraFailed: acquisition of Generation failed.
	CameraFailed struct {
		Generation uint64
		Err        error
	}
	// CameraLost: the device ended the stream of Camera.
	CameraLost struct {
		Camera *camera.Handle
		Err    error
	}
	// Decoded: a sampled frame contained a QR payload.
	Decoded struct {
		AttemptID string
		Payload   string
	}
	SubmissionSucceeded struct {
		AttemptID string
		Payload   string
		Response  *model.ScanResponse
		At        time.Time
	}
	SubmissionFailed struct {
		AttemptID string
		Payload   string
		Err       error
	}
	ScanNextRequested struct{}
	StopRequested     struct{}
	// Teardown: the scanner view is gone. Releases everything, always.
	Teardown struct{}
)

func (StartRequested) isEvent()      {}
func (CameraReady) isEvent()         {}
func (CameraFailed) isEvent()        {}
func (CameraLost) isEvent()          {}
func (Decoded) isEvent()             {}
func (SubmissionSucceeded) isEvent() {}
func (SubmissionFailed) isEvent()    {}
func (ScanNextRequested) isEvent()   {}
func (StopRequested) isEvent()       {}
func (Teardown) isEvent()            {}

// Effect is work requested by Transition.
type Effect interface{ isEffect() }

type (
	AcquireCamera struct{ Generation uint64 }
	ReleaseCamera struct{ Camera *camera.Handle }
	StartTimer    struct{}
	StopTimer     struct{}
	Submit        struct{ AttemptID, Payload string }
	Notify        struct{ Notification model.Notification }
	ExpireSession struct{}
)

func (AcquireCamera) isEffect() {}
func (ReleaseCamera) isEffect() {}
func (StartTimer) isEffect()    {}
func (StopTimer) isEffect()     {}
func (Submit) isEffect()        {}
func (Notify) isEffect()        {}
func (ExpireSession) isEffect() {}
