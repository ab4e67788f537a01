package scanner

import (
	"errors"
	"strings"
	"time"

	"github.com/psds-microservice/checkin-scanner/internal/camera"
	"github.com/psds-microservice/checkin-scanner/internal/errs"
	"github.com/psds-microservice/checkin-scanner/internal/model"
)

const scanFailedMessage = "Failed to scan ticket"

// Transition returns the state after ev and the effects to perform, in order.
// It never blocks and never touches the camera or the network.
func Transition(s State, ev Event) (State, []Effect) {
	switch ev := ev.(type) {
	case StartRequested:
		return start(s)
	case CameraReady:
		return cameraReady(s, ev)
	case CameraFailed:
		return cameraFailed(s, ev)
	case CameraLost:
		return cameraLost(s, ev)
	case Decoded:
		return decoded(s, ev)
	case SubmissionSucceeded:
		return submissionSucceeded(s, ev)
	case SubmissionFailed:
		return submissionFailed(s, ev)
	case ScanNextRequested:
		return scanNext(s)
	case StopRequested:
		return stop(s, false)
	case Teardown:
		return stop(s, true)
	}
	return s, nil
}

func start(s State) (State, []Effect) {
	if s.Closed || s.HasScannedTicket {
		return s, nil
	}
	switch s.Phase {
	case "", PhaseIdle, PhaseCameraError:
	default:
		return s, nil
	}
	s.Result = nil
	s.CameraError = ""
	s.Processing = false
	s.AttemptID = ""
	if s.Camera != nil {
		s.Phase = PhaseScanning
		s.TimerArmed = true
		return s, []Effect{StartTimer{}}
	}
	s.Generation++
	s.Phase = PhaseStarting
	return s, []Effect{AcquireCamera{Generation: s.Generation}}
}

func cameraReady(s State, ev CameraReady) (State, []Effect) {
	if ev.Camera == nil {
		return s, nil
	}
	// Stopped or restarted while the camera was being acquired.
	if s.Closed || s.Phase != PhaseStarting || ev.Generation != s.Generation {
		return s, []Effect{ReleaseCamera{Camera: ev.Camera}}
	}
	s.Camera = ev.Camera
	s.Phase = PhaseScanning
	s.TimerArmed = true
	return s, []Effect{StartTimer{}}
}

func cameraFailed(s State, ev CameraFailed) (State, []Effect) {
	if s.Closed || s.Phase != PhaseStarting || ev.Generation != s.Generation {
		return s, nil
	}
	s.Phase = PhaseCameraError
	s.CameraError = camera.Describe(ev.Err)
	return s, nil
}

// cameraLost drops a held camera the device has ended. While scanning the
// operator gets the camera error and may start again; a pending submission or
// a shown result stays, and Scan Next acquires a new camera.
func cameraLost(s State, ev CameraLost) (State, []Effect) {
	if s.Closed || s.Camera == nil || ev.Camera != s.Camera {
		return s, nil
	}
	var effects []Effect
	if s.Phase == PhaseScanning {
		effects = append(effects, StopTimer{})
		s.Phase = PhaseCameraError
		s.TimerArmed = false
		s.CameraError = camera.Describe(ev.Err)
	}
	effects = append(effects, ReleaseCamera{Camera: s.Camera})
	s.Camera = nil
	return s, effects
}

func decoded(s State, ev Decoded) (State, []Effect) {
	if s.Closed || s.Phase != PhaseScanning || s.Processing || ev.Payload == "" {
		return s, nil
	}
	s.Phase = PhaseProcessing
	s.Processing = true
	s.HasScannedTicket = true
	s.TimerArmed = false
	s.AttemptID = ev.AttemptID
	return s, []Effect{StopTimer{}, Submit{AttemptID: ev.AttemptID, Payload: ev.Payload}}
}

func (s State) owns(attemptID string) bool {
	return !s.Closed && s.Processing && s.AttemptID == attemptID
}

func submissionSucceeded(s State, ev SubmissionSucceeded) (State, []Effect) {
	res := resultFromResponse(ev)
	effects := []Effect{Notify{Notification: notificationFor(res)}}
	if !s.owns(ev.AttemptID) {
		return s, effects
	}
	s.Processing = false
	s.AttemptID = ""
	s.Result = &res
	s.Phase = PhaseResultSuccess
	if res.Type == model.ScanResultWarning {
		s.Phase = PhaseResultWarning
	}
	return s, effects
}

func submissionFailed(s State, ev SubmissionFailed) (State, []Effect) {
	if errors.Is(ev.Err, errs.ErrUnauthorized) {
		return expire(s, ev)
	}
	msg := scanFailedMessage
	if ev.Err != nil && strings.TrimSpace(ev.Err.Error()) != "" {
		msg = ev.Err.Error()
	}
	res := model.ScanResult{
		AttemptID: ev.AttemptID,
		Type:      model.ScanResultError,
		Message:   msg,
		Payload:   ev.Payload,
	}
	effects := []Effect{Notify{Notification: notificationFor(res)}}
	if !s.owns(ev.AttemptID) {
		return s, effects
	}
	s.Processing = false
	s.AttemptID = ""
	s.Result = &res
	s.Phase = PhaseResultError
	return s, effects
}

// expire drops the attempt without a result card and asks the host, once, to
// end the session.
func expire(s State, ev SubmissionFailed) (State, []Effect) {
	var effects []Effect
	if s.owns(ev.AttemptID) {
		effects = append(effects, StopTimer{}, ReleaseCamera{Camera: s.Camera})
		s = State{Phase: PhaseIdle, Generation: s.Generation + 1, Expired: s.Expired}
	}
	if !s.Expired {
		s.Expired = true
		effects = append(effects, ExpireSession{})
	}
	return s, effects
}

func scanNext(s State) (State, []Effect) {
	if s.Closed || !s.Phase.IsResult() {
		return s, nil
	}
	s.Result = nil
	s.HasScannedTicket = false
	if s.Camera == nil {
		s.Generation++
		s.Phase = PhaseStarting
		return s, []Effect{AcquireCamera{Generation: s.Generation}}
	}
	s.Phase = PhaseScanning
	s.TimerArmed = true
	return s, []Effect{StartTimer{}}
}

// stop is valid from every state. The generation bump makes any acquisition
// still in progress stale, so its handle is released when it arrives.
func stop(s State, closing bool) (State, []Effect) {
	effects := []Effect{StopTimer{}, ReleaseCamera{Camera: s.Camera}}
	return State{
		Phase:      PhaseIdle,
		Generation: s.Generation + 1,
		Expired:    s.Expired,
		Closed:     s.Closed || closing,
	}, effects
}

func resultFromResponse(ev SubmissionSucceeded) model.ScanResult {
	res := model.ScanResult{
		AttemptID: ev.AttemptID,
		Type:      model.ScanResultSuccess,
		Payload:   ev.Payload,
		ScanTime:  ev.At.UTC().Format(time.RFC3339),
	}
	if ev.Response == nil {
		return res
	}
	res.Message = ev.Response.Message
	if strings.EqualFold(ev.Response.Status, string(model.ScanResultWarning)) {
		res.Type = model.ScanResultWarning
	}
	if t := ev.Response.Ticket; t != nil {
		res.AttendeeName = t.AttendeeName
		res.AttendeeEmail = t.AttendeeEmail
		if t.ScanTime != nil && *t.ScanTime != "" {
			res.ScanTime = *t.ScanTime
		}
	}
	return res
}

func notificationFor(res model.ScanResult) model.Notification {
	switch res.Type {
	case model.ScanResultSuccess:
		desc := "Ticket scanned successfully"
		if res.AttendeeName != "" {
			desc += " for " + res.AttendeeName
		}
		return model.Notification{Level: model.NotificationInfo, Title: "Success", Description: desc}
	case model.ScanResultWarning:
		return model.Notification{Level: model.NotificationInfo, Title: "Warning", Description: res.Message}
	default:
		return model.Notification{Level: model.NotificationDestructive, Title: "Scan Failed", Description: res.Message}
	}
}
