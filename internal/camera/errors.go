package camera

import (
	"errors"
	"strings"
)

var (
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrNotFound         = errors.New("no camera found")
	ErrNotSupported     = errors.New("camera not supported")
)

// Failure classifies acquisition errors for the operator.
type Failure int

const (
	FailureUnknown Failure = iota
	FailurePermission
	FailureNotFound
	FailureNotSupported
)

const messagePrefix = "Unable to access camera. "

// Classify maps an acquisition error to its failure class.
func Classify(err error) Failure {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return FailurePermission
	case errors.Is(err, ErrNotFound):
		return FailureNotFound
	case errors.Is(err, ErrNotSupported):
		return FailureNotSupported
	default:
		return FailureUnknown
	}
}

// Describe returns the message shown inline when the camera cannot be started.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	switch Classify(err) {
	case FailurePermission:
		return messagePrefix + "Please allow camera permission and try again."
	case FailureNotFound:
		return messagePrefix + "No camera found on this device."
	case FailureNotSupported:
		return messagePrefix + "Camera is not supported on this device."
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		msg = "Unknown error."
	}
	return messagePrefix + msg
}
