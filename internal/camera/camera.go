// Package camera models a host camera the way a browser exposes it: a device
// that grants media streams, tracks that must be stopped, and a video surface
// the stream is attached to.
package camera

import (
	"context"
	"image"
)

// FacingMode selects front or rear camera.
type FacingMode string

const (
	FacingEnvironment FacingMode = "environment"
	FacingUser        FacingMode = "user"
)

// Constraints are acquisition hints. Resolution is ideal, not required.
type Constraints struct {
	FacingMode  FacingMode `json:"facing_mode"`
	IdealWidth  int        `json:"width"`
	IdealHeight int        `json:"height"`
}

// DefaultConstraints prefers the rear camera at 640x480.
func DefaultConstraints() Constraints {
	return Constraints{FacingMode: FacingEnvironment, IdealWidth: 640, IdealHeight: 480}
}

// TrackState is the lifecycle of one media track.
type TrackState string

const (
	TrackLive    TrackState = "live"
	TrackStopped TrackState = "stopped"
)

// Track is one media track of a stream.
type Track interface {
	ID() string
	Stop()
	State() TrackState
}

// Stream is a granted media stream.
type Stream interface {
	ID() string
	Tracks() []Track
}

// Device grants video streams (getUserMedia equivalent).
type Device interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Surface is the video element a stream is attached to. It is also the frame
// source sampled by the QR decoder.
type Surface interface {
	Attach(s Stream)
	// WaitMetadata blocks until the attached stream reports its dimensions.
	WaitMetadata(ctx context.Context) error
	// Play starts playback; frames are only available after Play returns.
	Play(ctx context.Context) error
	Detach()
	Source() Stream
	Size() (width, height int)
	Draw(dst *image.RGBA)
}
