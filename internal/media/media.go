package media

import (
	"errors"
	"regexp"
)

// FacingMode selects between the front and the rear camera.
type FacingMode string

const (
	FacingUser        FacingMode = "user"
	FacingEnvironment FacingMode = "environment"
)

var (
	// ErrPermissionDenied is returned when the camera exists but may not be opened.
	ErrPermissionDenied = errors.New("camera permission denied")
	// ErrDeviceUnavailable is returned when no usable camera matches the request.
	ErrDeviceUnavailable = errors.New("camera device unavailable")
)

// platformMarkers is a user-agent heuristic, not capability detection.
// Anything not listed gets the front camera.
var platformMarkers = regexp.MustCompile(`(?i)Android|webOS|iPhone|iPad|Mac|Macintosh|iPod|BlackBerry|IEMobile|Opera Mini`)

// SelectFacingMode picks the camera for a viewer based on its user-agent string.
func SelectFacingMode(userAgent string) FacingMode {
	if platformMarkers.MatchString(userAgent) {
		return FacingEnvironment
	}
	return FacingUser
}

// VideoConstraints describes the requested video track.
type VideoConstraints struct {
	FacingMode FacingMode `json:"facingMode"`
}

// Constraints mirrors a media stream request. Audio is never captured.
type Constraints struct {
	Audio bool             `json:"audio"`
	Video VideoConstraints `json:"video"`
}

// ConstraintsFor builds the stream request for a viewer's user-agent.
func ConstraintsFor(userAgent string) Constraints {
	return Constraints{
		Audio: false,
		Video: VideoConstraints{FacingMode: SelectFacingMode(userAgent)},
	}
}

// Devices maps facing modes to capture devices. A device is either a camera
// index ("0") or a file/stream URL.
type Devices struct {
	Front string
	Rear  string
}

// For returns the device configured for mode.
func (d Devices) For(mode FacingMode) string {
	if mode == FacingEnvironment {
		return d.Rear
	}
	return d.Front
}
