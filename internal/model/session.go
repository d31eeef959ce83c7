package model

import "time"

// Session represents one run of the detection loop.
type Session struct {
	ID           int64      `json:"id"`
	FacingMode   string     `json:"facing_mode"`
	Device       string     `json:"device"`
	UserAgent    string     `json:"user_agent"`
	StartedAt    time.Time  `json:"started_at"`
	StoppedAt    *time.Time `json:"stopped_at,omitempty"`
	Frames       uint64     `json:"frames"`
	FailedFrames uint64     `json:"failed_frames"`
	StopReason   string     `json:"stop_reason,omitempty"`
}

// Running reports whether the session has not been finished yet.
func (s *Session) Running() bool {
	return s.StoppedAt == nil
}

// SessionStats are the counters written when a session finishes.
type SessionStats struct {
	Frames       uint64
	FailedFrames uint64
	StopReason   string
}
