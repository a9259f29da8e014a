package warmup

import (
	"sync/atomic"
	"time"
)

// ReadinessState reports whether startup preloading has finished. The
// service also counts as ready once timeout has elapsed, so a slow or
// failing data source cannot keep it out of rotation forever.
type ReadinessState struct {
	ready     atomic.Bool
	startTime time.Time
	timeout   time.Duration
}

// ReadinessStatus is the readiness payload of /ready.
type ReadinessStatus struct {
	Ready          bool   `json:"ready"`
	Reason         string `json:"reason,omitempty"`
	ElapsedSeconds int    `json:"elapsed_seconds,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

// NewReadinessState starts the clock for timeout.
func NewReadinessState(timeout time.Duration) *ReadinessState {
	return &ReadinessState{
		startTime: time.Now(),
		timeout:   timeout,
	}
}

// IsReady reports whether MarkReady was called or timeout has elapsed.
func (s *ReadinessState) IsReady() bool {
	return s.ready.Load() || time.Since(s.startTime) >= s.timeout
}

// MarkReady marks preloading as finished.
func (s *ReadinessState) MarkReady() {
	s.ready.Store(true)
}

// Completed reports whether MarkReady was called, ignoring the timeout.
func (s *ReadinessState) Completed() bool {
	return s.ready.Load()
}

// Status returns the current readiness for API responses.
func (s *ReadinessState) Status() ReadinessStatus {
	status := ReadinessStatus{
		Ready:          s.IsReady(),
		ElapsedSeconds: int(time.Since(s.startTime).Seconds()),
		TimeoutSeconds: int(s.timeout.Seconds()),
	}
	switch {
	case !status.Ready:
		status.Reason = "data preload in progress"
	case !s.ready.Load():
		status.Reason = "timeout reached (preload may still be running)"
	}
	return status
}
