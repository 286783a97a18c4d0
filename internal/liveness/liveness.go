// Package liveness implements a blink-based liveness check as an
// explicit finite-state machine driven by per-frame eye observations.
// It is a heuristic gate for controlled attendance scenarios, not a
// security-grade anti-spoofing system: photo and video replays beyond
// the blink requirement are an accepted weakness.
package liveness

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-attendance/internal/detect"
)

// State is the liveness session's position in the blink protocol.
type State int

const (
	// StateIdle means no frame has been observed yet.
	StateIdle State = iota
	// StateAwaitingClosure waits for the eyes to close.
	StateAwaitingClosure
	// StateAwaitingReopen waits for closed eyes to open again.
	StateAwaitingReopen
	// StateVerified is terminal: enough plausible blinks were seen.
	StateVerified
	// StateFailed is terminal: the session timed out.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingClosure:
		return "awaiting_closure"
	case StateAwaitingReopen:
		return "awaiting_reopen"
	case StateVerified:
		return "verified"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status is the per-frame answer handed back to the video loop.
type Status int

const (
	StatusPending Status = iota
	StatusVerified
	StatusFailed
)

// Result is the outcome of observing one frame. Observe never blocks;
// the caller keeps feeding frames until the status leaves pending.
type Result struct {
	Status  Status
	State   State
	Message string
	Blinks  int
	Elapsed time.Duration
}

// Defaults for session parameters.
const (
	DefaultClosureThreshold = 0.25
	DefaultMinClosedFrames  = 2
	DefaultMinBlinkDuration = 150 * time.Millisecond
	DefaultTimeout          = 3 * time.Second
	DefaultRequiredBlinks   = 1
)

// Params tune a liveness session.
type Params struct {
	// ClosureThreshold is the eye-openness ratio below which a frame
	// counts as closed.
	ClosureThreshold float64
	// MinClosedFrames is the number of consecutive closed frames
	// required before a closure is trusted.
	MinClosedFrames int
	// MinBlinkDuration rejects single-frame noise: a closure shorter
	// than this does not count as a blink.
	MinBlinkDuration time.Duration
	// Timeout fails the session from any state.
	Timeout time.Duration
	// RequiredBlinks is the blink count needed for verification.
	RequiredBlinks int
}

func (p Params) withDefaults() Params {
	if p.ClosureThreshold <= 0 {
		p.ClosureThreshold = DefaultClosureThreshold
	}
	if p.MinClosedFrames <= 0 {
		p.MinClosedFrames = DefaultMinClosedFrames
	}
	if p.MinBlinkDuration <= 0 {
		p.MinBlinkDuration = DefaultMinBlinkDuration
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	if p.RequiredBlinks <= 0 {
		p.RequiredBlinks = DefaultRequiredBlinks
	}
	return p
}

// Session is one liveness attempt. It consumes eye observations frame by
// frame, strictly in arrival order, and resolves to verified or failed.
// Terminal states stick until Reset.
type Session struct {
	id     uuid.UUID
	params Params

	state             State
	startedAt         time.Time
	closureStart      time.Time
	consecutiveClosed int
	blinks            int
	lastElapsed       time.Duration
}

// NewSession creates a liveness session with the given parameters.
func NewSession(params Params) *Session {
	return &Session{
		id:     uuid.New(),
		params: params.withDefaults(),
		state:  StateIdle,
	}
}

// ID returns the session handle.
func (s *Session) ID() uuid.UUID { return s.id }

// State returns the current state.
func (s *Session) State() State { return s.state }

// Reset discards all session progress so a new attempt can start.
func (s *Session) Reset() {
	s.state = StateIdle
	s.startedAt = time.Time{}
	s.closureStart = time.Time{}
	s.consecutiveClosed = 0
	s.blinks = 0
	s.lastElapsed = 0
}

// Openness reduces an eye observation to a single openness ratio: the
// mean height-to-width ratio of the detected eye boxes. No detected
// eyes reads as fully closed, matching how cascade eye detectors lose
// closed eyes.
func Openness(eyes []detect.Region) float64 {
	if len(eyes) == 0 {
		return 0
	}
	var sum float64
	for _, e := range eyes {
		sum += e.Openness()
	}
	return sum / float64(len(eyes))
}

// Observe advances the state machine with one frame's eye observation.
// now must be non-decreasing across calls within a session.
func (s *Session) Observe(now time.Time, eyes []detect.Region) Result {
	switch s.state {
	case StateVerified:
		return s.result(StatusVerified, "liveness verified (blink detected)")
	case StateFailed:
		return s.result(StatusFailed, "liveness check timed out")
	case StateIdle:
		s.startedAt = now
		s.state = StateAwaitingClosure
	}

	s.lastElapsed = now.Sub(s.startedAt)
	if s.lastElapsed > s.params.Timeout {
		s.state = StateFailed
		return s.result(StatusFailed, "liveness check timed out")
	}

	openness := Openness(eyes)
	closed := openness < s.params.ClosureThreshold

	switch s.state {
	case StateAwaitingClosure:
		if closed {
			if s.consecutiveClosed == 0 {
				s.closureStart = now
			}
			s.consecutiveClosed++
			if s.consecutiveClosed >= s.params.MinClosedFrames {
				s.state = StateAwaitingReopen
				return s.result(StatusPending, "eyes closed, reopen to finish the blink")
			}
			return s.result(StatusPending, "please blink naturally")
		}
		s.consecutiveClosed = 0
		if len(eyes) == 0 {
			return s.result(StatusPending, "eyes not visible, please face the camera")
		}
		return s.result(StatusPending, "please blink naturally")

	case StateAwaitingReopen:
		if closed {
			return s.result(StatusPending, "eyes closed, reopen to finish the blink")
		}
		closedFor := now.Sub(s.closureStart)
		s.consecutiveClosed = 0
		if closedFor < s.params.MinBlinkDuration {
			// Too short to be a real blink; treat as noise and rearm.
			s.state = StateAwaitingClosure
			return s.result(StatusPending, "please blink naturally")
		}
		s.blinks++
		if s.blinks >= s.params.RequiredBlinks {
			s.state = StateVerified
			return s.result(StatusVerified, "liveness verified (blink detected)")
		}
		s.state = StateAwaitingClosure
		return s.result(StatusPending,
			fmt.Sprintf("blink %d/%d detected, keep blinking", s.blinks, s.params.RequiredBlinks))
	}

	return s.result(StatusPending, "please blink naturally")
}

func (s *Session) result(status Status, message string) Result {
	return Result{
		Status:  status,
		State:   s.state,
		Message: message,
		Blinks:  s.blinks,
		Elapsed: s.lastElapsed,
	}
}
