// Package enroll accumulates face vectors from distinct frames of one
// live subject and reduces them to a single representative vector.
// Sampling at a frame stride spreads the captures over time so natural
// pose and expression variation ends up in the average.
package enroll

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-attendance/internal/vector"
)

// ErrEnrollmentIncomplete indicates a session ended before collecting the
// target number of valid samples. No partial average is ever produced.
var ErrEnrollmentIncomplete = errors.New("enrollment incomplete")

// Defaults for session parameters.
const (
	DefaultTargetSamples = 7
	DefaultFrameStride   = 8
	// DefaultBudgetFactor bounds the session: the frame budget is
	// stride * target * factor frames unless set explicitly.
	DefaultBudgetFactor = 4
)

// Params tune a single enrollment session.
type Params struct {
	// TargetSamples is the number of valid samples to average (K).
	TargetSamples int
	// FrameStride samples every Nth fed frame.
	FrameStride int
	// FrameBudget is the maximum number of frames before the session
	// fails with ErrEnrollmentIncomplete. Zero selects the default.
	FrameBudget int
}

func (p Params) withDefaults() Params {
	if p.TargetSamples <= 0 {
		p.TargetSamples = DefaultTargetSamples
	}
	if p.FrameStride <= 0 {
		p.FrameStride = DefaultFrameStride
	}
	if p.FrameBudget <= 0 {
		p.FrameBudget = p.TargetSamples * p.FrameStride * DefaultBudgetFactor
	}
	return p
}

// State describes where a session currently stands.
type State int

const (
	StatePending State = iota
	StateComplete
	StateFailed
)

// Progress is the outcome of feeding one frame.
type Progress struct {
	State    State
	Captured int
	Target   int
	// Vector is the aggregate face vector, set only on StateComplete.
	Vector vector.FaceVector
	// Err is set on StateFailed.
	Err error
}

// Session collects samples for one candidate identity. A session is
// single-use: once complete or failed it rejects further frames and a
// fresh session must be started.
type Session struct {
	id        uuid.UUID
	name      string
	params    Params
	frames    int
	samples   []vector.FaceVector
	aggregate vector.FaceVector
	state     State
	failure   error
}

// NewSession starts an enrollment session for the named candidate.
func NewSession(name string, params Params) *Session {
	p := params.withDefaults()
	return &Session{
		id:      uuid.New(),
		name:    name,
		params:  p,
		samples: make([]vector.FaceVector, 0, p.TargetSamples),
	}
}

// ID returns the session handle.
func (s *Session) ID() uuid.UUID { return s.id }

// Name returns the candidate name the session was started for.
func (s *Session) Name() string { return s.name }

// Feed consumes one frame's extraction result. Pass a nil vector for
// frames where a face was detected but extraction failed; such frames
// still advance the stride counter but contribute no sample. Frames
// without a detected face should not be fed at all.
func (s *Session) Feed(v vector.FaceVector) Progress {
	switch s.state {
	case StateComplete:
		return s.progress()
	case StateFailed:
		return s.progress()
	}

	sampleFrame := s.frames%s.params.FrameStride == 0
	s.frames++

	if sampleFrame && v != nil {
		if err := v.Validate(); err != nil {
			return s.fail(fmt.Errorf("%w: %v", ErrEnrollmentIncomplete, err))
		}
		s.samples = append(s.samples, v.Clone())

		if len(s.samples) >= s.params.TargetSamples {
			return s.complete()
		}
	}

	if s.frames >= s.params.FrameBudget {
		return s.fail(fmt.Errorf("%w: frame budget exhausted with %d/%d samples",
			ErrEnrollmentIncomplete, len(s.samples), s.params.TargetSamples))
	}

	return s.progress()
}

// Abandon discards all accumulated samples and resolves the session as
// failed. Safe to call at any point before completion.
func (s *Session) Abandon() {
	if s.state == StatePending {
		s.fail(fmt.Errorf("%w: session abandoned with %d/%d samples",
			ErrEnrollmentIncomplete, len(s.samples), s.params.TargetSamples))
	}
}

func (s *Session) complete() Progress {
	avg, err := vector.Mean(s.samples)
	if err != nil {
		return s.fail(fmt.Errorf("%w: %v", ErrEnrollmentIncomplete, err))
	}
	s.state = StateComplete
	s.samples = nil
	s.failure = nil
	// Keep the aggregate on the session so progress() can return it.
	s.aggregate = avg
	return s.progress()
}

func (s *Session) fail(err error) Progress {
	s.state = StateFailed
	s.failure = err
	s.samples = nil
	return s.progress()
}

func (s *Session) progress() Progress {
	p := Progress{
		State:    s.state,
		Captured: len(s.samples),
		Target:   s.params.TargetSamples,
		Err:      s.failure,
	}
	if s.state == StateComplete {
		p.Captured = s.params.TargetSamples
		p.Vector = s.aggregate
	}
	return p
}
