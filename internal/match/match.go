// Package match compares a query face vector against all enrolled
// identities and classifies the nearest one. The scan is exhaustive and
// exact; the store size this system targets makes indexing unnecessary,
// and nothing in the contract depends on it staying that way.
package match

import (
	"errors"

	"github.com/kozaktomas/face-attendance/internal/store"
	"github.com/kozaktomas/face-attendance/internal/vector"
)

var (
	// ErrNoCandidates indicates the identity store is empty. Distinct
	// from a populated store where nothing falls under the threshold.
	ErrNoCandidates = errors.New("no enrolled identities to match against")

	// ErrAmbiguousMatch is reserved for a future multi-candidate tie
	// policy. The current engine breaks ties deterministically on the
	// lower identity ID and never returns this.
	ErrAmbiguousMatch = errors.New("ambiguous match")
)

// DefaultThreshold is the maximum distance for a positive match, in the
// units of the histogram-plus-grid descriptor.
const DefaultThreshold = 8.0

// Result carries the outcome of one match attempt. Distance is always
// the minimum found, reported even on no-match for diagnostics.
type Result struct {
	Matched    bool
	Identity   *store.Identity
	Distance   float64
	Confidence float64
}

// Engine classifies query vectors against enrolled identities.
type Engine struct {
	threshold float64
}

// NewEngine creates a match engine. threshold <= 0 selects the default.
func NewEngine(threshold float64) *Engine {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Engine{threshold: threshold}
}

// Threshold returns the configured match distance threshold.
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// Match finds the enrolled identity nearest to the query. A match
// requires the minimum distance to be strictly below the threshold.
// Equidistant candidates resolve to the lower identity ID.
func (e *Engine) Match(query vector.FaceVector, identities []store.Identity) (Result, error) {
	if err := query.Validate(); err != nil {
		return Result{}, err
	}
	if len(identities) == 0 {
		return Result{}, ErrNoCandidates
	}

	best := -1
	var bestDistance float64
	for i := range identities {
		d := vector.EuclideanDistance(query, identities[i].Vector)
		switch {
		case best < 0 || d < bestDistance:
			best = i
			bestDistance = d
		case d == bestDistance && identities[i].ID < identities[best].ID:
			best = i
		}
	}

	result := Result{Distance: bestDistance}
	if bestDistance < e.threshold {
		ident := identities[best]
		result.Matched = true
		result.Identity = &ident
		result.Confidence = 1.0 - bestDistance/e.threshold
		if result.Confidence < 0 {
			result.Confidence = 0
		}
	}
	return result, nil
}
