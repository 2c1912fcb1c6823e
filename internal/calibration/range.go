// Package calibration auto-ranges raw sensor samples. Each signal keeps the
// extremes it has ever observed; the range only ever widens.
package calibration

import (
	"math"
	"sync"

	"codeberg.org/mutker/envirotel/internal/errors"
)

// seedMargin keeps the first range from having zero width.
const seedMargin = 1.0

// Bounds is an observed [Min, Max] interval.
type Bounds struct {
	Min, Max float64
}

// Range is the calibration state of one signal, mapped onto [lo, hi].
// It has a single writer (the task owning the signal); the mutex only makes
// diagnostic reads from other goroutines safe.
type Range struct {
	lo, hi float64

	mu     sync.Mutex
	seeded bool
	bounds Bounds
	last   float64
}

// NewRange returns an unseeded range that normalizes onto [lo, hi].
func NewRange(lo, hi float64) *Range {
	return &Range{
		lo:   lo,
		hi:   hi,
		last: midpoint(lo, hi),
	}
}

// Normalize widens the range to include raw and maps raw onto the output
// bounds. A non-finite raw leaves the range untouched and returns the
// previous result with an ErrInvalidSample error.
func (r *Range) Normalize(raw float64) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return r.last, errors.New().WithData(ErrInvalidSample, raw)
	}

	if !r.seeded {
		r.bounds = Bounds{Min: raw - seedMargin, Max: raw + seedMargin}
		r.seeded = true
	}
	r.bounds.Min = math.Min(r.bounds.Min, raw)
	r.bounds.Max = math.Max(r.bounds.Max, raw)

	r.last = MapRange(raw, r.bounds.Min, r.bounds.Max, r.lo, r.hi)

	return r.last, nil
}

// Bounds returns the observed extremes and whether any sample was seen.
func (r *Range) Bounds() (Bounds, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bounds, r.seeded
}

// Last returns the most recent normalized value.
func (r *Range) Last() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// MapRange linearly maps x from [inMin, inMax] onto [outMin, outMax] and clamps
// the result. A zero-width input interval yields the output midpoint.
func MapRange(x, inMin, inMax, outMin, outMax float64) float64 {
	span := inMax - inMin
	if span == 0 || math.IsNaN(span) {
		return midpoint(outMin, outMax)
	}

	out := outMin + (x-inMin)*(outMax-outMin)/span

	lo, hi := math.Min(outMin, outMax), math.Max(outMin, outMax)
	return math.Max(lo, math.Min(hi, out))
}

func midpoint(lo, hi float64) float64 {
	return lo + (hi-lo)/2
}
