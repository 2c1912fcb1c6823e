package calibration

import (
	"sync"

	"codeberg.org/mutker/envirotel/internal/errors"
)

// Table holds the calibration range of every registered signal.
type Table struct {
	mu     sync.RWMutex
	ranges map[string]*Range
}

func NewTable() *Table {
	return &Table{ranges: make(map[string]*Range)}
}

// Register creates the range for signal, or returns the existing one.
func (t *Table) Register(signal string, lo, hi float64) *Range {
	t.mu.Lock()
	defer t.mu.Unlock()

	if r, ok := t.ranges[signal]; ok {
		return r
	}

	r := NewRange(lo, hi)
	t.ranges[signal] = r

	return r
}

// Normalize auto-ranges raw for signal; see Range.Normalize.
func (t *Table) Normalize(signal string, raw float64) (float64, error) {
	t.mu.RLock()
	r, ok := t.ranges[signal]
	t.mu.RUnlock()

	if !ok {
		return 0, errors.New().WithData(ErrUnknownSignal, signal)
	}

	return r.Normalize(raw)
}

// Snapshot returns the observed extremes of every seeded signal.
func (t *Table) Snapshot() map[string]Bounds {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]Bounds, len(t.ranges))
	for name, r := range t.ranges {
		if b, ok := r.Bounds(); ok {
			out[name] = b
		}
	}

	return out
}
