// Package input turns raw controller readings into pointer moves, button
// edges and a colour.
package input

import "codeberg.org/mutker/envirotel/internal/errors"

// Edge is a button transition accepted by a Debouncer.
type Edge int

const (
	EdgeNone Edge = iota
	EdgePress
	EdgeRelease
)

func (e Edge) String() string {
	switch e {
	case EdgePress:
		return "press"
	case EdgeRelease:
		return "release"
	default:
		return "none"
	}
}

// Resampler re-reads the button level.
type Resampler func() (bool, error)

// Debouncer tracks one button and reports press/release edges. With zero
// confirmations an edge is accepted on the first contrary reading; otherwise
// the button is re-read that many times and every re-read must agree.
type Debouncer struct {
	confirmations int
	down          bool
}

func NewDebouncer(confirmations int) (*Debouncer, error) {
	if confirmations < 0 {
		return nil, errors.New().WithData(ErrInvalidConfirmations, confirmations)
	}
	return &Debouncer{confirmations: confirmations}, nil
}

// Step feeds this tick's reading. A rejected or failed confirmation leaves
// the state unchanged; the next tick tries again.
func (d *Debouncer) Step(level bool, resample Resampler) (Edge, error) {
	if level == d.down {
		return EdgeNone, nil
	}

	for i := 0; i < d.confirmations; i++ {
		again, err := resample()
		if err != nil {
			return EdgeNone, errors.New().Wrap(ErrResampleFailed, err)
		}
		if again != level {
			return EdgeNone, nil
		}
	}

	d.down = level
	if level {
		return EdgePress, nil
	}
	return EdgeRelease, nil
}

// Down reports the accepted button state.
func (d *Debouncer) Down() bool {
	return d.down
}
