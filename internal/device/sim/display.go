package sim

import (
	"context"
	"sync/atomic"

	"codeberg.org/mutker/envirotel/internal/logger"
	"codeberg.org/mutker/envirotel/internal/render"
)

// Display accepts rendered frames and logs their labels.
type Display struct {
	last atomic.Uint64
}

var _ render.Presenter = (*Display)(nil)

func (d *Display) Present(_ context.Context, f render.Frame) error {
	d.last.Store(f.Seq)
	logger.Debug().Uint64("seq", f.Seq).Strs("labels", f.Labels).Msg("Frame presented")
	return nil
}

// Frames returns the sequence number of the last frame.
func (d *Display) Frames() uint64 {
	return d.last.Load()
}
