package scheduler

import (
	"sync"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/envirotel/internal/device"
	"codeberg.org/mutker/envirotel/internal/errors"
)

// Interval is the poll period shared by the environment and gas tasks.
type Interval struct {
	d atomic.Int64
}

func NewInterval(d time.Duration) (*Interval, error) {
	i := &Interval{}
	if err := i.Set(d); err != nil {
		return nil, err
	}
	return i, nil
}

func (i *Interval) Get() time.Duration {
	return time.Duration(i.d.Load())
}

// Set changes the period for every task's next phase.
func (i *Interval) Set(d time.Duration) error {
	if d <= 0 {
		return errors.New().WithData(ErrInvalidInterval, d)
	}
	i.d.Store(int64(d))
	return nil
}

// SharedColor is written by the motion task and read by the strip task.
// Last writer wins.
type SharedColor struct {
	mu sync.Mutex
	c  device.Color
}

// InitialColor is shown until the motion task first writes.
var InitialColor = device.Color{R: 255, G: 0, B: 255}

func NewSharedColor() *SharedColor {
	return &SharedColor{c: InitialColor}
}

func (s *SharedColor) Get() device.Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c
}

func (s *SharedColor) Set(c device.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c = c
}
