// Package render draws the gas channels onto the local display: one label and
// one scrolling series per producer. Producers write only their own slot;
// painting the whole surface is serialized.
package render

import (
	"context"
	"math"
	"sync"

	"codeberg.org/mutker/envirotel/internal/calibration"
	"codeberg.org/mutker/envirotel/internal/errors"
	"tinygo.org/x/tinyfont"
)

const labelBaseline = 6

// Frame is what one paint produced.
type Frame struct {
	Seq    uint64
	Labels []string
	// Latest holds each slot's newest value, NaN before the first update.
	Latest []float64
	Width  int
	Height int
	// Pixels is the RGB565 little-endian buffer.
	Pixels []byte
}

// Presenter pushes a finished frame to the panel.
type Presenter interface {
	Present(ctx context.Context, frame Frame) error
}

type slotState struct {
	label  string
	series []float64
	head   int
	count  int
	latest float64
}

func (st *slotState) push(v float64) {
	st.series[st.head] = v
	st.head = (st.head + 1) % len(st.series)
	if st.count < len(st.series) {
		st.count++
	}
	st.latest = v
}

// at returns the k-th oldest retained value.
func (st *slotState) at(k int) float64 {
	n := len(st.series)
	return st.series[(st.head-st.count+k+n)%n]
}

type Surface struct {
	cfg       Config
	presenter Presenter
	font      tinyfont.Fonter

	mu    sync.Mutex
	fb    *framebuffer
	slots []slotState
	seq   uint64
}

func NewSurface(cfg Config, presenter Presenter) (*Surface, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Surface{
		cfg:       cfg,
		presenter: presenter,
		font:      &tinyfont.TomThumb,
		fb:        newFramebuffer(cfg.Width, cfg.Height),
		slots:     make([]slotState, len(cfg.Slots)),
	}
	for i, slot := range cfg.Slots {
		s.slots[i] = slotState{
			label:  slot.Name + ":",
			series: make([]float64, cfg.Width),
			latest: math.NaN(),
		}
	}

	return s, nil
}

// Slots returns the number of producer slots.
func (s *Surface) Slots() int {
	return len(s.slots)
}

// Slot returns the handle for slot i. Each producer must use its own index.
func (s *Surface) Slot(i int) *Slot {
	if i < 0 || i >= len(s.slots) {
		return nil
	}
	return &Slot{surface: s, index: i}
}

// Paint redraws every label and series and presents the frame. Concurrent
// paints and slot updates wait for each other.
func (s *Surface) Paint(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fb.fill(colorBackground)
	for i := range s.slots {
		s.drawSlot(i)
	}

	s.seq++
	frame := Frame{
		Seq:    s.seq,
		Labels: make([]string, len(s.slots)),
		Latest: make([]float64, len(s.slots)),
		Width:  s.cfg.Width,
		Height: s.cfg.Height,
		Pixels: s.fb.snapshot(),
	}
	for i, st := range s.slots {
		frame.Labels[i] = st.label
		frame.Latest[i] = st.latest
	}

	if s.presenter == nil {
		return nil
	}
	if err := s.presenter.Present(ctx, frame); err != nil {
		return errors.New().Wrap(ErrPresentFailed, err)
	}

	return nil
}

func (s *Surface) drawSlot(i int) {
	slot := s.cfg.Slots[i]
	st := &s.slots[i]

	tinyfont.WriteLine(s.fb, s.font, slot.X, labelBaseline, st.label, slot.Color)

	plotTop := s.cfg.TopSpace
	plotBottom := s.cfg.Height - 1
	offset := s.cfg.Width - st.count
	for k := 0; k < st.count; k++ {
		v := st.at(k)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		scaled := calibration.MapRange(v, s.cfg.MinValue, s.cfg.MaxValue, 0, float64(plotBottom-plotTop))
		y := plotBottom - int(math.Round(scaled))
		s.fb.SetPixel(int16(offset+k), int16(y), slot.Color)
	}
}

// Slot is one producer's view of the surface.
type Slot struct {
	surface *Surface
	index   int
}

// Update replaces the slot's label and appends value to its series.
func (sl *Slot) Update(label string, value float64) {
	s := sl.surface
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &s.slots[sl.index]
	st.label = label
	st.push(value)
}
