// Package scheduler runs one polling loop per signal family and supervises
// them as a single run. Only tasks whose capability was probed are built.
package scheduler

import (
	"context"
	"time"

	"codeberg.org/mutker/envirotel/internal/audio"
	"codeberg.org/mutker/envirotel/internal/calibration"
	"codeberg.org/mutker/envirotel/internal/device"
	"codeberg.org/mutker/envirotel/internal/errors"
	"codeberg.org/mutker/envirotel/internal/input"
	"codeberg.org/mutker/envirotel/internal/logger"
	"codeberg.org/mutker/envirotel/internal/render"
	"codeberg.org/mutker/envirotel/internal/telemetry"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultInterval     = 30 * time.Second
	DefaultStripRefresh = 50 * time.Millisecond
)

type Option func(*Scheduler)

// WithClock replaces the wall clock every task sleeps on.
func WithClock(c Clock) Option {
	return func(s *Scheduler) {
		s.clock = c
	}
}

func WithInterval(i *Interval) Option {
	return func(s *Scheduler) {
		s.interval = i
	}
}

// WithDebounce sets how many confirming re-reads a button edge needs.
func WithDebounce(confirmations int) Option {
	return func(s *Scheduler) {
		s.debounce = confirmations
	}
}

func WithStripRefresh(d time.Duration) Option {
	return func(s *Scheduler) {
		s.stripRefresh = d
	}
}

// WithAudio enables the start-up cue.
func WithAudio(cfg audio.Config) Option {
	return func(s *Scheduler) {
		s.audio = &cfg
	}
}

// WithMicBrightness lets the microphone level drive the status light.
func WithMicBrightness(enabled bool) Option {
	return func(s *Scheduler) {
		s.micBrightness = enabled
	}
}

func WithCalibration(t *calibration.Table) Option {
	return func(s *Scheduler) {
		s.table = t
	}
}

func WithPointer(cfg input.PointerConfig) Option {
	return func(s *Scheduler) {
		s.pointer = cfg
	}
}

func WithSharedColor(c *SharedColor) Option {
	return func(s *Scheduler) {
		s.color = c
	}
}

type task struct {
	name string
	run  func(ctx context.Context) error
}

type Scheduler struct {
	caps    device.Capabilities
	dev     device.Set
	sink    telemetry.Submitter
	surface *render.Surface

	clock         Clock
	interval      *Interval
	color         *SharedColor
	table         *calibration.Table
	debounce      int
	stripRefresh  time.Duration
	audio         *audio.Config
	micBrightness bool
	pointer       input.PointerConfig

	runID string
	log   logger.Logger
	tasks []task
}

// New builds the task set for caps. The surface is only required when the
// environment wing is present.
func New(caps device.Capabilities, dev device.Set, sink telemetry.Submitter, surface *render.Surface, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		caps:         caps,
		dev:          dev,
		sink:         sink,
		surface:      surface,
		clock:        WallClock(),
		color:        NewSharedColor(),
		table:        calibration.NewTable(),
		stripRefresh: DefaultStripRefresh,
		pointer:      input.DefaultPointerConfig(),
		runID:        uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.interval == nil {
		s.interval, _ = NewInterval(DefaultInterval)
	}
	if s.sink == nil {
		s.sink = telemetry.NewNoop()
	}
	s.log = logger.With("component", "scheduler").With("run_id", s.runID)

	if err := s.build(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Scheduler) build() error {
	errFactory := errors.New()

	if s.caps.Motion {
		if s.dev.Motion == nil || s.dev.Pointer == nil {
			return errFactory.WithData(ErrMissingDevice, "motion")
		}
		t, err := s.motionTask()
		if err != nil {
			return err
		}
		s.tasks = append(s.tasks, t)
	}

	if s.caps.Environment {
		if s.dev.Environment == nil || s.dev.Gas == nil {
			return errFactory.WithData(ErrMissingDevice, "environment")
		}
		if s.surface == nil || s.surface.Slots() < len(gasChannels) {
			return errFactory.WithData(ErrMissingDevice, "display")
		}

		signals := environmentSignals(s.dev.Environment)
		// Same launch order as the board firmware: light first, gas, then weather.
		for _, sig := range signals[:2] {
			s.tasks = append(s.tasks, s.environmentTask(sig))
		}
		for i, ch := range gasChannels {
			s.tasks = append(s.tasks, s.gasTask(ch, s.surface.Slot(i)))
		}
		for _, sig := range signals[2:] {
			s.tasks = append(s.tasks, s.environmentTask(sig))
		}
	}

	if s.caps.ActuatorStrip {
		if s.dev.Strip == nil {
			return errFactory.WithData(ErrMissingDevice, "strip")
		}
		if s.stripRefresh < 0 {
			return errFactory.WithData(ErrInvalidInterval, s.stripRefresh)
		}
		s.tasks = append(s.tasks, s.stripTask())
	}

	if s.audio != nil {
		if s.dev.Audio == nil {
			return errFactory.WithData(ErrMissingDevice, "audio")
		}
		cue, err := audio.NewCue(*s.audio, s.dev.Audio, s.clock)
		if err != nil {
			return err
		}
		s.tasks = append(s.tasks, s.audioTask(cue))
	}

	return nil
}

// Tasks returns the names of the tasks Run will start, in launch order.
func (s *Scheduler) Tasks() []string {
	names := make([]string, len(s.tasks))
	for i, t := range s.tasks {
		names[i] = t.name
	}
	return names
}

// Interval returns the shared poll interval.
func (s *Scheduler) Interval() *Interval {
	return s.interval
}

// RunID identifies this run in logs.
func (s *Scheduler) RunID() string {
	return s.runID
}

// Run starts every task and blocks until all of them return. Cancelling ctx
// stops the run cleanly; the first task failure cancels the rest and is
// returned.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info().
		Fields(s.caps.Fields()).
		Strs("tasks", s.Tasks()).
		Dur("interval", s.interval.Get()).
		Msg("Starting scheduler")

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range s.tasks {
		t := t
		g.Go(func() error {
			if err := t.run(withTask(gctx, t.name)); err != nil {
				return errors.New().Wrap(ErrTaskFailed, err).WithData(t.name)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	s.log.Info().Msg("Scheduler stopped")
	return nil
}
