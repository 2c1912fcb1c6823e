package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"codeberg.org/mutker/envirotel/internal/audio"
	"codeberg.org/mutker/envirotel/internal/device"
	"codeberg.org/mutker/envirotel/internal/errors"
	"codeberg.org/mutker/envirotel/internal/input"
	"codeberg.org/mutker/envirotel/internal/logger"
	"codeberg.org/mutker/envirotel/internal/render"
)

const micChannel = "mic-current"

// signal is one environment scalar; name doubles as the telemetry channel.
type signal struct {
	name string
	unit string
	read func() (float64, error)
}

func environmentSignals(env device.Environment) []signal {
	return []signal{
		{name: "lux", unit: "lx", read: env.Lux},
		{name: "prox", read: env.Proximity},
		{name: micChannel, read: env.MicLevel},
		{name: "temp", unit: "C", read: env.Temperature},
		{name: "pres", unit: "hPa", read: env.Pressure},
		{name: "hum", unit: "%", read: env.Humidity},
		{name: "alt", unit: "m", read: env.Altitude},
	}
}

var gasChannels = []device.GasChannel{device.Oxidising, device.Reducing, device.NH3}

// sleep reports whether the task should keep running.
func (s *Scheduler) sleep(ctx context.Context, d time.Duration) bool {
	return s.clock.Sleep(ctx, d) == nil
}

func (s *Scheduler) taskLogger(name string) logger.Logger {
	return s.log.With("task", name)
}

// environmentTask samples, waits half an interval, submits, waits the rest.
func (s *Scheduler) environmentTask(sig signal) task {
	log := s.taskLogger(sig.name)
	isMic := sig.name == micChannel
	if isMic {
		s.table.Register(sig.name, 0, 1)
	}

	run := func(ctx context.Context) error {
		for {
			period := s.interval.Get()

			value, err := sig.read()
			if err != nil {
				log.Warn().Err(err).Msg("Sample failed, skipping tick")
				if !s.sleep(ctx, period) {
					return nil
				}
				continue
			}
			log.Debug().Float64("value", value).Str("unit", sig.unit).Msg("Sampled")

			if isMic && !s.applyMicLevel(log, value) {
				if !s.sleep(ctx, period) {
					return nil
				}
				continue
			}

			if !s.sleep(ctx, period/2) {
				return nil
			}
			s.sink.Submit(ctx, sig.name, value)
			if !s.sleep(ctx, period/2) {
				return nil
			}
		}
	}

	return task{name: sig.name, run: run}
}

// applyMicLevel reports false when calibration rejects raw.
func (s *Scheduler) applyMicLevel(log logger.Logger, raw float64) bool {
	level, err := s.table.Normalize(micChannel, raw)
	if err != nil {
		log.Debug().Err(err).Msg("Mic level rejected, skipping tick")
		return false
	}
	if !s.micBrightness || s.dev.Status == nil {
		return true
	}
	if err := s.dev.Status.SetBrightness(level); err != nil {
		log.Warn().Err(err).Msg("Failed to set status brightness")
	}
	return true
}

// gasTask splits its interval into thirds: sample, paint, submit.
func (s *Scheduler) gasTask(ch device.GasChannel, slot *render.Slot) task {
	name := ch.String()
	prefix := strings.ToUpper(name)
	log := s.taskLogger(name)
	s.table.Register(name, 0, 1)

	run := func(ctx context.Context) error {
		for {
			period := s.interval.Get()

			reading, err := s.dev.Gas.Read(ch)
			if err != nil {
				log.Warn().Err(err).Msg("Sample failed, skipping tick")
				if !s.sleep(ctx, period) {
					return nil
				}
				continue
			}

			volts := reading.Volts()
			level, err := s.table.Normalize(name, volts)
			if err != nil {
				log.Debug().Err(err).Msg("Sample rejected by calibration, skipping tick")
				if !s.sleep(ctx, period) {
					return nil
				}
				continue
			}
			log.Debug().Float64("volts", volts).Float64("level", level).Msg("Sampled")

			if !s.sleep(ctx, period/3) {
				return nil
			}

			slot.Update(fmt.Sprintf("%s:%.2f", prefix, volts), volts)
			if err := s.surface.Paint(ctx); err != nil {
				return err
			}

			if !s.sleep(ctx, period/3) {
				return nil
			}
			s.sink.Submit(ctx, name, volts)
			if !s.sleep(ctx, period/3) {
				return nil
			}
		}
	}

	return task{name: name, run: run}
}

// motionTask loops without delay, yielding once per iteration.
func (s *Scheduler) motionTask() (task, error) {
	log := s.taskLogger("motion")

	buttons := []device.Button{device.ButtonC, device.ButtonZ}
	debouncers := make(map[device.Button]*input.Debouncer, len(buttons))
	for _, b := range buttons {
		d, err := input.NewDebouncer(s.debounce)
		if err != nil {
			return task{}, err
		}
		debouncers[b] = d
	}
	colors := input.NewColorMapper()

	step := func() {
		accel, err := s.dev.Motion.Acceleration()
		if err != nil {
			log.Debug().Err(err).Msg("Acceleration read failed")
			return
		}

		if c, err := colors.Map(accel); err == nil {
			s.color.Set(c)
		}

		dx, dy, err := s.pointer.Delta(accel)
		if err != nil {
			return
		}
		if err := s.dev.Pointer.Move(dx, dy); err != nil {
			log.Warn().Err(err).Msg("Pointer move failed")
		}

		state, err := s.dev.Motion.Buttons()
		if err != nil {
			log.Debug().Err(err).Msg("Button read failed")
			return
		}

		for _, b := range buttons {
			b := b
			edge, err := debouncers[b].Step(state.Get(b), func() (bool, error) {
				return s.dev.Motion.Button(b)
			})
			if err != nil {
				log.Debug().Err(err).Str("button", b.String()).Msg("Debounce failed")
				continue
			}
			if err := s.emitEdge(b, edge); err != nil {
				log.Warn().Err(err).Str("button", b.String()).Msg("Pointer button failed")
			}
		}
	}

	run := func(ctx context.Context) error {
		for {
			step()
			if !s.sleep(ctx, 0) {
				return nil
			}
		}
	}

	return task{name: "motion", run: run}, nil
}

func (s *Scheduler) emitEdge(b device.Button, edge input.Edge) error {
	switch edge {
	case input.EdgePress:
		return s.dev.Pointer.Press(b)
	case input.EdgeRelease:
		return s.dev.Pointer.Release(b)
	default:
		return nil
	}
}

// stripTask repaints the strip with whatever colour was last written.
func (s *Scheduler) stripTask() task {
	run := func(ctx context.Context) error {
		for {
			if err := s.dev.Strip.Fill(s.color.Get()); err != nil {
				return errors.New().Wrap(ErrOutputFailed, err).WithData("strip")
			}
			if !s.sleep(ctx, s.stripRefresh) {
				return nil
			}
		}
	}

	return task{name: "strip", run: run}
}

// audioTask plays the cue once and exits.
func (s *Scheduler) audioTask(cue *audio.Cue) task {
	log := s.taskLogger("audio")

	run := func(ctx context.Context) error {
		if err := cue.Play(ctx); err != nil {
			return err
		}
		log.Debug().Msg("Audio cue finished")
		return nil
	}

	return task{name: "audio", run: run}
}
