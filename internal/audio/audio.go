// Package audio plays the start-up cue: a short synthesized tone followed by a
// recorded clip.
package audio

import (
	"context"
	"math"
	"time"

	"codeberg.org/mutker/envirotel/internal/device"
	"codeberg.org/mutker/envirotel/internal/errors"
	"codeberg.org/mutker/envirotel/internal/logger"
)

const sampleMax = 1<<15 - 1

// Sleeper pauses the caller and returns the context error on cancellation.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SineWave returns one period of a sine tone, offset to be unsigned, as
// sampleRate/freq samples.
func SineWave(freq int, volume float64, sampleRate int) ([]uint16, error) {
	if freq <= 0 || sampleRate <= 0 {
		return nil, errors.New().WithData(ErrInvalidTone, freq)
	}

	length := sampleRate / freq
	if length == 0 {
		return nil, errors.New().WithData(ErrInvalidTone, freq)
	}

	wave := make([]uint16, length)
	for i := range wave {
		wave[i] = uint16((1 + math.Sin(2*math.Pi*float64(i)/float64(length))) * volume * sampleMax)
	}

	return wave, nil
}

type Cue struct {
	cfg     Config
	out     device.AudioOut
	sleeper Sleeper
	log     logger.Logger
}

func NewCue(cfg Config, out device.AudioOut, sleeper Sleeper) (*Cue, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Cue{
		cfg:     cfg,
		out:     out,
		sleeper: sleeper,
		log:     logger.With("component", "audio"),
	}, nil
}

// Play runs the cue once. It returns nil when the context is cancelled and an
// ErrPlaybackFailed error when the output device fails.
func (c *Cue) Play(ctx context.Context) error {
	errFactory := errors.New()

	wave, err := SineWave(c.cfg.Frequency, c.cfg.Volume, c.cfg.SampleRate)
	if err != nil {
		return err
	}

	if err := c.out.PlayRaw(wave, c.cfg.SampleRate, true); err != nil {
		return errFactory.Wrap(ErrPlaybackFailed, err)
	}
	if err := c.sleeper.Sleep(ctx, c.cfg.Tone); err != nil {
		return c.stop()
	}
	if err := c.out.Stop(); err != nil {
		return errFactory.Wrap(ErrPlaybackFailed, err)
	}

	if err := c.out.PlayFile(c.cfg.Clip); err != nil {
		return errFactory.Wrap(ErrPlaybackFailed, err).WithData(c.cfg.Clip)
	}
	c.log.Debug().Str("clip", c.cfg.Clip).Msg("Playing clip")

	var waited time.Duration
	for c.out.Playing() {
		if waited >= c.cfg.ClipTimeout {
			c.log.Info().Dur("timeout", c.cfg.ClipTimeout).Msg("Clip still playing, stopping")
			break
		}
		if err := c.sleeper.Sleep(ctx, c.cfg.Poll); err != nil {
			return c.stop()
		}
		waited += c.cfg.Poll
	}

	return c.stop()
}

func (c *Cue) stop() error {
	if err := c.out.Stop(); err != nil {
		return errors.New().Wrap(ErrPlaybackFailed, err)
	}
	return nil
}
