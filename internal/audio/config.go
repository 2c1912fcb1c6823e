package audio

import (
	"time"

	"codeberg.org/mutker/envirotel/internal/errors"
)

type Config struct {
	Frequency  int
	Volume     float64
	SampleRate int
	// Tone is how long the synthesized tone loops before the clip starts.
	Tone        time.Duration
	Clip        string
	ClipTimeout time.Duration
	// Poll is how often playback is checked while the clip runs.
	Poll time.Duration
}

func DefaultConfig() Config {
	return Config{
		Frequency:   440,
		Volume:      0.1,
		SampleRate:  8000,
		Tone:        100 * time.Millisecond,
		Clip:        "StreetChicken.wav",
		ClipTimeout: 30 * time.Second,
		Poll:        250 * time.Millisecond,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.Frequency <= 0 || c.Frequency > c.SampleRate {
		return errFactory.WithData(ErrInvalidConfig, "frequency must be between 1 and the sample rate")
	}
	if c.Volume <= 0 || c.Volume > 1 {
		return errFactory.WithData(ErrInvalidConfig, "volume must be in (0, 1]")
	}
	if c.Clip == "" {
		return errFactory.WithData(ErrInvalidConfig, "clip is required")
	}
	if c.Tone < 0 || c.ClipTimeout <= 0 || c.Poll <= 0 {
		return errFactory.WithData(ErrInvalidConfig, "durations must be positive")
	}

	return nil
}
