package render

import (
	"image/color"

	"codeberg.org/mutker/envirotel/internal/errors"
)

var (
	colorBackground = color.RGBA{R: 0x00, G: 0x00, B: 0x00, A: 0xff}

	ColorGreen = color.RGBA{R: 0x00, G: 0xff, B: 0x00, A: 0xff}
	ColorRed   = color.RGBA{R: 0xff, G: 0x00, B: 0x00, A: 0xff}
	ColorBlue  = color.RGBA{R: 0x00, G: 0x00, B: 0xff, A: 0xff}
)

// SlotSpec places one producer's label and picks its series colour.
type SlotSpec struct {
	Name  string
	Color color.RGBA
	X     int16
}

type Config struct {
	Width    int
	Height   int
	TopSpace int
	// MinValue and MaxValue bound the plotted series; the gas channels read
	// at most the 3.3V board supply.
	MinValue float64
	MaxValue float64
	Slots    []SlotSpec
}

func DefaultConfig() Config {
	return Config{
		Width:    160,
		Height:   80,
		TopSpace: 10,
		MinValue: 0.5,
		MaxValue: 3.3,
		Slots: []SlotSpec{
			{Name: "OX", Color: ColorGreen, X: 0},
			{Name: "RED", Color: ColorRed, X: 50},
			{Name: "NH3", Color: ColorBlue, X: 110},
		},
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.Width <= 0 || c.Height <= 0 {
		return errFactory.WithData(ErrInvalidConfig, "surface size must be positive")
	}
	if c.TopSpace < 0 || c.TopSpace >= c.Height-1 {
		return errFactory.WithData(ErrInvalidConfig, "top space leaves no plot area")
	}
	if c.MaxValue <= c.MinValue {
		return errFactory.WithData(ErrInvalidConfig, "max value must exceed min value")
	}
	if len(c.Slots) == 0 {
		return errFactory.WithData(ErrInvalidConfig, "at least one slot is required")
	}

	return nil
}
