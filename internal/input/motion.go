package input

import (
	"math"

	"codeberg.org/mutker/envirotel/internal/calibration"
	"codeberg.org/mutker/envirotel/internal/device"
	"codeberg.org/mutker/envirotel/internal/errors"
)

// ColorMapper maps each accelerometer axis onto 0..255 using its own
// ever-widening range.
type ColorMapper struct {
	x, y, z *calibration.Range
}

func NewColorMapper() *ColorMapper {
	return &ColorMapper{
		x: calibration.NewRange(0, 255),
		y: calibration.NewRange(0, 255),
		z: calibration.NewRange(0, 255),
	}
}

// Map widens the axis ranges with v and returns the resulting colour. A
// non-finite axis keeps that channel's previous value.
func (m *ColorMapper) Map(v device.Vector) (device.Color, error) {
	r, errX := m.x.Normalize(v.X)
	g, errY := m.y.Normalize(v.Y)
	b, errZ := m.z.Normalize(v.Z)

	c := device.Color{R: channel(r), G: channel(g), B: channel(b)}
	for _, err := range []error{errX, errY, errZ} {
		if err != nil {
			return c, err
		}
	}

	return c, nil
}

func channel(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(255, v))))
}

// PointerConfig converts a raw acceleration into a pointer delta. Readings
// are scaled down by four before the centre is subtracted.
type PointerConfig struct {
	CenterX float64
	CenterY float64
	ScaleX  float64
	ScaleY  float64
}

const (
	accelDivisor = 4
	// spuriousLevel is what the controller returns on a bad bus read.
	spuriousLevel = 255
)

func DefaultPointerConfig() PointerConfig {
	return PointerConfig{
		CenterX: 120,
		CenterY: 110,
		ScaleX:  0.4,
		ScaleY:  0.5,
	}
}

// Spurious reports whether v is a bad read that should be skipped.
func Spurious(v device.Vector) bool {
	return v.X/accelDivisor == spuriousLevel || v.Y/accelDivisor == spuriousLevel
}

// Delta returns the pointer move for v, or an ErrSpuriousRead error.
func (c PointerConfig) Delta(v device.Vector) (dx, dy int, err error) {
	if Spurious(v) {
		return 0, 0, errors.New().WithData(ErrSpuriousRead, v)
	}

	x := v.X / accelDivisor
	y := v.Y / accelDivisor

	return int(c.ScaleX * (x - c.CenterX)), int(c.ScaleY * (y - c.CenterY)), nil
}
