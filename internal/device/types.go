package device

import "fmt"

const (
	adcFullScale = 65535

	batteryReference = 3.3
	batteryDivider   = 2
	batteryADCSpan   = 65536
)

// GasChannel identifies one of the gas sensor's three heated elements.
type GasChannel int

const (
	Oxidising GasChannel = iota
	Reducing
	NH3
)

func (c GasChannel) String() string {
	switch c {
	case Oxidising:
		return "ox"
	case Reducing:
		return "red"
	case NH3:
		return "nh3"
	default:
		return fmt.Sprintf("gas(%d)", int(c))
	}
}

// GasReading is one raw ADC sample together with the reference it was taken against.
type GasReading struct {
	RawCount         uint16
	ReferenceVoltage float64
}

// Volts converts the raw count into the sensed voltage.
func (r GasReading) Volts() float64 {
	return float64(r.RawCount) * (r.ReferenceVoltage / adcFullScale)
}

// BatteryVolts converts a battery monitor count; the pin sits behind a 1:2 divider.
func BatteryVolts(raw uint16) float64 {
	return float64(raw) * batteryReference / batteryADCSpan * batteryDivider
}

// Vector is a three-axis accelerometer sample.
type Vector struct {
	X, Y, Z float64
}

// Button names a controller button.
type Button int

const (
	ButtonC Button = iota
	ButtonZ
)

func (b Button) String() string {
	switch b {
	case ButtonC:
		return "C"
	case ButtonZ:
		return "Z"
	default:
		return fmt.Sprintf("button(%d)", int(b))
	}
}

// ButtonState is the level of both buttons at one instant.
type ButtonState struct {
	C bool
	Z bool
}

// Get returns the level of b.
func (s ButtonState) Get(b Button) bool {
	if b == ButtonZ {
		return s.Z
	}
	return s.C
}

// Color is an 8-bit RGB triplet.
type Color struct {
	R, G, B uint8
}
