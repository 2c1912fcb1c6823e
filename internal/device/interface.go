// Package device declares the peripherals the agent drives. Drivers, bus
// probing and the raw playback routine live behind these interfaces.
package device

import (
	"context"
	"reflect"

	"github.com/iancoleman/strcase"
)

// Capabilities records which peripheral families were detected at startup.
// It is probed once and never changes for the life of the process.
type Capabilities struct {
	Motion        bool
	Environment   bool
	Network       bool
	ActuatorStrip bool
}

// Fields returns each flag keyed by its snake_case name, for structured logs.
func (c Capabilities) Fields() map[string]any {
	v := reflect.ValueOf(c)
	t := v.Type()

	fields := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		fields[strcase.ToSnake(t.Field(i).Name)] = v.Field(i).Bool()
	}

	return fields
}

// Prober inspects the attached peripherals.
type Prober interface {
	Probe(ctx context.Context) (Capabilities, error)
}

// Environment is the environment wing: light/proximity, weather and microphone.
type Environment interface {
	Lux() (float64, error)
	Proximity() (float64, error)
	Temperature() (float64, error)
	Pressure() (float64, error)
	Humidity() (float64, error)
	Altitude() (float64, error)
	// MicLevel returns the raw 16-bit microphone ADC count.
	MicLevel() (float64, error)
}

// Gas reads the three channels of the metal-oxide gas sensor.
type Gas interface {
	Read(ch GasChannel) (GasReading, error)
}

// Motion is a nunchuk-style controller: accelerometer plus two buttons.
type Motion interface {
	Acceleration() (Vector, error)
	Buttons() (ButtonState, error)
	// Button re-reads a single button, used for debounce confirmation.
	Button(b Button) (bool, error)
}

// VirtualPointer receives pointer movement and button edges derived from Motion.
type VirtualPointer interface {
	Move(dx, dy int) error
	Press(b Button) error
	Release(b Button) error
}

// Strip is a multi-unit addressable indicator strip.
type Strip interface {
	Fill(c Color) error
}

// StatusLight is the single on-board status pixel.
type StatusLight interface {
	SetColor(c Color) error
	SetBrightness(level float64) error
}

// AudioOut plays raw samples and recorded clips on the speaker output.
type AudioOut interface {
	PlayRaw(samples []uint16, sampleRate int, loop bool) error
	PlayFile(path string) error
	Stop() error
	Playing() bool
}

// Battery exposes the raw battery monitor ADC count.
type Battery interface {
	VoltageRaw() (uint16, error)
}

// Set bundles every collaborator handed to the scheduler. Members for absent
// capabilities may be nil.
type Set struct {
	Environment Environment
	Gas         Gas
	Motion      Motion
	Pointer     VirtualPointer
	Strip       Strip
	Status      StatusLight
	Audio       AudioOut
	Battery     Battery
}
