package device_test

import (
	"testing"

	"codeberg.org/mutker/envirotel/internal/device"
	"github.com/stretchr/testify/assert"
)

func TestGasReadingVolts(t *testing.T) {
	tests := []struct {
		name    string
		reading device.GasReading
		want    float64
	}{
		{"zero", device.GasReading{RawCount: 0, ReferenceVoltage: 3.3}, 0},
		{"full scale", device.GasReading{RawCount: 65535, ReferenceVoltage: 3.3}, 3.3},
		{"half scale", device.GasReading{RawCount: 32768, ReferenceVoltage: 2.0}, 32768 * 2.0 / 65535},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.reading.Volts(), 1e-9)
		})
	}
}

func TestBatteryVolts(t *testing.T) {
	assert.InDelta(t, 0, device.BatteryVolts(0), 1e-9)
	assert.InDelta(t, 3.3, device.BatteryVolts(32768), 1e-9)
}

func TestNames(t *testing.T) {
	assert.Equal(t, "ox", device.Oxidising.String())
	assert.Equal(t, "red", device.Reducing.String())
	assert.Equal(t, "nh3", device.NH3.String())
	assert.Equal(t, "Z", device.ButtonZ.String())
	assert.True(t, device.ButtonState{Z: true}.Get(device.ButtonZ))
	assert.False(t, device.ButtonState{Z: true}.Get(device.ButtonC))
}

func TestCapabilitiesFields(t *testing.T) {
	caps := device.Capabilities{Motion: true, ActuatorStrip: true}
	assert.Equal(t, map[string]any{
		"motion":         true,
		"environment":    false,
		"network":        false,
		"actuator_strip": true,
	}, caps.Fields())
}
