package sim

import (
	"context"
	"math"
	"testing"
	"time"

	"codeberg.org/mutker/envirotel/internal/device"
	"codeberg.org/mutker/envirotel/internal/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticProber(t *testing.T) {
	caps := device.Capabilities{Environment: true, Network: true}
	got, err := StaticProber{Caps: caps}.Probe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, caps, got)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = StaticProber{Caps: caps}.Probe(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewSetIsComplete(t *testing.T) {
	set := NewSet()
	assert.NotNil(t, set.Environment)
	assert.NotNil(t, set.Gas)
	assert.NotNil(t, set.Motion)
	assert.NotNil(t, set.Pointer)
	assert.NotNil(t, set.Strip)
	assert.NotNil(t, set.Status)
	assert.NotNil(t, set.Audio)
	assert.NotNil(t, set.Battery)
}

func TestGasStaysInPlotRange(t *testing.T) {
	g := &Gas{}
	for _, ch := range []device.GasChannel{device.Oxidising, device.Reducing, device.NH3} {
		for i := 0; i < 100; i++ {
			r, err := g.Read(ch)
			require.NoError(t, err)
			v := r.Volts()
			assert.GreaterOrEqual(t, v, 0.5, ch.String())
			assert.LessOrEqual(t, v, 3.3, ch.String())
		}
	}
}

func TestEnvironmentReadingsAreFinite(t *testing.T) {
	e := &Environment{}
	reads := []func() (float64, error){
		e.Lux, e.Proximity, e.Temperature, e.Pressure, e.Humidity, e.Altitude, e.MicLevel,
	}
	for _, read := range reads {
		v, err := read()
		require.NoError(t, err)
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}

func TestAudioOutPlaysForClipLength(t *testing.T) {
	a := &AudioOut{ClipLength: time.Hour}
	assert.False(t, a.Playing())

	require.NoError(t, a.PlayFile("clip.wav"))
	assert.True(t, a.Playing())

	require.NoError(t, a.Stop())
	assert.False(t, a.Playing())
}

func TestPointerTracksState(t *testing.T) {
	p := &Pointer{}
	require.NoError(t, p.Move(3, -2))
	require.NoError(t, p.Move(1, 1))
	x, y := p.Position()
	assert.Equal(t, 4, x)
	assert.Equal(t, -1, y)

	require.NoError(t, p.Press(device.ButtonZ))
	assert.True(t, p.Down(device.ButtonZ))
	require.NoError(t, p.Release(device.ButtonZ))
	assert.False(t, p.Down(device.ButtonZ))
}

func TestDisplayRecordsFrames(t *testing.T) {
	d := &Display{}
	s, err := render.NewSurface(render.DefaultConfig(), d)
	require.NoError(t, err)

	require.NoError(t, s.Paint(context.Background()))
	require.NoError(t, s.Paint(context.Background()))
	assert.Equal(t, uint64(2), d.Frames())
}
