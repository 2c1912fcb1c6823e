// Package sim provides host-side stand-ins for every device collaborator so
// the agent can run without the board attached. Readings are deterministic
// functions of a per-device step counter.
package sim

import (
	"context"
	"math"
	"sync"
	"time"

	"codeberg.org/mutker/envirotel/internal/device"
	"codeberg.org/mutker/envirotel/internal/logger"
)

// StaticProber reports a fixed capability set.
type StaticProber struct {
	Caps device.Capabilities
}

func (p StaticProber) Probe(ctx context.Context) (device.Capabilities, error) {
	if err := ctx.Err(); err != nil {
		return device.Capabilities{}, err
	}
	return p.Caps, nil
}

// NewSet returns a device set backed entirely by simulated peripherals.
func NewSet() device.Set {
	return device.Set{
		Environment: &Environment{},
		Gas:         &Gas{},
		Motion:      &Motion{},
		Pointer:     &Pointer{},
		Strip:       &Strip{Pixels: 27},
		Status:      &StatusLight{},
		Audio:       &AudioOut{ClipLength: 2 * time.Second},
		Battery:     Battery{Raw: 31000},
	}
}

// wave is a slow oscillation around mid with amplitude amp.
func wave(step uint64, mid, amp, period float64) float64 {
	return mid + amp*math.Sin(2*math.Pi*float64(step)/period)
}

type counter struct {
	mu   sync.Mutex
	step uint64
}

func (c *counter) next() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.step++
	return c.step
}

type Environment struct {
	lux, prox, temp, pres, hum, alt, mic counter
}

func (e *Environment) Lux() (float64, error) {
	return wave(e.lux.next(), 300, 120, 40), nil
}

func (e *Environment) Proximity() (float64, error) {
	return math.Round(wave(e.prox.next(), 10, 8, 25)), nil
}

func (e *Environment) Temperature() (float64, error) {
	return wave(e.temp.next(), 21.5, 1.5, 120), nil
}

func (e *Environment) Pressure() (float64, error) {
	return wave(e.pres.next(), 1013.25, 4, 200), nil
}

func (e *Environment) Humidity() (float64, error) {
	return wave(e.hum.next(), 45, 10, 150), nil
}

func (e *Environment) Altitude() (float64, error) {
	return wave(e.alt.next(), 30, 3, 200), nil
}

func (e *Environment) MicLevel() (float64, error) {
	return math.Round(wave(e.mic.next(), 32768, 2000, 7)), nil
}

type Gas struct {
	steps [3]counter
}

func (g *Gas) Read(ch device.GasChannel) (device.GasReading, error) {
	i := int(ch) % len(g.steps)
	step := g.steps[i].next()

	// Each element idles at a different voltage inside 0.5..3.3V.
	mid := 30000 + 8000*float64(i)
	raw := wave(step, mid, 6000, 30+10*float64(i))

	return device.GasReading{RawCount: uint16(raw), ReferenceVoltage: 3.3}, nil
}

// Motion tilts slowly and presses Z for a few reads out of every hundred.
type Motion struct {
	accel counter
	btn   counter
}

func (m *Motion) Acceleration() (device.Vector, error) {
	step := m.accel.next()
	return device.Vector{
		X: math.Round(wave(step, 480, 120, 500)),
		Y: math.Round(wave(step, 440, 120, 700)),
		Z: math.Round(wave(step, 600, 60, 900)),
	}, nil
}

func (m *Motion) Buttons() (device.ButtonState, error) {
	step := m.btn.next()
	return device.ButtonState{Z: step%100 < 5}, nil
}

func (m *Motion) Button(b device.Button) (bool, error) {
	s, err := m.Buttons()
	return s.Get(b), err
}

// Pointer logs the moves and edges it receives.
type Pointer struct {
	mu     sync.Mutex
	x, y   int
	pushed map[device.Button]bool
}

func (p *Pointer) Move(dx, dy int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.x += dx
	p.y += dy
	return nil
}

// Position returns the accumulated pointer position.
func (p *Pointer) Position() (x, y int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.x, p.y
}

// Down reports whether b is currently pressed.
func (p *Pointer) Down(b device.Button) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pushed[b]
}

func (p *Pointer) Press(b device.Button) error {
	return p.set(b, true)
}

func (p *Pointer) Release(b device.Button) error {
	return p.set(b, false)
}

func (p *Pointer) set(b device.Button, down bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pushed == nil {
		p.pushed = make(map[device.Button]bool)
	}
	p.pushed[b] = down
	logger.Debug().Str("button", b.String()).Bool("down", down).Msg("Simulated pointer button")
	return nil
}

// Strip remembers the last fill colour.
type Strip struct {
	// Pixels is the strip length; every unit shows the same colour.
	Pixels int

	mu    sync.Mutex
	last  device.Color
	fills int
}

func (s *Strip) Fill(c device.Color) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = c
	s.fills++
	return nil
}

// Last returns the most recent colour and how many fills happened.
func (s *Strip) Last() (device.Color, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.fills
}

type StatusLight struct {
	mu         sync.Mutex
	color      device.Color
	brightness float64
}

func (l *StatusLight) SetColor(c device.Color) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.color = c
	return nil
}

func (l *StatusLight) SetBrightness(level float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.brightness = level
	return nil
}

// State returns the current colour and brightness.
func (l *StatusLight) State() (device.Color, float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.color, l.brightness
}

// AudioOut pretends a clip plays for ClipLength of wall time.
type AudioOut struct {
	ClipLength time.Duration

	mu    sync.Mutex
	until time.Time
}

func (a *AudioOut) PlayRaw(samples []uint16, sampleRate int, loop bool) error {
	logger.Debug().Int("samples", len(samples)).Int("rate", sampleRate).Bool("loop", loop).Msg("Simulated tone")
	return nil
}

func (a *AudioOut) PlayFile(path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.until = time.Now().Add(a.ClipLength)
	logger.Debug().Str("clip", path).Msg("Simulated clip")
	return nil
}

func (a *AudioOut) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.until = time.Time{}
	return nil
}

func (a *AudioOut) Playing() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return time.Now().Before(a.until)
}

type Battery struct {
	Raw uint16
}

func (b Battery) VoltageRaw() (uint16, error) {
	return b.Raw, nil
}
