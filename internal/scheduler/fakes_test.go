package scheduler

import (
	"context"
	stderrors "errors"
	"math"
	"runtime"
	"sync"
	"time"

	"codeberg.org/mutker/envirotel/internal/device"
	"codeberg.org/mutker/envirotel/internal/render"
	"codeberg.org/mutker/envirotel/internal/telemetry"
)

type recordingSink struct {
	mu     sync.Mutex
	counts map[string]int
	values map[string][]float64
}

func newRecordingSink() *recordingSink {
	return &recordingSink{counts: map[string]int{}, values: map[string][]float64{}}
}

func (r *recordingSink) Submit(_ context.Context, channel string, value float64) telemetry.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[channel]++
	r.values[channel] = append(r.values[channel], value)
	return telemetry.Delivered
}

func (r *recordingSink) count(channel string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[channel]
}

func (r *recordingSink) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.counts {
		n += c
	}
	return n
}

// gatedClock never waits, except that a task which has already submitted
// (or slept maxSleeps times) is parked until the run is cancelled.
type gatedClock struct {
	sink      *recordingSink
	maxSleeps int
	// onSleep runs for every sleep, n counting from 1 per task.
	onSleep func(name string, n int)

	mu    sync.Mutex
	slept map[string][]time.Duration
}

func newGatedClock(sink *recordingSink) *gatedClock {
	return &gatedClock{sink: sink, slept: map[string][]time.Duration{}}
}

func (c *gatedClock) Sleep(ctx context.Context, d time.Duration) error {
	name := TaskFromContext(ctx)

	c.mu.Lock()
	c.slept[name] = append(c.slept[name], d)
	n := len(c.slept[name])
	c.mu.Unlock()

	if c.onSleep != nil {
		c.onSleep(name, n)
	}
	if c.sink.count(name) > 0 || (c.maxSleeps > 0 && n > c.maxSleeps) {
		<-ctx.Done()
		return ctx.Err()
	}
	runtime.Gosched()
	return ctx.Err()
}

func (c *gatedClock) sleeps(name string) []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.slept[name]...)
}

// budgetClock cancels the run once limit sleeps have happened.
type budgetClock struct {
	limit  int
	cancel context.CancelFunc

	mu    sync.Mutex
	slept []time.Duration
}

func (c *budgetClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.slept = append(c.slept, d)
	if len(c.slept) >= c.limit {
		c.cancel()
	}
	c.mu.Unlock()
	return ctx.Err()
}

func (c *budgetClock) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slept)
}

type fakeEnvironment struct {
	luxErr error
	micNaN bool
}

func (f fakeEnvironment) Lux() (float64, error) {
	if f.luxErr != nil {
		return 0, f.luxErr
	}
	return 250, nil
}
func (fakeEnvironment) Proximity() (float64, error)   { return 4, nil }
func (fakeEnvironment) Temperature() (float64, error) { return 21.5, nil }
func (fakeEnvironment) Pressure() (float64, error)    { return 1013.25, nil }
func (fakeEnvironment) Humidity() (float64, error)    { return 40, nil }
func (fakeEnvironment) Altitude() (float64, error)    { return 12, nil }

func (f fakeEnvironment) MicLevel() (float64, error) {
	if f.micNaN {
		return math.NaN(), nil
	}
	return 30000, nil
}

// fakeGas reports a NaN reference voltage for the invalid channel.
type fakeGas struct {
	invalid    device.GasChannel
	hasInvalid bool
}

func (f fakeGas) Read(ch device.GasChannel) (device.GasReading, error) {
	ref := 3.3
	if f.hasInvalid && ch == f.invalid {
		ref = math.NaN()
	}
	return device.GasReading{RawCount: uint16(20000 + 10000*int(ch)), ReferenceVoltage: ref}, nil
}

type fakeAudio struct {
	mu         sync.Mutex
	calls      []string
	playingFor int
}

func (f *fakeAudio) PlayRaw(_ []uint16, _ int, _ bool) error {
	f.record("raw")
	return nil
}

func (f *fakeAudio) PlayFile(_ string) error {
	f.record("file")
	return nil
}

func (f *fakeAudio) Stop() error {
	f.record("stop")
	return nil
}

func (f *fakeAudio) Playing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playingFor > 0 {
		f.playingFor--
		return true
	}
	return false
}

func (f *fakeAudio) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeAudio) history() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeMotion struct {
	mu      sync.Mutex
	accel   []device.Vector
	buttons []device.ButtonState
	reads   int
	presses int
}

func (f *fakeMotion) Acceleration() (device.Vector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.accel[f.reads%len(f.accel)]
	f.reads++
	return v, nil
}

func (f *fakeMotion) Buttons() (device.ButtonState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.buttons[f.presses%len(f.buttons)]
	f.presses++
	return s, nil
}

func (f *fakeMotion) Button(b device.Button) (bool, error) {
	s, err := f.Buttons()
	return s.Get(b), err
}

type fakePointer struct {
	mu     sync.Mutex
	moves  [][2]int
	events []string
}

func (f *fakePointer) Move(dx, dy int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, [2]int{dx, dy})
	return nil
}

func (f *fakePointer) Press(b device.Button) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "press "+b.String())
	return nil
}

func (f *fakePointer) Release(b device.Button) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "release "+b.String())
	return nil
}

type fakeStrip struct {
	mu    sync.Mutex
	fills []device.Color
	err   error
}

func (f *fakeStrip) Fill(c device.Color) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.fills = append(f.fills, c)
	return nil
}

type fakeStatus struct {
	mu         sync.Mutex
	brightness []float64
}

func (f *fakeStatus) SetColor(device.Color) error { return nil }

func (f *fakeStatus) SetBrightness(level float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.brightness = append(f.brightness, level)
	return nil
}

type countingPresenter struct {
	mu     sync.Mutex
	frames int
	err    error
}

func (p *countingPresenter) Present(context.Context, render.Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames++
	return p.err
}

func (p *countingPresenter) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frames
}

var errBoom = stderrors.New("boom")
