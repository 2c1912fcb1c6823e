package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/mutker/envirotel/internal/audio"
	"codeberg.org/mutker/envirotel/internal/calibration"
	"codeberg.org/mutker/envirotel/internal/config"
	"codeberg.org/mutker/envirotel/internal/device"
	"codeberg.org/mutker/envirotel/internal/device/sim"
	"codeberg.org/mutker/envirotel/internal/errors"
	"codeberg.org/mutker/envirotel/internal/logger"
	"codeberg.org/mutker/envirotel/internal/metrics"
	"codeberg.org/mutker/envirotel/internal/pid"
	"codeberg.org/mutker/envirotel/internal/render"
	"codeberg.org/mutker/envirotel/internal/scheduler"
	"codeberg.org/mutker/envirotel/internal/secrets"
	"codeberg.org/mutker/envirotel/internal/telemetry"
)

// statusStartColor is shown on the status light while the agent starts.
var statusStartColor = device.Color{R: 5, G: 1, B: 15}

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	level, _ := logger.ParseLevel(cfg.LogLevel)
	logger.Init(logger.Options{
		Level:     level,
		IsService: logger.IsService(),
		File:      cfg.LogFile,
	})
	logger.Debug().Msg("Config loaded")
}

func main() {
	pidFile := pid.New("")
	if err := pidFile.Write(); err != nil {
		fatal(err, "Failed to write pid file")
	}
	defer func() {
		if err := pidFile.Remove(); err != nil {
			logger.Error().Err(err).Msg("Failed to remove pid file")
		}
	}()

	creds, err := secrets.Load(cfg.Secrets.File)
	if err != nil {
		fatal(err, "Failed to load credentials")
	}

	if !cfg.Simulate {
		fatal(errors.New().WithMessage(errors.ErrNotImplemented, "no hardware backend in this build, set simulate = true"),
			"Cannot drive hardware")
	}
	dev, prober := simulatedDevices()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	caps, err := prober.Probe(ctx)
	if err != nil {
		fatal(errors.New().Wrap(errors.ErrStartupFatal, errors.New().Wrap(errors.ErrProbeFailed, err)), "Capability probe failed")
	}
	logDiagnostics(caps, dev)

	collector, err := metrics.NewService(metrics.Config{
		DBPath:       cfg.Metrics.DBPath,
		BatchSize:    cfg.Metrics.BatchSize,
		BatchTimeout: cfg.Metrics.BatchTimeout,
		Enabled:      cfg.Metrics.Enabled,
	})
	if err != nil {
		fatal(err, "Failed to initialize metrics")
	}

	recorder := metrics.NewRecorder(collector, metrics.DefaultRecorderBuffer)

	sink, err := newSink(caps, creds, recorder)
	if err != nil {
		fatal(err, "Failed to initialize telemetry")
	}

	surface, err := render.NewSurface(render.DefaultConfig(), &sim.Display{})
	if err != nil {
		fatal(err, "Failed to initialize display")
	}

	interval, err := scheduler.NewInterval(cfg.PollInterval())
	if err != nil {
		fatal(err, "Invalid interval")
	}
	table := calibration.NewTable()

	opts := []scheduler.Option{
		scheduler.WithInterval(interval),
		scheduler.WithDebounce(cfg.Debounce),
		scheduler.WithStripRefresh(cfg.Strip.Refresh),
		scheduler.WithMicBrightness(cfg.Status.MicBrightness),
		scheduler.WithCalibration(table),
	}
	if cfg.Audio.Enabled {
		audioCfg := audio.DefaultConfig()
		audioCfg.Clip = cfg.Audio.Clip
		audioCfg.ClipTimeout = cfg.Audio.ClipTimeout
		audioCfg.Frequency = cfg.Audio.Frequency
		opts = append(opts, scheduler.WithAudio(audioCfg))
	}

	sched, err := scheduler.New(caps, dev, sink, surface, opts...)
	if err != nil {
		fatal(err, "Failed to build scheduler")
	}

	if err := sched.Run(ctx); err != nil {
		logger.Error().
			Err(err).
			Str("error_code", string(errors.CodeOf(err))).
			Str("run_id", sched.RunID()).
			Msg("Error in main loop")
	}

	cleanup(recorder, collector, table)
}

func simulatedDevices() (device.Set, device.Prober) {
	set := sim.NewSet()
	set.Strip = &sim.Strip{Pixels: cfg.Strip.Pixels}

	prober := sim.StaticProber{Caps: device.Capabilities{
		Motion:        cfg.Capabilities.Motion,
		Environment:   cfg.Capabilities.Environment,
		Network:       cfg.Capabilities.Network,
		ActuatorStrip: cfg.Capabilities.ActuatorStrip,
	}}

	return set, prober
}

func newSink(caps device.Capabilities, creds secrets.Credentials, recorder *metrics.Recorder) (telemetry.Submitter, error) {
	if !caps.Network {
		logger.Info().Msg("No network, telemetry disabled")
		return telemetry.NewNoop(), nil
	}

	return telemetry.NewSink(telemetry.Config{
		BaseURL:   cfg.Telemetry.BaseURL,
		Account:   creds.Account,
		APIKey:    creds.APIKey,
		FeedGroup: cfg.Telemetry.FeedGroup,
		Timeout:   cfg.Telemetry.Timeout,
	}, telemetry.WithObserver(recorder.Observe))
}

func logDiagnostics(caps device.Capabilities, dev device.Set) {
	families := []struct {
		name    string
		present bool
	}{
		{"Motion controller", caps.Motion},
		{"Environment wing", caps.Environment},
		{"Network", caps.Network},
		{"Actuator strip", caps.ActuatorStrip},
	}
	for _, f := range families {
		if f.present {
			logger.Info().Msgf("%s detected", f.name)
		} else {
			logger.Info().Msgf("%s not detected", f.name)
		}
	}

	if dev.Battery != nil {
		if raw, err := dev.Battery.VoltageRaw(); err == nil {
			logger.Info().Float64("volts", device.BatteryVolts(raw)).Msg("Battery voltage")
		}
	}

	if dev.Status != nil {
		if err := dev.Status.SetColor(statusStartColor); err != nil {
			logger.Warn().Err(err).Msg("Failed to set status light")
		}
	}
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func cleanup(recorder *metrics.Recorder, collector metrics.Collector, table *calibration.Table) {
	recorder.Close()
	if n := recorder.Discarded(); n > 0 {
		logger.Warn().Int64("discarded", n).Msg("Delivery samples lost to a full metrics buffer")
	}

	for name, b := range table.Snapshot() {
		logger.Debug().Str("signal", name).Float64("min", b.Min).Float64("max", b.Max).Msg("Calibration range")
	}

	if stats, err := collector.Stats(context.Background()); err == nil {
		for _, s := range stats {
			logger.Info().
				Str("channel", s.Channel).
				Int64("delivered", s.Delivered).
				Int64("dropped", s.Dropped).
				Dur("avg_latency", s.AvgLatency).
				Msg("Delivery statistics")
		}
	}
	if err := collector.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close metrics")
	}

	logger.Info().Msg("Exiting...")
}

// fatal exits with the error's code attached when it carries one.
func fatal(err error, msg string) {
	var coded errors.Error
	if errors.As(err, &coded) {
		logger.FatalWithCode(coded).Msg(msg)
	}
	logger.Fatal().Err(err).Msg(msg)
}
