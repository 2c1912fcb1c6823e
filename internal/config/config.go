package config

import (
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/envirotel/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultInterval     = 30
	DefaultLogLevel     = string(LogLevelWarning)
	DefaultBaseURL      = "https://io.adafruit.com/api/v2"
	DefaultTimeout      = 10 * time.Second
	DefaultSecretsFile  = "/etc/envirotel/secrets.env"
	DefaultStripRefresh = 50 * time.Millisecond
	DefaultStripPixels  = 27
	DefaultClip         = "StreetChicken.wav"
	DefaultClipTimeout  = 30 * time.Second
	DefaultFrequency    = 440
	DefaultMetricsDB    = ":memory:"
	DefaultBatchSize    = 20
	DefaultBatchTimeout = 60

	defaultEnvPrefix  = "ENVIROTEL"
	defaultConfigName = "envirotel"
	defaultConfigDir  = "/etc"
)

type Config struct {
	Interval     int                `mapstructure:"interval"`
	LogLevel     string             `mapstructure:"log_level"`
	LogFile      string             `mapstructure:"log_file"`
	Debounce     int                `mapstructure:"debounce"`
	Simulate     bool               `mapstructure:"simulate"`
	Telemetry    TelemetryConfig    `mapstructure:"telemetry"`
	Secrets      SecretsConfig      `mapstructure:"secrets"`
	Capabilities CapabilitiesConfig `mapstructure:"capabilities"`
	Strip        StripConfig        `mapstructure:"strip"`
	Status       StatusConfig       `mapstructure:"status"`
	Audio        AudioConfig        `mapstructure:"audio"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
}

type TelemetryConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	FeedGroup string        `mapstructure:"feed_group"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type SecretsConfig struct {
	File string `mapstructure:"file"`
}

// CapabilitiesConfig feeds the simulated prober; real hardware is probed instead.
type CapabilitiesConfig struct {
	Motion        bool `mapstructure:"motion"`
	Environment   bool `mapstructure:"environment"`
	Network       bool `mapstructure:"network"`
	ActuatorStrip bool `mapstructure:"actuator_strip"`
}

type StripConfig struct {
	Refresh time.Duration `mapstructure:"refresh"`
	Pixels  int           `mapstructure:"pixels"`
}

type StatusConfig struct {
	MicBrightness bool `mapstructure:"mic_brightness"`
}

type AudioConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Clip        string        `mapstructure:"clip"`
	ClipTimeout time.Duration `mapstructure:"clip_timeout"`
	Frequency   int           `mapstructure:"frequency"`
}

type MetricsConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	DBPath       string `mapstructure:"db_path"`
	BatchSize    int    `mapstructure:"batch_size"`
	BatchTimeout int    `mapstructure:"batch_timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("interval", DefaultInterval)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_file", "")
	v.SetDefault("debounce", 0)
	v.SetDefault("simulate", true)
	v.SetDefault("telemetry.base_url", DefaultBaseURL)
	v.SetDefault("telemetry.feed_group", "")
	v.SetDefault("telemetry.timeout", DefaultTimeout)
	v.SetDefault("secrets.file", DefaultSecretsFile)
	v.SetDefault("capabilities.motion", true)
	v.SetDefault("capabilities.environment", true)
	v.SetDefault("capabilities.network", true)
	v.SetDefault("capabilities.actuator_strip", true)
	v.SetDefault("strip.refresh", DefaultStripRefresh)
	v.SetDefault("strip.pixels", DefaultStripPixels)
	v.SetDefault("status.mic_brightness", false)
	v.SetDefault("audio.enabled", true)
	v.SetDefault("audio.clip", DefaultClip)
	v.SetDefault("audio.clip_timeout", DefaultClipTimeout)
	v.SetDefault("audio.frequency", DefaultFrequency)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.db_path", DefaultMetricsDB)
	v.SetDefault("metrics.batch_size", DefaultBatchSize)
	v.SetDefault("metrics.batch_timeout", DefaultBatchTimeout)
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("envirotel", pflag.ContinueOnError)
	fs.String("config", "", "Path to the configuration file")
	fs.Int("interval", DefaultInterval, "Seconds between environment and gas samples")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	fs.String("log-file", "", "Also write logs to this rotating file")
	fs.Bool("debug", false, "Enable debugging mode")
	fs.Bool("verbose", false, "Enable verbose logging")
	fs.Int("debounce", 0, "Extra button re-samples before accepting an edge")
	fs.Bool("simulate", true, "Use simulated peripherals")
	fs.String("feed-group", "", "Prefix feed keys with this group")
	fs.Bool("metrics", false, "Record delivery statistics")
	return fs
}

var flagKeys = map[string]string{
	"interval":   "interval",
	"log-level":  "log_level",
	"log-file":   "log_file",
	"debounce":   "debounce",
	"simulate":   "simulate",
	"feed-group": "telemetry.feed_group",
	"metrics":    "metrics.enabled",
}

// Load reads configuration from defaults, the config file, the environment and
// command line flags, in increasing order of precedence.
func Load(opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{envPrefix: defaultEnvPrefix, args: os.Args[1:]}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	fs := newFlagSet()
	if err := fs.Parse(o.args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	path := o.configPath
	if flagPath, _ := fs.GetString("config"); flagPath != "" {
		path = flagPath
	}
	if path == "" {
		path = os.Getenv(o.envPrefix + "_CONFIG")
	}

	if err := readConfigFile(v, path); err != nil {
		return nil, err
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	// --debug and --verbose are shortcuts that win over log_level
	if debug, _ := fs.GetBool("debug"); debug {
		config.LogLevel = string(LogLevelDebug)
	} else if verbose, _ := fs.GetBool("verbose"); verbose {
		config.LogLevel = string(LogLevelInfo)
	}
	config.LogLevel = strings.ToLower(config.LogLevel)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func readConfigFile(v *viper.Viper, path string) error {
	errFactory := errors.New()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return errFactory.Wrap(errors.ErrReadConfig, err)
		}
		return nil
	}

	v.SetConfigName(defaultConfigName)
	v.SetConfigType("toml")
	v.AddConfigPath(defaultConfigDir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	return nil
}

// Validate checks value ranges that the agent cannot run without.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}
	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}
	if c.Debounce < 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "debounce must not be negative")
	}
	if c.Telemetry.BaseURL == "" {
		return errFactory.WithData(errors.ErrInvalidConfig, "telemetry.base_url is required")
	}
	if c.Telemetry.Timeout <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "telemetry.timeout must be positive")
	}
	if c.Strip.Pixels <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "strip.pixels must be positive")
	}
	if c.Strip.Refresh < 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "strip.refresh must not be negative")
	}
	if c.Audio.Frequency <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "audio.frequency must be positive")
	}
	if c.Metrics.Enabled && c.Metrics.DBPath == "" {
		return errFactory.WithData(errors.ErrInvalidConfig, "metrics.db_path is required")
	}

	return nil
}

// PollInterval returns the configured interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Interval) * time.Second
}
