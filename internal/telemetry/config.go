package telemetry

import (
	"net/url"
	"time"

	"codeberg.org/mutker/envirotel/internal/errors"
)

const (
	defaultBaseURL = "https://io.adafruit.com/api/v2"
	defaultTimeout = 10 * time.Second
)

type Config struct {
	BaseURL   string
	Account   string
	APIKey    string
	FeedGroup string
	Timeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		BaseURL: defaultBaseURL,
		Timeout: defaultTimeout,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()
	if c.BaseURL == "" {
		return errFactory.New(ErrInvalidBaseURL)
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return errFactory.Wrap(ErrInvalidBaseURL, err)
	}
	if c.Account == "" || c.APIKey == "" {
		return errFactory.New(ErrMissingCredentials)
	}
	if c.Timeout <= 0 {
		return errFactory.WithData(ErrInvalidConfig, "timeout must be positive")
	}
	return nil
}
