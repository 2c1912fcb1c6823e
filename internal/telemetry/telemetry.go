// Package telemetry forwards readings to the remote time-series endpoint with
// a best-effort, at-most-once policy: a failed event is dropped and the
// transport is reset so the next scheduled call can succeed.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"codeberg.org/mutker/envirotel/internal/errors"
	"codeberg.org/mutker/envirotel/internal/logger"
)

const apiKeyHeader = "X-API-KEY"

type Option func(*Sink)

// WithClientFactory replaces the HTTP client factory.
func WithClientFactory(f ClientFactory) Option {
	return func(s *Sink) {
		s.factory = f
	}
}

// WithObserver registers a hook called after every submission.
func WithObserver(o Observer) Option {
	return func(s *Sink) {
		s.observer = o
	}
}

// WithLogger sets the sink's logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Sink) {
		s.log = l
	}
}

type Sink struct {
	cfg       Config
	endpoint  *url.URL
	factory   ClientFactory
	transport *transport
	observer  Observer
	log       logger.Logger
}

func NewSink(cfg Config, opts ...Option) (*Sink, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	endpoint, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, errFactory.Wrap(ErrInvalidBaseURL, err)
	}

	s := &Sink{
		cfg:      cfg,
		endpoint: endpoint,
		log:      logger.With("component", "telemetry"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.factory == nil {
		s.factory = HTTPClientFactory(cfg.Timeout)
	}
	s.transport = newTransport(s.factory)

	s.log.Debug().
		Str("base_url", cfg.BaseURL).
		Str("account", cfg.Account).
		Str("feed_group", cfg.FeedGroup).
		Dur("timeout", cfg.Timeout).
		Msg("Telemetry sink initialized")

	return s, nil
}

// Submit posts value to channel's feed. Transport errors drop the event and
// reset the client; HTTP status codes are not treated as failures.
func (s *Sink) Submit(ctx context.Context, channel string, value float64) Outcome {
	start := time.Now()
	outcome := s.submit(ctx, channel, value)
	if s.observer != nil {
		s.observer(channel, outcome, time.Since(start))
	}
	return outcome
}

func (s *Sink) submit(ctx context.Context, channel string, value float64) Outcome {
	errFactory := errors.New()

	if math.IsNaN(value) || math.IsInf(value, 0) {
		s.log.Warn().
			Str("error_code", string(ErrInvalidValue)).
			Str("channel", channel).
			Float64("value", value).
			Msg("Refusing to submit non-finite value")
		return Dropped
	}

	req, err := s.newRequest(ctx, channel, value)
	if err != nil {
		s.log.ErrorWithCode(errFactory.Wrap(ErrEncodeFailed, err)).Str("channel", channel).Msg("Failed to build request")
		return Dropped
	}

	slot := s.transport.client()
	resp, err := slot.doer.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// Shutting down; the client is not at fault.
			return Dropped
		}
		reset := s.transport.reset(slot)
		s.log.Warn().
			Str("error_code", string(ErrTransportFailure)).
			Err(err).
			Str("channel", channel).
			Bool("reset", reset).
			Msg("Failed to submit datapoint, transport reset")
		return Dropped
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.log.Debug().
			Str("channel", channel).
			Int("status", resp.StatusCode).
			Msg("Ingestion endpoint answered with non-success status")
	}

	return Delivered
}

func (s *Sink) newRequest(ctx context.Context, channel string, value float64) (*http.Request, error) {
	body, err := json.Marshal(payload{Value: value})
	if err != nil {
		return nil, err
	}

	target := s.endpoint.JoinPath(s.cfg.Account, "feeds", FeedKey(s.cfg.FeedGroup, channel), "data")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set(apiKeyHeader, s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	return req, nil
}

// Resets reports how many times the transport has been replaced.
func (s *Sink) Resets() int64 {
	return s.transport.resets.Load()
}

// FeedKey builds the feed key for channel, prefixed by group when set.
func FeedKey(group, channel string) string {
	channel = strings.ToLower(channel)
	if group == "" {
		return channel
	}
	return fmt.Sprintf("%s.%s", strings.ToLower(group), channel)
}

// No-op implementation
type noopSubmitter struct{}

// NewNoop returns a Submitter that drops everything, used without a network.
func NewNoop() Submitter {
	return &noopSubmitter{}
}

func (*noopSubmitter) Submit(_ context.Context, _ string, _ float64) Outcome {
	return Dropped
}
