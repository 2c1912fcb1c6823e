package telemetry

import (
	"context"
	"net/http"
	"time"
)

// Submitter delivers one reading to the ingestion endpoint.
type Submitter interface {
	Submit(ctx context.Context, channel string, value float64) Outcome
}

// Outcome is the at-most-once result of a submission.
type Outcome int

const (
	Dropped Outcome = iota
	Delivered
)

func (o Outcome) String() string {
	if o == Delivered {
		return "delivered"
	}
	return "dropped"
}

// Observer is told about every submission once its outcome is known.
type Observer func(channel string, outcome Outcome, latency time.Duration)

// Doer is the subset of *http.Client the sink needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// payload is the ingestion request body.
type payload struct {
	Value float64 `json:"value"`
}
