package metrics

import (
	"context"
	"time"
)

// Collector records telemetry delivery outcomes. Readings themselves are
// never stored.
type Collector interface {
	Record(ctx context.Context, sample *DeliverySample) error
	Stats(ctx context.Context) ([]ChannelStats, error)
	Close() error
}

// Repository defines the interface for delivery statistics storage
type Repository interface {
	Record(sample *DeliverySample) error
	Stats() ([]ChannelStats, error)
	Close() error
}

// DeliverySample is the outcome of one submission.
type DeliverySample struct {
	Timestamp time.Time
	Channel   string
	Delivered bool
	Latency   time.Duration
}

// ChannelStats are the running totals for one telemetry channel.
type ChannelStats struct {
	Channel    string
	Delivered  int64
	Dropped    int64
	AvgLatency time.Duration
	UpdatedAt  time.Time
}
