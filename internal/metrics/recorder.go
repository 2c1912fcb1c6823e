package metrics

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/envirotel/internal/logger"
	"codeberg.org/mutker/envirotel/internal/telemetry"
)

const DefaultRecorderBuffer = 64

// Recorder moves delivery samples off the submit path. Observe never waits on
// the collector; a sample arriving while the buffer is full is discarded.
type Recorder struct {
	collector Collector
	samples   chan *DeliverySample
	done      chan struct{}
	log       logger.Logger

	mu     sync.RWMutex
	closed bool

	discarded atomic.Int64
}

func NewRecorder(c Collector, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = DefaultRecorderBuffer
	}

	r := &Recorder{
		collector: c,
		samples:   make(chan *DeliverySample, buffer),
		done:      make(chan struct{}),
		log:       logger.With("component", "metrics_recorder"),
	}
	go r.drain()

	return r
}

// Observe satisfies telemetry.Observer.
func (r *Recorder) Observe(channel string, outcome telemetry.Outcome, latency time.Duration) {
	sample := &DeliverySample{
		Timestamp: time.Now(),
		Channel:   channel,
		Delivered: outcome == telemetry.Delivered,
		Latency:   latency,
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.discarded.Add(1)
		return
	}
	select {
	case r.samples <- sample:
	default:
		r.discarded.Add(1)
	}
}

func (r *Recorder) drain() {
	defer close(r.done)

	for sample := range r.samples {
		if err := r.collector.Record(context.Background(), sample); err != nil {
			r.log.Debug().Err(err).Str("channel", sample.Channel).Msg("Failed to record delivery")
		}
	}
}

// Discarded reports how many samples were lost to a full buffer or a closed recorder.
func (r *Recorder) Discarded() int64 {
	return r.discarded.Load()
}

// Close records whatever is buffered and stops the recorder. The collector
// stays open.
func (r *Recorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.samples)
	}
	r.mu.Unlock()

	<-r.done
}
