package telemetry

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// ClientFactory builds a fresh client after a reset.
type ClientFactory func() Doer

type clientSlot struct {
	doer Doer
}

// transport owns the shared client. Sends load it lock-free; only resets
// are serialized against each other.
type transport struct {
	factory ClientFactory
	current atomic.Pointer[clientSlot]
	resetMu sync.Mutex
	resets  atomic.Int64
}

func newTransport(factory ClientFactory) *transport {
	t := &transport{factory: factory}
	t.current.Store(&clientSlot{doer: factory()})
	return t
}

func (t *transport) client() *clientSlot {
	return t.current.Load()
}

// reset replaces failed with a new client. Concurrent failures on the same
// client collapse into one reset.
func (t *transport) reset(failed *clientSlot) bool {
	t.resetMu.Lock()
	defer t.resetMu.Unlock()

	if t.current.Load() != failed {
		return false
	}

	if closer, ok := failed.doer.(interface{ CloseIdleConnections() }); ok {
		closer.CloseIdleConnections()
	}
	t.current.Store(&clientSlot{doer: t.factory()})
	t.resets.Add(1)

	return true
}

// HTTPClientFactory returns a factory producing clients with their own
// connection pool so a reset drops every wedged connection.
func HTTPClientFactory(timeout time.Duration) ClientFactory {
	return func() Doer {
		base, _ := http.DefaultTransport.(*http.Transport)
		var rt http.RoundTripper = http.DefaultTransport
		if base != nil {
			rt = base.Clone()
		}
		return &http.Client{Timeout: timeout, Transport: rt}
	}
}
