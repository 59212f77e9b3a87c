// Package coordinator deduplicates concurrent fetches for the same
// key: the first caller becomes the owner and performs the work, later
// callers join the in-flight attempt and observe the owner's outcome.
package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/pulseboard/server/pkg/obs"
)

// DefaultGrace keeps a completed key registered briefly so duplicate
// calls landing in the same tick still join instead of refetching.
const DefaultGrace = time.Second

// Flight is the shared future for one unit of work. All joiners of a
// key receive the identical value/error pair.
type Flight[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Wait blocks until the owner publishes a result or ctx is cancelled.
// Cancelling a waiter never cancels the owner's work.
func (f *Flight[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case <-f.done:
		return f.val, f.err
	}
}

type Coordinator[T any] struct {
	mu       sync.Mutex
	inflight map[string]*Flight[T]
	grace    time.Duration
}

func New[T any](grace time.Duration) *Coordinator[T] {
	if grace < 0 {
		grace = DefaultGrace
	}
	return &Coordinator[T]{
		inflight: make(map[string]*Flight[T]),
		grace:    grace,
	}
}

// AcquireOrJoin registers the caller for key. The first caller for a
// key gets owner=true and must eventually call Complete with the same
// flight; everyone else joins the existing flight. The check-then-
// register step is atomic, which is what keeps at most one upstream
// call in flight per key.
func (c *Coordinator[T]) AcquireOrJoin(key string) (owner bool, flight *Flight[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if f, ok := c.inflight[key]; ok {
		obs.FlightJoins.Inc()
		return false, f
	}

	f := &Flight[T]{done: make(chan struct{})}
	c.inflight[key] = f
	return true, f
}

// Complete publishes the owner's outcome to all joiners, then drops the
// key after the grace window. Success and failure both clear the key, so
// a failed round never wedges future fetches.
func (c *Coordinator[T]) Complete(key string, flight *Flight[T], val T, err error) {
	flight.val = val
	flight.err = err
	close(flight.done)

	time.AfterFunc(c.grace, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.inflight[key] == flight {
			delete(c.inflight, key)
		}
	})
}

// Pending reports whether key currently has a registered flight.
func (c *Coordinator[T]) Pending(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[key]
	return ok
}
