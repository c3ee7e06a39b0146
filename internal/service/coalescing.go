package service

import (
	"context"
	"sync"
	"time"

	"github.com/kjstillabower/wind-weibull-service/internal/models"
)

// call is one computation that several callers may wait for.
// result and err are written before done is closed.
type call struct {
	done   chan struct{}
	result models.Analysis
	err    error
}

// requestCoalescer runs at most one computation per key at a time.
type requestCoalescer struct {
	mu       sync.Mutex
	inFlight map[string]*call
	timeout  time.Duration
}

func newRequestCoalescer(timeout time.Duration) *requestCoalescer {
	return &requestCoalescer{
		inFlight: make(map[string]*call),
		timeout:  timeout,
	}
}

// Do runs fn for key unless a computation for key is already in flight, in
// which case it waits for that result. shared reports whether the caller joined
// an existing computation. Waiting stops on ctx cancellation or after the
// coalescer timeout; fn keeps running for the other waiters.
func (rc *requestCoalescer) Do(ctx context.Context, key string, fn func() (models.Analysis, error)) (result models.Analysis, shared bool, err error) {
	rc.mu.Lock()
	c, shared := rc.inFlight[key]
	if !shared {
		c = &call{done: make(chan struct{})}
		rc.inFlight[key] = c
		go func() {
			c.result, c.err = fn()
			rc.mu.Lock()
			delete(rc.inFlight, key)
			rc.mu.Unlock()
			close(c.done)
		}()
	}
	rc.mu.Unlock()

	waitCtx := ctx
	if rc.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, rc.timeout)
		defer cancel()
	}
	select {
	case <-c.done:
		return c.result, shared, c.err
	case <-waitCtx.Done():
		return models.Analysis{}, shared, waitCtx.Err()
	}
}

// pending reports the number of keys with a computation in flight.
func (rc *requestCoalescer) pending() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.inFlight)
}
