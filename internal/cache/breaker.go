package cache

import (
	"context"
	"time"

	"github.com/kjstillabower/wind-weibull-service/internal/circuitbreaker"
	"github.com/kjstillabower/wind-weibull-service/internal/models"
)

// BreakerCache guards a remote Cache with a circuit breaker. While the breaker
// is open, Get and Set fail fast with circuitbreaker.ErrOpen instead of waiting
// on the backend's timeout.
type BreakerCache struct {
	inner Cache
	cb    *circuitbreaker.CircuitBreaker
}

// NewBreakerCache wraps inner with cb.
func NewBreakerCache(inner Cache, cb *circuitbreaker.CircuitBreaker) *BreakerCache {
	return &BreakerCache{inner: inner, cb: cb}
}

func (c *BreakerCache) Get(ctx context.Context, key string) (models.Analysis, bool, error) {
	// Caller cancellation says nothing about backend health.
	if err := ctx.Err(); err != nil {
		return models.Analysis{}, false, err
	}
	var (
		a  models.Analysis
		ok bool
	)
	err := c.cb.Call(func() error {
		var err error
		a, ok, err = c.inner.Get(ctx, key)
		return err
	})
	return a, ok, err
}

func (c *BreakerCache) Set(ctx context.Context, key string, value models.Analysis, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.cb.Call(func() error {
		return c.inner.Set(ctx, key, value, ttl)
	})
}
