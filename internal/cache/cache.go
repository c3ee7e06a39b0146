package cache

import (
	"context"
	"sync"
	"time"

	"github.com/kjstillabower/wind-weibull-service/internal/models"
)

// Cache stores computed analyses keyed by city and variable.
// Get returns cached data if present and not expired, Set stores data with TTL.
type Cache interface {
	Get(ctx context.Context, key string) (models.Analysis, bool, error)
	Set(ctx context.Context, key string, value models.Analysis, ttl time.Duration) error
}

// Key builds the cache key for one (city, variable) analysis.
func Key(city string, variable models.Variable) string {
	return city + "|" + string(variable)
}

// InMemoryCache implements Cache using a mutex-guarded map with TTL-based expiration.
// Expired entries are removed on access.
type InMemoryCache struct {
	mu   sync.Mutex
	data map[string]cacheEntry
}

type cacheEntry struct {
	value     models.Analysis
	expiresAt time.Time
}

// NewInMemoryCache creates a new in-memory cache instance.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		data: make(map[string]cacheEntry),
	}
}

// Get returns (data, true, nil) on hit and (zero, false, nil) on miss or expiration.
func (c *InMemoryCache) Get(ctx context.Context, key string) (models.Analysis, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.data[key]
	if !ok {
		return models.Analysis{}, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.data, key)
		return models.Analysis{}, false, nil
	}
	return entry.value, true, nil
}

// Set stores an analysis with the given TTL.
func (c *InMemoryCache) Set(ctx context.Context, key string, value models.Analysis, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = cacheEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Len reports the number of stored entries, expired or not.
func (c *InMemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}
