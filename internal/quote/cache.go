package quote

import (
	"context"
	"sync"
	"time"
)

// rateCacheKey identifies a cached rate by token (fiat is always THB).
type rateCacheKey struct {
	token Token
}

// RateCache is a thread-safe TTL cache in front of a RateSource.
type RateCache struct {
	mu      sync.Mutex
	source  RateSource
	entries map[rateCacheKey]ExchangeRate
	ttl     time.Duration
}

// NewRateCache wraps source with a cache honoring RateValidityWindow.
func NewRateCache(source RateSource) *RateCache {
	return &RateCache{
		source:  source,
		entries: make(map[rateCacheKey]ExchangeRate),
		ttl:     RateValidityWindow,
	}
}

// Get returns a cached rate if still valid, otherwise fetches a fresh one
// and stores it.
func (c *RateCache) Get(ctx context.Context, token Token) (ExchangeRate, error) {
	key := rateCacheKey{token: token}

	c.mu.Lock()
	if cached, ok := c.entries[key]; ok && cached.ValidUntil.After(time.Now()) {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	rate, err := c.source.GetRate(ctx, token)
	if err != nil {
		return ExchangeRate{}, err
	}

	c.mu.Lock()
	c.entries[key] = rate
	c.mu.Unlock()

	return rate, nil
}

// Invalidate drops any cached rate for token, forcing the next Get to
// refetch.
func (c *RateCache) Invalidate(token Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, rateCacheKey{token: token})
}
