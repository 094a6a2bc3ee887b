package tts

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// Cached wraps a Provider and remembers results by text. Coaching cues
// repeat constantly ("Timer started", "Great! 3"), so most requests never
// reach the backend.
type Cached struct {
	Provider
	cache *cache.Cache
}

// NewCached caches results of p for ttl.
func NewCached(p Provider, ttl time.Duration) *Cached {
	return &Cached{
		Provider: p,
		cache:    cache.New(ttl, 2*ttl),
	}
}

// Name implements Named.
func (c *Cached) Name() string { return NameOf(c.Provider) }

// Synthesize returns the cached result for text or synthesizes and stores it.
func (c *Cached) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	key := strings.TrimSpace(text)
	if x, found := c.cache.Get(key); found {
		return x.(*AudioResult), nil
	}

	result, err := c.Provider.Synthesize(ctx, key)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, result, cache.DefaultExpiration)
	return result, nil
}

// Len returns the number of cached entries.
func (c *Cached) Len() int {
	return c.cache.ItemCount()
}

// Verify Cached implements Provider at compile time.
var _ Provider = (*Cached)(nil)
