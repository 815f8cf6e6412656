package content

import (
	"context"
	"time"

	"github.com/FocuswithJustin/versefinder/core/refparse"
	"github.com/FocuswithJustin/versefinder/internal/cache"
)

// Cached wraps a provider with a per-entry TTL cache. Only successful
// lookups are cached.
type Cached struct {
	next  Provider
	cache *cache.TTLCache[string, []string]
}

// NewCached wraps next. maxEntries <= 0 means unbounded.
func NewCached(next Provider, ttl time.Duration, maxEntries int) *Cached {
	return &Cached{
		next:  next,
		cache: cache.New[string, []string](ttl, maxEntries),
	}
}

// Name implements Provider.
func (c *Cached) Name() string { return c.next.Name() }

// Lookup implements Provider.
func (c *Cached) Lookup(ctx context.Context, ref refparse.Reference) ([]string, error) {
	key := cacheKey(ref)
	if lines, ok := c.cache.Get(key); ok {
		return lines, nil
	}

	lines, err := c.next.Lookup(ctx, ref)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, lines)
	return lines, nil
}

// Invalidate drops every cached entry.
func (c *Cached) Invalidate() {
	c.cache.Invalidate()
}

func cacheKey(ref refparse.Reference) string {
	return ref.Book + " " + ref.Group.String()
}
