package tags

import (
	"context"
	"time"

	"github.com/jonwraymond/clickops/cache"
	"github.com/jonwraymond/clickops/observe"
)

// Tag is a space tag as served by the upstream API.
type Tag struct {
	Name       string `json:"name"`
	Foreground string `json:"tag_fg,omitempty"`
	Background string `json:"tag_bg,omitempty"`
	Creator    int64  `json:"creator,omitempty"`
}

// Config configures a Cache.
type Config struct {
	// TTL is how long a space's tags stay live.
	// Default: 5 minutes
	TTL time.Duration

	// Now overrides the time source for tests.
	Now func() time.Time
}

// Cache is a per-space TTL cache of tag collections. The simplest cache
// layer: no secondary indexing, one entry per space.
type Cache struct {
	store   *cache.Store[[]Tag]
	metrics *observe.CacheMetrics
}

const component = "tags"

// New creates a tag cache. metrics may be nil.
func New(config Config, metrics *observe.CacheMetrics) *Cache {
	if config.TTL == 0 {
		config.TTL = 5 * time.Minute
	}
	return &Cache{
		store: cache.NewStore[[]Tag](cache.Config{
			TTL: config.TTL,
			Now: config.Now,
		}),
		metrics: metrics,
	}
}

// Read returns the cached tags for a space, or (nil, false) on a miss.
func (c *Cache) Read(ctx context.Context, spaceID string) ([]Tag, bool) {
	tags, ok := c.store.Get(spaceID)
	if ok {
		c.metrics.Hit(ctx, component)
	} else {
		c.metrics.Miss(ctx, component)
	}
	return tags, ok
}

// Store caches the tags for a space, replacing any previous collection.
func (c *Cache) Store(spaceID string, tags []Tag) {
	c.store.Set(spaceID, tags)
}

// Ensure returns the cached tags or fetches and stores them.
func (c *Cache) Ensure(ctx context.Context, spaceID string, forceRefresh bool, fetch func(ctx context.Context) ([]Tag, error)) ([]Tag, error) {
	entry, fromCache, err := c.store.Ensure(ctx, spaceID, forceRefresh, fetch)
	if err != nil {
		return nil, err
	}
	if fromCache {
		c.metrics.Hit(ctx, component)
	} else {
		c.metrics.Miss(ctx, component)
	}
	return entry.Value, nil
}

// Invalidate drops the cached tags for a space.
func (c *Cache) Invalidate(ctx context.Context, spaceID string) {
	if c.store.Delete(spaceID) {
		c.metrics.Invalidation(ctx, component, 1)
	}
}

// InvalidateAll drops every cached tag collection.
func (c *Cache) InvalidateAll(ctx context.Context) {
	c.metrics.Invalidation(ctx, component, c.store.Clear())
}
