// Package cache provides an in-memory TTL cache used for store row caching
// and as the progressive-result buffer of the evaluation pipeline.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config holds the cache configuration.
type Config struct {
	// DefaultTTL is applied by Set when no explicit TTL is given.
	DefaultTTL time.Duration
	// CleanupInterval is how often the janitor sweeps expired items.
	CleanupInterval time.Duration
	// MaxItems caps the number of items; 0 means unbounded.
	MaxItems int
	// OnEviction is called after an item is removed by the janitor or by
	// capacity pressure. May be nil.
	OnEviction func(key string, value any)
}

type item struct {
	value     any
	expiresAt time.Time
}

func (i *item) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && now.After(i.expiresAt)
}

// Cache is a thread-safe in-memory cache with per-item TTL.
type Cache struct {
	config Config

	data sync.Map // string -> *item
	size atomic.Int64

	stopOnce sync.Once
	stop     chan struct{}
}

// New creates a cache and starts its janitor goroutine.
func New(config Config) *Cache {
	if config.DefaultTTL == 0 {
		config.DefaultTTL = 10 * time.Minute
	}
	if config.CleanupInterval == 0 {
		config.CleanupInterval = time.Minute
	}

	c := &Cache{
		config: config,
		stop:   make(chan struct{}),
	}
	go c.janitor()
	return c
}

// Get retrieves a value. Expired items are treated as absent.
func (c *Cache) Get(_ context.Context, key string) (any, bool) {
	v, ok := c.data.Load(key)
	if !ok {
		return nil, false
	}
	it := v.(*item)
	if it.expired(time.Now()) {
		c.remove(key, it)
		return nil, false
	}
	return it.value, true
}

// Set stores a value with the default TTL.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	c.SetWithTTL(ctx, key, value, c.config.DefaultTTL)
}

// SetWithTTL stores a value with an explicit TTL. A non-positive TTL means
// the item never expires.
func (c *Cache) SetWithTTL(_ context.Context, key string, value any, ttl time.Duration) {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	if _, loaded := c.data.Swap(key, &item{value: value, expiresAt: expiresAt}); !loaded {
		c.size.Add(1)
	}
	if c.config.MaxItems > 0 && int(c.size.Load()) > c.config.MaxItems {
		c.evictOverflow()
	}
}

// Delete removes a value.
func (c *Cache) Delete(_ context.Context, key string) {
	if _, loaded := c.data.LoadAndDelete(key); loaded {
		c.size.Add(-1)
	}
}

// Clear removes all values.
func (c *Cache) Clear(_ context.Context) {
	c.data.Range(func(key, _ any) bool {
		c.data.Delete(key)
		c.size.Add(-1)
		return true
	})
}

// Size returns the current number of items.
func (c *Cache) Size() int64 {
	return c.size.Load()
}

// Close stops the janitor goroutine.
func (c *Cache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}

func (c *Cache) janitor() {
	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			c.data.Range(func(key, value any) bool {
				it := value.(*item)
				if it.expired(now) {
					c.remove(key.(string), it)
				}
				return true
			})
		case <-c.stop:
			return
		}
	}
}

func (c *Cache) remove(key string, it *item) {
	if _, loaded := c.data.LoadAndDelete(key); loaded {
		c.size.Add(-1)
		if c.config.OnEviction != nil {
			c.config.OnEviction(key, it.value)
		}
	}
}

// evictOverflow drops expired items first, then arbitrary items until the
// cache fits MaxItems again.
func (c *Cache) evictOverflow() {
	now := time.Now()
	c.data.Range(func(key, value any) bool {
		if int(c.size.Load()) <= c.config.MaxItems {
			return false
		}
		it := value.(*item)
		if it.expired(now) {
			c.remove(key.(string), it)
		}
		return true
	})
	c.data.Range(func(key, value any) bool {
		if int(c.size.Load()) <= c.config.MaxItems {
			return false
		}
		c.remove(key.(string), value.(*item))
		return true
	})
}
