package rules

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// ProgramCache stores compiled programs keyed by expression.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// DefaultProgramTTL bounds how long an unused program stays cached.
const DefaultProgramTTL = 10 * time.Minute

// TTLCache is a ProgramCache that expires idle programs and caps the number
// kept in memory.
type TTLCache struct {
	cache *ttlcache.Cache[string, any]
}

// NewTTLCache starts the expiry loop; call Stop when done. A zero capacity
// means unbounded.
func NewTTLCache(ttl time.Duration, capacity uint64) *TTLCache {
	if ttl <= 0 {
		ttl = DefaultProgramTTL
	}
	opts := []ttlcache.Option[string, any]{ttlcache.WithTTL[string, any](ttl)}
	if capacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[string, any](capacity))
	}
	c := &TTLCache{cache: ttlcache.New(opts...)}
	go c.cache.Start()
	return c
}

func (c *TTLCache) Get(key string) (any, bool) {
	item := c.cache.Get(key)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

func (c *TTLCache) Set(key string, value any) {
	c.cache.Set(key, value, ttlcache.DefaultTTL)
}

// Len reports the number of cached programs.
func (c *TTLCache) Len() int { return c.cache.Len() }

// Stop halts the expiry loop.
func (c *TTLCache) Stop() { c.cache.Stop() }
