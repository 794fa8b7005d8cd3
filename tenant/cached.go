package tenant

import (
	"errors"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// DefaultLabelTTL is how long Cached keeps a resolved label.
const DefaultLabelTTL = 5 * time.Minute

type labelCacheValue struct {
	label string
	error
}

// Cached wraps a Directory and memoizes Label lookups. Current is always
// answered by the wrapped directory.
type Cached struct {
	next  Directory
	cache *ttlcache.Cache[string, labelCacheValue]
}

// NewCached starts the expiry loop; call Stop when done.
func NewCached(next Directory, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = DefaultLabelTTL
	}
	c := &Cached{
		next:  next,
		cache: ttlcache.New(ttlcache.WithTTL[string, labelCacheValue](ttl)),
	}
	go c.cache.Start()
	return c
}

// Stop halts the expiry loop.
func (c *Cached) Stop() { c.cache.Stop() }

// Invalidate drops the cached label for id.
func (c *Cached) Invalidate(id string) { c.cache.Delete(id) }

func (c *Cached) Current() string {
	if c.next == nil {
		return ""
	}
	return c.next.Current()
}

func (c *Cached) Label(id string) (string, error) {
	if c.next == nil {
		return "", ErrUnknown
	}
	loader := ttlcache.LoaderFunc[string, labelCacheValue](
		func(cache *ttlcache.Cache[string, labelCacheValue], key string) *ttlcache.Item[string, labelCacheValue] {
			label, err := c.next.Label(key)
			return cache.Set(key, labelCacheValue{label: label, error: err}, ttlcache.DefaultTTL)
		},
	)
	item := c.cache.Get(id, ttlcache.WithLoader(loader))
	if item == nil {
		return "", errors.New("tenant: failed to get label from cache")
	}
	return item.Value().label, item.Value().error
}
