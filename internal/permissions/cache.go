package permissions

import (
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultCacheTTL bounds how long a resolved set may be served after it was loaded.
const DefaultCacheTTL = 5 * time.Minute

// Cache holds resolved permission sets per user. Implementations never fail; a fault
// behaves as a miss.
type Cache interface {
	Get(userID uint) (*ResolvedSet, bool)
	Set(userID uint, set *ResolvedSet)
	Invalidate(userID uint)
	InvalidateAll()
	DeleteExpired()
}

type cachedSet struct {
	set       *ResolvedSet
	fetchedAt time.Time
}

// MemoryCache is an in-process Cache backed by go-cache.
type MemoryCache struct {
	ttl   time.Duration
	now   func() time.Time
	items *gocache.Cache
}

// CacheOption customises a MemoryCache.
type CacheOption func(*MemoryCache)

// WithClock overrides the clock used to age entries.
func WithClock(now func() time.Time) CacheOption {
	return func(c *MemoryCache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewMemoryCache builds a cache whose entries expire ttl after they were stored. A
// non-positive ttl selects DefaultCacheTTL. Expired entries are removed lazily and by
// DeleteExpired; no janitor goroutine is started.
func NewMemoryCache(ttl time.Duration, opts ...CacheOption) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c := &MemoryCache{ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	c.items = gocache.New(ttl, 0)
	return c
}

// TTL returns the configured time to live.
func (c *MemoryCache) TTL() time.Duration {
	return c.ttl
}

func (c *MemoryCache) Get(userID uint) (*ResolvedSet, bool) {
	key := cacheKey(userID)
	raw, ok := c.items.Get(key)
	if !ok {
		return nil, false
	}
	entry, ok := raw.(cachedSet)
	if !ok {
		c.items.Delete(key)
		return nil, false
	}
	if c.expired(entry) {
		c.items.Delete(key)
		return nil, false
	}
	return entry.set, true
}

func (c *MemoryCache) Set(userID uint, set *ResolvedSet) {
	if set == nil {
		return
	}
	c.items.Set(cacheKey(userID), cachedSet{set: set, fetchedAt: c.now()}, c.ttl)
}

func (c *MemoryCache) Invalidate(userID uint) {
	c.items.Delete(cacheKey(userID))
}

func (c *MemoryCache) InvalidateAll() {
	c.items.Flush()
}

// DeleteExpired drops every entry older than the TTL.
func (c *MemoryCache) DeleteExpired() {
	c.items.DeleteExpired()
	for key, item := range c.items.Items() {
		entry, ok := item.Object.(cachedSet)
		if !ok || c.expired(entry) {
			c.items.Delete(key)
		}
	}
}

// Len returns the number of stored entries, including ones not yet swept.
func (c *MemoryCache) Len() int {
	return c.items.ItemCount()
}

func (c *MemoryCache) expired(entry cachedSet) bool {
	return c.now().Sub(entry.fetchedAt) >= c.ttl
}

func cacheKey(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}

// NopCache disables caching; every lookup is a miss.
type NopCache struct{}

func (NopCache) Get(uint) (*ResolvedSet, bool) { return nil, false }
func (NopCache) Set(uint, *ResolvedSet)        {}
func (NopCache) Invalidate(uint)               {}
func (NopCache) InvalidateAll()                {}
func (NopCache) DeleteExpired()                {}
