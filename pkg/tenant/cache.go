package tenant

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/storekit/pkg/cache"
)

// Cache holds resolved tenants between requests.
type Cache interface {
	Get(id uuid.UUID) (*Tenant, bool)
	Set(t *Tenant, ttl time.Duration)
	Delete(id uuid.UUID)
}

// DefaultCacheSize bounds NewMemoryCache when size is not positive.
const DefaultCacheSize = 1000

type cacheEntry struct {
	tenant    *Tenant
	expiresAt time.Time
}

// MemoryCache is a size-bounded LRU with per-entry expiry.
// Expired entries are dropped on access; there is no background sweeper.
type MemoryCache struct {
	lru *cache.LRUCache[uuid.UUID, cacheEntry]
	now func() time.Time
}

// NewMemoryCache returns a cache holding at most size tenants.
func NewMemoryCache(size int) *MemoryCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &MemoryCache{
		lru: cache.NewLRUCache[uuid.UUID, cacheEntry](size),
		now: time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (c *MemoryCache) WithClock(now func() time.Time) *MemoryCache {
	c.now = now
	return c
}

func (c *MemoryCache) Get(id uuid.UUID) (*Tenant, bool) {
	entry, ok := c.lru.Get(id)
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.expiresAt) {
		c.lru.Remove(id)
		return nil, false
	}
	return entry.tenant, true
}

func (c *MemoryCache) Set(t *Tenant, ttl time.Duration) {
	if t == nil || ttl <= 0 {
		return
	}
	c.lru.Put(t.ID, cacheEntry{tenant: t, expiresAt: c.now().Add(ttl)})
}

func (c *MemoryCache) Delete(id uuid.UUID) {
	c.lru.Remove(id)
}

// Len returns the number of cached entries, expired ones included.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}
