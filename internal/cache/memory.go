package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/Fr3nn3r/deckung/internal/llm"
)

// MemoryCache holds classifier verdicts in process memory. Entries are
// stored as values, not serialized bytes; Get hands back a copy so a caller
// annotating its verdict cannot poison later hits.
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache creates a verdict cache with the given default TTL
func NewMemoryCache(defaultTTL time.Duration, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves a verdict from the cache
func (c *MemoryCache) Get(key string) (*llm.ItemVerdict, bool) {
	val, found := c.cache.Get(key)
	if !found {
		return nil, false
	}
	verdict, ok := val.(llm.ItemVerdict)
	if !ok {
		return nil, false
	}
	return &verdict, true
}

// Set stores a verdict in the cache with the given TTL
func (c *MemoryCache) Set(key string, verdict *llm.ItemVerdict, ttl time.Duration) error {
	if verdict == nil {
		return nil
	}
	c.cache.Set(key, *verdict, ttl)
	return nil
}

// Delete removes a verdict from the cache
func (c *MemoryCache) Delete(key string) error {
	c.cache.Delete(key)
	return nil
}

// Clear removes all verdicts from the cache
func (c *MemoryCache) Clear() error {
	c.cache.Flush()
	return nil
}
