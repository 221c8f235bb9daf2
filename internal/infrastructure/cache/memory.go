package cache

import (
	"context"
	"sync"
	"time"

	"github.com/cadvision/backend/internal/domain"
)

// cacheItem represents a single stored result with optional expiration
type cacheItem struct {
	Result     *domain.IdentificationResult
	Expiration time.Time // zero means no expiry
}

// MemoryCache is a thread-safe in-memory fingerprint cache. It guarantees
// at most one stored result per fingerprint; concurrent stores for the
// same fingerprint resolve as last write wins, never by blocking a request
// on another.
type MemoryCache struct {
	data  map[string]cacheItem
	ttl   time.Duration
	mutex sync.RWMutex
}

// NewMemoryCache creates a new in-memory cache. ttl of zero disables
// expiration.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	cache := &MemoryCache{
		data: make(map[string]cacheItem),
		ttl:  ttl,
	}

	if ttl > 0 {
		// Cleanup goroutine removes expired entries periodically
		go cache.cleanupExpired()
	}

	return cache
}

// Lookup retrieves the result stored for a fingerprint. The stored copy is
// cloned so callers can tag it (duplicate flag) without mutating the cache.
func (c *MemoryCache) Lookup(ctx context.Context, fingerprint string) (*domain.IdentificationResult, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.data[fingerprint]
	if !exists {
		return nil, domain.ErrCacheMiss
	}
	if !item.Expiration.IsZero() && time.Now().After(item.Expiration) {
		return nil, domain.ErrCacheMiss
	}

	return item.Result.Clone(), nil
}

// Store writes a fully assembled result under its fingerprint,
// overwriting any previous entry.
func (c *MemoryCache) Store(ctx context.Context, fingerprint string, result *domain.IdentificationResult) error {
	if result == nil {
		return domain.ErrInvalidRequest
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	item := cacheItem{Result: result.Clone()}
	if c.ttl > 0 {
		item.Expiration = time.Now().Add(c.ttl)
	}
	c.data[fingerprint] = item
	return nil
}

// Delete removes a fingerprint from the cache
func (c *MemoryCache) Delete(ctx context.Context, fingerprint string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, fingerprint)
	return nil
}

// cleanupExpired removes expired entries from the cache periodically
func (c *MemoryCache) cleanupExpired() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mutex.Lock()
		now := time.Now()
		for key, item := range c.data {
			if !item.Expiration.IsZero() && now.After(item.Expiration) {
				delete(c.data, key)
			}
		}
		c.mutex.Unlock()
	}
}

// Size returns the current number of items in the cache (for debugging/monitoring)
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// Clear removes all items from the cache
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data = make(map[string]cacheItem)
}
