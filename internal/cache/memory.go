package cache

import (
	"context"
	"sync"
	"time"
)

// cacheEntry represents a cached value with expiration and tags.
type cacheEntry struct {
	value     []byte
	expiresAt time.Time
	tags      []string
}

// isExpired checks if the entry has expired.
func (e *cacheEntry) isExpired() bool {
	return !time.Now().Before(e.expiresAt)
}

// MemoryCache is an in-memory implementation of Cache.
// Use this for development/testing or single-instance deployments.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	// byTag indexes entry keys by tag for group invalidation.
	byTag map[string]map[string]struct{}

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

// NewMemoryCache creates a new in-memory cache with automatic cleanup.
func NewMemoryCache() *MemoryCache {
	c := &MemoryCache{
		entries:         make(map[string]*cacheEntry),
		byTag:           make(map[string]map[string]struct{}),
		cleanupInterval: time.Minute,
		stopCleanup:     make(chan struct{}),
	}

	go c.cleanup()

	return c
}

// Get retrieves a value by key. Expired entries behave as misses even if
// still physically present.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists || entry.isExpired() {
		return nil, ErrCacheMiss
	}

	result := make([]byte, len(entry.value))
	copy(result, entry.value)
	return result, nil
}

// Set stores a value with the given TTL and tags.
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	c.removeLocked(key)

	c.entries[key] = &cacheEntry{
		value:     valueCopy,
		expiresAt: time.Now().Add(ttl),
		tags:      tags,
	}

	for _, tag := range tags {
		keys, ok := c.byTag[tag]
		if !ok {
			keys = make(map[string]struct{})
			c.byTag[tag] = keys
		}
		keys[key] = struct{}{}
	}

	return nil
}

// Delete removes a value by key.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeLocked(key)
	return nil
}

// Invalidate removes every entry carrying any of the given tags.
func (c *MemoryCache) Invalidate(ctx context.Context, tags ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, tag := range tags {
		for key := range c.byTag[tag] {
			c.removeLocked(key)
		}
		delete(c.byTag, tag)
	}

	return nil
}

// GetOrSet retrieves a value or computes and stores it if missing.
func (c *MemoryCache) GetOrSet(ctx context.Context, key string, ttl time.Duration, tags []string, fn func() ([]byte, error)) ([]byte, error) {
	if value, err := c.Get(ctx, key); err == nil {
		return value, nil
	}

	value, err := fn()
	if err != nil {
		return nil, err
	}

	if err := c.Set(ctx, key, value, ttl, tags...); err != nil {
		return nil, err
	}

	return value, nil
}

// Clear removes all entries from the cache.
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.byTag = make(map[string]map[string]struct{})
	return nil
}

// Close stops the background cleanup goroutine.
func (c *MemoryCache) Close() error {
	c.stopOnce.Do(func() {
		close(c.stopCleanup)
	})
	return nil
}

// removeLocked deletes an entry and its tag index references.
// Caller must hold the write lock.
func (c *MemoryCache) removeLocked(key string) {
	entry, ok := c.entries[key]
	if !ok {
		return
	}
	for _, tag := range entry.tags {
		if keys, ok := c.byTag[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(c.byTag, tag)
			}
		}
	}
	delete(c.entries, key)
}

// cleanup periodically removes expired entries.
func (c *MemoryCache) cleanup() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stopCleanup:
			return
		}
	}
}

// removeExpired removes all expired entries.
func (c *MemoryCache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.entries {
		if entry.isExpired() {
			c.removeLocked(key)
		}
	}
}

var _ Cache = (*MemoryCache)(nil)
