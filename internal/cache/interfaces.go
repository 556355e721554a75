package cache

import (
	"context"
	"time"
)

// Default TTLs for the read paths that go through the cache.
const (
	ListTTL   = 300 * time.Second
	ItemTTL   = 600 * time.Second
	SearchTTL = 120 * time.Second
	StatsTTL  = 60 * time.Second
)

// Tags used for group invalidation.
const (
	TagProducts  = "products"
	TagInquiries = "inquiries"
	TagLocations = "locations"
)

// Cache defines the interface for caching operations.
// This abstraction allows swapping between memory cache (development)
// and Redis cache (production) without changing business logic.
//
// Entries carry an optional set of tags; invalidating a tag removes every
// entry tagged with it, so writers do not need to enumerate keys.
type Cache interface {
	// Get retrieves a value by key. Returns ErrCacheMiss if not found
	// or past its TTL (lazy expiry).
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL and group tags.
	// A zero TTL stores the value already expired.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error

	// Delete removes a value by key.
	Delete(ctx context.Context, key string) error

	// Invalidate removes every entry carrying any of the given tags.
	Invalidate(ctx context.Context, tags ...string) error

	// GetOrSet retrieves a value or computes and stores it if missing.
	GetOrSet(ctx context.Context, key string, ttl time.Duration, tags []string, fn func() ([]byte, error)) ([]byte, error)

	// Clear removes all entries from the cache.
	Clear(ctx context.Context) error
}

// Common cache errors
type CacheError string

func (e CacheError) Error() string { return string(e) }

const (
	// ErrCacheMiss indicates the key was not found in cache.
	ErrCacheMiss CacheError = "cache miss"
)
