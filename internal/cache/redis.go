package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a Redis-backed implementation of Cache.
// Values live under keyPrefix with native Redis expiry; tag membership is
// tracked in one set per tag so invalidation never has to enumerate keys.
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisCache creates a Redis cache on an existing client.
func NewRedisCache(client *redis.Client, keyPrefix string) *RedisCache {
	if keyPrefix == "" {
		keyPrefix = "farmgate:cache"
	}
	return &RedisCache{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (c *RedisCache) valueKey(key string) string {
	return c.keyPrefix + ":v:" + key
}

func (c *RedisCache) tagKey(tag string) string {
	return c.keyPrefix + ":t:" + tag
}

// Get retrieves a value by key. Redis expiry makes expired keys absent,
// so a TTL'd-out entry is indistinguishable from a miss.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, c.valueKey(key)).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Set stores a value with the given TTL and tags. A non-positive TTL means
// the entry is already expired, so nothing is stored; tag membership is
// still recorded to keep Invalidate semantics uniform.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error {
	pipe := c.client.Pipeline()

	if ttl > 0 {
		pipe.Set(ctx, c.valueKey(key), value, ttl)
	} else {
		pipe.Del(ctx, c.valueKey(key))
	}

	for _, tag := range tags {
		pipe.SAdd(ctx, c.tagKey(tag), key)
	}

	_, err := pipe.Exec(ctx)
	return err
}

// Delete removes a value by key. Tag set membership is left behind;
// invalidating a tag with already-deleted members is harmless.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.valueKey(key)).Err()
}

// Invalidate removes every entry carrying any of the given tags.
func (c *RedisCache) Invalidate(ctx context.Context, tags ...string) error {
	for _, tag := range tags {
		keys, err := c.client.SMembers(ctx, c.tagKey(tag)).Result()
		if err != nil {
			return err
		}

		pipe := c.client.Pipeline()
		for _, key := range keys {
			pipe.Del(ctx, c.valueKey(key))
		}
		pipe.Del(ctx, c.tagKey(tag))
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// GetOrSet retrieves a value or computes and stores it if missing.
func (c *RedisCache) GetOrSet(ctx context.Context, key string, ttl time.Duration, tags []string, fn func() ([]byte, error)) ([]byte, error) {
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

// Clear removes all entries under the cache prefix.
func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.keyPrefix+":*", 200).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 200 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return c.client.Del(ctx, keys...).Err()
	}
	return nil
}

var _ Cache = (*RedisCache)(nil)
