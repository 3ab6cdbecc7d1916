package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheNamespace prefixes every catalog cache key.
const DefaultCacheNamespace = "gymledger:cache"

// Cache stores opaque catalog snapshots under a namespace. Keys passed in are
// already tenant scoped by the caller.
type Cache struct {
	client    *redis.Client
	namespace string
}

// NewCache returns a cache writing under namespace, DefaultCacheNamespace when empty.
func NewCache(client *redis.Client, namespace string) *Cache {
	if namespace == "" {
		namespace = DefaultCacheNamespace
	}
	return &Cache{client: client, namespace: namespace}
}

func (c *Cache) key(k string) string {
	return c.namespace + ":" + k
}

// Get returns nil, nil on a miss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return val, err
}

// Set writes value. A non-positive ttl stores nothing so entries never outlive an edit.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, c.key(key), value, ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.key(key)).Err()
}
