package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultCacheTTL  = 5 * time.Minute
	defaultCacheSize = 512
	cacheKeyPrefix   = "clientbill:analytics:"
)

// Cache stores encoded report results. A miss is reported as ok == false.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Name() string
}

// NewCache returns a Redis backed cache when client is set and an in-process LRU otherwise
func NewCache(client *redis.Client, size int, ttl time.Duration) Cache {
	if client != nil {
		return NewRedisCache(client, ttl)
	}
	return NewLRUCache(size, ttl)
}

// RedisCache shares report results between replicas
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a Redis report cache
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, cacheKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}
	return data, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte) error {
	if err := c.client.Set(ctx, cacheKeyPrefix+key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Name() string { return "redis" }

// LRUCache keeps report results in process
type LRUCache struct {
	cache *lru.LRU[string, []byte]
}

// NewLRUCache creates an expiring LRU cache
func NewLRUCache(size int, ttl time.Duration) *LRUCache {
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &LRUCache{cache: lru.NewLRU[string, []byte](size, nil, ttl)}
}

func (c *LRUCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, ok := c.cache.Get(key)
	return value, ok, nil
}

func (c *LRUCache) Set(_ context.Context, key string, value []byte) error {
	c.cache.Add(key, value)
	return nil
}

func (c *LRUCache) Name() string { return "lru" }
