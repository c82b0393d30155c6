package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache stores JSON-encoded values with a TTL.
type Cache interface {
	// Get decodes the cached value into dest and reports whether it was found.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

const leaderboardCacheKey = "leaderboard:top"

// dropLeaderboard evicts the cached ranking after a user joins or leaves it.
func dropLeaderboard(ctx context.Context, cache Cache, log *zap.Logger) {
	if cache == nil {
		return
	}
	if err := cache.Delete(ctx, leaderboardCacheKey); err != nil {
		log.Warn("leaderboard cache invalidation failed", zap.Error(err))
	}
}

type RedisCache struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisCache(ctx context.Context, redisURL string, log *zap.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("redis cache connected", zap.String("addr", opts.Addr))
	return &RedisCache{client: client, log: log}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// MemoryCache is the single-process fallback used when no Redis URL is set.
// Expired entries are dropped lazily on read.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memoryCacheItem
	now   func() time.Time
}

type memoryCacheItem struct {
	raw       []byte
	expiresAt time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]memoryCacheItem), now: time.Now}
}

func (c *MemoryCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	item, ok := c.items[key]
	if ok && c.now().After(item.expiresAt) {
		delete(c.items, key)
		ok = false
	}
	c.mu.Unlock()

	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(item.raw, dest)
}

func (c *MemoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = memoryCacheItem{raw: raw, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
	}
	return nil
}

func (c *MemoryCache) Close() error { return nil }
