package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	pingTimeout = 5 * time.Second
	scanBatch   = 200
)

// GoRedisAdapter implements RedisClient on a go-redis v9 client.
type GoRedisAdapter struct {
	rdb *redis.Client
}

// NewGoRedisClient parses redisURL (redis:// or rediss://), connects and
// pings the server.
func NewGoRedisClient(redisURL string) (*GoRedisAdapter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", opts.Addr, err)
	}
	return &GoRedisAdapter{rdb: rdb}, nil
}

// Get maps redis.Nil to ErrCacheMiss.
func (a *GoRedisAdapter) Get(ctx context.Context, key string) (string, error) {
	val, err := a.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	return val, err
}

func (a *GoRedisAdapter) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return a.rdb.Set(ctx, key, value, ttl).Err()
}

func (a *GoRedisAdapter) Del(ctx context.Context, keys ...string) error {
	return a.rdb.Del(ctx, keys...).Err()
}

// Keys walks the keyspace with SCAN so large databases are not blocked.
func (a *GoRedisAdapter) Keys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := a.rdb.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}

func (a *GoRedisAdapter) Close() error {
	return a.rdb.Close()
}

// NewRedisCacheFromURL returns a Redis-backed cache, or a memory-only one
// for an empty URL. Connection failures are returned so the caller can
// fall back.
func NewRedisCacheFromURL(redisURL string, config *CacheConfig) (*RedisCache, error) {
	if redisURL == "" {
		return NewRedisCache(config), nil
	}
	adapter, err := NewGoRedisClient(redisURL)
	if err != nil {
		return nil, err
	}
	return NewRedisCacheWithClient(adapter, config), nil
}
