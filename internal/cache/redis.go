// Package cache provides a Redis-backed cache for project snapshots and
// rendered previews. It falls back to an in-memory map when Redis is not
// configured or a Redis call fails.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ai-app-builder/internal/metrics"
)

// ErrCacheMiss is returned when a key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// RedisClient is the subset of Redis the cache needs. GoRedisAdapter is the
// production implementation.
type RedisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, pattern string) ([]string, error)
	Close() error
}

// RedisCache reads through Redis first and keeps a bounded in-memory copy
// for when Redis is unavailable.
type RedisCache struct {
	name string

	memCache map[string]*cacheEntry
	memMu    sync.RWMutex

	redisClient RedisClient

	defaultTTL time.Duration
	maxMemSize int

	hits   atomic.Int64
	misses atomic.Int64

	stop     chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

type cacheEntry struct {
	Value     []byte
	ExpiresAt time.Time
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	// Name labels the cache in metrics.
	Name string

	// Redis connection URL (redis://host:port/db). Empty means memory only.
	RedisURL string

	DefaultTTL     time.Duration
	MaxMemoryItems int

	// CleanupInterval is how often expired memory entries are purged.
	CleanupInterval time.Duration
}

// DefaultCacheConfig returns the default cache configuration
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Name:            "projects",
		DefaultTTL:      time.Hour,
		MaxMemoryItems:  5000,
		CleanupInterval: time.Minute,
	}
}

// NewRedisCache creates a memory-only cache.
func NewRedisCache(config *CacheConfig) *RedisCache {
	return NewRedisCacheWithClient(nil, config)
}

// NewRedisCacheWithClient creates a cache backed by client. A nil client
// gives a memory-only cache.
func NewRedisCacheWithClient(client RedisClient, config *CacheConfig) *RedisCache {
	defaults := DefaultCacheConfig()
	if config == nil {
		config = defaults
	}
	c := &RedisCache{
		name:        config.Name,
		memCache:    make(map[string]*cacheEntry),
		redisClient: client,
		defaultTTL:  config.DefaultTTL,
		maxMemSize:  config.MaxMemoryItems,
		stop:        make(chan struct{}),
		now:         time.Now,
	}
	if c.name == "" {
		c.name = defaults.Name
	}
	if c.defaultTTL <= 0 {
		c.defaultTTL = defaults.DefaultTTL
	}
	if c.maxMemSize <= 0 {
		c.maxMemSize = defaults.MaxMemoryItems
	}
	interval := config.CleanupInterval
	if interval <= 0 {
		interval = defaults.CleanupInterval
	}

	go c.cleanupLoop(interval)
	return c
}

// UsesRedis reports whether a Redis client is attached.
func (c *RedisCache) UsesRedis() bool { return c.redisClient != nil }

// Get retrieves a value from cache
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	if c.redisClient != nil {
		val, err := c.redisClient.Get(ctx, key)
		if err == nil {
			c.recordHit()
			return []byte(val), nil
		}
	}

	if v, ok := c.memGet(key); ok {
		c.recordHit()
		return v, nil
	}
	c.recordMiss()
	return nil, ErrCacheMiss
}

// memGet reads the memory tier, dropping the entry when it has expired.
func (c *RedisCache) memGet(key string) ([]byte, bool) {
	c.memMu.RLock()
	entry, ok := c.memCache[key]
	c.memMu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.ExpiresAt) {
		c.memMu.Lock()
		if cur, still := c.memCache[key]; still && cur == entry {
			delete(c.memCache, key)
		}
		c.memMu.Unlock()
		return nil, false
	}
	return entry.Value, true
}

// Set stores a value with ttl. Zero ttl uses the default. The memory copy
// is always written so reads survive a Redis outage.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	var redisErr error
	if c.redisClient != nil {
		redisErr = c.redisClient.Set(ctx, key, string(value), ttl)
	}

	c.memMu.Lock()
	if _, exists := c.memCache[key]; !exists && len(c.memCache) >= c.maxMemSize {
		c.evictOldest()
	}
	c.memCache[key] = &cacheEntry{
		Value:     value,
		ExpiresAt: c.now().Add(ttl),
	}
	c.memMu.Unlock()

	if redisErr != nil {
		return fmt.Errorf("failed to write %s to redis: %w", key, redisErr)
	}
	return nil
}

// Delete removes a key from cache
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	var err error
	if c.redisClient != nil {
		err = c.redisClient.Del(ctx, key)
	}

	c.memMu.Lock()
	delete(c.memCache, key)
	c.memMu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to delete %s from redis: %w", key, err)
	}
	return nil
}

// DeletePattern removes all keys matching a trailing-* pattern.
func (c *RedisCache) DeletePattern(ctx context.Context, pattern string) error {
	if c.redisClient != nil {
		keys, err := c.redisClient.Keys(ctx, pattern)
		if err == nil && len(keys) > 0 {
			_ = c.redisClient.Del(ctx, keys...)
		}
	}

	c.memMu.Lock()
	defer c.memMu.Unlock()
	for key := range c.memCache {
		if matchPattern(pattern, key) {
			delete(c.memCache, key)
		}
	}
	return nil
}

// GetJSON retrieves and unmarshals a JSON value
func (c *RedisCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to decode cached %s: %w", key, err)
	}
	return nil
}

// SetJSON marshals and stores a JSON value
func (c *RedisCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return c.Set(ctx, key, data, ttl)
}

// GetOrSet retrieves from cache or calls the loader function. Loader
// results are cached on a best-effort basis.
func (c *RedisCache) GetOrSet(ctx context.Context, key string, ttl time.Duration, loader func() ([]byte, error)) ([]byte, error) {
	if data, err := c.Get(ctx, key); err == nil {
		return data, nil
	}

	data, err := loader()
	if err != nil {
		return nil, err
	}
	_ = c.Set(ctx, key, data, ttl)
	return data, nil
}

// Stats snapshots the hit counters and the memory tier size.
func (c *RedisCache) Stats() CacheStats {
	c.memMu.RLock()
	st := CacheStats{
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		MemorySize: len(c.memCache),
		Redis:      c.redisClient != nil,
	}
	c.memMu.RUnlock()
	if total := st.Hits + st.Misses; total > 0 {
		st.HitRatio = float64(st.Hits) / float64(total)
	}
	return st
}

// CacheStats holds cache statistics
type CacheStats struct {
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRatio   float64 `json:"hit_ratio"`
	MemorySize int     `json:"memory_size"`
	Redis      bool    `json:"redis"`
}

// Close stops the cleanup loop and closes the Redis client.
func (c *RedisCache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	if c.redisClient != nil {
		return c.redisClient.Close()
	}
	return nil
}

func (c *RedisCache) recordHit() {
	c.hits.Add(1)
	metrics.Get().RecordCacheOperation(c.name, true)
}

func (c *RedisCache) recordMiss() {
	c.misses.Add(1)
	metrics.Get().RecordCacheOperation(c.name, false)
}

// evictOldest drops a tenth of the entries, expired ones and then those
// closest to expiry. Callers hold memMu.
func (c *RedisCache) evictOldest() {
	toEvict := c.maxMemSize / 10
	if toEvict < 1 {
		toEvict = 1
	}

	now := c.now()
	evicted := 0
	for key, entry := range c.memCache {
		if evicted >= toEvict {
			return
		}
		if now.After(entry.ExpiresAt) {
			delete(c.memCache, key)
			evicted++
		}
	}

	for evicted < toEvict && len(c.memCache) > 0 {
		var oldestKey string
		var oldest time.Time
		for key, entry := range c.memCache {
			if oldestKey == "" || entry.ExpiresAt.Before(oldest) {
				oldestKey, oldest = key, entry.ExpiresAt
			}
		}
		delete(c.memCache, oldestKey)
		evicted++
	}
}

func (c *RedisCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *RedisCache) cleanup() {
	c.memMu.Lock()
	defer c.memMu.Unlock()

	now := c.now()
	for key, entry := range c.memCache {
		if now.After(entry.ExpiresAt) {
			delete(c.memCache, key)
		}
	}
}

// matchPattern supports exact keys and a single trailing *.
func matchPattern(pattern, key string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(key, prefix)
	}
	return pattern == key
}

// ProjectKey is the cache key of a project snapshot.
func ProjectKey(projectID string) string {
	return "project:" + projectID
}

// PreviewKey is the cache key of a rendered preview.
func PreviewKey(projectID string) string {
	return "preview:" + projectID
}

// ProjectListKey holds the persisted project listing.
const ProjectListKey = "projects:list"
