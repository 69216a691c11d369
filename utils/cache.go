package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"Go_Shelf/internal/logger"
	"Go_Shelf/internal/repo"

	"github.com/redis/go-redis/v9"
)

type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPattern(ctx context.Context, pattern string) error
	Incr(ctx context.Context, key string) (int64, error)
}

type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a Redis cache client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get reads a cached JSON value into dest.
func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(val), dest)
}

// Set writes value as JSON.
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, string(data), expiration).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *RedisCache) Incr(ctx context.Context, key string) (int64, error) {
	return c.client.Incr(ctx, key).Result()
}

// DeleteByPattern deletes cache entries by pattern.
func (c *RedisCache) DeleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return nil
}

const (
	CacheKeyList       = "catalog:list"
	CacheKeyGeneration = "catalog:gen"
	CollectionResource = "resources"
	CollectionVideo    = "videos"
)

// listCache resolves the cache backend; nil when Redis is not configured.
// Tests may replace it.
var listCache = func() Cache {
	if repo.Redis == nil {
		return nil
	}
	return NewRedisCache(repo.Redis)
}

// SetListCache overrides the list cache backend and returns a restore func.
func SetListCache(c Cache) func() {
	prev := listCache
	listCache = func() Cache { return c }
	return func() { listCache = prev }
}

// BuildCacheKey builds a cache key.
func BuildCacheKey(prefix string, params ...interface{}) string {
	key := prefix
	for _, param := range params {
		key += fmt.Sprintf(":%v", param)
	}
	return key
}

// ListCacheKey is catalog:list:{collection}:g{generation}:{filters}, filters
// sorted by name. It reads the collection generation, so it must be built
// before the query whose result is cached: a write that lands in between
// bumps the generation and the late Set goes to a key nobody reads.
func ListCacheKey(ctx context.Context, collection string, filters map[string]string) string {
	return listKey(collection, listGeneration(ctx, collection), filters)
}

func listKey(collection string, generation int64, filters map[string]string) string {
	names := make([]string, 0, len(filters))
	for k, v := range filters {
		if v != "" {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, k := range names {
		parts = append(parts, k+"="+filters[k])
	}
	gen := fmt.Sprintf("g%d", generation)
	if len(parts) == 0 {
		return BuildCacheKey(CacheKeyList, collection, gen, "all")
	}
	return BuildCacheKey(CacheKeyList, collection, gen, strings.Join(parts, "&"))
}

func generationKey(collection string) string {
	return BuildCacheKey(CacheKeyGeneration, collection)
}

func listGeneration(ctx context.Context, collection string) int64 {
	c := listCache()
	if c == nil {
		return 0
	}
	var gen int64
	if err := c.Get(ctx, generationKey(collection), &gen); err != nil {
		return 0
	}
	return gen
}

// GetListFromCache reads a cached list; false on miss or when caching is off.
func GetListFromCache(ctx context.Context, key string, dest interface{}) bool {
	c := listCache()
	if c == nil {
		return false
	}
	return c.Get(ctx, key, dest) == nil
}

// SetListToCache stores a list. Failures only cost a future cache miss.
func SetListToCache(ctx context.Context, key string, value interface{}, expiration time.Duration) {
	c := listCache()
	if c == nil || expiration <= 0 {
		return
	}
	if err := c.Set(ctx, key, value, expiration); err != nil {
		logger.L.Warn("list cache write failed", "key", key, "error", err)
	}
}

// InvalidateListCache retires every cached list of a collection by bumping its
// generation, then drops the old entries.
func InvalidateListCache(ctx context.Context, collection string) {
	c := listCache()
	if c == nil {
		return
	}
	if _, err := c.Incr(ctx, generationKey(collection)); err != nil {
		logger.L.Warn("list cache generation bump failed", "collection", collection, "error", err)
	}
	pattern := BuildCacheKey(CacheKeyList, collection) + ":*"
	if err := c.DeleteByPattern(ctx, pattern); err != nil {
		logger.L.Warn("list cache invalidation failed", "pattern", pattern, "error", err)
	}
}
