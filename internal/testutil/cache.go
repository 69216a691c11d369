package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"
)

var ErrCacheMiss = errors.New("cache miss")

// MemCache is an in-memory utils.Cache. Expirations are ignored.
type MemCache struct {
	mu     sync.Mutex
	values map[string][]byte
	Hits   int
}

func NewMemCache() *MemCache {
	return &MemCache{values: make(map[string][]byte)}
}

func (c *MemCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.values[key]
	if !ok {
		return ErrCacheMiss
	}
	c.Hits++
	return json.Unmarshal(data, dest)
}

func (c *MemCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = data
	return nil
}

func (c *MemCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	return nil
}

// Incr treats a missing key as zero, like Redis INCR.
func (c *MemCache) Incr(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	if data, ok := c.values[key]; ok {
		if err := json.Unmarshal(data, &n); err != nil {
			return 0, err
		}
	}
	n++
	data, err := json.Marshal(n)
	if err != nil {
		return 0, err
	}
	c.values[key] = data
	return n, nil
}

// DeleteByPattern supports exact keys and a trailing '*' wildcard.
func (c *MemCache) DeleteByPattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix, wildcard := strings.CutSuffix(pattern, "*")
	for k := range c.values {
		if k == pattern || (wildcard && strings.HasPrefix(k, prefix)) {
			delete(c.values, k)
		}
	}
	return nil
}

// Len reports the number of cached keys.
func (c *MemCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.values)
}

// MemRevocations is an in-memory repo.RevocationStore. A non-nil Err is
// returned from every IsRevoked call.
type MemRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	Err     error
}

func NewMemRevocations() *MemRevocations {
	return &MemRevocations{revoked: make(map[string]time.Time)}
}

func (m *MemRevocations) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = time.Now().Add(ttl)
	return nil
}

func (m *MemRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	until, ok := m.revoked[jti]
	return ok && time.Now().Before(until), nil
}
