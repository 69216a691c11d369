package repo

import (
	"Go_Shelf/config"
	"Go_Shelf/internal/logger"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var Redis *redis.Client

var ErrRedisDisabled = errors.New("redis not initialized")

type RedisLock struct {
	rdb   *redis.Client
	key   string
	token string
	ttl   time.Duration
}

// InitRedis connects to Redis. Redis is optional: on failure the cache
// and token revocation are disabled and the process keeps running.
func InitRedis() {
	if !config.AppConfig.RedisEnabled {
		logger.L.Info("redis disabled")
		return
	}
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", config.AppConfig.RedisHost, config.AppConfig.RedisPort),
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.L.Warn("init redis fail, cache disabled", "error", err)
		_ = client.Close()
		return
	}
	logger.L.Info("init redis success")
	Redis = client
	Revocations = redisRevocations{rdb: client}
}

// PingRedis reports Redis reachability for the health endpoint.
func PingRedis(ctx context.Context) error {
	if Redis == nil {
		return ErrRedisDisabled
	}
	return Redis.Ping(ctx).Err()
}

func revokedKey(jti string) string {
	return "admin:revoked:" + jti
}

// RevocationStore remembers revoked session token ids.
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Revocations is nil when Redis is unavailable.
var Revocations RevocationStore

type redisRevocations struct {
	rdb *redis.Client
}

func (r redisRevocations) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	return r.rdb.Set(ctx, revokedKey(jti), 1, ttl).Err()
}

func (r redisRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.rdb.Exists(ctx, revokedKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RevokeToken blacklists a token id until it would have expired anyway.
func RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if Revocations == nil {
		return ErrRedisDisabled
	}
	if ttl <= 0 {
		return nil
	}
	return Revocations.Revoke(ctx, jti, ttl)
}

// IsTokenRevoked reports whether jti was revoked. Without a store nothing is revoked.
func IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if Revocations == nil {
		return false, nil
	}
	return Revocations.IsRevoked(ctx, jti)
}

// NewRedisLock creates a Redis lock helper.
func NewRedisLock(rdb *redis.Client, key string, ttl time.Duration) *RedisLock {
	return &RedisLock{
		rdb: rdb,
		key: key,
		ttl: ttl,
	}
}

// Lock acquires a Redis-based lock.
func (l *RedisLock) Lock(ctx context.Context) error {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("lock is busy")
	}
	l.token = token
	return nil
}

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Unlock releases a Redis-based lock.
func (l *RedisLock) Unlock(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	_, err := unlockScript.Run(
		ctx,
		l.rdb,
		[]string{l.key},
		l.token,
	).Result()
	return err
}
