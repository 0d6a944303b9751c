package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	terrors "github.com/factorial/trendline/pkg/errors"
)

// redisClient is the subset of *redis.Client used by RedisCache.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// RedisConfig configures a Redis connection.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisCache stores entries in Redis using native key expiry.
type RedisCache struct {
	client redisClient
}

// NewRedisCache connects to Redis and verifies the connection, retrying
// transient failures.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	c, err := newRedisCache(ctx, client)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return c, nil
}

func newRedisCache(ctx context.Context, client redisClient) (*RedisCache, error) {
	err := RetryWithBackoff(ctx, func() error {
		return Retryable(client.Ping(ctx).Err())
	})
	if err != nil {
		return nil, terrors.Wrap(terrors.ErrCodeCacheBackend, errors.Join(ErrUnavailable, err), "connect to redis")
	}
	return &RedisCache{client: client}, nil
}

// Get retrieves a value from Redis.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, terrors.Wrap(terrors.ErrCodeCacheBackend, err, "redis get")
	}
	return data, true, nil
}

// Set stores a value in Redis with the given expiry.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return terrors.Wrap(terrors.ErrCodeCacheBackend, err, "redis set")
	}
	return nil
}

// Delete removes a key from Redis.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return terrors.Wrap(terrors.ErrCodeCacheBackend, err, "redis del")
	}
	return nil
}

// Close closes the Redis connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ensure RedisCache implements Cache.
var _ Cache = (*RedisCache)(nil)
