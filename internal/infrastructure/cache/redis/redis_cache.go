package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dreschagin/mission-control/internal/application/port"
)

const (
	defaultNamespace = "mission_control"
	defaultPoolSize  = 10
	scanBatch        = 100
)

// Options holds connection settings for the evaluation cache.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration

	// Namespace prefixes every key so several deployments can share one Redis.
	Namespace string

	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RedisCache stores JSON-encoded read models (latest evaluation, history pages).
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// NewRedisCache dials Redis and fails fast if PING does not answer.
func NewRedisCache(opts Options) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     orDefault(opts.PoolSize, defaultPoolSize),
		MinIdleConns: opts.MinIdleConns,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		MaxRetries:   3,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCacheWithClient(client, opts.TTL, opts.Namespace), nil
}

// NewRedisCacheWithClient wraps an existing client. An empty namespace selects the default one.
func NewRedisCacheWithClient(client redis.UniversalClient, ttl time.Duration, namespace string) *RedisCache {
	namespace = strings.Trim(strings.TrimSpace(namespace), ":")
	if namespace == "" {
		namespace = defaultNamespace
	}
	return &RedisCache{client: client, ttl: ttl, prefix: namespace + ":"}
}

func (c *RedisCache) key(k string) string {
	return c.prefix + k
}

// Get returns port.ErrCacheMiss when the key is absent or expired.
func (c *RedisCache) Get(ctx context.Context, key string, dest any) error {
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return port.ErrCacheMiss
	case err != nil:
		return fmt.Errorf("failed to read cache key %q: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		// Undecodable values are dropped; the next Set rewrites the key.
		_ = c.client.Del(ctx, c.key(key)).Err()
		return fmt.Errorf("failed to decode cache key %q: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache key %q: %w", key, err)
	}
	if err := c.client.Set(ctx, c.key(key), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %q: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete cache key %q: %w", key, err)
	}
	return nil
}

// DeletePattern walks matching keys with SCAN and unlinks them in batches of scanBatch.
func (c *RedisCache) DeletePattern(ctx context.Context, pattern string) error {
	iter := c.client.Scan(ctx, 0, c.key(pattern), scanBatch).Iterator()

	batch := make([]string, 0, scanBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := c.client.Unlink(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("failed to unlink %d cache keys: %w", len(batch), err)
		}
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys %q: %w", pattern, err)
	}
	return flush()
}

// Ping backs the /readyz check.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
