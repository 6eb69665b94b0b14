package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisKV stores values as plain Redis strings.
type RedisKV struct {
	client *redis.Client
}

var _ KV = (*RedisKV)(nil)

// OpenRedis connects to Redis. dsn is either a redis:// URL or a bare
// host:port address.
func OpenRedis(ctx context.Context, dsn string) (*RedisKV, error) {
	opt := &redis.Options{Addr: dsn}
	if strings.Contains(dsn, "://") {
		parsed, err := redis.ParseURL(dsn)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		opt = parsed
	}
	if opt.Addr == "" {
		opt.Addr = "localhost:6379"
	}

	client := redis.NewClient(opt)
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisKV(client), nil
}

// NewRedisKV wraps an existing client.
func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

// Get implements KV.
func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Set implements KV.
func (r *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

// Delete implements KV.
func (r *RedisKV) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// Close implements KV.
func (r *RedisKV) Close() error {
	return r.client.Close()
}
