package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultNamespace is the key prefix used by Resque and its dashboards.
const DefaultNamespace = "resque"

var _ Store = (*Redis)(nil)

// Option configures the Redis store.
type Option func(*Redis)

// WithNamespace sets the key prefix. An empty namespace disables prefixing.
func WithNamespace(ns string) Option {
	return func(r *Redis) { r.namespace = ns }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Redis) { r.logger = l }
}

// Redis implements Store on top of go-redis. The caller owns the client
// lifecycle.
type Redis struct {
	client    redis.Cmdable
	namespace string
	logger    *slog.Logger
}

// NewRedis creates a Redis-backed store.
func NewRedis(client redis.Cmdable, opts ...Option) *Redis {
	r := &Redis{
		client:    client,
		namespace: DefaultNamespace,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Namespace returns the key prefix in use.
func (r *Redis) Namespace() string { return r.namespace }

// Client returns the underlying Redis client.
func (r *Redis) Client() redis.Cmdable { return r.client }

func (r *Redis) key(k string) string {
	if r.namespace == "" {
		return k
	}
	return r.namespace + ":" + k
}

// SAdd adds member to the set at key.
func (r *Redis) SAdd(ctx context.Context, key, member string) error {
	if err := r.client.SAdd(ctx, r.key(key), member).Err(); err != nil {
		return fmt.Errorf("failed to sadd %s: %w", key, err)
	}
	return nil
}

// SRem removes member from the set at key.
func (r *Redis) SRem(ctx context.Context, key, member string) error {
	if err := r.client.SRem(ctx, r.key(key), member).Err(); err != nil {
		return fmt.Errorf("failed to srem %s: %w", key, err)
	}
	return nil
}

// SMembers returns every member of the set at key.
func (r *Redis) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := r.client.SMembers(ctx, r.key(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to smembers %s: %w", key, err)
	}
	return members, nil
}

// RPush appends value to the tail of the list at key.
func (r *Redis) RPush(ctx context.Context, key, value string) error {
	if err := r.client.RPush(ctx, r.key(key), value).Err(); err != nil {
		return fmt.Errorf("failed to rpush %s: %w", key, err)
	}
	return nil
}

// LPop removes and returns the head of the list at key. The boolean is false
// when the list is empty or missing.
func (r *Redis) LPop(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.LPop(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to lpop %s: %w", key, err)
	}
	return v, true, nil
}

// LLen returns the length of the list at key.
func (r *Redis) LLen(ctx context.Context, key string) (int64, error) {
	n, err := r.client.LLen(ctx, r.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to llen %s: %w", key, err)
	}
	return n, nil
}

// LRange returns list elements between start and stop inclusive.
func (r *Redis) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	items, err := r.client.LRange(ctx, r.key(key), start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to lrange %s: %w", key, err)
	}
	return items, nil
}

// Get returns the string value at key. The boolean is false if the key does
// not exist.
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return v, true, nil
}

// Set stores value at key with no expiry.
func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Exists reports whether key exists.
func (r *Redis) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", key, err)
	}
	return n > 0, nil
}

// Del removes the given keys.
func (r *Redis) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("failed to del %v: %w", keys, err)
	}
	return nil
}

// Expire sets a time-to-live on key.
func (r *Redis) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := r.client.Expire(ctx, r.key(key), ttl).Err(); err != nil {
		return fmt.Errorf("failed to expire %s: %w", key, err)
	}
	return nil
}

// IncrBy atomically adds amount to the counter at key.
func (r *Redis) IncrBy(ctx context.Context, key string, amount int64) (int64, error) {
	n, err := r.client.IncrBy(ctx, r.key(key), amount).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to incrby %s: %w", key, err)
	}
	return n, nil
}

// DecrBy atomically subtracts amount from the counter at key.
func (r *Redis) DecrBy(ctx context.Context, key string, amount int64) (int64, error) {
	n, err := r.client.DecrBy(ctx, r.key(key), amount).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to decrby %s: %w", key, err)
	}
	return n, nil
}

// GetInt reads the counter at key. A missing key reads as zero; a value that
// does not parse as an integer returns ErrNotInteger.
func (r *Redis) GetInt(ctx context.Context, key string) (int64, error) {
	v, ok, err := r.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrNotInteger, key, v)
	}
	return n, nil
}

// Ping verifies the connection is alive.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
