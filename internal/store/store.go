// Package store defines the primitive key/value operations the job queue
// relies on and a Redis implementation of them.
//
// Every operation is a single request/response round trip with no retry;
// errors are returned to the caller as-is (wrapped with context).
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotInteger is returned by counter reads when the stored value is not
// an integer.
var ErrNotInteger = errors.New("stored value is not an integer")

// Store is the set of atomic primitives required by the queue, worker,
// status, failure and stat components. Keys passed in are un-namespaced;
// implementations apply their own prefix.
type Store interface {
	// Sets
	SAdd(ctx context.Context, key, member string) error
	SRem(ctx context.Context, key, member string) error
	SMembers(ctx context.Context, key string) ([]string, error)

	// Lists
	RPush(ctx context.Context, key, value string) error
	LPop(ctx context.Context, key string) (string, bool, error)
	LLen(ctx context.Context, key string) (int64, error)
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// Strings
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, keys ...string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Counters
	IncrBy(ctx context.Context, key string, amount int64) (int64, error)
	DecrBy(ctx context.Context, key string, amount int64) (int64, error)
	GetInt(ctx context.Context, key string) (int64, error)

	Ping(ctx context.Context) error
}
