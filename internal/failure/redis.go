package failure

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cuongbtq/resque-go/internal/store"
)

var _ Backend = (*RedisBackend)(nil)

// RedisBackend appends failures to the shared "failed" list.
type RedisBackend struct {
	store store.Store
}

// NewRedisBackend creates the default backend.
func NewRedisBackend(s store.Store) *RedisBackend {
	return &RedisBackend{store: s}
}

func (b *RedisBackend) Save(ctx context.Context, f *Failure) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal failure: %w", err)
	}
	return b.store.RPush(ctx, store.FailedKey, string(data))
}

func (b *RedisBackend) Count(ctx context.Context) (int64, error) {
	return b.store.LLen(ctx, store.FailedKey)
}

// All returns up to limit failures starting at offset, oldest first. A
// non-positive limit returns everything from offset.
func (b *RedisBackend) All(ctx context.Context, offset, limit int64) ([]*Failure, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = offset + limit - 1
	}

	items, err := b.store.LRange(ctx, store.FailedKey, offset, stop)
	if err != nil {
		return nil, err
	}

	out := make([]*Failure, 0, len(items))
	for _, item := range items {
		var f Failure
		if err := json.Unmarshal([]byte(item), &f); err != nil {
			return nil, fmt.Errorf("failed to unmarshal failure: %w", err)
		}
		out = append(out, &f)
	}
	return out, nil
}

func (b *RedisBackend) Clear(ctx context.Context) error {
	return b.store.Del(ctx, store.FailedKey)
}
