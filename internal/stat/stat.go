// Package stat keeps named integer counters in the store.
package stat

import (
	"context"
	"fmt"

	"github.com/cuongbtq/resque-go/internal/store"
)

const (
	Processed = "processed"
	Failed    = "failed"
)

// Registry reads and writes counters under stat:<name>.
type Registry struct {
	store store.Store
}

// New creates a Registry backed by s.
func New(s store.Store) *Registry {
	return &Registry{store: s}
}

// Increment adds amount to the counter and returns the new value.
func (r *Registry) Increment(ctx context.Context, name string, amount int64) (int64, error) {
	v, err := r.store.IncrBy(ctx, store.StatKey(name), amount)
	if err != nil {
		return 0, fmt.Errorf("failed to increment stat %s: %w", name, err)
	}
	return v, nil
}

// Decrement subtracts one from the counter and returns the new value.
func (r *Registry) Decrement(ctx context.Context, name string) (int64, error) {
	v, err := r.store.DecrBy(ctx, store.StatKey(name), 1)
	if err != nil {
		return 0, fmt.Errorf("failed to decrement stat %s: %w", name, err)
	}
	return v, nil
}

// Get returns the counter value. A missing counter reads as zero; a value
// that is not an integer is an error wrapping store.ErrNotInteger.
func (r *Registry) Get(ctx context.Context, name string) (int64, error) {
	v, err := r.store.GetInt(ctx, store.StatKey(name))
	if err != nil {
		return 0, fmt.Errorf("failed to read stat %s: %w", name, err)
	}
	return v, nil
}

// Clear deletes the counter.
func (r *Registry) Clear(ctx context.Context, name string) error {
	if err := r.store.Del(ctx, store.StatKey(name)); err != nil {
		return fmt.Errorf("failed to clear stat %s: %w", name, err)
	}
	return nil
}

// WorkerName returns the per-worker variant of a counter name.
func WorkerName(name, workerID string) string {
	return name + ":" + workerID
}
