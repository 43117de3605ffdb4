package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cuongbtq/resque-go/internal/stat"
	"github.com/cuongbtq/resque-go/internal/store"
)

// TimeFormat is the layout of worker timestamps (started, run_at).
const TimeFormat = time.RubyDate

// Marker describes the job a worker is currently processing.
type Marker struct {
	Queue   string          `json:"queue"`
	RunAt   string          `json:"run_at"`
	Payload json.RawMessage `json:"payload"`
}

// Storage handles the worker registry keys in the store
type Storage struct {
	store  store.Store
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(s store.Store, logger *slog.Logger) *Storage {
	if logger == nil {
		logger = slog.Default()
	}
	return &Storage{
		store:  s,
		logger: logger,
	}
}

// Register adds the worker to the workers set and records its start time.
// A worker whose start time cannot be written is removed from the set again.
func (s *Storage) Register(ctx context.Context, workerID string, startedAt time.Time) error {
	if err := s.store.SAdd(ctx, store.WorkersKey, workerID); err != nil {
		return fmt.Errorf("failed to register worker: %w", err)
	}
	if err := s.store.Set(ctx, store.WorkerStartedKey(workerID), startedAt.Format(TimeFormat)); err != nil {
		if rerr := s.store.SRem(ctx, store.WorkersKey, workerID); rerr != nil {
			s.logger.Error("Failed to roll back worker registration",
				slog.String("worker_id", workerID),
				slog.Any("error", rerr),
			)
		}
		return fmt.Errorf("failed to set worker start time: %w", err)
	}

	s.logger.Info("Worker registered",
		slog.String("worker_id", workerID),
	)
	return nil
}

// Unregister removes the worker from the workers set and deletes its marker,
// start time and per-worker counters
func (s *Storage) Unregister(ctx context.Context, workerID string) error {
	if err := s.store.SRem(ctx, store.WorkersKey, workerID); err != nil {
		return fmt.Errorf("failed to unregister worker: %w", err)
	}

	err := s.store.Del(ctx,
		store.WorkerKey(workerID),
		store.WorkerStartedKey(workerID),
		store.StatKey(stat.WorkerName(stat.Processed, workerID)),
		store.StatKey(stat.WorkerName(stat.Failed, workerID)),
	)
	if err != nil {
		return fmt.Errorf("failed to clear worker keys: %w", err)
	}

	s.logger.Info("Worker unregistered",
		slog.String("worker_id", workerID),
	)
	return nil
}

// SetProcessing publishes the processing marker for the worker
func (s *Storage) SetProcessing(ctx context.Context, workerID string, m Marker) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal processing marker: %w", err)
	}
	if err := s.store.Set(ctx, store.WorkerKey(workerID), string(data)); err != nil {
		return fmt.Errorf("failed to set processing marker: %w", err)
	}
	return nil
}

// ClearProcessing deletes the processing marker
func (s *Storage) ClearProcessing(ctx context.Context, workerID string) error {
	if err := s.store.Del(ctx, store.WorkerKey(workerID)); err != nil {
		return fmt.Errorf("failed to clear processing marker: %w", err)
	}
	return nil
}

// Processing returns the worker's processing marker, if any
func (s *Storage) Processing(ctx context.Context, workerID string) (*Marker, bool, error) {
	raw, ok, err := s.store.Get(ctx, store.WorkerKey(workerID))
	if err != nil {
		return nil, false, fmt.Errorf("failed to get processing marker: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	var m Marker
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal processing marker: %w", err)
	}
	return &m, true, nil
}

// Started returns the worker's start timestamp as stored
func (s *Storage) Started(ctx context.Context, workerID string) (string, bool, error) {
	v, ok, err := s.store.Get(ctx, store.WorkerStartedKey(workerID))
	if err != nil {
		return "", false, fmt.Errorf("failed to get worker start time: %w", err)
	}
	return v, ok, nil
}

// Workers lists every registered worker identity, sorted
func (s *Storage) Workers(ctx context.Context) ([]string, error) {
	ids, err := s.store.SMembers(ctx, store.WorkersKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}
