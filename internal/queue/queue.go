// Package queue implements the enqueue and reserve protocol over the store.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/cuongbtq/resque-go/internal/event"
	"github.com/cuongbtq/resque-go/internal/job"
	"github.com/cuongbtq/resque-go/internal/status"
	"github.com/cuongbtq/resque-go/internal/store"
)

// Wildcard in a queue list expands to every known queue on each Reserve.
const Wildcard = "*"

// Service publishes jobs to queues and claims them back.
type Service struct {
	store  store.Store
	events *event.Bus
	logger *slog.Logger
}

// NewService creates a queue service. events may be nil.
func NewService(s store.Store, events *event.Bus, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: s, events: events, logger: logger}
}

// Store returns the underlying store.
func (s *Service) Store() store.Store { return s.store }

// Create enqueues a job and reports whether it was published.
func (s *Service) Create(ctx context.Context, queue, class string, args []any, monitor bool) (bool, error) {
	if _, err := s.Enqueue(ctx, queue, class, args, monitor); err != nil {
		return false, err
	}
	return true, nil
}

// Enqueue validates and publishes a job, returning the payload that was
// pushed. Monitored jobs get a fresh id and a Waiting status before the
// push.
func (s *Service) Enqueue(ctx context.Context, queue, class string, args []any, monitor bool) (*job.Payload, error) {
	if class == "" {
		return nil, job.ErrNoClass
	}
	if queue == "" {
		return nil, job.ErrNoQueue
	}
	if args == nil {
		args = []any{}
	}

	p := &job.Payload{Class: class, Args: args}
	if monitor {
		p.ID = NewID()
		if err := status.Create(ctx, s.store, p.ID); err != nil {
			return nil, err
		}
	}

	if err := s.Push(ctx, queue, p); err != nil {
		return nil, err
	}

	s.logger.Debug("Job enqueued",
		slog.String("queue", queue),
		slog.String("class", class),
		slog.String("job_id", p.ID),
	)

	if err := s.events.AfterEnqueue(ctx, class, args, queue); err != nil {
		return p, err
	}
	return p, nil
}

// Push registers the queue name and appends the payload to its list.
func (s *Service) Push(ctx context.Context, queue string, p *job.Payload) error {
	raw, err := p.Encode()
	if err != nil {
		return err
	}
	if err := s.store.SAdd(ctx, store.QueuesKey, queue); err != nil {
		return err
	}
	return s.store.RPush(ctx, store.QueueKey(queue), raw)
}

// Reserve pops the head of the first non-empty queue in names, in order.
// It returns nil when every queue is empty.
func (s *Service) Reserve(ctx context.Context, names ...string) (*job.Job, error) {
	names, err := s.Expand(ctx, names)
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		raw, ok, err := s.store.LPop(ctx, store.QueueKey(name))
		if err != nil {
			return nil, err
		}
		if ok {
			return job.Decode(name, raw), nil
		}
	}
	return nil, nil
}

// Expand replaces any wildcard entry with the sorted list of known queues.
func (s *Service) Expand(ctx context.Context, names []string) ([]string, error) {
	wildcard := false
	for _, n := range names {
		if n == Wildcard {
			wildcard = true
			break
		}
	}
	if !wildcard {
		return names, nil
	}
	return s.Queues(ctx)
}

// Queues returns every registered queue name, sorted.
func (s *Service) Queues(ctx context.Context) ([]string, error) {
	names, err := s.store.SMembers(ctx, store.QueuesKey)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Size returns the number of pending jobs in queue.
func (s *Service) Size(ctx context.Context, queue string) (int64, error) {
	return s.store.LLen(ctx, store.QueueKey(queue))
}

// Peek decodes up to count pending jobs starting at start without removing
// them.
func (s *Service) Peek(ctx context.Context, queue string, start, count int64) ([]*job.Job, error) {
	if count <= 0 {
		return []*job.Job{}, nil
	}
	items, err := s.store.LRange(ctx, store.QueueKey(queue), start, start+count-1)
	if err != nil {
		return nil, err
	}
	out := make([]*job.Job, 0, len(items))
	for _, raw := range items {
		out = append(out, job.Decode(queue, raw))
	}
	return out, nil
}

// RemoveQueue drops a queue's pending jobs and unregisters its name.
func (s *Service) RemoveQueue(ctx context.Context, queue string) error {
	if err := s.store.SRem(ctx, store.QueuesKey, queue); err != nil {
		return err
	}
	return s.store.Del(ctx, store.QueueKey(queue))
}

// Recreate enqueues a copy of j on the same queue. The copy is monitored
// when j's status is still tracked.
func (s *Service) Recreate(ctx context.Context, j *job.Job) (*job.Payload, error) {
	monitor := false
	if j.IsMonitored() {
		tracking, err := status.New(s.store, j.ID()).IsTracking(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to check status of job %s: %w", j.ID(), err)
		}
		monitor = tracking
	}
	return s.Enqueue(ctx, j.Queue, j.Class(), j.Args(), monitor)
}

// NewID returns a random 32 character hex id for a monitored job.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
