// Package worker runs the polling loop that claims jobs from queues and
// executes them.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cuongbtq/resque-go/internal/event"
	"github.com/cuongbtq/resque-go/internal/failure"
	"github.com/cuongbtq/resque-go/internal/job"
	"github.com/cuongbtq/resque-go/internal/queue"
	"github.com/cuongbtq/resque-go/internal/stat"
	"github.com/cuongbtq/resque-go/internal/store"
	"github.com/cuongbtq/resque-go/internal/worker/storage"
)

// State is the lifecycle state of a worker.
type State int32

const (
	StateIdle State = iota
	StatePolling
	StateExecuting
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateExecuting:
		return "executing"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// Config holds worker configuration
type Config struct {
	Logger   *slog.Logger
	Store    store.Store
	Registry *job.Registry
	Events   *event.Bus
	Failures *failure.Recorder

	// Queues are polled in order. "*" polls every known queue.
	Queues []string

	// Interval is the wait after an empty pass. Zero processes everything
	// available once and returns.
	Interval time.Duration

	// Concurrency bounds the executions running at once within a pass.
	// Zero or less runs every claimed job at once.
	Concurrency int
}

// Worker represents a background job worker
type Worker struct {
	logger      *slog.Logger
	store       store.Store
	queue       *queue.Service
	registry    *job.Registry
	events      *event.Bus
	failures    *failure.Recorder
	stats       *stat.Registry
	storage     *storage.Storage
	queues      []string
	interval    time.Duration
	concurrency int
	id          string

	state    atomic.Int32
	shutdown atomic.Bool
	paused   atomic.Bool

	mu       sync.Mutex
	inFlight map[*job.Job]struct{}

	unregisterOnce sync.Once
	unregisterErr  error

	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a new worker instance
func New(cfg *Config) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := cfg.Registry
	if registry == nil {
		registry = job.NewRegistry()
	}
	failures := cfg.Failures
	if failures == nil {
		failures = failure.NewRecorder(failure.NewRedisBackend(cfg.Store), logger)
	}
	queues := cfg.Queues
	if len(queues) == 0 {
		queues = []string{queue.Wildcard}
	}

	w := &Worker{
		logger:      logger,
		store:       cfg.Store,
		queue:       queue.NewService(cfg.Store, cfg.Events, logger),
		registry:    registry,
		events:      cfg.Events,
		failures:    failures,
		stats:       stat.New(cfg.Store),
		storage:     storage.NewStorage(cfg.Store, logger),
		queues:      queues,
		interval:    cfg.Interval,
		concurrency: cfg.Concurrency,
		id:          identity(queues),
		inFlight:    make(map[*job.Job]struct{}),
		sleep:       sleepContext,
	}
	w.logger = logger.With(slog.String("worker_id", w.id))
	return w
}

func identity(queues []string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("%s:%d:%s", host, os.Getpid(), strings.Join(queues, ","))
}

// ID returns the worker identity: host:pid:queues
func (w *Worker) ID() string { return w.id }

func (w *Worker) String() string { return w.id }

// State returns the current lifecycle state
func (w *Worker) State() State { return State(w.state.Load()) }

func (w *Worker) setState(s State) { w.state.Store(int32(s)) }

// Shutdown asks the loop to stop at the next pass boundary. Running
// executions are not interrupted.
func (w *Worker) Shutdown() {
	if !w.shutdown.Swap(true) {
		w.logger.Info("Shutdown requested")
	}
}

// IsShutdown reports whether Shutdown has been called
func (w *Worker) IsShutdown() bool { return w.shutdown.Load() }

// Pause stops claiming new jobs. Running executions continue.
func (w *Worker) Pause() {
	if !w.paused.Swap(true) {
		w.logger.Info("Worker paused")
	}
}

// Resume starts claiming jobs again after Pause
func (w *Worker) Resume() {
	if w.paused.Swap(false) {
		w.logger.Info("Worker resumed")
	}
}

// IsPaused reports whether the worker is paused
func (w *Worker) IsPaused() bool { return w.paused.Load() }

// Queues returns the queue names the next pass will poll, with the wildcard
// expanded
func (w *Worker) Queues(ctx context.Context) ([]string, error) {
	return w.queue.Expand(ctx, w.queues)
}

// Processing returns the current processing marker, if any
func (w *Worker) Processing(ctx context.Context) (*storage.Marker, bool, error) {
	return w.storage.Processing(ctx, w.id)
}

// Stat returns this worker's value of the named counter
func (w *Worker) Stat(ctx context.Context, name string) (int64, error) {
	return w.stats.Get(ctx, stat.WorkerName(name, w.id))
}

// Unregister fails every in-flight job with ErrDirtyExit and removes the
// worker's registry keys. It also requests shutdown. Only the first call has
// any effect; Work calls it on every exit path.
func (w *Worker) Unregister(ctx context.Context) error {
	w.unregisterOnce.Do(func() {
		w.shutdown.Store(true)
		w.unregisterErr = w.unregister(ctx)
	})
	return w.unregisterErr
}

func (w *Worker) unregister(ctx context.Context) error {
	var firstErr error
	for _, j := range w.abandonAll() {
		w.logger.Warn("Failing in-flight job on exit",
			slog.String("job", j.String()),
		)
		if err := w.recordFailure(ctx, j, ErrDirtyExit); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if err := w.storage.Unregister(ctx, w.id); err != nil {
		w.logger.Error("Failed to unregister worker",
			slog.Any("error", err),
		)
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (w *Worker) track(jobs []*job.Job) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, j := range jobs {
		w.inFlight[j] = struct{}{}
	}
}

// release removes j from the in-flight set and reports whether this worker
// still owned it.
func (w *Worker) release(j *job.Job) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.inFlight[j]; !ok {
		return false
	}
	delete(w.inFlight, j)
	return true
}

// idle reports whether no claimed job is still owned by the worker.
func (w *Worker) idle() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.inFlight) == 0
}

func (w *Worker) abandonAll() []*job.Job {
	w.mu.Lock()
	defer w.mu.Unlock()
	jobs := make([]*job.Job, 0, len(w.inFlight))
	for j := range w.inFlight {
		jobs = append(jobs, j)
	}
	w.inFlight = make(map[*job.Job]struct{})
	return jobs
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
