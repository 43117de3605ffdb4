package handler

import (
	"log/slog"

	"github.com/cuongbtq/resque-go/internal/failure"
	"github.com/cuongbtq/resque-go/internal/queue"
	"github.com/cuongbtq/resque-go/internal/stat"
	"github.com/cuongbtq/resque-go/internal/store"
	"github.com/cuongbtq/resque-go/internal/worker/storage"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger   *slog.Logger
	Store    store.Store
	Queues   *queue.Service
	Failures failure.Backend
}

// Handler serves the queue, job status, failure and worker endpoints
type Handler struct {
	logger   *slog.Logger
	store    store.Store
	queues   *queue.Service
	failures failure.Backend
	workers  *storage.Storage
	stats    *stat.Registry
}

// New creates a new Handler instance
func New(deps *Dependencies) *Handler {
	failures := deps.Failures
	if failures == nil {
		failures = failure.NewRedisBackend(deps.Store)
	}

	return &Handler{
		logger:   deps.Logger,
		store:    deps.Store,
		queues:   deps.Queues,
		failures: failures,
		workers:  storage.NewStorage(deps.Store, deps.Logger),
		stats:    stat.New(deps.Store),
	}
}
