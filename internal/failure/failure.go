// Package failure captures failed job executions into an append-only sink.
package failure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// TimeFormat is the failed_at layout used by Resque dashboards.
const TimeFormat = "2006/01/02 15:04:05 MST"

// ErrUnknown stands in for a failure reported without an error.
var ErrUnknown = errors.New("unknown error")

// Failure is one recorded job failure.
type Failure struct {
	FailedAt  string          `json:"failed_at"`
	Payload   json.RawMessage `json:"payload"`
	Exception string          `json:"exception"`
	Error     string          `json:"error"`
	Backtrace []string        `json:"backtrace"`
	Worker    string          `json:"worker"`
	Queue     string          `json:"queue"`
}

// Backend persists failures. Save must append and never overwrite.
type Backend interface {
	Save(ctx context.Context, f *Failure) error
	Count(ctx context.Context) (int64, error)
	All(ctx context.Context, offset, limit int64) ([]*Failure, error)
	Clear(ctx context.Context) error
}

type stackTracer interface {
	StackTrace() []string
}

// Recorder builds failure records from job errors and hands them to the
// configured backend.
type Recorder struct {
	mu      sync.RWMutex
	backend Backend
	logger  *slog.Logger
	now     func() time.Time
}

// NewRecorder creates a Recorder writing to backend.
func NewRecorder(backend Backend, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{backend: backend, logger: logger, now: time.Now}
}

// SetBackend swaps the backend. Intended for startup wiring.
func (r *Recorder) SetBackend(b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backend = b
}

// Backend returns the backend in use.
func (r *Recorder) Backend() Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.backend
}

// Record appends a failure for payload. The innermost cause of err is
// recorded as the exception; the backtrace lists every message in the chain
// from outermost to innermost followed by any captured stack frames.
func (r *Recorder) Record(ctx context.Context, payload json.RawMessage, err error, worker, queue string) (*Failure, error) {
	f := Build(payload, err, worker, queue, r.now())

	if err := r.Backend().Save(ctx, f); err != nil {
		return nil, fmt.Errorf("failed to save failure: %w", err)
	}

	r.logger.Debug("Failure recorded",
		slog.String("exception", f.Exception),
		slog.String("error", f.Error),
		slog.String("queue", queue),
		slog.String("worker", worker),
	)
	return f, nil
}

// Build assembles a Failure without saving it.
func Build(payload json.RawMessage, err error, worker, queue string, at time.Time) *Failure {
	if err == nil {
		err = ErrUnknown
	}

	chain := []error{err}
	for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
		chain = append(chain, cause)
	}
	inner := chain[len(chain)-1]

	backtrace := make([]string, 0, len(chain))
	for _, e := range chain {
		backtrace = append(backtrace, e.Error())
	}
	var st stackTracer
	if errors.As(err, &st) {
		backtrace = append(backtrace, st.StackTrace()...)
	}

	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}

	return &Failure{
		FailedAt:  at.Format(TimeFormat),
		Payload:   payload,
		Exception: typeName(inner),
		Error:     inner.Error(),
		Backtrace: backtrace,
		Worker:    worker,
		Queue:     queue,
	}
}

func typeName(err error) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
}
