package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cuongbtq/resque-go/internal/job"
	"github.com/cuongbtq/resque-go/internal/stat"
	"github.com/cuongbtq/resque-go/internal/status"
	"github.com/cuongbtq/resque-go/internal/worker/storage"
)

// process runs one claimed job and does its bookkeeping. Job errors are
// recorded and swallowed; only store errors are returned. Bookkeeping is not
// canceled with ctx so a job that finishes after cancellation is still
// recorded.
func (w *Worker) process(ctx context.Context, j *job.Job) error {
	j.Worker = w.id
	defer func() { j.Worker = "" }()

	sctx := context.WithoutCancel(ctx)
	if err := j.UpdateStatus(sctx, w.store, status.Running); err != nil {
		return err
	}

	marker := storage.Marker{
		Queue:   j.Queue,
		RunAt:   time.Now().Format(storage.TimeFormat),
		Payload: j.RawJSON(),
	}
	if err := w.storage.SetProcessing(sctx, w.id, marker); err != nil {
		return err
	}

	err := w.execute(ctx, j)
	switch {
	case errors.Is(err, job.ErrDontPerform):
		if !w.release(j) {
			return nil
		}
		w.logger.Info("Job skipped", slog.String("job", j.String()))
		if err := w.events.Skip(sctx, j); err != nil {
			w.logger.Warn("Skip observer returned an error",
				slog.String("job", j.String()),
				slog.Any("error", err),
			)
		}
		return nil
	case err != nil:
		if !w.release(j) {
			return nil
		}
		w.logger.Error("Job failed",
			slog.String("job", j.String()),
			slog.Any("error", err),
		)
		return w.recordFailure(sctx, j, err)
	default:
		if !w.release(j) {
			return nil
		}
		return w.complete(sctx, j)
	}
}

// execute dispatches the hooks around the job's SetUp, Perform and TearDown.
// A panic anywhere is returned as a *job.PanicError.
func (w *Worker) execute(ctx context.Context, j *job.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = job.NewPanicError(r)
		}
	}()

	if err := w.events.BeforePerform(ctx, j); err != nil {
		return err
	}

	instance, err := w.registry.Resolve(j)
	if err != nil {
		return err
	}

	if s, ok := instance.(job.SetUpper); ok {
		if err := s.SetUp(ctx); err != nil {
			return err
		}
	}
	if err := instance.Perform(ctx); err != nil {
		return err
	}
	if t, ok := instance.(job.TearDowner); ok {
		if err := t.TearDown(ctx); err != nil {
			return err
		}
	}

	return w.events.AfterPerform(ctx, j)
}

func (w *Worker) complete(ctx context.Context, j *job.Job) error {
	if err := j.UpdateStatus(ctx, w.store, status.Complete); err != nil {
		return err
	}
	// siblings in the same pass share the marker
	if w.idle() {
		if err := w.storage.ClearProcessing(ctx, w.id); err != nil {
			return err
		}
	}
	if err := w.increment(ctx, stat.Processed); err != nil {
		return err
	}

	w.logger.Info("done", slog.String("job", j.String()))
	return nil
}

// recordFailure dispatches the failure hooks, marks the job Failed, appends
// a failure record and bumps the failed counters.
func (w *Worker) recordFailure(ctx context.Context, j *job.Job, jobErr error) error {
	if err := w.dispatchFailure(ctx, j, jobErr); err != nil {
		w.logger.Warn("Failure observer returned an error",
			slog.String("job", j.String()),
			slog.Any("error", err),
		)
	}

	if err := j.UpdateStatus(ctx, w.store, status.Failed); err != nil {
		return err
	}
	if _, err := w.failures.Record(ctx, j.RawJSON(), jobErr, w.id, j.Queue); err != nil {
		return err
	}
	if err := w.increment(ctx, stat.Failed); err != nil {
		return err
	}

	w.logger.Info("failed", slog.String("job", j.String()))
	return nil
}

// dispatchFailure runs the failure hooks. A panicking observer is reported
// as a *job.PanicError like any other observer error.
func (w *Worker) dispatchFailure(ctx context.Context, j *job.Job, jobErr error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = job.NewPanicError(r)
		}
	}()
	return w.events.Failure(ctx, jobErr, j)
}

func (w *Worker) increment(ctx context.Context, name string) error {
	if _, err := w.stats.Increment(ctx, name, 1); err != nil {
		return err
	}
	_, err := w.stats.Increment(ctx, stat.WorkerName(name, w.id), 1)
	return err
}
