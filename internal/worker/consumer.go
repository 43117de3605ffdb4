package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/resque-go/internal/job"
)

// Work registers the worker and runs passes until Shutdown is called, the
// context is canceled, or, with a zero interval, a pass claims nothing.
// Deregistration runs exactly once on every exit path.
func (w *Worker) Work(ctx context.Context) (err error) {
	w.logger.Info("Starting worker",
		slog.Any("queues", w.queues),
		slog.Duration("interval", w.interval),
		slog.Int("concurrency", w.concurrency),
	)

	if err := w.storage.Register(ctx, w.id, time.Now()); err != nil {
		return err
	}

	defer func() {
		uctx := context.WithoutCancel(ctx)
		if r := recover(); r != nil {
			_ = w.Unregister(uctx)
			w.setState(StateStopped)
			panic(r)
		}
		if uerr := w.Unregister(uctx); uerr != nil {
			err = errors.Join(err, uerr)
		}
		w.setState(StateStopped)
		w.logger.Info("Worker stopped")
	}()

	for !w.IsShutdown() && ctx.Err() == nil {
		w.setState(StatePolling)

		jobs, err := w.reserveAll(ctx)
		if err != nil {
			w.logger.Error("Failed to reserve jobs",
				slog.Any("error", err),
			)
			return fmt.Errorf("failed to reserve jobs: %w", err)
		}

		if len(jobs) == 0 {
			if w.interval == 0 {
				break
			}
			w.setState(StateIdle)
			w.logger.Debug("Sleeping", slog.Duration("interval", w.interval))
			if err := w.sleep(ctx, w.interval); err != nil {
				w.logger.Info("Worker context canceled, stopping...")
				break
			}
			continue
		}

		w.setState(StateExecuting)
		if err := w.runPass(ctx, jobs); err != nil {
			return err
		}
		if err := w.storage.ClearProcessing(ctx, w.id); err != nil {
			return err
		}
	}

	w.setState(StateDraining)
	return nil
}

// reserveAll claims every job currently available across the configured
// queues. It claims nothing while paused.
func (w *Worker) reserveAll(ctx context.Context) ([]*job.Job, error) {
	if w.IsPaused() {
		w.logger.Debug("Paused, skipping claims")
		return nil, nil
	}

	w.logger.Debug("Checking", slog.Any("queues", w.queues))

	var jobs []*job.Job
	for {
		j, err := w.queue.Reserve(ctx, w.queues...)
		if err != nil {
			// claimed jobs are still owned by this worker; fail them on exit
			w.track(jobs)
			return nil, err
		}
		if j == nil {
			return jobs, nil
		}
		w.logger.Info("Found job",
			slog.String("queue", j.Queue),
			slog.String("job", j.String()),
		)
		jobs = append(jobs, j)
	}
}
