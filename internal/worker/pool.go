package worker

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/cuongbtq/resque-go/internal/job"
)

// runPass executes every claimed job and waits for all of them. At most
// concurrency executions run at once. The first store error returned by an
// execution is returned after the whole pass finishes. A panic outside the
// job's own execution ends the unit with a *job.PanicError.
func (w *Worker) runPass(ctx context.Context, jobs []*job.Job) error {
	w.track(jobs)

	var g errgroup.Group
	if w.concurrency > 0 {
		g.SetLimit(w.concurrency)
	}

	w.logger.Debug("Running pass",
		slog.Int("jobs", len(jobs)),
		slog.Int("concurrency", w.concurrency),
	)

	for _, j := range jobs {
		j := j
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					w.logger.Error("Execution unit panicked",
						slog.String("job", j.String()),
						slog.Any("panic", r),
					)
					err = job.NewPanicError(r)
				}
			}()
			return w.process(ctx, j)
		})
	}

	return g.Wait()
}
