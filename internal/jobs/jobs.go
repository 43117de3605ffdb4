// Package jobs holds the job classes the worker binary registers by default.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/resque-go/internal/job"
)

// Class names.
const (
	EchoClass  = "Echo"
	SleepClass = "Sleep"
)

// MaxSleep caps the duration a Sleep job may ask for.
const MaxSleep = 10 * time.Minute

var ErrInvalidDuration = errors.New("invalid sleep duration")

// Register adds the built-in classes to r.
func Register(r *job.Registry, logger *slog.Logger) {
	r.Register(EchoClass, func() any { return &Echo{logger: logger} })
	r.Register(SleepClass, func() any { return &Sleep{} })
}

// Echo logs its arguments.
type Echo struct {
	job.Base
	logger *slog.Logger
}

func (e *Echo) Perform(ctx context.Context) error {
	e.logger.Info("Echo",
		slog.String("queue", e.Queue),
		slog.Any("args", e.Args),
	)
	return nil
}

// Sleep waits for args[0] seconds, or until the context is done.
type Sleep struct {
	job.Base
	duration time.Duration
}

func (s *Sleep) SetUp(ctx context.Context) error {
	if len(s.Args) == 0 {
		return fmt.Errorf("%w: missing seconds argument", ErrInvalidDuration)
	}

	seconds, err := toSeconds(s.Args[0])
	if err != nil {
		return err
	}
	d := time.Duration(seconds * float64(time.Second))
	if d < 0 || d > MaxSleep {
		return fmt.Errorf("%w: %v out of range", ErrInvalidDuration, s.Args[0])
	}
	s.duration = d
	return nil
}

func (s *Sleep) Perform(ctx context.Context) error {
	t := time.NewTimer(s.duration)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func toSeconds(v any) (float64, error) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, n.String())
		}
		return f, nil
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%w: %v", ErrInvalidDuration, v)
	}
}
