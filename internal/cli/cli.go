// Package cli implements resquectl, the operator command line for the job
// queue. Every command loads the same YAML configuration as the services
// and talks to the store directly.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cuongbtq/resque-go/internal/bootstrap"
	"github.com/cuongbtq/resque-go/internal/config"
	"github.com/cuongbtq/resque-go/internal/event"
	"github.com/cuongbtq/resque-go/internal/failure"
	"github.com/cuongbtq/resque-go/internal/job"
	"github.com/cuongbtq/resque-go/internal/jobs"
	"github.com/cuongbtq/resque-go/internal/queue"
	"github.com/cuongbtq/resque-go/internal/stat"
	"github.com/cuongbtq/resque-go/internal/status"
	"github.com/cuongbtq/resque-go/internal/store"
	"github.com/cuongbtq/resque-go/internal/worker"
	"github.com/cuongbtq/resque-go/shared/logger"
)

// Version is reported by --version.
var Version = "dev"

// env is what a command needs once the configuration is loaded
type env struct {
	cfg    *config.Config
	logger *logger.Logger
	store  store.Store
	events *event.Bus
	queues *queue.Service

	closers []bootstrap.Closer
}

func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			e.logger.Warn("Failed to close resource", slog.Any("error", err))
		}
	}
	_ = e.logger.Close()
}

type runner struct {
	configPath string
}

func BuildCLI() *cobra.Command {
	r := &runner{}

	defaultConfigPath := os.Getenv("RESQUECTL_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/resquectl.yaml"
	}

	rootCmd := &cobra.Command{
		Use:           "resquectl",
		Short:         "Inspect and drive the Redis backed job queue",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&r.configPath, "config", "c", defaultConfigPath, "config file path")

	rootCmd.AddCommand(
		r.buildEnqueueCommand(),
		r.buildQueuesCommand(),
		r.buildStatusCommand(),
		r.buildStatsCommand(),
		r.buildFailuresCommand(),
		r.buildWorkCommand(),
	)

	return rootCmd
}

// open loads the configuration and connects to the store
func (r *runner) open(ctx context.Context) (*env, error) {
	cfg, err := config.Load(r.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	appLogger, err := bootstrap.InitLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	s, client, err := bootstrap.InitStore(ctx, &cfg.Redis, appLogger.Logger)
	if err != nil {
		_ = appLogger.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	events := event.NewBus()
	return &env{
		cfg:     cfg,
		logger:  appLogger,
		store:   s,
		events:  events,
		queues:  queue.NewService(s, events, appLogger.Logger),
		closers: []bootstrap.Closer{client.Close},
	}, nil
}

func (r *runner) run(fn func(ctx context.Context, cmd *cobra.Command, args []string, e *env) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		e, err := r.open(ctx)
		if err != nil {
			return err
		}
		defer e.close()
		return fn(ctx, cmd, args, e)
	}
}

func (r *runner) buildEnqueueCommand() *cobra.Command {
	var monitor bool

	cmd := &cobra.Command{
		Use:   "enqueue <queue> <class> [args...]",
		Short: "Push a job onto a queue",
		Long: `Push a job onto a queue. Each argument is decoded as JSON when it parses,
otherwise it is sent as a string: 42 is a number, '"42"' and abc are strings.`,
		Args: cobra.MinimumNArgs(2),
		RunE: r.run(func(ctx context.Context, cmd *cobra.Command, args []string, e *env) error {
			p, err := e.queues.Enqueue(ctx, args[0], args[1], ParseArgs(args[2:]), monitor)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if p.ID != "" {
				fmt.Fprintf(out, "enqueued %s on %s (id %s)\n", p.Class, args[0], p.ID)
				return nil
			}
			fmt.Fprintf(out, "enqueued %s on %s\n", p.Class, args[0])
			return nil
		}),
	}

	cmd.Flags().BoolVarP(&monitor, "monitor", "m", false, "track the job status")
	return cmd
}

// ParseArgs decodes each command line argument as JSON, falling back to
// the literal string.
func ParseArgs(raw []string) []any {
	out := make([]any, 0, len(raw))
	for _, s := range raw {
		dec := json.NewDecoder(strings.NewReader(s))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil || dec.More() {
			out = append(out, s)
			continue
		}
		out = append(out, v)
	}
	return out
}

func (r *runner) buildQueuesCommand() *cobra.Command {
	var remove string

	cmd := &cobra.Command{
		Use:   "queues",
		Short: "List queues and their sizes",
		Args:  cobra.NoArgs,
		RunE: r.run(func(ctx context.Context, cmd *cobra.Command, _ []string, e *env) error {
			if remove != "" {
				if err := e.queues.RemoveQueue(ctx, remove); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", remove)
				return nil
			}

			names, err := e.queues.Queues(ctx)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "QUEUE\tSIZE")
			for _, name := range names {
				size, err := e.queues.Size(ctx, name)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%d\n", name, size)
			}
			return tw.Flush()
		}),
	}

	cmd.Flags().StringVar(&remove, "remove", "", "delete the named queue and its pending jobs")
	return cmd
}

func (r *runner) buildStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <job_id>",
		Short: "Show the status of a monitored job",
		Args:  cobra.ExactArgs(1),
		RunE: r.run(func(ctx context.Context, cmd *cobra.Command, args []string, e *env) error {
			rec, ok := status.New(e.store, args[0]).Record(ctx)
			if !ok {
				return fmt.Errorf("job %s is not tracked", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", args[0], rec.Status)
			return nil
		}),
	}
}

func (r *runner) buildStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show processed and failed counters",
		Args:  cobra.NoArgs,
		RunE: r.run(func(ctx context.Context, cmd *cobra.Command, _ []string, e *env) error {
			stats := stat.New(e.store)

			processed, err := stats.Get(ctx, stat.Processed)
			if err != nil {
				return err
			}
			failed, err := stats.Get(ctx, stat.Failed)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "processed: %d\n", processed)
			fmt.Fprintf(out, "failed: %d\n", failed)
			return nil
		}),
	}
}

func (r *runner) buildFailuresCommand() *cobra.Command {
	var (
		offset   int64
		limit    int64
		clearAll bool
	)

	cmd := &cobra.Command{
		Use:   "failures",
		Short: "Print recorded failures as JSON lines",
		Args:  cobra.NoArgs,
		RunE: r.run(func(ctx context.Context, cmd *cobra.Command, _ []string, e *env) error {
			backend, closeFn, err := bootstrap.InitFailureBackend(ctx, e.cfg, e.store, e.logger.Logger)
			if err != nil {
				return err
			}
			e.closers = append(e.closers, closeFn)

			if clearAll {
				if err := backend.Clear(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "failures cleared")
				return nil
			}

			failures, err := backend.All(ctx, offset, limit)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, f := range failures {
				if err := enc.Encode(f); err != nil {
					return err
				}
			}
			return nil
		}),
	}

	cmd.Flags().Int64Var(&offset, "offset", 0, "index of the first failure")
	cmd.Flags().Int64Var(&limit, "limit", 20, "maximum failures to print, 0 for all")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "delete every recorded failure")
	return cmd
}

func (r *runner) buildWorkCommand() *cobra.Command {
	var (
		queues      []string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "work",
		Short: "Drain the queues with the built-in jobs and exit",
		Args:  cobra.NoArgs,
		RunE: r.run(func(ctx context.Context, cmd *cobra.Command, _ []string, e *env) error {
			backend, closeFn, err := bootstrap.InitFailureBackend(ctx, e.cfg, e.store, e.logger.Logger)
			if err != nil {
				return err
			}
			e.closers = append(e.closers, closeFn)

			registry := job.NewRegistry()
			jobs.Register(registry, e.logger.Logger)

			if len(queues) == 0 {
				queues = e.cfg.Worker.Queues
			}
			if concurrency < 0 {
				concurrency = e.cfg.Worker.Concurrency
			}

			stats := stat.New(e.store)
			before, err := counters(ctx, stats)
			if err != nil {
				return err
			}

			w := worker.New(&worker.Config{
				Logger:      e.logger.Logger,
				Store:       e.store,
				Registry:    registry,
				Events:      e.events,
				Failures:    failure.NewRecorder(backend, e.logger.Logger),
				Queues:      queues,
				Interval:    0,
				Concurrency: concurrency,
			})
			if err := w.Work(ctx); err != nil {
				return err
			}

			after, err := counters(ctx, stats)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "processed: %d failed: %d\n", after[0]-before[0], after[1]-before[1])
			return nil
		}),
	}

	cmd.Flags().StringSliceVarP(&queues, "queues", "q", nil, "queues to drain in priority order (default from config)")
	cmd.Flags().IntVar(&concurrency, "concurrency", -1, "jobs run at once per pass, 0 for unbounded (default from config)")
	return cmd
}

func counters(ctx context.Context, stats *stat.Registry) ([2]int64, error) {
	var out [2]int64
	var err error
	if out[0], err = stats.Get(ctx, stat.Processed); err != nil {
		return out, err
	}
	if out[1], err = stats.Get(ctx, stat.Failed); err != nil {
		return out, err
	}
	return out, nil
}
