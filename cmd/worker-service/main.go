package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/cuongbtq/resque-go/internal/bootstrap"
	"github.com/cuongbtq/resque-go/internal/config"
	"github.com/cuongbtq/resque-go/internal/event"
	"github.com/cuongbtq/resque-go/internal/failure"
	"github.com/cuongbtq/resque-go/internal/job"
	"github.com/cuongbtq/resque-go/internal/jobs"
	"github.com/cuongbtq/resque-go/internal/metrics"
	"github.com/cuongbtq/resque-go/internal/worker"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := bootstrap.InitLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	ctx := context.Background()

	// Initialize Redis job store
	jobStore, redisClient, err := bootstrap.InitStore(ctx, &cfg.Redis, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	defer redisClient.Close()

	// Initialize failure backend
	failures, closeFailures, err := bootstrap.InitFailureBackend(ctx, cfg, jobStore, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize failure backend: %w", err)
	}
	defer closeFailures()

	events := event.NewBus()

	// Initialize RabbitMQ event publisher
	notify, closeNotifier, err := bootstrap.InitNotifier(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		return err
	}
	defer closeNotifier()
	if notify != nil {
		events.Subscribe(notify)
		appLogger.Info("RabbitMQ event publisher enabled")
	}

	// Metrics endpoint
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		collector := metrics.NewCollector()
		events.Subscribe(collector)

		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, collector.Handler())
		metricsServer = &http.Server{
			Addr:              ":" + strconv.Itoa(cfg.Metrics.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			appLogger.Info("Metrics server starting",
				slog.Int("port", cfg.Metrics.Port),
				slog.String("path", cfg.Metrics.Path),
			)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				appLogger.Error("Metrics server error", slog.Any("error", err))
			}
		}()
	}

	registry := job.NewRegistry()
	jobs.Register(registry, appLogger.Logger)

	// Create worker instance
	w := worker.New(&worker.Config{
		Logger:      appLogger.Logger,
		Store:       jobStore,
		Registry:    registry,
		Events:      events,
		Failures:    failure.NewRecorder(failures, appLogger.Logger),
		Queues:      cfg.Worker.Queues,
		Interval:    cfg.Worker.Interval,
		Concurrency: cfg.Worker.Concurrency,
	})

	workCtx, cancelWork := context.WithCancel(ctx)
	defer cancelWork()

	// Start worker in a goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- w.Work(workCtx)
	}()

	appLogger.Info("Worker service started successfully",
		slog.String("worker_id", w.ID()),
	)

	// SIGINT/SIGTERM finish the current pass, SIGUSR2 pauses claiming and
	// SIGCONT resumes it
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR2, syscall.SIGCONT)
	defer signal.Stop(sigs)

	var workErr error
wait:
	for {
		select {
		case sig := <-sigs:
			switch sig {
			case syscall.SIGUSR2:
				w.Pause()
			case syscall.SIGCONT:
				w.Resume()
			default:
				appLogger.Info("Received signal, shutting down gracefully",
					slog.String("signal", sig.String()),
				)
				w.Shutdown()
				workErr = awaitShutdown(w, errChan, cancelWork, cfg.Worker.ShutdownTimeout, appLogger.Logger)
				break wait
			}
		case err := <-errChan:
			workErr = err
			break wait
		}
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Metrics server forced to shutdown", slog.Any("error", err))
		}
		cancel()
	}

	if workErr != nil {
		appLogger.Error("Worker error", slog.Any("error", workErr))
		return workErr
	}

	appLogger.Info("Worker service shutdown complete")
	return nil
}

// awaitShutdown waits for the worker to finish its pass. Past the timeout
// the worker is deregistered, failing its in-flight jobs as dirty exits.
func awaitShutdown(w *worker.Worker, errChan <-chan error, cancel context.CancelFunc, timeout time.Duration, logger *slog.Logger) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-errChan:
		logger.Info("Worker stopped gracefully")
		return err
	case <-timer.C:
		logger.Warn("Worker shutdown timeout exceeded, forcing exit",
			slog.Duration("timeout", timeout),
		)
		err := w.Unregister(context.Background())
		cancel()
		return err
	}
}
