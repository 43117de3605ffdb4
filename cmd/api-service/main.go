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
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/cuongbtq/resque-go/internal/api/handler"
	"github.com/cuongbtq/resque-go/internal/api/router"
	"github.com/cuongbtq/resque-go/internal/bootstrap"
	"github.com/cuongbtq/resque-go/internal/config"
	"github.com/cuongbtq/resque-go/internal/event"
	"github.com/cuongbtq/resque-go/internal/metrics"
	"github.com/cuongbtq/resque-go/internal/queue"
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
	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := bootstrap.InitLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting API service",
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

	// Initialize RabbitMQ event publisher for enqueue events
	notify, closeNotifier, err := bootstrap.InitNotifier(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		return err
	}
	defer closeNotifier()
	if notify != nil {
		events.Subscribe(notify)
	}

	opts := router.Options{ServiceName: cfg.App.Name}
	if cfg.Metrics.Enabled {
		collector := metrics.NewCollector()
		events.Subscribe(collector)
		opts.Metrics = collector.Handler()
		opts.MetricsPath = cfg.Metrics.Path
	}

	// Initialize router
	r := initRouter(cfg.App.Environment, opts, &handler.Dependencies{
		Logger:   appLogger.Logger,
		Store:    jobStore,
		Queues:   queue.NewService(jobStore, events, appLogger.Logger),
		Failures: failures,
	})

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	appLogger.Info("Starting HTTP server",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	appLogger.Info("API service is running",
		slog.String("address", addr),
	)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-serverErr:
		appLogger.Error("Server failed to start",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Shutting down server...")

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = cfg.Worker.ShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(environment string, opts router.Options, deps *handler.Dependencies) *gin.Engine {
	// Set Gin mode based on environment
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	return router.SetupRouter(deps, opts)
}
