// Package bootstrap turns a loaded configuration into connected components.
// The service binaries and the CLI share it.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/cuongbtq/resque-go/internal/config"
	"github.com/cuongbtq/resque-go/internal/failure"
	"github.com/cuongbtq/resque-go/internal/notifier"
	"github.com/cuongbtq/resque-go/internal/store"
	"github.com/cuongbtq/resque-go/shared/logger"
	"github.com/cuongbtq/resque-go/shared/postgresql"
	"github.com/cuongbtq/resque-go/shared/rabbitmq"
	sharedredis "github.com/cuongbtq/resque-go/shared/redis"
)

// Closer releases a connection opened by this package.
type Closer func() error

func noopCloser() error { return nil }

// InitLogger initializes and configures the application logger
func InitLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// InitStore connects to Redis and returns the namespaced job store on top
// of it
func InitStore(ctx context.Context, cfg *config.RedisConfig, log *slog.Logger) (*store.Redis, *sharedredis.Client, error) {
	client, err := sharedredis.NewClient(ctx, &sharedredis.Config{
		Addr:          cfg.Addr,
		Password:      cfg.Password,
		DB:            cfg.DB,
		PoolSize:      cfg.PoolSize,
		DialTimeout:   cfg.DialTimeout,
		ReadTimeout:   cfg.ReadTimeout,
		WriteTimeout:  cfg.WriteTimeout,
		RetryAttempts: cfg.ConnectRetries,
		RetryInterval: cfg.RetryInterval,
	}, log)
	if err != nil {
		return nil, nil, err
	}

	s := store.NewRedis(client.GetClient(),
		store.WithNamespace(cfg.Namespace),
		store.WithLogger(log),
	)
	return s, client, nil
}

// InitFailureBackend opens the configured failure sink. SQL backends get
// their table created on open.
func InitFailureBackend(ctx context.Context, cfg *config.Config, s store.Store, log *slog.Logger) (failure.Backend, Closer, error) {
	var db *sqlx.DB

	switch cfg.Failure.Backend {
	case config.FailureBackendRedis, "":
		return failure.NewRedisBackend(s), noopCloser, nil

	case config.FailureBackendPostgres:
		client, err := postgresql.NewClient(&postgresql.Config{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			Database:        cfg.Database.Database,
			SSLMode:         cfg.Database.SSLMode,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		db = client.GetDB()

	case config.FailureBackendSQLite:
		var err error
		db, err = sqlx.Open(failure.DriverSQLite, cfg.Failure.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite failure store: %w", err)
		}
		// sqlite allows a single writer
		db.SetMaxOpenConns(1)

	default:
		return nil, nil, fmt.Errorf("unknown failure backend: %q", cfg.Failure.Backend)
	}

	backend, err := failure.NewSQLBackend(db, log)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	if err := backend.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	log.Info("Failure backend ready", slog.String("backend", cfg.Failure.Backend))
	return backend, db.Close, nil
}

// InitNotifier connects to RabbitMQ and returns a notifier publishing on
// the configured exchange. It returns nil when RabbitMQ is disabled.
func InitNotifier(cfg *config.RabbitMQConfig, log *slog.Logger) (*notifier.Notifier, Closer, error) {
	if !cfg.Enabled {
		return nil, noopCloser, nil
	}

	client, err := rabbitmq.NewClient(&rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}

	return notifier.New(client, cfg.RoutingKeyPrefix, log), client.Close, nil
}
