package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration
type Config struct {
	Addr          string
	Password      string
	DB            int
	PoolSize      int
	DialTimeout   time.Duration
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	RetryAttempts int
	RetryInterval time.Duration
}

// Client represents a Redis client
type Client struct {
	rdb    *goredis.Client
	config *Config
	logger *slog.Logger
}

// NewClient connects to Redis, retrying the initial ping
func NewClient(ctx context.Context, config *Config, logger *slog.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	attempts := config.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		logger.Info("Connecting to Redis",
			slog.String("addr", config.Addr),
			slog.Int("db", config.DB),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
		)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = rdb.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			break
		}

		logger.Error("Failed to connect to Redis",
			slog.Any("error", err),
			slog.Int("attempt", attempt),
		)

		if attempt < attempts {
			select {
			case <-ctx.Done():
				_ = rdb.Close()
				return nil, ctx.Err()
			case <-time.After(config.RetryInterval):
			}
		}
	}

	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis after %d attempts: %w", attempts, err)
	}

	logger.Info("Successfully connected to Redis")

	return &Client{rdb: rdb, config: config, logger: logger}, nil
}

// GetClient returns the underlying go-redis client
func (c *Client) GetClient() *goredis.Client {
	return c.rdb
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// HealthCheck pings Redis with a short timeout
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.Ping(ctx); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (c *Client) Close() error {
	c.logger.Info("Closing Redis connection")

	if err := c.rdb.Close(); err != nil {
		c.logger.Error("Failed to close Redis connection",
			slog.Any("error", err),
		)
		return err
	}

	c.logger.Info("Redis connection closed successfully")
	return nil
}
