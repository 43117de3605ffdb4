package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Failure backends
const (
	FailureBackendRedis    = "redis"
	FailureBackendPostgres = "postgres"
	FailureBackendSQLite   = "sqlite"
)

// Config represents the complete application configuration
type Config struct {
	App      AppConfig      `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Logging  LoggingConfig  `yaml:"logging"`
	Worker   WorkerConfig   `yaml:"worker"`
	Failure  FailureConfig  `yaml:"failure"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RedisConfig holds the job store connection
type RedisConfig struct {
	Addr           string        `yaml:"addr"`
	Password       string        `yaml:"password"`
	DB             int           `yaml:"db"`
	Namespace      string        `yaml:"namespace"`
	PoolSize       int           `yaml:"pool_size"`
	DialTimeout    time.Duration `yaml:"dial_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	ConnectRetries int           `yaml:"connect_retries"`
	RetryInterval  time.Duration `yaml:"retry_interval"`
}

// DatabaseConfig holds PostgreSQL connection configuration for the
// postgres failure backend
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// RabbitMQConfig holds the lifecycle event publisher settings
type RabbitMQConfig struct {
	Enabled          bool             `yaml:"enabled"`
	Host             string           `yaml:"host"`
	Port             int              `yaml:"port"`
	User             string           `yaml:"user"`
	Password         string           `yaml:"password"`
	VHost            string           `yaml:"vhost"`
	Exchange         ExchangeConfig   `yaml:"exchange"`
	RoutingKeyPrefix string           `yaml:"routing_key_prefix"`
	Connection       ConnectionConfig `yaml:"connection"`
	Publish          PublishConfig    `yaml:"publish"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	Heartbeat     time.Duration `yaml:"heartbeat"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// WorkerConfig holds worker service configuration
type WorkerConfig struct {
	Queues          []string      `yaml:"queues"`
	Interval        time.Duration `yaml:"interval"`
	Concurrency     int           `yaml:"concurrency"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// FailureConfig selects where failure records are written
type FailureConfig struct {
	Backend    string `yaml:"backend"`
	SQLitePath string `yaml:"sqlite_path"`
}

// MetricsConfig holds Prometheus exposition settings
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Port    int    `yaml:"port"`
}

// Load reads the configuration file, expands ${VAR} references from the
// environment and applies defaults
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.ApplyDefaults()
	return &config, nil
}

// ApplyDefaults fills zero values with working defaults
func (c *Config) ApplyDefaults() {
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.Namespace == "" {
		c.Redis.Namespace = "resque"
	}
	if c.Redis.ConnectRetries <= 0 {
		c.Redis.ConnectRetries = 1
	}
	if c.Redis.RetryInterval <= 0 {
		c.Redis.RetryInterval = time.Second
	}

	if len(c.Worker.Queues) == 0 {
		c.Worker.Queues = []string{"*"}
	}
	if c.Worker.ShutdownTimeout <= 0 {
		c.Worker.ShutdownTimeout = 30 * time.Second
	}

	if c.Failure.Backend == "" {
		c.Failure.Backend = FailureBackendRedis
	}
	if c.Failure.Backend == FailureBackendSQLite && c.Failure.SQLitePath == "" {
		c.Failure.SQLitePath = "resque_failures.db"
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}

	if c.RabbitMQ.Exchange.Type == "" {
		c.RabbitMQ.Exchange.Type = "topic"
	}
	if c.RabbitMQ.RoutingKeyPrefix == "" {
		c.RabbitMQ.RoutingKeyPrefix = "resque"
	}
	if c.RabbitMQ.Connection.RetryAttempts <= 0 {
		c.RabbitMQ.Connection.RetryAttempts = 1
	}
}

// ValidateAPIConfig checks the settings the API service needs
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if err := c.validateRedis(); err != nil {
		return err
	}
	return c.validateFailure()
}

// ValidateWorkerConfig checks the settings the worker service needs
func (c *Config) ValidateWorkerConfig() error {
	if err := c.validateRedis(); err != nil {
		return err
	}

	if len(c.Worker.Queues) == 0 {
		return fmt.Errorf("worker queues are required")
	}
	for _, q := range c.Worker.Queues {
		if q == "" {
			return fmt.Errorf("worker queue names must not be empty")
		}
	}

	if c.Worker.Interval < 0 {
		return fmt.Errorf("worker interval must not be negative")
	}

	if c.Worker.Concurrency < 0 {
		return fmt.Errorf("worker concurrency must not be negative")
	}

	if c.Worker.ShutdownTimeout <= 0 {
		return fmt.Errorf("worker shutdown_timeout must be greater than 0")
	}

	if c.Metrics.Enabled && (c.Metrics.Port < MinPort || c.Metrics.Port > MaxPort) {
		return fmt.Errorf("invalid metrics port: %d (must be between %d and %d)", c.Metrics.Port, MinPort, MaxPort)
	}

	if err := c.validateFailure(); err != nil {
		return err
	}
	return c.validateRabbitMQ()
}

func (c *Config) validateRedis() error {
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("invalid redis db: %d", c.Redis.DB)
	}
	return nil
}

func (c *Config) validateFailure() error {
	switch c.Failure.Backend {
	case FailureBackendRedis:
		return nil
	case FailureBackendSQLite:
		if c.Failure.SQLitePath == "" {
			return fmt.Errorf("failure sqlite_path is required")
		}
		return nil
	case FailureBackendPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.Port < MinPort || c.Database.Port > MaxPort {
			return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		return nil
	default:
		return fmt.Errorf("unknown failure backend: %q", c.Failure.Backend)
	}
}

func (c *Config) validateRabbitMQ() error {
	if !c.RabbitMQ.Enabled {
		return nil
	}
	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}
	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}
	if c.RabbitMQ.Exchange.Name == "" {
		return fmt.Errorf("rabbitmq exchange name is required")
	}
	return nil
}
