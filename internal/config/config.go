package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServiceEnvironment string `envconfig:"SERVICE_ENVIRONMENT" default:"development"`
	LogLevel           string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"gozcu"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"postgres"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" default:"postgres"`
	DatabasePoolSize int    `envconfig:"DATABASE_POOL_SIZE" default:"10"`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSLMODE" default:"disable"`

	RedisHost          string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort          int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisStreamKey     string `envconfig:"REDIS_STREAM_KEY" default:"camera_events"`
	RedisConsumerGroup string `envconfig:"REDIS_CONSUMER_GROUP" default:"processor_group"`
	RedisConsumerName  string `envconfig:"REDIS_CONSUMER_NAME" default:"processor_1"`

	ProcessingBatchSize       int `envconfig:"PROCESSING_BATCH_SIZE" default:"100"`
	ProcessingBatchTimeoutSec int `envconfig:"PROCESSING_BATCH_TIMEOUT_SEC" default:"5"`
	ProcessingMaxRetries      int `envconfig:"PROCESSING_MAX_RETRIES" default:"3"`

	ConsumerHealthCheckPort string `envconfig:"CONSUMER_HEALTH_CHECK_PORT" default:"8081"`

	RetentionInterval      string `envconfig:"RETENTION_INTERVAL" default:"1 year"`
	AggregatePeriodMinutes int    `envconfig:"AGGREGATE_PERIOD_MINUTES" default:"5"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

// DatabaseDSN returns a pgx-compatible connection string
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d",
		c.DatabaseUser, c.DatabasePassword, c.DatabaseHost, c.DatabasePort,
		c.DatabaseName, c.DatabaseSSLMode, c.DatabasePoolSize)
}

// RedisAddr returns the host:port address of the Redis server
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// BatchTimeout returns the batch flush timeout as a duration
func (c *Config) BatchTimeout() time.Duration {
	return time.Duration(c.ProcessingBatchTimeoutSec) * time.Second
}

// AggregatePeriod returns the aggregation bucket width as a duration
func (c *Config) AggregatePeriod() time.Duration {
	return time.Duration(c.AggregatePeriodMinutes) * time.Minute
}
