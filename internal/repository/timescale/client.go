package timescale

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/config"
)

// Client wraps the TimescaleDB connection pool
type Client struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// NewClient creates a new TimescaleDB client with the given configuration
func NewClient(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Client, error) {
	log.Info("Connecting to TimescaleDB",
		zap.String("host", cfg.DatabaseHost),
		zap.Int("port", cfg.DatabasePort),
		zap.String("database", cfg.DatabaseName),
		zap.Int("pool_size", cfg.DatabasePoolSize))

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Error("Failed to create connection pool", zap.Error(err))
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		log.Error("Failed to ping TimescaleDB", zap.Error(err))
		return nil, fmt.Errorf("failed to ping TimescaleDB: %w", err)
	}

	log.Info("TimescaleDB connection established successfully")

	return &Client{pool: pool, log: log}, nil
}

// Pool returns the underlying connection pool
func (c *Client) Pool() *pgxpool.Pool {
	return c.pool
}

// Close closes the connection pool
func (c *Client) Close() {
	c.log.Info("Closing TimescaleDB connection pool")
	c.pool.Close()
}
