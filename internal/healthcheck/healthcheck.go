package healthcheck

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// StreamStore is the view of the cache/stream store the checker needs
type StreamStore interface {
	Ping(ctx context.Context) error
	StreamLen(ctx context.Context) (int64, error)
}

// Database is the view of the time-series database the checker needs;
// pgxpool.Pool satisfies it
type Database interface {
	Ping(ctx context.Context) error
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Result is the outcome of a single connectivity check
type Result struct {
	Name string
	Err  error
}

// OK reports whether the check passed
func (r Result) OK() bool {
	return r.Err == nil
}

// Checker verifies that the stream store and the time-series database are
// reachable and minimally functional. It is a setup/verification utility;
// nothing is retried.
type Checker struct {
	store      StreamStore
	db         Database
	hypertable []string
	log        *zap.Logger
}

// NewChecker creates a connectivity checker for the given dependencies
func NewChecker(store StreamStore, db Database, log *zap.Logger) *Checker {
	return &Checker{
		store:      store,
		db:         db,
		hypertable: []string{"camera_events_raw", "camera_detections_raw"},
		log:        log,
	}
}

// Run executes all checks and returns their results. Every check runs even
// if an earlier one fails, so the operator sees the full picture at once.
func (c *Checker) Run(ctx context.Context) []Result {
	results := []Result{
		{Name: "redis_ping", Err: c.store.Ping(ctx)},
		{Name: "redis_stream", Err: c.checkStream(ctx)},
		{Name: "database_ping", Err: c.db.Ping(ctx)},
		{Name: "database_hypertables", Err: c.checkHypertables(ctx)},
	}

	for _, res := range results {
		if res.OK() {
			c.log.Info("Check passed", zap.String("check", res.Name))
		} else {
			c.log.Error("Check failed", zap.String("check", res.Name), zap.Error(res.Err))
		}
	}

	return results
}

// Healthy reports whether every check in results passed
func Healthy(results []Result) bool {
	for _, res := range results {
		if !res.OK() {
			return false
		}
	}
	return true
}

func (c *Checker) checkStream(ctx context.Context) error {
	length, err := c.store.StreamLen(ctx)
	if err != nil {
		return fmt.Errorf("stream not readable: %w", err)
	}
	c.log.Debug("Stream readable", zap.Int64("length", length))
	return nil
}

// checkHypertables verifies both raw tables are registered as hypertables,
// i.e. provisioning ran and time partitioning is active
func (c *Checker) checkHypertables(ctx context.Context) error {
	var count int
	row := c.db.QueryRow(ctx,
		`SELECT count(*) FROM timescaledb_information.hypertables WHERE hypertable_name = ANY($1)`,
		c.hypertable)
	if err := row.Scan(&count); err != nil {
		return fmt.Errorf("failed to query hypertable catalog: %w", err)
	}

	if count != len(c.hypertable) {
		return fmt.Errorf("expected %d hypertables, found %d (run provisioning first)",
			len(c.hypertable), count)
	}
	return nil
}
