package timescale

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// Execer is the subset of pgxpool.Pool the provisioner needs
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Step is one named, idempotent provisioning statement
type Step struct {
	Name      string
	Statement string
}

// Provisioner brings a target database to the desired schema state. Every
// statement is guarded by an existence check, so running it repeatedly or
// after a partial failure is safe. There is no rollback beyond the
// database's own DDL transaction semantics.
type Provisioner struct {
	db                Execer
	retentionInterval string
	log               *zap.Logger
}

// NewProvisioner creates a schema provisioner. retentionInterval is a
// PostgreSQL interval literal, e.g. "1 year".
func NewProvisioner(db Execer, retentionInterval string, log *zap.Logger) *Provisioner {
	return &Provisioner{
		db:                db,
		retentionInterval: retentionInterval,
		log:               log,
	}
}

// Run executes all provisioning steps in order: extension, tables,
// hypertables, indexes, retention policies. The first failure aborts and
// surfaces the underlying database error wrapped with the step name.
func (p *Provisioner) Run(ctx context.Context) error {
	steps := p.Steps()

	for _, step := range steps {
		if _, err := p.db.Exec(ctx, step.Statement); err != nil {
			p.log.Error("Provisioning step failed",
				zap.String("step", step.Name),
				zap.Error(err))
			return fmt.Errorf("provisioning step %q failed: %w", step.Name, err)
		}
		p.log.Debug("Provisioning step applied", zap.String("step", step.Name))
	}

	p.log.Info("Schema provisioned successfully", zap.Int("steps", len(steps)))
	return nil
}

// Steps returns the full ordered provisioning plan
func (p *Provisioner) Steps() []Step {
	var steps []Step
	steps = append(steps, p.extensionStep())
	steps = append(steps, p.tableSteps()...)
	steps = append(steps, p.hypertableSteps()...)
	steps = append(steps, p.indexSteps()...)
	steps = append(steps, p.retentionSteps()...)
	return steps
}

func (p *Provisioner) extensionStep() Step {
	return Step{
		Name:      "ensure_extension_timescaledb",
		Statement: `CREATE EXTENSION IF NOT EXISTS timescaledb`,
	}
}

func (p *Provisioner) tableSteps() []Step {
	return []Step{
		{
			Name: "ensure_table_camera_events_raw",
			Statement: `
			CREATE TABLE IF NOT EXISTS camera_events_raw (
				camera_id          INTEGER     NOT NULL CHECK (camera_id > 0),
				event_time         TIMESTAMPTZ NOT NULL,
				frame_number       INTEGER     CHECK (frame_number >= 0),
				has_detection      BOOLEAN     NOT NULL DEFAULT FALSE,
				detection_count    INTEGER     NOT NULL DEFAULT 0 CHECK (detection_count >= 0),
				processing_time_ms INTEGER     CHECK (processing_time_ms > 0),
				stream_lag_ms      INTEGER     CHECK (stream_lag_ms >= 0)
			)`,
		},
		{
			Name: "ensure_table_camera_detections_raw",
			Statement: `
			CREATE TABLE IF NOT EXISTS camera_detections_raw (
				event_time  TIMESTAMPTZ NOT NULL,
				camera_id   INTEGER     NOT NULL CHECK (camera_id > 0),
				class_id    INTEGER     NOT NULL CHECK (class_id > 0),
				confidence  INTEGER     NOT NULL CHECK (confidence >= 0 AND confidence <= 100),
				photo_url   TEXT,
				coord_x     INTEGER     CHECK (coord_x >= 0),
				coord_y     INTEGER     CHECK (coord_y >= 0),
				region_ids  INTEGER[],
				bbox_width  INTEGER     CHECK (bbox_width > 0),
				bbox_height INTEGER     CHECK (bbox_height > 0),
				object_id   TEXT,
				track_id    INTEGER     CHECK (track_id > 0)
			)`,
		},
		{
			Name: "ensure_table_camera_aggregations_5min",
			Statement: `
			CREATE TABLE IF NOT EXISTS camera_aggregations_5min (
				id                    BIGSERIAL        PRIMARY KEY,
				camera_id             INTEGER          NOT NULL CHECK (camera_id > 0),
				time_bucket           TIMESTAMPTZ      NOT NULL,
				total_frames          INTEGER          NOT NULL CHECK (total_frames >= 0),
				frames_with_detection INTEGER          NOT NULL CHECK (frames_with_detection >= 0),
				detection_rate        DOUBLE PRECISION NOT NULL CHECK (detection_rate >= 0 AND detection_rate <= 1),
				created_at            TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
				UNIQUE (camera_id, time_bucket)
			)`,
		},
		{
			Name: "ensure_table_camera_aggregation_class_stats_5min",
			Statement: `
			CREATE TABLE IF NOT EXISTS camera_aggregation_class_stats_5min (
				id              BIGSERIAL        PRIMARY KEY,
				aggregation_id  BIGINT           NOT NULL REFERENCES camera_aggregations_5min(id) ON DELETE CASCADE,
				class_id        INTEGER          NOT NULL CHECK (class_id > 0),
				detection_count INTEGER          NOT NULL CHECK (detection_count >= 0),
				avg_confidence  DOUBLE PRECISION NOT NULL CHECK (avg_confidence >= 0 AND avg_confidence <= 100),
				first_seen      TIMESTAMPTZ,
				last_seen       TIMESTAMPTZ
			)`,
		},
	}
}

func (p *Provisioner) hypertableSteps() []Step {
	return []Step{
		{
			Name:      "ensure_hypertable_camera_events_raw",
			Statement: `SELECT create_hypertable('camera_events_raw', 'event_time', if_not_exists => TRUE)`,
		},
		{
			Name:      "ensure_hypertable_camera_detections_raw",
			Statement: `SELECT create_hypertable('camera_detections_raw', 'event_time', if_not_exists => TRUE)`,
		},
	}
}

func (p *Provisioner) indexSteps() []Step {
	return []Step{
		{
			Name: "ensure_index_camera_events_camera_time",
			Statement: `CREATE INDEX IF NOT EXISTS idx_camera_events_camera_time
				ON camera_events_raw (camera_id, event_time DESC)`,
		},
		{
			// Partial: the common case is a frame with no detection, keep it
			// out of the index.
			Name: "ensure_index_camera_events_detection",
			Statement: `CREATE INDEX IF NOT EXISTS idx_camera_events_detection
				ON camera_events_raw (camera_id, event_time DESC)
				WHERE has_detection = TRUE`,
		},
		{
			Name: "ensure_index_camera_detections_camera_time",
			Statement: `CREATE INDEX IF NOT EXISTS idx_camera_detections_camera_time
				ON camera_detections_raw (camera_id, event_time DESC)`,
		},
		{
			Name: "ensure_index_camera_detections_class_time",
			Statement: `CREATE INDEX IF NOT EXISTS idx_camera_detections_class_time
				ON camera_detections_raw (class_id, event_time DESC)`,
		},
		{
			Name: "ensure_index_aggregation_class_stats_aggregation",
			Statement: `CREATE INDEX IF NOT EXISTS idx_aggregation_class_stats_aggregation
				ON camera_aggregation_class_stats_5min (aggregation_id)`,
		},
	}
}

func (p *Provisioner) retentionSteps() []Step {
	return []Step{
		{
			Name: "ensure_retention_camera_events_raw",
			Statement: fmt.Sprintf(
				`SELECT add_retention_policy('camera_events_raw', INTERVAL '%s', if_not_exists => TRUE)`,
				p.retentionInterval),
		},
		{
			Name: "ensure_retention_camera_detections_raw",
			Statement: fmt.Sprintf(
				`SELECT add_retention_policy('camera_detections_raw', INTERVAL '%s', if_not_exists => TRUE)`,
				p.retentionInterval),
		},
	}
}
