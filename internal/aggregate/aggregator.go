package aggregate

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// closeBuffer keeps the window clear of rows still in flight through the
// consumer pipeline
const closeBuffer = 30 * time.Second

// DB is the subset of pgxpool.Pool the aggregator needs
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// CameraSummary is one camera's rollup for a time bucket
type CameraSummary struct {
	CameraID            int
	TimeBucket          time.Time
	TotalFrames         int
	FramesWithDetection int
	DetectionRate       float64
}

// ClassStats is one object class's rollup within a camera bucket
type ClassStats struct {
	ClassID        int
	DetectionCount int
	AvgConfidence  float64
	FirstSeen      time.Time
	LastSeen       time.Time
}

// Aggregator rolls raw camera events and detections up into the 5-minute
// aggregation tables. One Run processes the most recent closed bucket and is
// idempotent: re-running a bucket overwrites its rows.
type Aggregator struct {
	db     DB
	period time.Duration
	log    *zap.Logger
}

// NewAggregator creates an aggregator with the given bucket width
func NewAggregator(db DB, period time.Duration, log *zap.Logger) *Aggregator {
	return &Aggregator{
		db:     db,
		period: period,
		log:    log,
	}
}

// WindowFor returns the most recent closed bucket [start, end) as of now,
// leaving a short buffer so in-flight rows are not missed
func (a *Aggregator) WindowFor(now time.Time) (time.Time, time.Time) {
	end := now.Add(-closeBuffer).Truncate(a.period)
	return end.Add(-a.period), end
}

// Run aggregates the most recent closed bucket. cameraID restricts the run
// to one camera when positive; zero means all cameras seen in the window.
func (a *Aggregator) Run(ctx context.Context, now time.Time, cameraID int) ([]CameraSummary, error) {
	start, end := a.WindowFor(now)

	a.log.Info("Aggregating bucket",
		zap.Time("start", start),
		zap.Time("end", end),
		zap.Int("camera_id", cameraID))

	summaries, err := a.querySummaries(ctx, start, end, cameraID)
	if err != nil {
		return nil, err
	}

	for i := range summaries {
		if err := a.storeSummary(ctx, &summaries[i], start, end); err != nil {
			return nil, err
		}
	}

	a.log.Info("Aggregation complete", zap.Int("cameras", len(summaries)))
	return summaries, nil
}

func (a *Aggregator) querySummaries(ctx context.Context, start, end time.Time, cameraID int) ([]CameraSummary, error) {
	query := `
		SELECT camera_id,
		       count(*) AS total_frames,
		       count(*) FILTER (WHERE has_detection) AS frames_with_detection
		FROM camera_events_raw
		WHERE event_time >= $1 AND event_time < $2`
	args := []any{start, end}

	if cameraID > 0 {
		query += ` AND camera_id = $3`
		args = append(args, cameraID)
	}
	query += ` GROUP BY camera_id ORDER BY camera_id`

	rows, err := a.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query event summaries: %w", err)
	}
	defer rows.Close()

	var summaries []CameraSummary
	for rows.Next() {
		s := CameraSummary{TimeBucket: start}
		if err := rows.Scan(&s.CameraID, &s.TotalFrames, &s.FramesWithDetection); err != nil {
			return nil, fmt.Errorf("failed to scan event summary: %w", err)
		}
		s.DetectionRate = DetectionRate(s.FramesWithDetection, s.TotalFrames)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event summaries: %w", err)
	}

	return summaries, nil
}

// storeSummary upserts the camera summary row and replaces its class stats
func (a *Aggregator) storeSummary(ctx context.Context, s *CameraSummary, start, end time.Time) error {
	var aggregationID int64
	row := a.db.QueryRow(ctx, `
		INSERT INTO camera_aggregations_5min
			(camera_id, time_bucket, total_frames, frames_with_detection, detection_rate)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (camera_id, time_bucket) DO UPDATE
		SET total_frames          = EXCLUDED.total_frames,
		    frames_with_detection = EXCLUDED.frames_with_detection,
		    detection_rate        = EXCLUDED.detection_rate
		RETURNING id`,
		s.CameraID, s.TimeBucket, s.TotalFrames, s.FramesWithDetection, s.DetectionRate)
	if err := row.Scan(&aggregationID); err != nil {
		return fmt.Errorf("failed to upsert summary for camera %d: %w", s.CameraID, err)
	}

	if _, err := a.db.Exec(ctx,
		`DELETE FROM camera_aggregation_class_stats_5min WHERE aggregation_id = $1`,
		aggregationID); err != nil {
		return fmt.Errorf("failed to clear class stats for camera %d: %w", s.CameraID, err)
	}

	stats, err := a.queryClassStats(ctx, s.CameraID, start, end)
	if err != nil {
		return err
	}

	for _, cs := range stats {
		if _, err := a.db.Exec(ctx, `
			INSERT INTO camera_aggregation_class_stats_5min
				(aggregation_id, class_id, detection_count, avg_confidence, first_seen, last_seen)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			aggregationID, cs.ClassID, cs.DetectionCount, cs.AvgConfidence, cs.FirstSeen, cs.LastSeen); err != nil {
			return fmt.Errorf("failed to insert class stats for camera %d class %d: %w",
				s.CameraID, cs.ClassID, err)
		}
	}

	return nil
}

func (a *Aggregator) queryClassStats(ctx context.Context, cameraID int, start, end time.Time) ([]ClassStats, error) {
	rows, err := a.db.Query(ctx, `
		SELECT class_id,
		       count(*) AS detection_count,
		       avg(confidence) AS avg_confidence,
		       min(event_time) AS first_seen,
		       max(event_time) AS last_seen
		FROM camera_detections_raw
		WHERE camera_id = $1 AND event_time >= $2 AND event_time < $3
		GROUP BY class_id
		ORDER BY class_id`,
		cameraID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query class stats: %w", err)
	}
	defer rows.Close()

	var stats []ClassStats
	for rows.Next() {
		var cs ClassStats
		if err := rows.Scan(&cs.ClassID, &cs.DetectionCount, &cs.AvgConfidence, &cs.FirstSeen, &cs.LastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan class stats: %w", err)
		}
		stats = append(stats, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating class stats: %w", err)
	}

	return stats, nil
}

// DetectionRate returns framesWithDetection/totalFrames clamped to [0, 1]
func DetectionRate(framesWithDetection, totalFrames int) float64 {
	if totalFrames <= 0 {
		return 0
	}
	rate := float64(framesWithDetection) / float64(totalFrames)
	if rate > 1 {
		return 1
	}
	return rate
}
