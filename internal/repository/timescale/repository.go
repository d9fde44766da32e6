package timescale

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/domain"
)

var eventColumns = []string{
	"camera_id",
	"event_time",
	"frame_number",
	"has_detection",
	"detection_count",
	"processing_time_ms",
	"stream_lag_ms",
}

var detectionColumns = []string{
	"event_time",
	"camera_id",
	"class_id",
	"confidence",
	"photo_url",
	"coord_x",
	"coord_y",
	"region_ids",
	"bbox_width",
	"bbox_height",
	"object_id",
	"track_id",
}

// Repository implements repository.EventRepository for TimescaleDB
type Repository struct {
	client      *Client
	provisioner *Provisioner
	log         *zap.Logger
}

// NewRepository creates a new TimescaleDB repository
func NewRepository(client *Client, provisioner *Provisioner, log *zap.Logger) *Repository {
	return &Repository{
		client:      client,
		provisioner: provisioner,
		log:         log,
	}
}

// EnsureSchema runs the schema provisioner against the target database
func (r *Repository) EnsureSchema(ctx context.Context) error {
	return r.provisioner.Run(ctx)
}

// InsertEvents bulk inserts camera events using COPY, which is much faster
// than row-at-a-time inserts at camera frame rates.
func (r *Repository) InsertEvents(ctx context.Context, events []*domain.CameraEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	count, err := r.client.Pool().CopyFrom(ctx,
		pgx.Identifier{"camera_events_raw"},
		eventColumns,
		pgx.CopyFromSlice(len(events), func(i int) ([]any, error) {
			e := events[i]
			return []any{
				e.CameraID,
				e.EventTime,
				e.FrameNumber,
				e.HasDetection,
				e.DetectionCount,
				e.ProcessingTimeMS,
				e.StreamLagMS,
			}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to copy camera events: %w", err)
	}

	r.log.Info("Inserted camera events", zap.Int64("count", count))
	return int(count), nil
}

// InsertDetections bulk inserts detections using COPY
func (r *Repository) InsertDetections(ctx context.Context, detections []*domain.CameraDetection) (int, error) {
	if len(detections) == 0 {
		return 0, nil
	}

	count, err := r.client.Pool().CopyFrom(ctx,
		pgx.Identifier{"camera_detections_raw"},
		detectionColumns,
		pgx.CopyFromSlice(len(detections), func(i int) ([]any, error) {
			d := detections[i]
			return []any{
				d.EventTime,
				d.CameraID,
				d.ClassID,
				d.Confidence,
				d.PhotoURL,
				d.CoordX,
				d.CoordY,
				regionIDsValue(d.RegionIDs),
				d.BBoxWidth,
				d.BBoxHeight,
				d.ObjectID,
				d.TrackID,
			}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to copy camera detections: %w", err)
	}

	r.log.Info("Inserted camera detections", zap.Int64("count", count))
	return int(count), nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Pool().Ping(ctx)
}

// Close closes the underlying connection pool
func (r *Repository) Close() error {
	r.client.Close()
	return nil
}

// regionIDsValue maps a nil slice to SQL NULL and converts to int32 for the
// integer[] column
func regionIDsValue(ids []int) any {
	if ids == nil {
		return nil
	}
	out := make([]int32, len(ids))
	for i, id := range ids {
		out[i] = int32(id)
	}
	return out
}
