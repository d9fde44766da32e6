package repository

import (
	"context"

	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/domain"
)

// EventRepository defines the interface for raw event storage operations
type EventRepository interface {
	// InsertEvents bulk inserts camera events into camera_events_raw
	InsertEvents(ctx context.Context, events []*domain.CameraEvent) (int, error)

	// InsertDetections bulk inserts detections into camera_detections_raw
	InsertDetections(ctx context.Context, detections []*domain.CameraDetection) (int, error)

	// EnsureSchema brings the database to the desired schema state
	// (tables, hypertables, indexes, retention policies); safe to run repeatedly
	EnsureSchema(ctx context.Context) error

	// Ping checks if the database connection is alive
	Ping(ctx context.Context) error

	// Close closes the repository and releases resources
	Close() error
}
