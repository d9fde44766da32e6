package consumer

import (
	"context"

	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/domain"
)

// Envelope wraps a parsed camera event and its detections with
// acknowledgment callbacks
type Envelope struct {
	Event      *domain.CameraEvent
	Detections []*domain.CameraDetection
	ack        func(context.Context) error
	nack       func(context.Context) error
}

// NewEnvelope creates a new message envelope
func NewEnvelope(event *domain.CameraEvent, detections []*domain.CameraDetection, ack, nack func(context.Context) error) *Envelope {
	return &Envelope{
		Event:      event,
		Detections: detections,
		ack:        ack,
		nack:       nack,
	}
}

// Ack acknowledges successful processing
func (e *Envelope) Ack(ctx context.Context) error {
	if e.ack != nil {
		return e.ack(ctx)
	}
	return nil
}

// Nack negatively acknowledges processing
func (e *Envelope) Nack(ctx context.Context) error {
	if e.nack != nil {
		return e.nack(ctx)
	}
	return nil
}
