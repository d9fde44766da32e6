package consumer

import (
	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/domain"
	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/stream"
)

// MessageParser defines the interface for parsing a raw stream message into
// a camera event plus its detections
type MessageParser interface {
	Parse(msg stream.Message) (*domain.CameraEvent, []*domain.CameraDetection, error)
}
