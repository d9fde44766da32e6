package consumer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/domain"
	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/repository"
)

// BatchWriterConfig configures the batch writer
type BatchWriterConfig struct {
	MaxBatchSize int
	FlushTimeout time.Duration
}

// BatchWriter handles batching and writing events and detections to the
// repository
type BatchWriter struct {
	repository repository.EventRepository
	config     BatchWriterConfig
	log        *zap.Logger
}

// NewBatchWriter creates a new batch writer
func NewBatchWriter(repo repository.EventRepository, config BatchWriterConfig, log *zap.Logger) *BatchWriter {
	return &BatchWriter{
		repository: repo,
		config:     config,
		log:        log,
	}
}

// Start begins processing envelopes, batching, and writing to the repository
func (w *BatchWriter) Start(ctx context.Context, in <-chan *Envelope) {
	ticker := time.NewTicker(w.config.FlushTimeout)
	defer ticker.Stop()

	batch := make([]*Envelope, 0, w.config.MaxBatchSize)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Batch writer shutting down")
			if len(batch) > 0 {
				w.log.Info("Flushing final batch", zap.Int("envelope_count", len(batch)))
				w.processBatch(context.Background(), batch)
			}
			return

		case envelope, ok := <-in:
			if !ok {
				w.log.Info("Batch writer input channel closed")
				if len(batch) > 0 {
					w.log.Info("Flushing final batch", zap.Int("envelope_count", len(batch)))
					w.processBatch(ctx, batch)
				}
				return
			}

			batch = append(batch, envelope)

			if len(batch) >= w.config.MaxBatchSize {
				w.log.Info("Batch size threshold reached", zap.Int("batch_size", len(batch)))
				w.processBatch(ctx, batch)
				batch = make([]*Envelope, 0, w.config.MaxBatchSize)
				ticker.Reset(w.config.FlushTimeout)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				w.log.Info("Batch timeout reached", zap.Int("envelope_count", len(batch)))
				w.processBatch(ctx, batch)
				batch = make([]*Envelope, 0, w.config.MaxBatchSize)
			}
		}
	}
}

// processBatch inserts events then detections, and acks on success. Any
// insert failure nacks the whole batch so the messages are redelivered.
func (w *BatchWriter) processBatch(ctx context.Context, envelopes []*Envelope) {
	if len(envelopes) == 0 {
		return
	}

	events := make([]*domain.CameraEvent, len(envelopes))
	var detections []*domain.CameraDetection
	for i, env := range envelopes {
		events[i] = env.Event
		detections = append(detections, env.Detections...)
	}

	eventsInserted, err := w.repository.InsertEvents(ctx, events)
	if err != nil {
		w.log.Error("Failed to insert events",
			zap.Error(err),
			zap.Int("event_count", len(events)))
		w.nackAll(ctx, envelopes)
		return
	}

	if eventsInserted != len(events) {
		w.log.Warn("Partial event insert",
			zap.Int("inserted", eventsInserted),
			zap.Int("expected", len(events)))
		w.nackAll(ctx, envelopes)
		return
	}

	detectionsInserted, err := w.repository.InsertDetections(ctx, detections)
	if err != nil {
		w.log.Error("Failed to insert detections",
			zap.Error(err),
			zap.Int("detection_count", len(detections)))
		w.nackAll(ctx, envelopes)
		return
	}

	w.log.Info("Successfully inserted batch",
		zap.Int("events", eventsInserted),
		zap.Int("detections", detectionsInserted))
	w.ackAll(ctx, envelopes)
}

// ackAll acknowledges all envelopes in the stream
func (w *BatchWriter) ackAll(ctx context.Context, envelopes []*Envelope) {
	for _, env := range envelopes {
		if err := env.Ack(ctx); err != nil {
			w.log.Error("Failed to ack envelope", zap.Error(err))
		}
	}
}

// nackAll negatively acknowledges all envelopes (leaves them pending for
// redelivery)
func (w *BatchWriter) nackAll(ctx context.Context, envelopes []*Envelope) {
	for _, env := range envelopes {
		if err := env.Nack(ctx); err != nil {
			w.log.Error("Failed to nack envelope", zap.Error(err))
		}
	}
}
