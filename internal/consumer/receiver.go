package consumer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/stream"
)

// ReceiverConfig configures the stream receiver
type ReceiverConfig struct {
	MaxMessages int64
	BlockTime   time.Duration
	BufferSize  int
}

// Receiver handles reading messages from the event stream
type Receiver struct {
	consumer stream.Consumer
	config   ReceiverConfig
	log      *zap.Logger
}

// NewReceiver creates a new stream receiver
func NewReceiver(consumer stream.Consumer, config ReceiverConfig, log *zap.Logger) *Receiver {
	return &Receiver{
		consumer: consumer,
		config:   config,
		log:      log,
	}
}

// Start begins reading messages and sends them to the output channel
func (r *Receiver) Start(ctx context.Context, out chan<- stream.Message) {
	defer close(out)

	for {
		select {
		case <-ctx.Done():
			r.log.Info("Receiver shutting down")
			return
		default:
			messages, err := r.consumer.Read(ctx, r.config.MaxMessages, r.config.BlockTime)
			if err != nil {
				if ctx.Err() != nil {
					r.log.Info("Receiver shutting down")
					return
				}
				r.log.Error("Error reading from stream", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}

			if len(messages) == 0 {
				continue
			}

			r.log.Info("Received messages from stream", zap.Int("message_count", len(messages)))

			// Send messages to the next stage
			for _, msg := range messages {
				select {
				case <-ctx.Done():
					r.log.Info("Receiver shutting down while sending messages")
					return
				case out <- msg:
					// Message sent to next stage
				}
			}
		}
	}
}
