package consumer

import (
	"context"

	"go.uber.org/zap"

	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/stream"
)

// ParserStage handles parsing stream messages into domain envelopes
type ParserStage struct {
	consumer stream.Consumer
	parser   MessageParser
	log      *zap.Logger
}

// NewParserStage creates a new parser stage
func NewParserStage(consumer stream.Consumer, parser MessageParser, log *zap.Logger) *ParserStage {
	return &ParserStage{
		consumer: consumer,
		parser:   parser,
		log:      log,
	}
}

// Start begins parsing messages and outputs envelopes
func (p *ParserStage) Start(ctx context.Context, in <-chan stream.Message, out chan<- *Envelope) {
	defer close(out)

	for {
		select {
		case <-ctx.Done():
			p.log.Info("Parser stage shutting down")
			return
		case msg, ok := <-in:
			if !ok {
				p.log.Info("Parser stage input channel closed")
				return
			}

			envelope := p.parseMessage(ctx, msg)
			if envelope == nil {
				continue
			}

			select {
			case <-ctx.Done():
				return
			case out <- envelope:
				// Envelope sent to next stage
			}
		}
	}
}

// parseMessage parses a single stream message into an envelope. Malformed
// messages are acknowledged away so they do not pile up in the pending list.
func (p *ParserStage) parseMessage(ctx context.Context, msg stream.Message) *Envelope {
	event, detections, err := p.parser.Parse(msg)
	if err != nil {
		p.log.Warn("Failed to parse message",
			zap.String("message_id", msg.ID),
			zap.Error(err))
		if _, ackErr := p.consumer.Ack(ctx, msg.ID); ackErr != nil {
			p.log.Error("Failed to discard malformed message",
				zap.String("message_id", msg.ID),
				zap.Error(ackErr))
		}
		return nil
	}

	ack := func(ctx context.Context) error {
		_, err := p.consumer.Ack(ctx, msg.ID)
		return err
	}

	nack := func(ctx context.Context) error {
		// Unacked messages stay in the group's pending list and are
		// redelivered when the consumer restarts.
		return nil
	}

	return NewEnvelope(event, detections, ack, nack)
}
