package consumer

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/config"
	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/repository"
	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/stream"
)

// Consumer orchestrates a pipeline of stages to process stream messages
type Consumer struct {
	receiver    *Receiver
	parser      *ParserStage
	batchWriter *BatchWriter
}

// NewConsumer creates a new consumer with a pipeline architecture
func NewConsumer(cfg *config.Config, streamConsumer stream.Consumer, repo repository.EventRepository, log *zap.Logger) *Consumer {
	receiver := NewReceiver(streamConsumer, ReceiverConfig{
		MaxMessages: int64(cfg.ProcessingBatchSize),
		BlockTime:   cfg.BatchTimeout(),
		BufferSize:  100,
	}, log)

	parser := NewParserStage(streamConsumer, NewCameraEventParser(), log)

	batchWriter := NewBatchWriter(repo, BatchWriterConfig{
		MaxBatchSize: cfg.ProcessingBatchSize,
		FlushTimeout: cfg.BatchTimeout(),
	}, log)

	return &Consumer{
		receiver:    receiver,
		parser:      parser,
		batchWriter: batchWriter,
	}
}

// Start begins the consumer pipeline
func (c *Consumer) Start(ctx context.Context) error {
	messageChan := make(chan stream.Message, 100)
	envelopeChan := make(chan *Envelope, 100)

	var wg sync.WaitGroup

	// Start all pipeline stages
	wg.Add(3)

	// Stage 1: Read messages from the stream
	go func() {
		defer wg.Done()
		c.receiver.Start(ctx, messageChan)
	}()

	// Stage 2: Parse messages into envelopes
	go func() {
		defer wg.Done()
		c.parser.Start(ctx, messageChan, envelopeChan)
	}()

	// Stage 3: Batch and write to the repository
	go func() {
		defer wg.Done()
		c.batchWriter.Start(ctx, envelopeChan)
	}()

	wg.Wait()
	return nil
}
