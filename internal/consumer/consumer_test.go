package consumer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/config"
	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/stream"
)

func testConfig() *config.Config {
	return &config.Config{
		ProcessingBatchSize:       10,
		ProcessingBatchTimeoutSec: 1,
	}
}

func TestConsumer_Start_PipelineCoordination(t *testing.T) {
	mockConsumer := new(MockStreamConsumer)
	mockRepo := new(MockEventRepository)
	log := zap.NewNop()

	messages := []stream.Message{
		{
			ID: "1700000000000-0",
			Values: map[string]string{
				"camera_id":  "1",
				"event_time": "2025-11-06T10:30:00Z",
			},
		},
	}

	mockConsumer.On("Read", mock.Anything, mock.Anything, mock.Anything).
		Return(messages, nil).Once()
	mockConsumer.On("Read", mock.Anything, mock.Anything, mock.Anything).
		Return([]stream.Message{}, nil).Maybe()
	mockConsumer.On("Ack", mock.Anything, []string{"1700000000000-0"}).
		Return(int64(1), nil)

	mockRepo.On("InsertEvents", mock.Anything, mock.Anything).Return(1, nil)
	mockRepo.On("InsertDetections", mock.Anything, mock.Anything).Return(0, nil)

	c := NewConsumer(testConfig(), mockConsumer, mockRepo, log)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	// Start blocks until the pipeline drains after cancellation; the final
	// flush writes the single-message batch
	err := c.Start(ctx)
	assert.NoError(t, err)

	mockRepo.AssertCalled(t, "InsertEvents", mock.Anything, mock.Anything)
	mockConsumer.AssertCalled(t, "Ack", mock.Anything, []string{"1700000000000-0"})
}

func TestConsumer_Start_GracefulShutdown(t *testing.T) {
	mockConsumer := new(MockStreamConsumer)
	mockRepo := new(MockEventRepository)
	log := zap.NewNop()

	mockConsumer.On("Read", mock.Anything, mock.Anything, mock.Anything).
		Return([]stream.Message{}, nil).Maybe()

	c := NewConsumer(testConfig(), mockConsumer, mockRepo, log)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan bool)
	go func() {
		err := c.Start(ctx)
		assert.NoError(t, err)
		done <- true
	}()

	// Let it run for a bit
	time.Sleep(50 * time.Millisecond)

	// Cancel context to trigger shutdown
	cancel()

	// Wait for shutdown
	select {
	case <-done:
		// Shutdown completed successfully
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Graceful shutdown took too long")
	}
}

func TestConsumer_NewConsumer_ComponentInitialization(t *testing.T) {
	mockConsumer := new(MockStreamConsumer)
	mockRepo := new(MockEventRepository)
	log := zap.NewNop()

	c := NewConsumer(testConfig(), mockConsumer, mockRepo, log)

	assert.NotNil(t, c)
	assert.NotNil(t, c.receiver)
	assert.NotNil(t, c.parser)
	assert.NotNil(t, c.batchWriter)
}

func TestConsumer_Start_EmptyStreamScenario(t *testing.T) {
	mockConsumer := new(MockStreamConsumer)
	mockRepo := new(MockEventRepository)
	log := zap.NewNop()

	mockConsumer.On("Read", mock.Anything, mock.Anything, mock.Anything).
		Return([]stream.Message{}, nil).Maybe()

	c := NewConsumer(testConfig(), mockConsumer, mockRepo, log)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := c.Start(ctx)

	assert.NoError(t, err)
	mockRepo.AssertNotCalled(t, "InsertEvents", mock.Anything, mock.Anything)
}
