package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/stream"
)

// MockStreamConsumer is a mock implementation of stream.Consumer
type MockStreamConsumer struct {
	mock.Mock
}

func (m *MockStreamConsumer) EnsureGroup(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStreamConsumer) Read(ctx context.Context, count int64, block time.Duration) ([]stream.Message, error) {
	args := m.Called(ctx, count, block)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]stream.Message), args.Error(1)
}

func (m *MockStreamConsumer) Ack(ctx context.Context, ids ...string) (int64, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStreamConsumer) PendingCount(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStreamConsumer) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestReceiver_Start_Success(t *testing.T) {
	mockConsumer := new(MockStreamConsumer)
	log := zap.NewNop()

	config := ReceiverConfig{
		MaxMessages: 10,
		BlockTime:   time.Second,
		BufferSize:  100,
	}

	receiver := NewReceiver(mockConsumer, config, log)

	messages := []stream.Message{
		{ID: "1700000000000-0", Values: map[string]string{"camera_id": "1"}},
		{ID: "1700000000000-1", Values: map[string]string{"camera_id": "2"}},
	}

	// First call returns messages, subsequent calls return empty
	mockConsumer.On("Read", mock.Anything, int64(10), time.Second).
		Return(messages, nil).Once()
	mockConsumer.On("Read", mock.Anything, int64(10), time.Second).
		Return([]stream.Message{}, nil).Maybe()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	out := make(chan stream.Message, 10)

	go receiver.Start(ctx, out)

	received := []stream.Message{}
	timeout := time.After(200 * time.Millisecond)
	for len(received) < 2 {
		select {
		case msg, ok := <-out:
			if !ok {
				break
			}
			received = append(received, msg)
		case <-timeout:
			t.Fatal("timed out waiting for messages")
		}
	}

	assert.Len(t, received, 2)
	assert.Equal(t, "1700000000000-0", received[0].ID)
	assert.Equal(t, "1700000000000-1", received[1].ID)
	mockConsumer.AssertExpectations(t)
}

func TestReceiver_Start_ReadErrorBackoff(t *testing.T) {
	mockConsumer := new(MockStreamConsumer)
	log := zap.NewNop()

	config := ReceiverConfig{
		MaxMessages: 10,
		BlockTime:   time.Second,
		BufferSize:  100,
	}

	receiver := NewReceiver(mockConsumer, config, log)

	mockConsumer.On("Read", mock.Anything, int64(10), time.Second).
		Return(nil, errors.New("connection refused"))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	out := make(chan stream.Message, 10)

	done := make(chan struct{})
	go func() {
		receiver.Start(ctx, out)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("receiver did not shut down")
	}

	// The error path sleeps 1s, so within 100ms only one read happens
	mockConsumer.AssertNumberOfCalls(t, "Read", 1)
}

func TestReceiver_Start_ShutdownClosesOutput(t *testing.T) {
	mockConsumer := new(MockStreamConsumer)
	log := zap.NewNop()

	config := ReceiverConfig{
		MaxMessages: 10,
		BlockTime:   time.Second,
		BufferSize:  100,
	}

	receiver := NewReceiver(mockConsumer, config, log)

	mockConsumer.On("Read", mock.Anything, int64(10), time.Second).
		Return([]stream.Message{}, nil).Maybe()

	ctx, cancel := context.WithCancel(context.Background())

	out := make(chan stream.Message, 10)
	done := make(chan struct{})
	go func() {
		receiver.Start(ctx, out)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("receiver did not shut down after cancel")
	}

	_, open := <-out
	assert.False(t, open, "output channel must be closed on shutdown")
}
