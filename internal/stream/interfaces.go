package stream

import (
	"context"
	"time"
)

// Message is one entry read from the event stream, with its field map
// normalized to strings
type Message struct {
	ID     string
	Values map[string]string
}

// Consumer defines the interface for consuming messages from the event stream
type Consumer interface {
	// EnsureGroup creates the consumer group if it does not already exist
	EnsureGroup(ctx context.Context) error

	// Read blocks up to the given duration and returns at most count new
	// messages for this consumer
	Read(ctx context.Context, count int64, block time.Duration) ([]Message, error)

	// Ack acknowledges processed messages; returns the number acknowledged
	Ack(ctx context.Context, ids ...string) (int64, error)

	// PendingCount returns the number of delivered-but-unacknowledged
	// messages in the group
	PendingCount(ctx context.Context) (int64, error)

	// Ping checks if the stream store is reachable
	Ping(ctx context.Context) error
}
