package redisstream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/config"
	"github.com/MrAltuntas/gozcu-raw-data-processor/internal/stream"
)

// Client consumes a Redis Stream through a consumer group
type Client struct {
	rdb      *redis.Client
	stream   string
	group    string
	consumer string
	log      *zap.Logger
}

// NewClient creates a new Redis Stream client and verifies connectivity
func NewClient(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.RedisAddr(),
		DialTimeout: 5 * time.Second,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis at %s: %w", cfg.RedisAddr(), err)
	}

	log.Info("Redis client created",
		zap.String("addr", cfg.RedisAddr()),
		zap.String("stream", cfg.RedisStreamKey),
		zap.String("group", cfg.RedisConsumerGroup),
		zap.String("consumer", cfg.RedisConsumerName))

	return &Client{
		rdb:      rdb,
		stream:   cfg.RedisStreamKey,
		group:    cfg.RedisConsumerGroup,
		consumer: cfg.RedisConsumerName,
		log:      log,
	}, nil
}

// EnsureGroup creates the consumer group, creating the stream if needed.
// An already existing group (BUSYGROUP) is not an error.
func (c *Client) EnsureGroup(ctx context.Context) error {
	err := c.rdb.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil {
		if strings.Contains(err.Error(), "BUSYGROUP") {
			c.log.Info("Consumer group already exists",
				zap.String("stream", c.stream),
				zap.String("group", c.group))
			return nil
		}
		return fmt.Errorf("failed to create consumer group %q: %w", c.group, err)
	}

	c.log.Info("Created consumer group",
		zap.String("stream", c.stream),
		zap.String("group", c.group))
	return nil
}

// Read reads new messages for this consumer via XREADGROUP
func (c *Client) Read(ctx context.Context, count int64, block time.Duration) ([]stream.Message, error) {
	res, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if err != nil {
		// A block timeout with no messages is not an error
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from stream %q: %w", c.stream, err)
	}

	var messages []stream.Message
	for _, s := range res {
		for _, entry := range s.Messages {
			messages = append(messages, stream.Message{
				ID:     entry.ID,
				Values: stringValues(entry.Values),
			})
		}
	}

	return messages, nil
}

// Ack acknowledges processed messages via XACK
func (c *Client) Ack(ctx context.Context, ids ...string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	acked, err := c.rdb.XAck(ctx, c.stream, c.group, ids...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to ack %d messages: %w", len(ids), err)
	}
	return acked, nil
}

// PendingCount returns the number of delivered-but-unacknowledged messages
func (c *Client) PendingCount(ctx context.Context) (int64, error) {
	pending, err := c.rdb.XPending(ctx, c.stream, c.group).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read pending info: %w", err)
	}
	return pending.Count, nil
}

// Ping checks if the Redis server is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// StreamLen returns the number of entries currently in the stream
func (c *Client) StreamLen(ctx context.Context) (int64, error) {
	return c.rdb.XLen(ctx, c.stream).Result()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	c.log.Info("Closing Redis connection")
	return c.rdb.Close()
}

// stringValues normalizes XREADGROUP field values; go-redis returns them as
// map[string]interface{} but stream producers write flat strings
func stringValues(values map[string]interface{}) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		switch s := v.(type) {
		case string:
			out[k] = s
		default:
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}
