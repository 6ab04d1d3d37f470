package redisstream

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// StartCursor reads the stream from its earliest entry.
const StartCursor = "0"

// Config configures the stream consumer.
type Config struct {
	Addr         string
	Password     string
	DB           int
	Stream       string
	BatchSize    int64
	BlockTimeout time.Duration
}

// Message is one stream entry: its ID doubles as the read cursor.
type Message struct {
	ID     string
	Values map[string]interface{}
}

// Consumer wraps a blocking Redis stream reader. Reads are cursor-based:
// the caller passes the last-processed entry ID and receives strictly later
// entries in stream order.
type Consumer struct {
	client *redis.Client
	stream string
	count  int64
	block  time.Duration
}

// NewConsumer creates a stream consumer.
func NewConsumer(cfg Config) (*Consumer, error) {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:6379"
	}
	if cfg.Stream == "" {
		return nil, fmt.Errorf("stream name is required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &Consumer{
		client: client,
		stream: cfg.Stream,
		count:  cfg.BatchSize,
		block:  cfg.BlockTimeout,
	}, nil
}

// Read blocks for up to the configured timeout and returns entries after
// cursor, in order. A timed-out read returns an empty batch and no error.
func (c *Consumer) Read(ctx context.Context, cursor string) ([]Message, error) {
	if cursor == "" {
		cursor = StartCursor
	}

	res, err := c.client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{c.stream, cursor},
		Count:   c.count,
		Block:   c.block,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read stream %s: %w", c.stream, err)
	}

	var out []Message
	for _, stream := range res {
		for _, msg := range stream.Messages {
			out = append(out, Message{ID: msg.ID, Values: msg.Values})
		}
	}
	return out, nil
}

// Ping verifies connectivity.
func (c *Consumer) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Client exposes the underlying client so the state store can share the
// connection pool.
func (c *Consumer) Client() *redis.Client {
	return c.client
}

// Close closes the consumer.
func (c *Consumer) Close() error {
	return c.client.Close()
}
