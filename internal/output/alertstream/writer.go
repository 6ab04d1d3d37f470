package alertstream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"floodwatch/internal/logger"
	"floodwatch/pkg/models"
)

// Writer appends alerts to a named Redis stream as JSON, one entry per alert.
type Writer struct {
	client  *redis.Client
	stream  string
	timeout time.Duration
	shared  bool
}

// NewWriter creates a stream writer over an existing client. The client is
// shared with the rest of the process and is not closed by the writer.
func NewWriter(client *redis.Client, stream string) (*Writer, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if stream == "" {
		return nil, fmt.Errorf("alert stream name is required")
	}

	logger.Infof("Alert stream writer initialized: %s", stream)
	return &Writer{
		client:  client,
		stream:  stream,
		timeout: 5 * time.Second,
		shared:  true,
	}, nil
}

// WriteAlerts publishes a batch of alerts in order.
func (w *Writer) WriteAlerts(alerts []*models.Alert) error {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	for _, alert := range alerts {
		raw, err := json.Marshal(alert)
		if err != nil {
			return fmt.Errorf("encode alert: %w", err)
		}
		if err := w.client.XAdd(ctx, &redis.XAddArgs{
			Stream: w.stream,
			Values: map[string]interface{}{"alert": string(raw)},
		}).Err(); err != nil {
			return fmt.Errorf("append alert to %s: %w", w.stream, err)
		}
	}
	return nil
}

// Close releases the client unless it is shared.
func (w *Writer) Close() error {
	if w.shared || w.client == nil {
		return nil
	}
	return w.client.Close()
}
