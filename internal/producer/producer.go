package producer

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	redis "github.com/redis/go-redis/v9"

	"floodwatch/internal/logger"
)

// Producer replays a bulk traffic dataset onto the input stream at a
// controlled rate. It is plain I/O plumbing; detection never depends on it.
type Producer struct {
	client *redis.Client
	stream string
	now    func() time.Time
}

// New creates a producer over an existing client.
func New(client *redis.Client, stream string) *Producer {
	return &Producer{
		client: client,
		stream: stream,
		now:    time.Now,
	}
}

// Replay reads the CSV dataset and appends one stream entry per row, pausing
// delay between rows. maxRecords <= 0 means the whole file. It returns the
// number of entries sent.
func (p *Producer) Replay(ctx context.Context, csvPath string, maxRecords int, delay time.Duration) (int, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return 0, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read dataset header: %w", err)
	}

	sent := 0
	for {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		if maxRecords > 0 && sent >= maxRecords {
			return sent, nil
		}

		row, err := reader.Read()
		if err == io.EOF {
			return sent, nil
		}
		if err != nil {
			logger.Warnf("Skipping malformed dataset row: %v", err)
			continue
		}

		entry := EntryFromRow(header, row, p.now())
		if err := p.client.XAdd(ctx, &redis.XAddArgs{
			Stream: p.stream,
			Values: entry,
		}).Err(); err != nil {
			return sent, fmt.Errorf("append record to %s: %w", p.stream, err)
		}
		sent++

		if sent%100 == 0 {
			logger.Infof("Sent %d records to %s", sent, p.stream)
		}

		if delay > 0 {
			select {
			case <-ctx.Done():
				return sent, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
}

// EntryFromRow builds one stream entry from a dataset row. The full row goes
// into the JSON data payload; the routing fields are lifted out flat so
// consumers can read them without decoding the payload.
func EntryFromRow(header, row []string, now time.Time) map[string]interface{} {
	fields := make(map[string]string, len(header))
	for i, name := range header {
		if i < len(row) {
			fields[name] = row[i]
		}
	}

	data, err := json.Marshal(fields)
	if err != nil {
		data = []byte("{}")
	}

	ts := fields["timestamp"]
	if ts == "" {
		ts = now.Format(time.RFC3339)
	}
	isAttack := fields["is_attack"]
	if isAttack == "" {
		isAttack = "False"
	}

	return map[string]interface{}{
		"data":      string(data),
		"timestamp": ts,
		"source_ip": fields["source_ip"],
		"dest_ip":   fields["dest_ip"],
		"protocol":  fields["protocol"],
		"is_attack": isAttack,
	}
}
