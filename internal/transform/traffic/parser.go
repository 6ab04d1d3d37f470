package traffic

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"floodwatch/pkg/models"
)

var seriesLineRegex = regexp.MustCompile(`^(\S+)\s{2,}(.*)$`)

// Parse converts one input-stream entry into a normalized TrafficRecord. The
// entry carries flat fields plus a semi-structured "data" payload in either
// JSON or the upstream exporter's column-aligned text form. Malformed
// sub-fields degrade to zero values; Parse itself never fails.
func Parse(fields map[string]interface{}) *models.TrafficRecord {
	rec := &models.TrafficRecord{
		SourceIP: getString(fields, "source_ip"),
		DestIP:   getString(fields, "dest_ip"),
		Protocol: getString(fields, "protocol"),
		IsAttack: isTrue(getString(fields, "is_attack")),
	}

	if ts, ok := parseTimestamp(getString(fields, "timestamp")); ok {
		rec.Timestamp = ts
	}

	payload := parsePayload(getString(fields, "data"))
	if len(payload) == 0 {
		return rec
	}

	rec.SourcePort = coerceInt(payload["source_port"])
	rec.DestPort = coerceInt(payload["dest_port"])
	rec.PacketSize = coerceInt(payload["packet_size"])
	rec.Flags = coerceString(payload["flags"])
	rec.HTTPMethod = coerceString(payload["http_method"])
	rec.ResponseTimeMS = coerceFloatPtr(payload["response_time_ms"])

	// Flat fields win; the payload only fills what the entry itself lacks.
	if rec.SourceIP == "" {
		rec.SourceIP = coerceString(payload["source_ip"])
	}
	if rec.DestIP == "" {
		rec.DestIP = coerceString(payload["dest_ip"])
	}
	if rec.Protocol == "" {
		rec.Protocol = coerceString(payload["protocol"])
	}
	if rec.Timestamp.IsZero() {
		if ts, ok := parseTimestamp(coerceString(payload["timestamp"])); ok {
			rec.Timestamp = ts
		}
	}

	return rec
}

// parsePayload decodes the data blob. JSON objects are preferred; otherwise
// the blob is treated as key/value lines separated by runs of spaces, the way
// the upstream exporter prints a record.
func parsePayload(blob string) map[string]interface{} {
	blob = strings.TrimSpace(blob)
	if len(blob) >= 2 && strings.HasPrefix(blob, `"`) && strings.HasSuffix(blob, `"`) {
		blob = blob[1 : len(blob)-1]
	}
	if blob == "" || blob == "{}" {
		return nil
	}

	var asJSON map[string]interface{}
	if err := json.Unmarshal([]byte(blob), &asJSON); err == nil {
		return asJSON
	}

	out := make(map[string]interface{})
	for _, line := range strings.Split(blob, "\n") {
		if strings.Contains(line, "Name:") || strings.Contains(line, "dtype:") {
			continue
		}
		m := seriesLineRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		key := strings.TrimSpace(m[1])
		value := strings.TrimSpace(m[2])
		if key == "" {
			continue
		}
		out[key] = decodeSeriesValue(value)
	}
	return out
}

// decodeSeriesValue mirrors how the exporter stringifies values: NaN means
// absent, booleans and numbers are plain literals, everything else is text.
func decodeSeriesValue(value string) interface{} {
	switch value {
	case "", "NaN", "None", "nan":
		return nil
	case "True":
		return true
	case "False":
		return false
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}

func parseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func getString(fields map[string]interface{}, key string) string {
	v, ok := fields[key]
	if !ok {
		return ""
	}
	return coerceString(v)
}

func coerceString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", val)
	}
}

// coerceInt turns purely numeric values into ints; anything else is 0.
func coerceInt(v interface{}) int {
	switch val := v.(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		return int(val)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return int(f)
		}
	}
	return 0
}

// coerceFloatPtr turns numeric values into a float pointer; anything else is
// treated as absent.
func coerceFloatPtr(v interface{}) *float64 {
	switch val := v.(type) {
	case int:
		f := float64(val)
		return &f
	case int64:
		f := float64(val)
		return &f
	case float64:
		f := val
		return &f
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return &f
		}
	}
	return nil
}

func isTrue(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "true")
}
