package traffic

import (
	"testing"
	"time"
)

func TestParseFlatFieldsAndJSONPayload(t *testing.T) {
	rec := Parse(map[string]interface{}{
		"timestamp": "2026-03-01T10:15:30",
		"source_ip": "10.0.0.5",
		"dest_ip":   "192.168.1.1",
		"protocol":  "TCP",
		"is_attack": "True",
		"data":      `{"source_port": 51234, "dest_port": 80, "packet_size": 512, "flags": "ACK", "http_method": "GET", "response_time_ms": 42.5}`,
	})

	if rec.SourceIP != "10.0.0.5" || rec.DestIP != "192.168.1.1" || rec.Protocol != "TCP" {
		t.Fatalf("unexpected addressing: %+v", rec)
	}
	if !rec.IsAttack {
		t.Fatalf("expected is_attack true")
	}
	want := time.Date(2026, 3, 1, 10, 15, 30, 0, time.UTC)
	if !rec.Timestamp.Equal(want) {
		t.Fatalf("expected timestamp %v, got %v", want, rec.Timestamp)
	}
	if rec.SourcePort != 51234 || rec.DestPort != 80 || rec.PacketSize != 512 {
		t.Fatalf("unexpected ports/size: %+v", rec)
	}
	if rec.Flags != "ACK" || rec.HTTPMethod != "GET" {
		t.Fatalf("unexpected flags/method: %+v", rec)
	}
	if rec.ResponseTimeMS == nil || *rec.ResponseTimeMS != 42.5 {
		t.Fatalf("unexpected response time: %+v", rec.ResponseTimeMS)
	}
}

func TestParseColumnAlignedPayload(t *testing.T) {
	blob := `"timestamp           2026-03-01T10:20:00
source_ip           10.0.0.5
dest_ip             192.168.1.1
protocol            TCP
source_port         44321
dest_port           8080
packet_size         40
flags               SYN
response_time_ms    NaN
http_method         NaN
is_attack           True
Name: 17, dtype: object"`

	rec := Parse(map[string]interface{}{
		"timestamp": "2026-03-01T10:20:00",
		"source_ip": "10.0.0.5",
		"protocol":  "TCP",
		"data":      blob,
	})

	if rec.SourcePort != 44321 || rec.DestPort != 8080 || rec.PacketSize != 40 {
		t.Fatalf("unexpected numeric fields: %+v", rec)
	}
	if rec.Flags != "SYN" {
		t.Fatalf("expected SYN flags, got %q", rec.Flags)
	}
	if rec.HTTPMethod != "" {
		t.Fatalf("NaN http_method must decode as absent, got %q", rec.HTTPMethod)
	}
	if rec.ResponseTimeMS != nil {
		t.Fatalf("NaN response time must decode as absent, got %v", *rec.ResponseTimeMS)
	}
	if rec.DestIP != "192.168.1.1" {
		t.Fatalf("payload must backfill missing flat fields, got %q", rec.DestIP)
	}
}

func TestParseToleratesMalformedPayload(t *testing.T) {
	rec := Parse(map[string]interface{}{
		"timestamp": "not-a-time",
		"source_ip": "10.0.0.9",
		"data":      "%%% totally broken %%%",
	})

	if rec.SourceIP != "10.0.0.9" {
		t.Fatalf("flat fields must survive payload garbage: %+v", rec)
	}
	if !rec.Timestamp.IsZero() {
		t.Fatalf("unparseable timestamp must stay zero, got %v", rec.Timestamp)
	}
	if rec.PacketSize != 0 || rec.DestPort != 0 {
		t.Fatalf("missing numerics must default to 0: %+v", rec)
	}
	if rec.ResponseTimeMS != nil {
		t.Fatalf("missing response time must be absent")
	}
}

func TestParseCoercesNumericText(t *testing.T) {
	rec := Parse(map[string]interface{}{
		"source_ip": "10.0.0.9",
		"data":      `{"dest_port": "443", "packet_size": "2048", "response_time_ms": "7"}`,
	})

	if rec.DestPort != 443 {
		t.Fatalf("expected dest_port 443, got %d", rec.DestPort)
	}
	if rec.PacketSize != 2048 {
		t.Fatalf("expected packet_size 2048, got %d", rec.PacketSize)
	}
	if rec.ResponseTimeMS == nil || *rec.ResponseTimeMS != 7 {
		t.Fatalf("expected response_time_ms 7, got %v", rec.ResponseTimeMS)
	}

	rec = Parse(map[string]interface{}{
		"source_ip": "10.0.0.9",
		"data":      `{"dest_port": "eighty", "packet_size": null}`,
	})
	if rec.DestPort != 0 || rec.PacketSize != 0 {
		t.Fatalf("non-numeric text must coerce to 0: %+v", rec)
	}
}

func TestParseEmptyDataField(t *testing.T) {
	rec := Parse(map[string]interface{}{
		"source_ip": "10.0.0.9",
		"protocol":  "UDP",
		"is_attack": "False",
	})
	if rec.SourceIP != "10.0.0.9" || rec.Protocol != "UDP" || rec.IsAttack {
		t.Fatalf("unexpected record: %+v", rec)
	}
}
