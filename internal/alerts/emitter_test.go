package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"floodwatch/internal/store"
	"floodwatch/pkg/models"
)

type captureWriter struct {
	alerts []*models.Alert
	err    error
}

func (w *captureWriter) WriteAlerts(alerts []*models.Alert) error {
	if w.err != nil {
		return w.err
	}
	w.alerts = append(w.alerts, alerts...)
	return nil
}

func (w *captureWriter) Close() error { return nil }

func TestEmitStampsAndSnapshotsAlert(t *testing.T) {
	writer := &captureWriter{}
	st := store.NewMemoryStore()
	emitter := NewEmitter(writer, st)
	emitTime := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	emitter.SetClock(func() time.Time { return emitTime })

	rec := &models.TrafficRecord{
		Timestamp:  time.Date(2026, 3, 1, 11, 59, 0, 0, time.UTC),
		SourceIP:   "10.0.0.5",
		DestIP:     "192.168.1.1",
		Protocol:   "TCP",
		SourcePort: 43210,
		DestPort:   80,
		PacketSize: 40,
	}
	cand := models.Candidate{
		Type:       models.AlertHighRequestRate,
		Severity:   models.SeverityHigh,
		SourceIP:   "10.0.0.5",
		Confidence: 0.9,
	}

	alert, err := emitter.Emit(context.Background(), cand, rec)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if !alert.Timestamp.Equal(emitTime) {
		t.Fatalf("alert must carry the emission time, got %v", alert.Timestamp)
	}
	if !alert.Record.Timestamp.Equal(rec.Timestamp) {
		t.Fatalf("snapshot must carry the record time, got %v", alert.Record.Timestamp)
	}
	if alert.Record.SourcePort != 43210 || alert.Record.DestPort != 80 || alert.Record.PacketSize != 40 {
		t.Fatalf("unexpected snapshot: %+v", alert.Record)
	}
	if alert.DestIP != "192.168.1.1" || alert.Protocol != "TCP" {
		t.Fatalf("record context missing: %+v", alert)
	}
	if len(writer.alerts) != 1 {
		t.Fatalf("expected one published alert, got %d", len(writer.alerts))
	}
}

func TestEmitIncrementsCounterOncePerAlert(t *testing.T) {
	writer := &captureWriter{}
	st := store.NewMemoryStore()
	emitter := NewEmitter(writer, st)
	ctx := context.Background()
	rec := &models.TrafficRecord{SourceIP: "10.0.0.5"}

	for i := 0; i < 3; i++ {
		if _, err := emitter.Emit(ctx, models.Candidate{Type: models.AlertPortScan, Severity: models.SeverityMedium, Confidence: 0.8}, rec); err != nil {
			t.Fatalf("emit: %v", err)
		}
	}

	v, found, err := st.Get(ctx, TotalKey)
	if err != nil || !found {
		t.Fatalf("counter missing: found=%v err=%v", found, err)
	}
	if v != "3" {
		t.Fatalf("expected counter 3, got %q", v)
	}
}

func TestEmitWriteFailureDoesNotCount(t *testing.T) {
	writer := &captureWriter{err: errors.New("stream down")}
	st := store.NewMemoryStore()
	emitter := NewEmitter(writer, st)

	_, err := emitter.Emit(context.Background(), models.Candidate{Type: models.AlertPortScan}, &models.TrafficRecord{})
	if err == nil {
		t.Fatalf("expected emit error")
	}
	if _, found, _ := st.Get(context.Background(), TotalKey); found {
		t.Fatalf("failed publish must not increment the counter")
	}
}

func TestEmittedAlertRoundTripsThroughJSON(t *testing.T) {
	writer := &captureWriter{}
	emitter := NewEmitter(writer, store.NewMemoryStore())

	cand := models.Candidate{
		Type:       models.AlertAnomalousTraffic,
		Severity:   models.SeverityMedium,
		SourceIP:   "10.9.9.9",
		Confidence: 0.7,
		Metrics:    map[string]interface{}{"threshold": 5.5},
	}
	alert, err := emitter.Emit(context.Background(), cand, &models.TrafficRecord{SourceIP: "10.9.9.9"})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	raw, err := json.Marshal(alert)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded models.Alert
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Severity != models.SeverityMedium || decoded.Confidence != 0.7 || decoded.SourceIP != "10.9.9.9" {
		t.Fatalf("round trip changed layer-assigned fields: %+v", decoded)
	}
	if decoded.Type != models.AlertAnomalousTraffic {
		t.Fatalf("round trip changed alert type: %+v", decoded)
	}
}
