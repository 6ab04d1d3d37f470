package alerts

import (
	"context"
	"fmt"
	"time"

	"floodwatch/internal/logger"
	"floodwatch/internal/metrics"
	"floodwatch/internal/store"
	"floodwatch/pkg/models"
)

// TotalKey is the global alert counter in the state store.
const TotalKey = "global:alerts:total"

// Writer publishes finalized alerts.
type Writer interface {
	WriteAlerts(alerts []*models.Alert) error
	Close() error
}

// Emitter finalizes layer candidates and publishes them. Severity and
// confidence pass through verbatim; the emitter only stamps the emission time,
// attaches the record snapshot and bumps the counters.
type Emitter struct {
	writer Writer
	store  store.Store
	now    func() time.Time
}

// NewEmitter creates an alert emitter.
func NewEmitter(writer Writer, st store.Store) *Emitter {
	return &Emitter{
		writer: writer,
		store:  st,
		now:    time.Now,
	}
}

// SetClock overrides the emitter clock, for tests.
func (e *Emitter) SetClock(now func() time.Time) {
	e.now = now
}

// Emit publishes one candidate produced for rec. The global alert counter is
// incremented once per successfully published alert.
func (e *Emitter) Emit(ctx context.Context, cand models.Candidate, rec *models.TrafficRecord) (*models.Alert, error) {
	alert := &models.Alert{
		Timestamp:  e.now(),
		Type:       cand.Type,
		Severity:   cand.Severity,
		SourceIP:   cand.SourceIP,
		DestIP:     cand.DestIP,
		Confidence: cand.Confidence,
		Metrics:    cand.Metrics,
	}
	if rec != nil {
		if alert.SourceIP == "" {
			alert.SourceIP = rec.SourceIP
		}
		if alert.DestIP == "" {
			alert.DestIP = rec.DestIP
		}
		alert.Protocol = rec.Protocol
		alert.Record = models.RecordSnapshot{
			Timestamp:  rec.Timestamp,
			SourcePort: rec.SourcePort,
			DestPort:   rec.DestPort,
			PacketSize: rec.PacketSize,
		}
	}

	if err := e.writer.WriteAlerts([]*models.Alert{alert}); err != nil {
		metrics.EmitFailures.Inc()
		return nil, fmt.Errorf("publish %s alert: %w", alert.Type, err)
	}

	if _, err := e.store.Incr(ctx, TotalKey); err != nil {
		// The alert is already out; a counter failure is not worth failing the
		// record over.
		logger.Warnf("Failed to increment alert counter: %v", err)
	}
	metrics.AlertsEmitted.WithLabelValues(alert.Type, alert.Severity).Inc()
	logger.Infof("ALERT %s from %s (confidence %.2f)", alert.Type, alert.SourceIP, alert.Confidence)

	return alert, nil
}
