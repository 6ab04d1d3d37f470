package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Process-wide instrumentation for the detection engine. The Redis global
// keys remain the canonical cross-process view; these exist for scraping a
// single engine instance.
var (
	RecordsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "floodwatch_records_processed_total",
		Help: "Traffic records run through the detection pipeline.",
	})

	RecordsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "floodwatch_records_skipped_total",
		Help: "Records without a usable source address.",
	})

	RecordFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "floodwatch_record_failures_total",
		Help: "Records abandoned by a per-record processing fault.",
	})

	AlertsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "floodwatch_alerts_emitted_total",
		Help: "Alerts published, by type and severity.",
	}, []string{"type", "severity"})

	EmitFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "floodwatch_alert_emit_failures_total",
		Help: "Alerts that could not be published.",
	})

	BaselineMean = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "floodwatch_baseline_mean",
		Help: "Rolling baseline mean of the record-processing cadence.",
	})

	BaselineStdDev = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "floodwatch_baseline_stddev",
		Help: "Rolling baseline standard deviation.",
	})
)

// ListenAndServe exposes /metrics on addr. It blocks, so callers run it in
// its own goroutine.
func ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server.ListenAndServe()
}
