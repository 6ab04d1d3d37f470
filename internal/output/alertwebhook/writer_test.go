package alertwebhook

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"floodwatch/pkg/models"
)

func TestWriteAlertsPostsEnvelope(t *testing.T) {
	var gotBody []byte
	var gotContentType, gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotToken = r.Header.Get("X-Auth-Token")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	writer, err := NewWriter(Config{
		URL:     srv.URL,
		Headers: map[string]string{"X-Auth-Token": "secret"},
	})
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	writer.now = func() time.Time {
		return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	}

	alerts := []*models.Alert{
		{Type: "HIGH_REQUEST_RATE", Severity: "HIGH", SourceIP: "192.168.1.50", Confidence: 0.9},
		{Type: "PORT_SCAN", Severity: "MEDIUM", SourceIP: "192.168.1.50", Confidence: 0.8},
	}
	if err := writer.WriteAlerts(alerts); err != nil {
		t.Fatalf("WriteAlerts failed: %v", err)
	}

	if gotContentType != "application/json" {
		t.Errorf("expected application/json, got %q", gotContentType)
	}
	if gotToken != "secret" {
		t.Errorf("expected custom header to pass through, got %q", gotToken)
	}

	var env envelope
	if err := json.Unmarshal(gotBody, &env); err != nil {
		t.Fatalf("failed to unmarshal envelope: %v", err)
	}
	if env.Source != "floodwatch" {
		t.Errorf("expected source floodwatch, got %q", env.Source)
	}
	if env.Count != 2 || len(env.Alerts) != 2 {
		t.Errorf("expected 2 alerts, got count=%d len=%d", env.Count, len(env.Alerts))
	}
	if env.SentAt != "2024-03-01T12:00:00Z" {
		t.Errorf("unexpected sent_at: %q", env.SentAt)
	}
	if env.Alerts[0].Type != "HIGH_REQUEST_RATE" {
		t.Errorf("unexpected first alert type: %q", env.Alerts[0].Type)
	}
}

func TestWriteAlertsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	writer, err := NewWriter(Config{URL: srv.URL})
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if err := writer.WriteAlerts([]*models.Alert{{Type: "PORT_SCAN"}}); err == nil {
		t.Fatal("expected error on 500 response")
	}
}

func TestWriteAlertsEmptyBatchSkipsRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	writer, err := NewWriter(Config{URL: srv.URL})
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if err := writer.WriteAlerts(nil); err != nil {
		t.Fatalf("WriteAlerts failed: %v", err)
	}
	if called {
		t.Error("expected no request for an empty batch")
	}
}

func TestNewWriterRequiresURL(t *testing.T) {
	if _, err := NewWriter(Config{}); err == nil {
		t.Fatal("expected error for empty URL")
	}
}
