package status

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

type staticStats map[string]any

func (s staticStats) Stats() map[string]any { return s }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func TestHealthEndpoint(t *testing.T) {
	stats := staticStats{"state": "streaming", "clips": uint64(3)}
	srv := httptest.NewServer(New(stats, "", testLogger()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("Expected request to succeed, got %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected application/json, got %q", ct)
	}

	var payload struct {
		Status string         `json:"status"`
		Stats  map[string]any `json:"stats"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("Expected valid JSON, got %v", err)
	}
	if payload.Status != "ok" {
		t.Errorf("Expected status ok, got %q", payload.Status)
	}
	if payload.Stats["state"] != "streaming" {
		t.Errorf("Expected session state in stats, got %v", payload.Stats)
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv := httptest.NewServer(New(staticStats{}, "", testLogger()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/stats")
	if err != nil {
		t.Fatalf("Expected request to succeed, got %v", err)
	}
	defer resp.Body.Close()

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("Expected valid JSON, got %v", err)
	}
	if _, ok := payload["uptime_seconds"]; !ok {
		t.Error("Expected uptime_seconds in stats payload")
	}
	if _, ok := payload["stats"]; !ok {
		t.Error("Expected stats in payload")
	}
}

func TestUnknownPath(t *testing.T) {
	srv := httptest.NewServer(New(staticStats{}, "", testLogger()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/nope")
	if err != nil {
		t.Fatalf("Expected request to succeed, got %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
}
