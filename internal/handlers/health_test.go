package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHealthzReportsUptime(t *testing.T) {
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	now := base
	h := NewHealthHandlers(WithHealthClock(func() time.Time { return now }))

	now = base.Add(90 * time.Second)
	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var payload struct {
		Status    string `json:"status"`
		Uptime    string `json:"uptime"`
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Status != "ok" {
		t.Fatalf("status = %q, want ok", payload.Status)
	}
	if payload.Uptime != "1m30s" {
		t.Fatalf("uptime = %q, want 1m30s", payload.Uptime)
	}
	if payload.Timestamp != "2026-03-01T12:01:30Z" {
		t.Fatalf("timestamp = %q", payload.Timestamp)
	}
}

func TestReadyzAllChecksPass(t *testing.T) {
	h := NewHealthHandlers(
		WithReadinessCheck("payments", func(ctx context.Context) error { return nil }),
		WithReadinessCheck("fulfillment", func(ctx context.Context) error { return nil }),
	)

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var payload struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Status != "ok" {
		t.Fatalf("status = %q, want ok", payload.Status)
	}
	if payload.Checks["payments"] != "ok" || payload.Checks["fulfillment"] != "ok" {
		t.Fatalf("unexpected checks: %v", payload.Checks)
	}
}

func TestReadyzDegradedOnFailingProbe(t *testing.T) {
	h := NewHealthHandlers(
		WithReadinessCheck("payments", func(ctx context.Context) error { return nil }),
		WithReadinessCheck("fulfillment", func(ctx context.Context) error { return errors.New("connect timeout") }),
	)

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var payload struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Status != "degraded" {
		t.Fatalf("status = %q, want degraded", payload.Status)
	}
	if payload.Checks["fulfillment"] != "connect timeout" {
		t.Fatalf("unexpected checks: %v", payload.Checks)
	}
}

func TestWithReadinessCheckIgnoresInvalid(t *testing.T) {
	h := NewHealthHandlers(
		WithReadinessCheck("", func(ctx context.Context) error { return nil }),
		WithReadinessCheck("probe", nil),
	)
	if len(h.checks) != 0 {
		t.Fatalf("checks = %d, want 0", len(h.checks))
	}
}
