package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rickgao/simlink/internal/connection"
	"github.com/rickgao/simlink/internal/metrics"
	"github.com/rickgao/simlink/internal/model"
)

type stubClient struct {
	stats connection.ManagerStats
	info  model.AppInfo
}

func (s stubClient) Name() string                   { return "cockpit" }
func (s stubClient) Stats() connection.ManagerStats { return s.stats }
func (s stubClient) AppInfo() model.AppInfo         { return s.info }

type stubDB struct{ err error }

func (s stubDB) Ping(context.Context) error { return s.err }

func getHealth(t *testing.T, h http.Handler) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode health body: %v", err)
	}
	return rec.Code, body
}

func TestHealth(t *testing.T) {
	connected := connection.ManagerStats{State: connection.StateConnected, Running: true, Session: uuid.New()}

	tests := []struct {
		name       string
		client     stubClient
		db         pinger
		wantCode   int
		wantStatus string
	}{
		{
			name:       "connected without database",
			client:     stubClient{stats: connected, info: model.AppInfo{AppName: "FakeSim"}},
			wantCode:   http.StatusOK,
			wantStatus: "healthy",
		},
		{
			name:       "reconnecting",
			client:     stubClient{stats: connection.ManagerStats{State: connection.StateDisconnected, Running: true}},
			db:         stubDB{},
			wantCode:   http.StatusOK,
			wantStatus: "degraded",
		},
		{
			name:       "stopped",
			client:     stubClient{stats: connection.ManagerStats{State: connection.StateStopped}},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "unhealthy",
		},
		{
			name:       "database down",
			client:     stubClient{stats: connected},
			db:         stubDB{err: errors.New("connection refused")},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := createHealthHandler(tt.client, tt.db, prometheus.NewRegistry(), "/metrics")
			code, body := getHealth(t, h)

			if code != tt.wantCode {
				t.Errorf("status code = %d, want %d", code, tt.wantCode)
			}
			if body["status"] != tt.wantStatus {
				t.Errorf("status = %v, want %s", body["status"], tt.wantStatus)
			}
			components, _ := body["components"].(map[string]any)
			if _, ok := components["simulator"]; !ok {
				t.Error("components.simulator missing")
			}
			if _, ok := components["postgres"]; ok != (tt.db != nil) {
				t.Errorf("components.postgres present = %v, want %v", ok, tt.db != nil)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg, "cockpit")
	if err != nil {
		t.Fatalf("metrics.New() error = %v", err)
	}
	m.ConnectAttempt()

	h := createHealthHandler(stubClient{}, nil, reg, "/metrics")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "simlink_") {
		t.Errorf("metrics body has no simlink_ series:\n%s", rec.Body.String())
	}
}

func TestParseStates(t *testing.T) {
	states, err := parseStates([]string{"Sim", "FlightLoaded"})
	if err != nil {
		t.Fatalf("parseStates() error = %v", err)
	}
	if len(states) != 2 || states[0] != model.StateSim || states[1] != model.StateFlightLoaded {
		t.Errorf("parseStates() = %v, want [Sim FlightLoaded]", states)
	}

	if _, err := parseStates([]string{"Sim", "Paused"}); err == nil || !strings.Contains(err.Error(), `"Paused"`) {
		t.Errorf("parseStates() error = %v, want unknown state Paused", err)
	}
}
