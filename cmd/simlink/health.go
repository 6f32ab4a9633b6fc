package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/simlink/internal/connection"
	"github.com/rickgao/simlink/internal/model"
	"github.com/rickgao/simlink/internal/version"
)

// clientStatus is the part of *connection.Manager the health handler reads.
type clientStatus interface {
	Name() string
	Stats() connection.ManagerStats
	AppInfo() model.AppInfo
}

// pinger is satisfied by *pgxpool.Pool.
type pinger interface {
	Ping(ctx context.Context) error
}

// createHealthHandler creates the HTTP handler for health checks and metrics.
// db may be nil when persistence is disabled.
func createHealthHandler(client clientStatus, db pinger, gatherer prometheus.Gatherer, metricsPath string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Version    version.Info   `json:"version"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Version:    version.Get(),
			Components: make(map[string]any),
		}

		// Check simulator connection
		stats := client.Stats()
		conn := map[string]any{
			"client":           client.Name(),
			"state":            stats.State.String(),
			"running":          stats.Running,
			"pending_requests": stats.PendingRequests,
			"pending_handlers": stats.Router.PendingHandlers,
			"early_errors":     stats.Router.EarlyErrors,
		}
		switch {
		case stats.State == connection.StateConnected:
			conn["session"] = stats.Session.String()
			if info := client.AppInfo(); info.AppName != "" {
				conn["app"] = info.String()
			}
		case stats.Running:
			health.Status = "degraded"
		default:
			health.Status = "unhealthy"
		}
		health.Components["simulator"] = conn

		// Check database
		if db != nil {
			if err := db.Ping(ctx); err != nil {
				health.Status = "unhealthy"
				health.Components["postgres"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components["postgres"] = "connected"
			}
		}

		// Set response
		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.Handle(metricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return mux
}
