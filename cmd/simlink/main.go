package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/rickgao/simlink/internal/config"
	"github.com/rickgao/simlink/internal/connection"
	"github.com/rickgao/simlink/internal/database"
	"github.com/rickgao/simlink/internal/metrics"
	"github.com/rickgao/simlink/internal/model"
	"github.com/rickgao/simlink/internal/poller"
	"github.com/rickgao/simlink/internal/version"
	"github.com/rickgao/simlink/internal/writer"
)

func main() {
	configPath := flag.String("config", "configs/simlink.local.yaml", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "config", *configPath)
		os.Exit(1)
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Level(),
	}))
	slog.SetDefault(logger)

	logger.Info("starting simlink",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)
	logger.Info("configuration loaded",
		"client", cfg.Client.Name,
		"bridge_url", cfg.Transport.URL,
		"database", cfg.Database.Enabled(),
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg, cfg.Client.Name)
	if err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	// Connect to database
	var pool *pgxpool.Pool
	var events *writer.EventWriter
	if cfg.Database.Enabled() {
		logger.Info("connecting to database",
			"host", cfg.Database.Postgres.Host,
			"port", cfg.Database.Postgres.Port,
			"database", cfg.Database.Postgres.Name,
		)

		pool, err = database.Connect(ctx, cfg.Database.Postgres)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := database.EnsureSchema(ctx, pool); err != nil {
			logger.Error("failed to prepare database", "error", err)
			os.Exit(1)
		}
		logger.Info("database connected")

		events = writer.NewEventWriter(writer.WriterConfig{
			BatchSize:     cfg.Writers.BatchSize,
			FlushInterval: cfg.Writers.FlushInterval,
			BufferSize:    cfg.Writers.BufferSize,
		}, pool, m, logger.With("component", "writer"))
		if err := events.Start(ctx); err != nil {
			logger.Error("failed to start event writer", "error", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			events.Stop(shutdownCtx)
		}()
	}

	// Build the connection manager
	clients := connection.NewRegistry(logger)
	transport := connection.NewWSTransport(cfg.TransportConfig(), logger.With("component", "transport"))

	var untrack func()
	manager, err := clients.Build(ctx, cfg.ConnectionConfig(), transport,
		connection.WithMetrics(m),
		connection.WithStateLogger(func(state string) {
			logger.Debug("connector state", "client", cfg.Client.Name, "state", state)
		}),
		func(mgr *connection.Manager) {
			if events != nil {
				untrack = events.Track(mgr)
			}
		},
	)
	if err != nil {
		logger.Error("failed to build connection manager", "error", err)
		os.Exit(1)
	}
	defer func() {
		if untrack != nil {
			untrack()
		}
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := clients.Close(shutdownCtx); err != nil {
			logger.Warn("connection shutdown incomplete", "error", err)
		}
	}()

	manager.OnOpen(func(info model.AppInfo) {
		logger.Info("simulator ready", "client", manager.Name(), "app", info.String())
	})

	// Start the state poller
	var handler poller.SampleHandler
	if events != nil {
		handler = events
	}
	states, err := parseStates(cfg.Poller.States)
	if err != nil {
		logger.Error("invalid poller states", "error", err)
		os.Exit(1)
	}
	sampler := poller.New(poller.Config{
		Interval: cfg.Poller.Interval,
		Timeout:  cfg.Poller.Timeout,
		States:   states,
	}, manager, handler, m, logger.With("component", "poller"))
	if err := sampler.Start(ctx); err != nil {
		logger.Error("failed to start poller", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		sampler.Stop(shutdownCtx)
	}()

	// Health and metrics server
	var db pinger
	if pool != nil {
		db = pool
	}
	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: createHealthHandler(manager, db, reg, cfg.Metrics.Path),
	}

	go func() {
		logger.Info("starting health server", "port", cfg.Metrics.Port)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	logger.Info("simlink running",
		"client", cfg.Client.Name,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
	)

	// Wait for shutdown
	// The loop only ends on its own when stop_on_disconnect is set and the
	// simulator quits.
	var quit <-chan struct{}
	if cfg.Client.StopOnDisconnect && manager.Running() {
		quit = manager.Done()
	}
	select {
	case <-ctx.Done():
	case <-quit:
		logger.Info("connection manager stopped")
	}

	logger.Info("shutting down...")

	// Graceful shutdown of health server
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	healthServer.Shutdown(shutdownCtx)

	logger.Info("simlink stopped")
}

// parseStates resolves configured system state names.
func parseStates(names []string) ([]model.SystemState, error) {
	states := make([]model.SystemState, 0, len(names))
	for _, name := range names {
		state, ok := model.ParseSystemState(name)
		if !ok {
			return nil, fmt.Errorf("unknown system state %q", name)
		}
		states = append(states, state)
	}
	return states, nil
}
