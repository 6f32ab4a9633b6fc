// simtester connects to a simulator bridge and prints lifecycle events and
// system state changes to the console for a fixed period.
// Usage: go run ./cmd/simtester --url ws://localhost:8500/simconnect --duration 30s
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rickgao/simlink/internal/config"
	"github.com/rickgao/simlink/internal/connection"
	"github.com/rickgao/simlink/internal/model"
	"github.com/rickgao/simlink/internal/reactive"
)

func main() {
	url := flag.String("url", config.DefaultTransportURL, "simulator bridge url")
	name := flag.String("name", "simtester", "client name announced to the simulator")
	duration := flag.Duration("duration", 30*time.Second, "how long to run")
	verbose := flag.Bool("verbose", false, "print connector state changes")
	flag.Parse()

	// Setup logger
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	tcfg := connection.DefaultTransportConfig()
	tcfg.URL = *url
	transport := connection.NewWSTransport(tcfg, logger)

	cfg := connection.DefaultConfig()
	cfg.Name = *name
	cfg.AutoConnect = true

	opts := []connection.Option{}
	if *verbose {
		opts = append(opts, connection.WithStateLogger(func(state string) {
			fmt.Printf("[%s] state: %s\n", stamp(), state)
		}))
	}
	m := connection.NewManager(cfg, transport, logger, opts...)

	var (
		streamMu  sync.Mutex
		simStream *reactive.Stream[model.SystemStateValue]
	)
	m.OnConnect(func() {
		fmt.Printf("[%s] connected (session %s)\n", stamp(), m.Session())
	})
	m.OnDisconnect(func() {
		fmt.Printf("[%s] disconnected\n", stamp())
	})
	m.OnClose(func() {
		fmt.Printf("[%s] simulator closed the connection\n", stamp())
	})
	m.OnOpen(func(info model.AppInfo) {
		fmt.Printf("[%s] open: %s\n", stamp(), info)

		// Requests block on replies, which arrive on the manager's loop.
		go func() {
			reqCtx, reqCancel := context.WithTimeout(ctx, 5*time.Second)
			defer reqCancel()

			if aircraft, err := m.RequestSystemStateString(model.StateAircraftLoaded.String()).Get(reqCtx); err != nil {
				fmt.Printf("[%s] aircraft request failed: %v\n", stamp(), err)
			} else {
				fmt.Printf("[%s] aircraft: %s\n", stamp(), aircraft)
			}

			if running, err := m.RequestSystemStateBool(model.StateSim.String()).Get(reqCtx); err != nil {
				fmt.Printf("[%s] sim request failed: %v\n", stamp(), err)
			} else {
				fmt.Printf("[%s] sim running: %v\n", stamp(), running)
			}
		}()

		stream := m.SubscribeSystemState(model.StateSim).Subscribe(
			func(v model.SystemStateValue) error {
				fmt.Printf("[%s] sim state changed: %v\n", stamp(), v.Bool())
				return nil
			},
			func(err error) {
				fmt.Printf("[%s] sim subscription ended: %v\n", stamp(), err)
			},
			nil,
		)
		streamMu.Lock()
		simStream = stream
		streamMu.Unlock()
	})

	if err := m.Start(ctx); err != nil {
		logger.Error("failed to start manager", "error", err)
		os.Exit(1)
	}

	fmt.Printf("[%s] running for %s against %s\n", stamp(), *duration, *url)
	<-ctx.Done()

	streamMu.Lock()
	if simStream != nil {
		simStream.OnCompleted()
	}
	streamMu.Unlock()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	m.Stop()
	if err := m.Wait(stopCtx); err != nil {
		logger.Warn("stop incomplete", "error", err)
	}
	m.Disconnect()

	stats := m.Stats()
	fmt.Printf("[%s] done: state=%s pending_requests=%d routed_exceptions=%d\n",
		stamp(), stats.State, stats.PendingRequests, stats.Router.Routed)
}

func stamp() string {
	return time.Now().Format("15:04:05.000")
}
