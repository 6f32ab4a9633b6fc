package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/simlink/internal/metrics"
	"github.com/rickgao/simlink/internal/model"
	"github.com/rickgao/simlink/internal/reactive"
)

// StateSource answers system state requests. *connection.Manager satisfies it.
type StateSource interface {
	Name() string
	Connected() bool
	Session() uuid.UUID
	RequestSystemState(state model.SystemState) *reactive.Result[model.SystemStateValue]
}

// SampleHandler receives sampled values.
type SampleHandler interface {
	HandleSample(sample model.StateSample) error
}

// SampleHandlerFunc is a function adapter for SampleHandler.
type SampleHandlerFunc func(model.StateSample) error

func (f SampleHandlerFunc) HandleSample(s model.StateSample) error {
	return f(s)
}

// Config holds poller configuration.
type Config struct {
	Interval time.Duration       // Poll interval (default: 5s)
	Timeout  time.Duration       // Per-request timeout (default: 2s)
	States   []model.SystemState // States sampled each cycle
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 5 * time.Second,
		Timeout:  2 * time.Second,
		States:   []model.SystemState{model.StateSim, model.StateFlightLoaded, model.StateAircraftLoaded},
	}
}

// Stats holds poller counters.
type Stats struct {
	Cycles  int64
	Skipped int64 // Cycles skipped while disconnected
	Samples int64
	Errors  int64
}

// Poller periodically samples system state through a StateSource.
type Poller struct {
	cfg     Config
	source  StateSource
	handler SampleHandler
	metrics *metrics.Metrics
	logger  *slog.Logger

	cycles  atomic.Int64
	skipped atomic.Int64
	samples atomic.Int64
	errors  atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller. handler and m may be nil.
func New(cfg Config, source StateSource, handler SampleHandler, m *metrics.Metrics, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Poller{
		cfg:     cfg,
		source:  source,
		handler: handler,
		metrics: m,
		logger:  logger,
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("state poller started",
		"interval", p.cfg.Interval,
		"states", len(p.cfg.States),
	)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("state poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns current counters.
func (p *Poller) Stats() Stats {
	return Stats{
		Cycles:  p.cycles.Load(),
		Skipped: p.skipped.Load(),
		Samples: p.samples.Load(),
		Errors:  p.errors.Load(),
	}
}

// run is the main polling loop.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Poll immediately on start.
	p.pollAll()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.pollAll()
		}
	}
}

// pollAll requests every configured state concurrently.
func (p *Poller) pollAll() {
	if len(p.cfg.States) == 0 {
		return
	}
	if !p.source.Connected() {
		p.skipped.Add(1)
		p.logger.Debug("not connected, skipping poll cycle")
		return
	}

	start := time.Now()
	p.cycles.Add(1)

	var wg sync.WaitGroup
	var fetched, failed atomic.Int64

	for _, state := range p.cfg.States {
		wg.Add(1)
		go func(state model.SystemState) {
			defer wg.Done()

			if err := p.pollState(state); err != nil {
				p.logger.Warn("failed to poll state",
					"state", state,
					"err", err,
				)
				p.metrics.Sampled(state.String(), false)
				p.errors.Add(1)
				failed.Add(1)
				return
			}

			p.metrics.Sampled(state.String(), true)
			p.samples.Add(1)
			fetched.Add(1)
		}(state)
	}

	wg.Wait()

	p.logger.Debug("poll cycle complete",
		"states", len(p.cfg.States),
		"fetched", fetched.Load(),
		"errors", failed.Load(),
		"duration", time.Since(start),
	)
}

// pollState requests one state and hands the value to the handler.
func (p *Poller) pollState(state model.SystemState) error {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	session := p.source.Session()
	res := p.source.RequestSystemState(state)
	v, err := res.Get(ctx)
	if err != nil {
		// Completes the pending request so it is deregistered.
		res.OnError(err)
		return fmt.Errorf("request %s: %w", state, err)
	}

	sample := model.StateSample{
		Session:   session,
		Client:    p.source.Name(),
		State:     state.String(),
		Integer:   v.Integer,
		Float:     v.Float,
		String:    v.String,
		SampledAt: time.Now().UnixMicro(),
	}

	if p.handler != nil {
		if err := p.handler.HandleSample(sample); err != nil {
			return err
		}
	}

	return nil
}
