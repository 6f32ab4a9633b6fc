package writer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/simlink/internal/metrics"
	"github.com/rickgao/simlink/internal/model"
	"github.com/rickgao/simlink/internal/router"
)

// EventWriter buffers lifecycle events and state samples and writes them to
// the connection_events and state_samples tables in batches.
type EventWriter struct {
	cfg     WriterConfig
	logger  *slog.Logger
	metrics *metrics.Metrics

	// Inputs
	events  *router.GrowableBuffer[model.ConnectionEvent]
	samples *router.GrowableBuffer[model.StateSample]

	// Database
	db Batcher

	// Batching
	eventBatch  []eventRow
	sampleBatch []sampleRow
	batchMu     sync.Mutex
	flushMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx      context.Context
	writeCtx context.Context // Not canceled by Stop
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	stats WriterMetrics
}

// NewEventWriter creates a new EventWriter. m may be nil.
func NewEventWriter(cfg WriterConfig, db Batcher, m *metrics.Metrics, logger *slog.Logger) *EventWriter {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultWriterConfig()
	if cfg.BatchSize < 1 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = def.BufferSize
	}
	return &EventWriter{
		cfg:         cfg,
		logger:      logger,
		metrics:     m,
		events:      router.NewGrowableBuffer[model.ConnectionEvent](cfg.BufferSize),
		samples:     router.NewGrowableBuffer[model.StateSample](cfg.BufferSize),
		db:          db,
		eventBatch:  make([]eventRow, 0, cfg.BatchSize),
		sampleBatch: make([]sampleRow, 0, cfg.BatchSize),
	}
}

// RecordEvent queues a lifecycle event. Returns false after Stop.
func (w *EventWriter) RecordEvent(ev model.ConnectionEvent) bool {
	if w.events.Send(ev) {
		return true
	}
	w.dropped()
	return false
}

// RecordSample queues a state sample. Returns false after Stop.
func (w *EventWriter) RecordSample(s model.StateSample) bool {
	if w.samples.Send(s) {
		return true
	}
	w.dropped()
	return false
}

// HandleSample queues a state sample for the poller.
func (w *EventWriter) HandleSample(s model.StateSample) error {
	if !w.RecordSample(s) {
		return ErrStopped
	}
	return nil
}

func (w *EventWriter) dropped() {
	w.batchMu.Lock()
	w.stats.Dropped++
	w.batchMu.Unlock()
}

// Start begins consuming records and writing to the database.
func (w *EventWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.writeCtx = context.WithoutCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	// Consumer goroutine
	w.wg.Add(1)
	go w.consumeLoop()

	// Flush ticker goroutine
	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("event writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop closes the inputs, drains what is queued, and performs a final flush
// bounded by ctx.
func (w *EventWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping event writer")

	w.events.Close()
	w.samples.Close()

	if w.cancel != nil {
		w.cancel()
	}

	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	// Wait for goroutines
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("event writer stopped")
	case <-ctx.Done():
		w.logger.Warn("event writer stop timed out")
	}

	for w.collect(ctx) {
	}
	w.flush(ctx)

	return nil
}

// Stats returns current counters.
func (w *EventWriter) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.stats
}

// consumeLoop moves queued records into the batches.
func (w *EventWriter) consumeLoop() {
	defer w.wg.Done()

	for {
		if w.ctx.Err() != nil {
			return
		}
		if w.collect(w.writeCtx) {
			continue
		}
		// Buffers empty, wait a bit before trying again
		select {
		case <-w.ctx.Done():
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// flushLoop periodically flushes the batches.
func (w *EventWriter) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush(w.writeCtx)
		}
	}
}

// collect drains both inputs into the batches, flushing whenever a batch
// fills. Reports whether anything was collected.
func (w *EventWriter) collect(ctx context.Context) bool {
	events := w.events.DrainTo(w.cfg.BatchSize)
	samples := w.samples.DrainTo(w.cfg.BatchSize)
	if len(events) == 0 && len(samples) == 0 {
		return false
	}

	w.batchMu.Lock()
	for _, ev := range events {
		w.eventBatch = append(w.eventBatch, transformEvent(ev))
	}
	for _, s := range samples {
		w.sampleBatch = append(w.sampleBatch, transformSample(s))
	}
	shouldFlush := len(w.eventBatch) >= w.cfg.BatchSize || len(w.sampleBatch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush(ctx)
	}
	return true
}

func transformEvent(ev model.ConnectionEvent) eventRow {
	return eventRow{
		ID:         ev.ID.String(),
		SessionID:  ev.Session.String(),
		Client:     ev.Client,
		EventType:  ev.EventType,
		Detail:     ev.Detail,
		OccurredAt: ev.OccurredAt,
	}
}

func transformSample(s model.StateSample) sampleRow {
	return sampleRow{
		SessionID: s.Session.String(),
		Client:    s.Client,
		State:     s.State,
		Integer:   s.Integer,
		Float:     s.Float,
		String:    s.String,
		SampledAt: s.SampledAt,
	}
}

// flush writes both batches. Failed batches are logged and dropped.
func (w *EventWriter) flush(ctx context.Context) {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	w.batchMu.Lock()
	events := w.eventBatch
	samples := w.sampleBatch
	if len(events) == 0 && len(samples) == 0 {
		w.batchMu.Unlock()
		return
	}
	// Take ownership of current batches
	w.eventBatch = make([]eventRow, 0, w.cfg.BatchSize)
	w.sampleBatch = make([]sampleRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	if len(events) > 0 {
		w.write(ctx, TableEvents, len(events), func(b *pgx.Batch) {
			for _, r := range events {
				b.Queue(`
					INSERT INTO connection_events (id, session_id, client, event_type, detail, occurred_at)
					VALUES ($1, $2, $3, $4, $5, $6)
					ON CONFLICT (id) DO NOTHING
				`, r.ID, r.SessionID, r.Client, r.EventType, r.Detail, r.OccurredAt)
			}
		}, func(inserted int64) { w.stats.EventInserts += inserted })
	}

	if len(samples) > 0 {
		w.write(ctx, TableSamples, len(samples), func(b *pgx.Batch) {
			for _, r := range samples {
				b.Queue(`
					INSERT INTO state_samples (session_id, client, state, integer_value, float_value, string_value, sampled_at)
					VALUES ($1, $2, $3, $4, $5, $6, $7)
					ON CONFLICT (client, state, sampled_at) DO NOTHING
				`, r.SessionID, r.Client, r.State, r.Integer, r.Float, r.String, r.SampledAt)
			}
		}, func(inserted int64) { w.stats.SampleInserts += inserted })
	}

	w.batchMu.Lock()
	w.stats.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed events",
		"events", len(events),
		"samples", len(samples),
		"duration", time.Since(start),
	)
}

// write sends one table's batch and updates counters. inserted is called
// under batchMu.
func (w *EventWriter) write(ctx context.Context, table string, n int, queue func(*pgx.Batch), inserted func(int64)) {
	batch := &pgx.Batch{}
	queue(batch)

	conflicts, err := w.batchInsert(ctx, batch, n)
	if err != nil {
		w.logger.Error("batch insert failed", "table", table, "error", err, "count", n)
		w.metrics.WriteError(table)
		w.batchMu.Lock()
		w.stats.Errors++
		w.batchMu.Unlock()
		return
	}

	w.metrics.BatchFlushed(table, n-conflicts)
	w.batchMu.Lock()
	inserted(int64(n - conflicts))
	w.stats.Conflicts += int64(conflicts)
	w.batchMu.Unlock()
}

// batchInsert executes a queued batch of n inserts and counts conflicts.
func (w *EventWriter) batchInsert(ctx context.Context, batch *pgx.Batch, n int) (conflicts int, err error) {
	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < n; i++ {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
