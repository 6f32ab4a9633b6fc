package writer

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrStopped is returned when a record is offered after Stop.
var ErrStopped = errors.New("event writer stopped")

// Table names used for metrics and logging.
const (
	TableEvents  = "connection_events"
	TableSamples = "state_samples"
)

// Event types recorded by Track.
const (
	EventConnected    = "connected"
	EventDisconnected = "disconnected"
	EventOpen         = "open"
	EventClose        = "close"
)

// WriterConfig contains configuration for the event writer.
type WriterConfig struct {
	// BatchSize is the number of rows to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration

	// BufferSize is the initial capacity of each input buffer.
	BufferSize int
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     500,
		FlushInterval: time.Second,
		BufferSize:    1024,
	}
}

// Batcher sends a queued batch. *pgxpool.Pool satisfies it.
type Batcher interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// eventRow represents a row for the connection_events table.
type eventRow struct {
	ID         string // UUID
	SessionID  string // UUID
	Client     string
	EventType  string
	Detail     string
	OccurredAt int64 // Microseconds
}

// sampleRow represents a row for the state_samples table.
type sampleRow struct {
	SessionID string // UUID
	Client    string
	State     string
	Integer   int32
	Float     float32
	String    string
	SampledAt int64 // Microseconds
}

// WriterMetrics holds counters for the event writer.
type WriterMetrics struct {
	EventInserts  int64
	SampleInserts int64
	Conflicts     int64
	Errors        int64
	Flushes       int64
	Dropped       int64 // Records offered after Stop
}
