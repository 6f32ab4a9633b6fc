package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "simlink"

// Metrics holds the collectors for one client.
type Metrics struct {
	connectAttempts  prometheus.Counter
	connectSuccesses prometheus.Counter
	connectFailures  prometheus.Counter
	disconnects      prometheus.Counter
	connected        prometheus.Gauge

	messages        *prometheus.CounterVec
	unknownMessages prometheus.Counter

	earlyErrors      prometheus.Counter
	handlerEvictions prometheus.Counter
	earlyEvictions   prometheus.Counter

	batchesFlushed *prometheus.CounterVec
	rowsWritten    *prometheus.CounterVec
	writeErrors    *prometheus.CounterVec

	samples        *prometheus.CounterVec
	sampleFailures *prometheus.CounterVec
}

// New creates the collectors for client and registers them on reg.
func New(reg prometheus.Registerer, client string) (*Metrics, error) {
	labels := prometheus.Labels{"client": client}

	counter := func(subsystem, name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        name,
			ConstLabels: labels,
			Help:        help,
		})
	}
	counterVec := func(subsystem, name, help, label string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        name,
			ConstLabels: labels,
			Help:        help,
		}, []string{label})
	}

	m := &Metrics{
		connectAttempts:  counter("connection", "connect_attempts_total", "Total number of connection attempts"),
		connectSuccesses: counter("connection", "connect_successes_total", "Total number of successful connections"),
		connectFailures:  counter("connection", "connect_failures_total", "Total number of failed connection attempts"),
		disconnects:      counter("connection", "disconnects_total", "Total number of disconnects"),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "connection",
			Name:        "connected",
			ConstLabels: labels,
			Help:        "1 while the client is connected, 0 otherwise",
		}),

		messages:        counterVec("dispatch", "messages_total", "Inbound messages dispatched by kind", "kind"),
		unknownMessages: counter("dispatch", "unknown_messages_total", "Inbound messages of unknown kind dropped"),

		earlyErrors:      counter("router", "early_errors_total", "Exceptions buffered before their handler was registered"),
		handlerEvictions: counter("router", "handler_evictions_total", "Pending exception handlers evicted by the capacity bound"),
		earlyEvictions:   counter("router", "early_error_evictions_total", "Buffered early errors evicted by the capacity bound"),

		batchesFlushed: counterVec("writer", "batches_flushed_total", "Batches flushed to the database", "table"),
		rowsWritten:    counterVec("writer", "rows_written_total", "Rows written to the database", "table"),
		writeErrors:    counterVec("writer", "write_errors_total", "Failed batch writes", "table"),

		samples:        counterVec("poller", "samples_total", "System state samples collected", "state"),
		sampleFailures: counterVec("poller", "sample_failures_total", "System state samples that failed or timed out", "state"),
	}

	collectors := []prometheus.Collector{
		m.connectAttempts, m.connectSuccesses, m.connectFailures, m.disconnects, m.connected,
		m.messages, m.unknownMessages,
		m.earlyErrors, m.handlerEvictions, m.earlyEvictions,
		m.batchesFlushed, m.rowsWritten, m.writeErrors,
		m.samples, m.sampleFailures,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics for %q: %w", client, err)
		}
	}

	return m, nil
}

// ConnectAttempt records a connection attempt.
func (m *Metrics) ConnectAttempt() {
	if m == nil {
		return
	}
	m.connectAttempts.Inc()
}

// ConnectResult records the outcome of a connection attempt.
func (m *Metrics) ConnectResult(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.connectSuccesses.Inc()
		m.connected.Set(1)
		return
	}
	m.connectFailures.Inc()
}

// Disconnected records a disconnect.
func (m *Metrics) Disconnected() {
	if m == nil {
		return
	}
	m.disconnects.Inc()
	m.connected.Set(0)
}

// MessageDispatched records an inbound message of the given kind.
func (m *Metrics) MessageDispatched(kind string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(kind).Inc()
}

// UnknownMessage records a dropped message of unknown kind.
func (m *Metrics) UnknownMessage() {
	if m == nil {
		return
	}
	m.unknownMessages.Inc()
}

// EarlyErrorBuffered records an exception that arrived before its handler.
func (m *Metrics) EarlyErrorBuffered() {
	if m == nil {
		return
	}
	m.earlyErrors.Inc()
}

// HandlerEvicted records a pending handler dropped by the capacity bound.
func (m *Metrics) HandlerEvicted() {
	if m == nil {
		return
	}
	m.handlerEvictions.Inc()
}

// EarlyErrorEvicted records a buffered early error dropped by the capacity bound.
func (m *Metrics) EarlyErrorEvicted() {
	if m == nil {
		return
	}
	m.earlyEvictions.Inc()
}

// BatchFlushed records a successful batch write of rows to table.
func (m *Metrics) BatchFlushed(table string, rows int) {
	if m == nil {
		return
	}
	m.batchesFlushed.WithLabelValues(table).Inc()
	m.rowsWritten.WithLabelValues(table).Add(float64(rows))
}

// WriteError records a failed batch write to table.
func (m *Metrics) WriteError(table string) {
	if m == nil {
		return
	}
	m.writeErrors.WithLabelValues(table).Inc()
}

// Sampled records the outcome of one system state sample.
func (m *Metrics) Sampled(state string, ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.samples.WithLabelValues(state).Inc()
		return
	}
	m.sampleFailures.WithLabelValues(state).Inc()
}
