package router

import (
	"log/slog"
	"sync"

	"github.com/rickgao/simlink/internal/metrics"
	"github.com/rickgao/simlink/internal/model"
)

// ExceptionRouter correlates exceptions reported by the simulator with the
// send that caused them.
//
// The reply to a send can arrive before the sender has registered its
// handler, so unclaimed exceptions are kept as early errors and handed over
// when the handler shows up. Both the handler queue and the early-error
// buffer are bounded and evict their oldest entry when full.
type ExceptionRouter struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	handlers []pendingHandler
	early    []earlyError

	routed              int64
	handlerEvictions    int64
	earlyErrorEvictions int64
}

// NewExceptionRouter creates an exception router. Non-positive bounds fall
// back to DefaultConfig.
func NewExceptionRouter(cfg Config, m *metrics.Metrics, logger *slog.Logger) *ExceptionRouter {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.MaxHandlers <= 0 {
		cfg.MaxHandlers = def.MaxHandlers
	}
	if cfg.MaxEarlyErrors <= 0 {
		cfg.MaxEarlyErrors = def.MaxEarlyErrors
	}

	return &ExceptionRouter{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
	}
}

// RegisterHandler arranges for h to receive the exception for sendID.
// If that exception already arrived, h is called immediately. A second
// handler for the same sendID replaces the first.
func (r *ExceptionRouter) RegisterHandler(sendID model.SendID, h Handler) {
	r.mu.Lock()

	for i, e := range r.early {
		if e.sendID == sendID {
			r.early = append(r.early[:i], r.early[i+1:]...)
			r.routed++
			r.mu.Unlock()

			h(model.NewSimException(e.exceptionID, e.paramIndex))
			return
		}
	}

	for i, p := range r.handlers {
		if p.sendID == sendID {
			r.handlers[i].handler = h
			r.mu.Unlock()
			return
		}
	}

	if len(r.handlers) >= r.cfg.MaxHandlers {
		evicted := r.handlers[0]
		r.handlers = r.handlers[1:]
		r.handlerEvictions++
		r.metrics.HandlerEvicted()
		r.logger.Debug("exception handler evicted", "send_id", evicted.sendID)
	}
	r.handlers = append(r.handlers, pendingHandler{sendID: sendID, handler: h})
	r.mu.Unlock()
}

// ReportError routes an exception to the handler registered for sendID, or
// buffers it until one is registered. A later exception for a sendID that is
// still buffered overwrites the earlier one.
func (r *ExceptionRouter) ReportError(sendID model.SendID, exceptionID, paramIndex uint32) {
	r.mu.Lock()

	for i, p := range r.handlers {
		if p.sendID == sendID {
			r.handlers = append(r.handlers[:i], r.handlers[i+1:]...)
			r.routed++
			r.mu.Unlock()

			p.handler(model.NewSimException(exceptionID, paramIndex))
			return
		}
	}

	for i, e := range r.early {
		if e.sendID == sendID {
			r.early[i].exceptionID = exceptionID
			r.early[i].paramIndex = paramIndex
			r.mu.Unlock()
			return
		}
	}

	if len(r.early) >= r.cfg.MaxEarlyErrors {
		evicted := r.early[0]
		r.early = r.early[1:]
		r.earlyErrorEvictions++
		r.metrics.EarlyErrorEvicted()
		r.logger.Warn("early exception evicted",
			"send_id", evicted.sendID,
			"exception", model.ExceptionName(evicted.exceptionID),
		)
	}
	r.early = append(r.early, earlyError{
		sendID:      sendID,
		exceptionID: exceptionID,
		paramIndex:  paramIndex,
	})
	r.mu.Unlock()

	r.metrics.EarlyErrorBuffered()
	r.logger.Debug("exception buffered before handler",
		"send_id", sendID,
		"exception", model.ExceptionName(exceptionID),
		"param_index", paramIndex,
	)
}

// Reset drops every pending handler and buffered early error. Send ids are
// only meaningful within one connection, so this runs on disconnect.
func (r *ExceptionRouter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers = nil
	r.early = nil
}

// Stats returns current statistics.
func (r *ExceptionRouter) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Stats{
		PendingHandlers:     len(r.handlers),
		EarlyErrors:         len(r.early),
		Routed:              r.routed,
		HandlerEvictions:    r.handlerEvictions,
		EarlyErrorEvictions: r.earlyErrorEvictions,
	}
}
