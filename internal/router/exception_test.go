package router

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/simlink/internal/model"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 16, cfg.MaxHandlers)
	assert.Equal(t, 64, cfg.MaxEarlyErrors)
}

func TestExceptionRouter_HandlerThenError(t *testing.T) {
	r := NewExceptionRouter(DefaultConfig(), nil, nil)

	var got *model.SimException
	r.RegisterHandler(5, func(e *model.SimException) { got = e })
	assert.Equal(t, 1, r.Stats().PendingHandlers)

	r.ReportError(5, 7, 2)

	require.NotNil(t, got)
	assert.Equal(t, uint32(7), got.ExceptionID)
	assert.Equal(t, "Unknown event name", got.Name)
	assert.Equal(t, uint32(2), got.ParamIndex)

	stats := r.Stats()
	assert.Equal(t, 0, stats.PendingHandlers)
	assert.Equal(t, 0, stats.EarlyErrors)
	assert.Equal(t, int64(1), stats.Routed)
}

func TestExceptionRouter_EarlyError(t *testing.T) {
	r := NewExceptionRouter(DefaultConfig(), nil, nil)

	r.ReportError(9, 3, 1)
	assert.Equal(t, 1, r.Stats().EarlyErrors)

	calls := 0
	r.RegisterHandler(9, func(e *model.SimException) {
		calls++
		assert.Equal(t, "Unrecognized ID", e.Name)
	})

	assert.Equal(t, 1, calls, "handler invoked immediately for early error")
	stats := r.Stats()
	assert.Equal(t, 0, stats.EarlyErrors)
	assert.Equal(t, 0, stats.PendingHandlers, "early error and handler never coexist")
}

func TestExceptionRouter_EarlyErrorConsumedOnce(t *testing.T) {
	r := NewExceptionRouter(DefaultConfig(), nil, nil)

	r.ReportError(4, 3, 1)

	calls := 0
	r.RegisterHandler(4, func(*model.SimException) { calls++ })
	require.Equal(t, 1, calls)

	// The handler was consumed with the early error, so a repeat report
	// for the same send is buffered rather than delivered again.
	r.ReportError(4, 3, 1)
	assert.Equal(t, 1, calls)

	stats := r.Stats()
	assert.Equal(t, 0, stats.PendingHandlers)
	assert.Equal(t, 1, stats.EarlyErrors)
	assert.Equal(t, int64(1), stats.Routed)
}

func TestExceptionRouter_HandlerConsumedOnce(t *testing.T) {
	r := NewExceptionRouter(DefaultConfig(), nil, nil)

	calls := 0
	r.RegisterHandler(6, func(*model.SimException) { calls++ })
	r.ReportError(6, 1, 0)
	r.ReportError(6, 1, 0)

	assert.Equal(t, 1, calls)
}

func TestExceptionRouter_DuplicateSendID(t *testing.T) {
	r := NewExceptionRouter(DefaultConfig(), nil, nil)

	var first, second int
	r.RegisterHandler(8, func(*model.SimException) { first++ })
	r.RegisterHandler(8, func(*model.SimException) { second++ })
	assert.Equal(t, 1, r.Stats().PendingHandlers, "one handler per send id")

	r.ReportError(8, 1, 0)
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)

	r.ReportError(9, 1, 0)
	r.ReportError(9, 7, 2)
	assert.Equal(t, 1, r.Stats().EarlyErrors, "one early error per send id")

	var got *model.SimException
	r.RegisterHandler(9, func(e *model.SimException) { got = e })
	require.NotNil(t, got)
	assert.Equal(t, uint32(7), got.ExceptionID, "latest report wins")
	assert.Equal(t, uint32(2), got.ParamIndex)
}

func TestExceptionRouter_UnrelatedSendIDs(t *testing.T) {
	r := NewExceptionRouter(DefaultConfig(), nil, nil)

	called := false
	r.RegisterHandler(1, func(*model.SimException) { called = true })
	r.ReportError(2, 1, 0)

	assert.False(t, called)
	stats := r.Stats()
	assert.Equal(t, 1, stats.PendingHandlers)
	assert.Equal(t, 1, stats.EarlyErrors)
}

func TestExceptionRouter_HandlerEviction(t *testing.T) {
	r := NewExceptionRouter(Config{MaxHandlers: 2, MaxEarlyErrors: 4}, nil, nil)

	var fired []model.SendID
	for id := model.SendID(1); id <= 3; id++ {
		id := id
		r.RegisterHandler(id, func(*model.SimException) { fired = append(fired, id) })
	}

	stats := r.Stats()
	assert.Equal(t, 2, stats.PendingHandlers)
	assert.Equal(t, int64(1), stats.HandlerEvictions)

	// The oldest handler is gone, so its exception is buffered instead.
	r.ReportError(1, 1, 0)
	r.ReportError(3, 1, 0)
	assert.Equal(t, []model.SendID{3}, fired)
	assert.Equal(t, 1, r.Stats().EarlyErrors)
}

func TestExceptionRouter_EarlyErrorEviction(t *testing.T) {
	r := NewExceptionRouter(Config{MaxHandlers: 2, MaxEarlyErrors: 2}, nil, nil)

	r.ReportError(1, 1, 0)
	r.ReportError(2, 1, 0)
	r.ReportError(3, 1, 0)

	stats := r.Stats()
	assert.Equal(t, 2, stats.EarlyErrors)
	assert.Equal(t, int64(1), stats.EarlyErrorEvictions)

	called := false
	r.RegisterHandler(1, func(*model.SimException) { called = true })
	assert.False(t, called, "evicted early error is not replayed")
}

func TestExceptionRouter_Reset(t *testing.T) {
	r := NewExceptionRouter(DefaultConfig(), nil, nil)
	r.RegisterHandler(1, func(*model.SimException) {})
	r.ReportError(2, 1, 0)

	r.Reset()

	stats := r.Stats()
	assert.Equal(t, 0, stats.PendingHandlers)
	assert.Equal(t, 0, stats.EarlyErrors)
}

func TestExceptionRouter_HandlerMayReenter(t *testing.T) {
	r := NewExceptionRouter(DefaultConfig(), nil, nil)

	r.RegisterHandler(1, func(*model.SimException) {
		// Called outside the lock, so re-entering must not deadlock.
		r.RegisterHandler(2, func(*model.SimException) {})
		_ = r.Stats()
	})
	r.ReportError(1, 1, 0)

	assert.Equal(t, 1, r.Stats().PendingHandlers)
}

func TestExceptionRouter_InvalidConfigFallsBack(t *testing.T) {
	r := NewExceptionRouter(Config{}, nil, nil)
	for id := model.SendID(1); id <= 20; id++ {
		r.RegisterHandler(id, func(*model.SimException) {})
	}
	assert.Equal(t, 16, r.Stats().PendingHandlers)
}

func TestExceptionRouter_Concurrent(t *testing.T) {
	r := NewExceptionRouter(Config{MaxHandlers: 1000, MaxEarlyErrors: 1000}, nil, nil)

	var mu sync.Mutex
	delivered := 0

	var wg sync.WaitGroup
	for id := model.SendID(1); id <= 200; id++ {
		id := id
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.RegisterHandler(id, func(*model.SimException) {
				mu.Lock()
				delivered++
				mu.Unlock()
			})
		}()
		go func() {
			defer wg.Done()
			r.ReportError(id, 1, 0)
		}()
	}
	wg.Wait()

	assert.Equal(t, 200, delivered, "every exception reaches its handler regardless of order")
	stats := r.Stats()
	assert.Equal(t, 0, stats.PendingHandlers)
	assert.Equal(t, 0, stats.EarlyErrors)
}
