package connection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/simlink/internal/callback"
	"github.com/rickgao/simlink/internal/metrics"
	"github.com/rickgao/simlink/internal/model"
	"github.com/rickgao/simlink/internal/router"
)

// Manager keeps one client connected to the simulator and fans inbound
// messages out to subscribers.
//
// All state lives behind mu. Every change to it closes the current changed
// channel and replaces it, which wakes the background loop so it can
// re-evaluate what to do next.
type Manager struct {
	cfg       Config
	transport Transport
	logger    *slog.Logger
	metrics   *metrics.Metrics

	exceptions *router.ExceptionRouter
	requests   *router.RequestRegistry[model.SystemStateReply]

	opMu       sync.Mutex // Serializes connect and disconnect
	dispatchMu sync.Mutex // Held while draining inbound messages

	mu                       sync.Mutex
	phase                    State // StateDisconnected, StateConnecting or StateConnected
	running                  bool
	autoConnect              bool
	autoConnectRetryPeriod   time.Duration
	messagePollerRetryPeriod time.Duration
	handle                   Handle
	session                  uuid.UUID
	appInfo                  model.AppInfo
	changed                  chan struct{}
	loopDone                 chan struct{} // Closed when the latest loop exits

	onConnect     callback.List[struct{}]
	onDisconnect  callback.List[struct{}]
	onOpen        callback.List[model.AppInfo]
	onClose       callback.List[struct{}]
	onStateChange callback.List[string]
}

// ManagerStats provides statistics about the manager.
type ManagerStats struct {
	State           State
	Running         bool
	Session         uuid.UUID
	PendingRequests int
	Router          router.Stats
}

// Option customizes a Manager at construction.
type Option func(*Manager)

// WithMetrics records connection and dispatch activity on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(mgr *Manager) {
		mgr.metrics = m
	}
}

// WithStateLogger subscribes fn to state-change descriptions before the
// manager can emit any.
func WithStateLogger(fn func(string)) Option {
	return func(mgr *Manager) {
		mgr.onStateChange.Append(fn)
	}
}

// NewManager creates a stopped, disconnected manager. Zero retry periods
// fall back to DefaultConfig.
func NewManager(cfg Config, transport Transport, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	def := DefaultConfig()
	if cfg.AutoConnectRetryPeriod <= 0 {
		cfg.AutoConnectRetryPeriod = def.AutoConnectRetryPeriod
	}
	if cfg.MessagePollerRetryPeriod <= 0 {
		cfg.MessagePollerRetryPeriod = def.MessagePollerRetryPeriod
	}

	m := &Manager{
		cfg:                      cfg,
		transport:                transport,
		logger:                   logger.With("client", cfg.Name),
		requests:                 router.NewRequestRegistry[model.SystemStateReply](),
		phase:                    StateDisconnected,
		autoConnect:              cfg.AutoConnect,
		autoConnectRetryPeriod:   cfg.AutoConnectRetryPeriod,
		messagePollerRetryPeriod: cfg.MessagePollerRetryPeriod,
		changed:                  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.exceptions = router.NewExceptionRouter(cfg.Router, m.metrics, m.logger)

	return m
}

// Name returns the client name.
func (m *Manager) Name() string { return m.cfg.Name }

// -----------------------------------------------------------------------------
// Background loop
// -----------------------------------------------------------------------------

// Start launches the background loop. It is a no-op when already running.
// Cancelling ctx stops the loop as if Stop had been called.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}

	prev := m.loopDone
	done := make(chan struct{})

	m.running = true
	m.loopDone = done
	m.broadcast()
	m.mu.Unlock()

	m.stateChanged("Starting connector loop.")
	go m.run(ctx, prev, done)

	m.logger.Info("connection manager started",
		"auto_connect", m.AutoConnect(),
		"retry_period", m.AutoConnectRetryPeriod(),
	)
	return nil
}

// Stop asks the background loop to exit and returns at once. The loop
// finishes whatever transport call it is in first; use Wait or Done to
// observe the exit. Stop does not disconnect and is safe to call from any
// subscriber.
func (m *Manager) Stop() {
	if m.halt() {
		m.logger.Info("stopping connection manager")
	}
}

// Wait blocks until the most recently started loop has exited or ctx
// expires. Calling it from a lifecycle subscriber deadlocks until ctx does.
func (m *Manager) Wait(ctx context.Context) error {
	select {
	case <-m.Done():
		return nil
	case <-ctx.Done():
		m.logger.Warn("shutdown timeout, loop still exiting")
		return ctx.Err()
	}
}

// Done returns a channel closed when the most recently started loop exits.
// It is already closed if the manager was never started.
func (m *Manager) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loopDone == nil {
		m.loopDone = make(chan struct{})
		close(m.loopDone)
	}
	return m.loopDone
}

// halt clears running and wakes the loop. It reports whether the manager
// was running.
func (m *Manager) halt() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return false
	}
	m.running = false
	m.broadcast()
	return true
}

func (m *Manager) run(ctx context.Context, prev, done chan struct{}) {
	defer close(done)
	defer m.logger.Info("connection manager stopped")

	// A loop from an earlier Start may still be winding down.
	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
		}
	}

	// active reports whether this loop should keep going. Must be called
	// with mu held.
	active := func() bool {
		return m.running && m.loopDone == done
	}

	var branch string
	for {
		m.mu.Lock()
		if ctx.Err() != nil && active() {
			m.running = false
			m.broadcast()
		}
		running, phase, auto := active(), m.phase, m.autoConnect
		m.mu.Unlock()

		if !running {
			return
		}

		switch {
		case phase == StateConnected:
			m.enter(&branch, "Handling messages.")
			m.drain()
			m.waitFor(ctx, m.MessagePollerRetryPeriod(), func() bool {
				return !active() || m.phase != StateConnected
			})

		case auto:
			m.enter(&branch, "Starting auto-connect loop.")
			// Stopping never cuts a dial short; the loop notices once it returns.
			if !m.connect(context.WithoutCancel(ctx), true) {
				m.waitFor(ctx, m.AutoConnectRetryPeriod(), func() bool {
					return !active() || !m.autoConnect || m.phase == StateConnected
				})
			}

		default:
			m.enter(&branch, "Waiting for connect.")
			m.waitFor(ctx, 0, func() bool {
				return !active() || m.autoConnect || m.phase == StateConnected
			})
		}
	}
}

// waitFor blocks until cond holds, d elapses (if positive) or ctx is done.
// cond is evaluated with mu held.
func (m *Manager) waitFor(ctx context.Context, d time.Duration, cond func() bool) {
	var timeout <-chan time.Time
	if d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		timeout = t.C
	}

	for {
		m.mu.Lock()
		if cond() {
			m.mu.Unlock()
			return
		}
		changed := m.changed
		m.mu.Unlock()

		select {
		case <-changed:
		case <-timeout:
			return
		case <-ctx.Done():
			return
		}
	}
}

// broadcast wakes every waiter. Must be called with mu held.
func (m *Manager) broadcast() {
	close(m.changed)
	m.changed = make(chan struct{})
}

func (m *Manager) enter(branch *string, desc string) {
	if *branch == desc {
		return
	}
	*branch = desc
	m.stateChanged(desc)
}

func (m *Manager) stateChanged(desc string) {
	m.logger.Debug("state changed", "state", desc)
	m.onStateChange.Invoke(desc)
}

// -----------------------------------------------------------------------------
// Connect / Disconnect
// -----------------------------------------------------------------------------

type lifecycleKind int

const (
	eventConnected lifecycleKind = iota
	eventDisconnected
)

type lifecycleEvent struct {
	kind lifecycleKind

	// Requests that were outstanding on the session that just closed.
	pending []router.Sink[model.SystemStateReply]
}

// Connect opens a connection, tearing down the current one first if
// connected. Failures are logged and reported as false.
func (m *Manager) Connect(ctx context.Context) bool {
	return m.connect(ctx, false)
}

func (m *Manager) connect(ctx context.Context, byAutoConnect bool) bool {
	m.opMu.Lock()
	ok, events := m.connectLocked(ctx, byAutoConnect)
	m.opMu.Unlock()

	m.fire(events)
	if ok {
		m.drain()
	}
	return ok
}

// connectLocked does the transport work. Must be called with opMu held.
func (m *Manager) connectLocked(ctx context.Context, byAutoConnect bool) (bool, []lifecycleEvent) {
	var events []lifecycleEvent

	if m.Connected() {
		if byAutoConnect {
			return true, nil
		}
		m.logger.Warn("connect called while connected, reconnecting")
		if ev, ok := m.teardown(); ok {
			events = append(events, ev)
		}
	}

	m.setPhase(StateConnecting)
	m.metrics.ConnectAttempt()

	h, err := m.transport.Open(ctx, m.cfg.Name)
	if err != nil {
		m.setPhase(StateDisconnected)
		m.metrics.ConnectResult(false)
		if byAutoConnect {
			m.logger.Debug("auto-connect attempt failed", "error", err)
		} else {
			m.logger.Error("failed to connect", "error", err)
		}
		return false, events
	}

	m.mu.Lock()
	m.handle = h
	m.session = uuid.New()
	m.phase = StateConnected
	session := m.session
	m.broadcast()
	m.mu.Unlock()

	m.metrics.ConnectResult(true)
	m.logger.Info("connected", "session", session, "auto", byAutoConnect)

	return true, append(events, lifecycleEvent{kind: eventConnected})
}

func (m *Manager) setPhase(p State) {
	m.mu.Lock()
	m.phase = p
	m.broadcast()
	m.mu.Unlock()
}

// Disconnect closes the connection. It reports false if there was none.
func (m *Manager) Disconnect() bool {
	m.opMu.Lock()
	ev, ok := m.teardown()
	m.opMu.Unlock()

	if ok {
		m.fire([]lifecycleEvent{ev})
	}
	return ok
}

// teardown closes the transport session and takes the requests that were
// outstanding on it. Must be called with opMu held.
func (m *Manager) teardown() (lifecycleEvent, bool) {
	m.mu.Lock()
	if m.phase != StateConnected {
		m.mu.Unlock()
		return lifecycleEvent{}, false
	}
	h := m.handle
	session := m.session
	m.phase = StateDisconnected
	m.handle = 0
	m.session = uuid.Nil
	m.appInfo = model.AppInfo{}
	m.broadcast()
	m.mu.Unlock()

	if err := m.transport.Close(h); err != nil {
		m.logger.Warn("transport close failed", "session", session, "error", err)
	}
	pending := m.requests.Take()
	m.exceptions.Reset()
	m.metrics.Disconnected()
	m.logger.Info("disconnected", "session", session)
	return lifecycleEvent{kind: eventDisconnected, pending: pending}, true
}

// fire notifies lifecycle subscribers. Called without opMu so subscribers
// may connect or disconnect.
func (m *Manager) fire(events []lifecycleEvent) {
	for _, ev := range events {
		switch ev.kind {
		case eventConnected:
			m.onConnect.Invoke(struct{}{})
		case eventDisconnected:
			if n := router.FailAll(ev.pending, ErrDisconnected); n > 0 {
				m.logger.Debug("failed outstanding requests", "count", n)
			}
			m.onDisconnect.Invoke(struct{}{})
		}
	}
}

// -----------------------------------------------------------------------------
// Dispatch
// -----------------------------------------------------------------------------

// drain dispatches queued inbound messages until none are left. If another
// drain is already running (possibly further up this goroutine's stack),
// it returns immediately; that drain picks up the remaining messages.
func (m *Manager) drain() {
	if !m.dispatchMu.TryLock() {
		return
	}
	defer m.dispatchMu.Unlock()

	for {
		h, ok := m.connectedHandle()
		if !ok {
			return
		}

		msg, err := m.transport.PollNext(h)
		if err != nil {
			m.logger.Warn("poll failed, disconnecting", "error", err)
			m.disconnectHandle(h)
			return
		}
		if msg == nil {
			return
		}

		m.dispatch(msg)
	}
}

// disconnectHandle disconnects only if h is still the current session.
func (m *Manager) disconnectHandle(h Handle) {
	m.opMu.Lock()
	m.mu.Lock()
	current := m.phase == StateConnected && m.handle == h
	m.mu.Unlock()

	var ev lifecycleEvent
	ok := false
	if current {
		ev, ok = m.teardown()
	}
	m.opMu.Unlock()

	if ok {
		m.fire([]lifecycleEvent{ev})
	}
}

func (m *Manager) dispatch(msg model.Message) {
	kind := string(msg.Kind())

	switch v := msg.(type) {
	case model.ExceptionReply:
		m.logger.Debug("exception received",
			"send_id", v.SendID,
			"exception", model.ExceptionName(v.ExceptionID),
			"param_index", v.ParamIndex,
		)
		m.exceptions.ReportError(v.SendID, v.ExceptionID, v.ParamIndex)

	case model.HandshakeReply:
		m.mu.Lock()
		m.appInfo = v.AppInfo
		m.mu.Unlock()

		m.logger.Info("connected to simulator", "app", v.AppInfo.AppName, "info", v.AppInfo.String())
		m.onOpen.Invoke(v.AppInfo)

	case model.QuitNotice:
		m.logger.Info("simulator quit")
		m.onClose.Invoke(struct{}{})
		m.Disconnect()
		if m.cfg.StopOnDisconnect && m.halt() {
			m.stateChanged("Stopping after simulator quit.")
		}

	case model.SystemStateReply:
		m.logger.Debug("system state received", "request_id", v.RequestID, "integer", v.Integer)
		if !m.requests.Dispatch(v.RequestID, v) {
			m.logger.Warn("reply for unknown request", "request_id", v.RequestID)
		}

	default:
		m.metrics.UnknownMessage()
		m.logger.Warn("unknown message type", "kind", kind)
		return
	}

	m.metrics.MessageDispatched(kind)
}

// -----------------------------------------------------------------------------
// State accessors
// -----------------------------------------------------------------------------

// Running reports whether the background loop is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Connected reports whether a transport session is open.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase == StateConnected
}

// State returns the current connection phase. A manager that is neither
// running nor connected reports StateStopped.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running && m.phase == StateDisconnected {
		return StateStopped
	}
	return m.phase
}

// Session returns the id of the current connection, or uuid.Nil.
func (m *Manager) Session() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// AppInfo returns what the simulator reported about itself on this
// connection. It is zero until the handshake reply arrives.
func (m *Manager) AppInfo() model.AppInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appInfo
}

// AutoConnect reports whether the loop connects on its own.
func (m *Manager) AutoConnect() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.autoConnect
}

// SetAutoConnect turns auto-connect on or off and wakes the loop.
func (m *Manager) SetAutoConnect(on bool) {
	m.mu.Lock()
	m.autoConnect = on
	m.broadcast()
	m.mu.Unlock()
}

func (m *Manager) AutoConnectRetryPeriod() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.autoConnectRetryPeriod
}

// SetAutoConnectRetryPeriod changes the wait between failed auto-connect
// attempts. Non-positive values are ignored.
func (m *Manager) SetAutoConnectRetryPeriod(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	m.autoConnectRetryPeriod = d
	m.mu.Unlock()
}

func (m *Manager) MessagePollerRetryPeriod() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.messagePollerRetryPeriod
}

// SetMessagePollerRetryPeriod changes the wait between inbound drains.
// Non-positive values are ignored.
func (m *Manager) SetMessagePollerRetryPeriod(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	m.messagePollerRetryPeriod = d
	m.mu.Unlock()
}

// Stats returns current statistics.
func (m *Manager) Stats() ManagerStats {
	return ManagerStats{
		State:           m.State(),
		Running:         m.Running(),
		Session:         m.Session(),
		PendingRequests: m.requests.Len(),
		Router:          m.exceptions.Stats(),
	}
}

func (m *Manager) connectedHandle() (Handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handle, m.phase == StateConnected
}

// -----------------------------------------------------------------------------
// Lifecycle subscriptions
// -----------------------------------------------------------------------------

// OnConnect subscribes fn to successful connects.
func (m *Manager) OnConnect(fn func()) callback.ID {
	return m.onConnect.Add(func(struct{}) { fn() })
}

// OnDisconnect subscribes fn to disconnects.
func (m *Manager) OnDisconnect(fn func()) callback.ID {
	return m.onDisconnect.Add(func(struct{}) { fn() })
}

// OnOpen subscribes fn to the simulator's handshake reply.
func (m *Manager) OnOpen(fn func(model.AppInfo)) callback.ID {
	return m.onOpen.Add(fn)
}

// OnClose subscribes fn to the simulator quitting.
func (m *Manager) OnClose(fn func()) callback.ID {
	return m.onClose.Add(func(struct{}) { fn() })
}

// OnStateChange subscribes fn to descriptions of what the loop is doing.
func (m *Manager) OnStateChange(fn func(string)) callback.ID {
	return m.onStateChange.Add(fn)
}

func (m *Manager) RemoveOnConnect(id callback.ID) bool     { return m.onConnect.Remove(id) }
func (m *Manager) RemoveOnDisconnect(id callback.ID) bool  { return m.onDisconnect.Remove(id) }
func (m *Manager) RemoveOnOpen(id callback.ID) bool        { return m.onOpen.Remove(id) }
func (m *Manager) RemoveOnClose(id callback.ID) bool       { return m.onClose.Remove(id) }
func (m *Manager) RemoveOnStateChange(id callback.ID) bool { return m.onStateChange.Remove(id) }
