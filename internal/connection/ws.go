package connection

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/simlink/internal/model"
	"github.com/rickgao/simlink/internal/router"
)

// WSTransport is a Transport talking to a simulator bridge over WebSocket.
// Each Open dials a new socket; inbound frames are decoded by a read loop
// and queued until polled.
type WSTransport struct {
	cfg    TransportConfig
	logger *slog.Logger

	mu       sync.Mutex
	nextID   Handle
	sessions map[Handle]*wsSession
}

// wsSession is one open socket.
type wsSession struct {
	conn    *websocket.Conn
	inbound *router.GrowableBuffer[model.Message]
	done    chan struct{}
	sendID  atomic.Uint32

	// Write serialization
	writeMu sync.Mutex

	mu         sync.Mutex
	lastPingAt time.Time
	err        error // Set once the read or heartbeat loop gives up
	closed     bool
}

// NewWSTransport creates a WebSocket transport. Zero durations and sizes
// fall back to DefaultTransportConfig.
func NewWSTransport(cfg TransportConfig, logger *slog.Logger) *WSTransport {
	if logger == nil {
		logger = slog.Default()
	}

	def := DefaultTransportConfig()
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = def.PingTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}

	return &WSTransport{
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[Handle]*wsSession),
	}
}

// Open dials the bridge and announces clientName.
func (t *WSTransport) Open(ctx context.Context, clientName string) (Handle, error) {
	header := http.Header{}
	header.Set("Accept", "application/json")
	header.Set("X-Client-Name", clientName)

	dialer := websocket.Dialer{
		HandshakeTimeout: t.cfg.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, t.cfg.URL, header)
	if err != nil {
		return 0, fmt.Errorf("dial %s: %w", t.cfg.URL, err)
	}

	s := &wsSession{
		conn:       conn,
		inbound:    router.NewGrowableBuffer[model.Message](t.cfg.BufferSize),
		done:       make(chan struct{}),
		lastPingAt: time.Now(),
	}

	// Server sends ping, we respond with pong
	conn.SetPingHandler(func(data string) error {
		s.touch()
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})
	conn.SetPongHandler(func(string) error {
		s.touch()
		return nil
	})

	if err := s.write(model.Envelope{Type: model.WireOpen, Name: clientName}, t.cfg.WriteTimeout); err != nil {
		conn.Close()
		return 0, fmt.Errorf("send open: %w", err)
	}

	t.mu.Lock()
	t.nextID++
	h := t.nextID
	t.sessions[h] = s
	t.mu.Unlock()

	go t.readLoop(h, s)
	go t.heartbeatLoop(h, s)

	t.logger.Debug("websocket connected", "url", t.cfg.URL, "handle", h)
	return h, nil
}

// Close tells the bridge the client is leaving and closes the socket.
func (t *WSTransport) Close(h Handle) error {
	t.mu.Lock()
	s, ok := t.sessions[h]
	delete(t.sessions, h)
	t.mu.Unlock()

	if !ok {
		return ErrUnknownHandle
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrAlreadyClosed
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)
	s.inbound.Close()

	// Best effort: the bridge may already be gone.
	s.write(model.Envelope{Type: model.WireClose}, t.cfg.WriteTimeout)
	s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return s.conn.Close()
}

// PollNext returns the next queued message. Once the socket has failed and
// the queue is drained, it returns the failure.
func (t *WSTransport) PollNext(h Handle) (model.Message, error) {
	s, err := t.session(h)
	if err != nil {
		return nil, err
	}

	if msg, ok := s.inbound.TryReceive(); ok {
		return msg, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return nil, s.err
}

// Send encodes req under a fresh send id and writes it.
func (t *WSTransport) Send(h Handle, req model.Request) (model.SendID, error) {
	s, err := t.session(h)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	failed := s.err
	s.mu.Unlock()
	if failed != nil {
		return 0, fmt.Errorf("%w: %v", ErrNotConnected, failed)
	}

	id := model.SendID(s.sendID.Add(1))
	data, err := model.EncodeRequest(id, req)
	if err != nil {
		return 0, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return 0, fmt.Errorf("write %s: %w", req.Op(), err)
	}
	return id, nil
}

// Stats returns the inbound queue statistics for an open handle.
func (t *WSTransport) Stats(h Handle) (router.BufferStats, error) {
	s, err := t.session(h)
	if err != nil {
		return router.BufferStats{}, err
	}
	return s.inbound.Stats(), nil
}

func (t *WSTransport) session(h Handle) (*wsSession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[h]
	if !ok {
		return nil, ErrUnknownHandle
	}
	return s, nil
}

// readLoop decodes frames into the inbound queue until the socket fails or
// the session is closed.
func (t *WSTransport) readLoop(h Handle, s *wsSession) {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
			default:
				t.logger.Debug("websocket read failed", "handle", h, "error", err)
				s.fail(err)
			}
			return
		}

		msg, err := model.DecodeMessage(data)
		if err != nil {
			t.logger.Warn("dropping undecodable frame", "handle", h, "error", err)
			continue
		}

		if !s.inbound.Send(msg) {
			return
		}
	}
}

// heartbeatLoop pings the bridge and fails the session when it goes quiet.
func (t *WSTransport) heartbeatLoop(h Handle, s *wsSession) {
	ticker := time.NewTicker(t.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(t.cfg.WriteTimeout)
			s.writeMu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline)
			s.writeMu.Unlock()
			if err != nil {
				t.logger.Debug("failed to send ping", "handle", h, "error", err)
			}

			s.mu.Lock()
			lastPing := s.lastPingAt
			s.mu.Unlock()

			if time.Since(lastPing) > t.cfg.PingTimeout {
				t.logger.Warn("no ping received, connection stale",
					"handle", h,
					"last_ping", lastPing,
					"timeout", t.cfg.PingTimeout,
				)
				s.fail(ErrStaleConnection)
				return
			}
		}
	}
}

func (s *wsSession) write(env model.Envelope, timeout time.Duration) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(timeout))
	return s.conn.WriteJSON(env)
}

func (s *wsSession) touch() {
	s.mu.Lock()
	s.lastPingAt = time.Now()
	s.mu.Unlock()
}

func (s *wsSession) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}
