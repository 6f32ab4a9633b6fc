package connection

import (
	"context"
	"errors"
	"time"

	"github.com/rickgao/simlink/internal/model"
	"github.com/rickgao/simlink/internal/router"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrDisconnected    = errors.New("disconnected before reply")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrUnknownHandle   = errors.New("unknown transport handle")
	ErrEmptyName       = errors.New("client name is empty")
)

// Handle identifies an open transport session.
type Handle uint64

// Transport is the poll-based link to the simulator.
type Transport interface {
	// Open establishes a session announcing clientName.
	Open(ctx context.Context, clientName string) (Handle, error)

	// Close ends the session. Closing an unknown handle returns ErrUnknownHandle.
	Close(h Handle) error

	// PollNext returns the next inbound message without blocking, or
	// nil, nil when none is queued. An error means the session is broken.
	PollNext(h Handle) (model.Message, error)

	// Send writes req and returns the send id the simulator will quote in
	// any exception it reports for it.
	Send(h Handle, req model.Request) (model.SendID, error)
}

// State is the connection phase reported by the manager.
type State int

const (
	StateStopped      State = iota // Not running and not connected
	StateDisconnected              // Running but not connected
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Config configures a Manager.
type Config struct {
	Name                     string        // Client name announced on Open
	StartRunning             bool          // Start the background loop when built through a Registry
	AutoConnect              bool          // Connect and reconnect without being asked
	StopOnDisconnect         bool          // Stop the background loop when the simulator quits
	AutoConnectRetryPeriod   time.Duration // Wait between failed auto-connect attempts
	MessagePollerRetryPeriod time.Duration // Wait between inbound drains while connected
	Router                   router.Config // Exception router bounds
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		AutoConnectRetryPeriod:   5 * time.Second,
		MessagePollerRetryPeriod: 100 * time.Millisecond,
		Router:                   router.DefaultConfig(),
	}
}

// TransportConfig configures a WebSocket transport.
type TransportConfig struct {
	URL              string        // Bridge URL (e.g., ws://localhost:8500/simconnect)
	HandshakeTimeout time.Duration // Dial timeout
	PingInterval     time.Duration // Interval between keepalive pings
	PingTimeout      time.Duration // Max time without ping/pong before the session is stale
	WriteTimeout     time.Duration // Write deadline for sends
	BufferSize       int           // Initial inbound queue capacity
}

// DefaultTransportConfig returns sensible defaults.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		PingTimeout:      60 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       1024,
	}
}
