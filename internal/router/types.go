package router

import (
	"errors"

	"github.com/rickgao/simlink/internal/model"
)

// Errors
var (
	ErrAlreadyRegistered = errors.New("request id already registered")
	ErrReset             = errors.New("request registry reset")
)

// Config bounds the exception router's memory.
type Config struct {
	MaxHandlers    int // Pending handlers kept before the oldest is evicted
	MaxEarlyErrors int // Unclaimed exceptions kept before the oldest is evicted
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		MaxHandlers:    16,
		MaxEarlyErrors: 64,
	}
}

// Handler receives the exception reported for the send it was registered on.
type Handler func(*model.SimException)

// Stats contains exception router statistics.
type Stats struct {
	PendingHandlers     int
	EarlyErrors         int
	Routed              int64 // Exceptions delivered to a handler
	HandlerEvictions    int64
	EarlyErrorEvictions int64
}

// Sink is the subset of an observer the request registry delivers to.
// *reactive.Result and *reactive.Stream satisfy it.
type Sink[T any] interface {
	OnNext(T)
	OnError(error)
	Completed() bool
}

type pendingHandler struct {
	sendID  model.SendID
	handler Handler
}

type earlyError struct {
	sendID      model.SendID
	exceptionID uint32
	paramIndex  uint32
}
