package router

import (
	"sync"

	"github.com/rickgao/simlink/internal/model"
)

// RequestRegistry maps outstanding request ids to the observer awaiting
// their replies.
type RequestRegistry[T any] struct {
	mu      sync.Mutex
	nextID  model.RequestID
	entries map[model.RequestID]Sink[T]
}

// NewRequestRegistry creates an empty registry.
func NewRequestRegistry[T any]() *RequestRegistry[T] {
	return &RequestRegistry[T]{
		entries: make(map[model.RequestID]Sink[T]),
	}
}

// NextID allocates a request id. Ids start at 1 and are never reused.
func (r *RequestRegistry[T]) NextID() model.RequestID {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	return r.nextID
}

// Register associates sink with id.
func (r *RequestRegistry[T]) Register(id model.RequestID, sink Sink[T]) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; ok {
		return ErrAlreadyRegistered
	}
	r.entries[id] = sink
	return nil
}

// Lookup returns the sink registered for id.
func (r *RequestRegistry[T]) Lookup(id model.RequestID) (Sink[T], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sink, ok := r.entries[id]
	return sink, ok
}

// Deregister removes id and reports whether it was registered.
func (r *RequestRegistry[T]) Deregister(id model.RequestID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return false
	}
	delete(r.entries, id)
	return true
}

// Dispatch delivers value to the sink registered for id. It reports false
// when no sink is registered.
func (r *RequestRegistry[T]) Dispatch(id model.RequestID, value T) bool {
	sink, ok := r.Lookup(id)
	if !ok {
		return false
	}
	sink.OnNext(value)
	return true
}

// Reset removes every entry and fails it with err (ErrReset if nil).
// It returns the number of sinks that were still pending.
func (r *RequestRegistry[T]) Reset(err error) int {
	return FailAll(r.Take(), err)
}

// Take removes every entry and returns the sinks without notifying them.
// Ids allocated afterwards are unaffected, so a caller can fail the taken
// sinks later without touching requests registered in the meantime.
func (r *RequestRegistry[T]) Take() []Sink[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	taken := make([]Sink[T], 0, len(r.entries))
	for _, sink := range r.entries {
		taken = append(taken, sink)
	}
	r.entries = make(map[model.RequestID]Sink[T])
	return taken
}

// FailAll fails every sink that has not completed with err (ErrReset if
// nil) and returns how many it failed.
func FailAll[T any](sinks []Sink[T], err error) int {
	if err == nil {
		err = ErrReset
	}

	failed := 0
	for _, sink := range sinks {
		if !sink.Completed() {
			sink.OnError(err)
			failed++
		}
	}
	return failed
}

// Len returns the number of registered ids.
func (r *RequestRegistry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
