package reactive

import (
	"context"
	"errors"
	"sync"
)

// ErrNoValue is returned by Get when a Result completed without a value.
var ErrNoValue = errors.New("completed without a value")

// Result is a one-shot observer: the first OnNext sets the value, notifies
// value subscribers and completes the result.
type Result[T any] struct {
	obs  *Observer[T]
	done chan struct{}

	mu    sync.Mutex
	set   bool
	value T
}

// NewResult returns a pending result.
func NewResult[T any]() *Result[T] {
	r := &Result[T]{
		obs:  NewObserver[T](),
		done: make(chan struct{}),
	}
	r.obs.WithOnComplete(func() { close(r.done) })
	return r
}

// Failed returns a result that has already failed with err.
func Failed[T any](err error) *Result[T] {
	r := NewResult[T]()
	r.OnError(err)
	return r
}

func (r *Result[T]) WithOnNext(fn func(T) error) *Result[T] {
	r.obs.WithOnNext(fn)
	return r
}

func (r *Result[T]) WithOnError(fn func(error)) *Result[T] {
	r.obs.WithOnError(fn)
	return r
}

func (r *Result[T]) WithOnComplete(fn func()) *Result[T] {
	r.obs.WithOnComplete(fn)
	return r
}

func (r *Result[T]) Subscribe(next func(T) error, onErr func(error), onComplete func()) *Result[T] {
	r.obs.Subscribe(next, onErr, onComplete)
	return r
}

// Merge forwards every event of r to other.
func (r *Result[T]) Merge(other *Observer[T]) *Result[T] {
	r.obs.Merge(other)
	return r
}

// OnNext sets the value if none is set yet, then completes the result.
func (r *Result[T]) OnNext(v T) {
	r.mu.Lock()
	if r.set || r.obs.Completed() {
		r.mu.Unlock()
		return
	}
	r.set = true
	r.value = v
	r.mu.Unlock()

	r.obs.OnNext(v)
	r.obs.OnCompleted()
}

func (r *Result[T]) OnError(err error) { r.obs.OnError(err) }
func (r *Result[T]) OnCompleted()      { r.obs.OnCompleted() }
func (r *Result[T]) Completed() bool   { return r.obs.Completed() }
func (r *Result[T]) Err() error        { return r.obs.Err() }

// Done is closed once the result completes.
func (r *Result[T]) Done() <-chan struct{} { return r.done }

// Get blocks until the result completes or ctx is done.
func (r *Result[T]) Get(ctx context.Context) (T, error) {
	var zero T

	select {
	case <-r.done:
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	if err := r.obs.Err(); err != nil {
		return zero, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.set {
		return zero, ErrNoValue
	}
	return r.value, nil
}
