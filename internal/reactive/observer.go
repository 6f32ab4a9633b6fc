package reactive

import (
	"fmt"
	"sync"

	"github.com/rickgao/simlink/internal/callback"
)

// delivery carries one value through the onNext subscribers and collects
// the first failure of the pass.
type delivery[T any] struct {
	value T
	err   error
}

// Observer fans values, errors and completion out to subscribers.
type Observer[T any] struct {
	mu        sync.Mutex
	completed bool
	err       error

	onNext     callback.List[*delivery[T]]
	onError    callback.List[error]
	onComplete callback.List[struct{}]
}

// NewObserver returns an observer with no subscribers.
func NewObserver[T any]() *Observer[T] {
	return &Observer[T]{}
}

// WithOnNext registers a value subscriber. A non-nil error (or a panic)
// from fn terminates the observer with that error once the current value
// has been offered to every subscriber.
func (o *Observer[T]) WithOnNext(fn func(T) error) *Observer[T] {
	o.onNext.Append(func(d *delivery[T]) {
		defer func() {
			if r := recover(); r != nil && d.err == nil {
				d.err = fmt.Errorf("onNext subscriber panic: %v", r)
			}
		}()
		if err := fn(d.value); err != nil && d.err == nil {
			d.err = err
		}
	})
	return o
}

// WithOnError registers an error subscriber. If the observer already failed,
// fn is called immediately with the captured error.
func (o *Observer[T]) WithOnError(fn func(error)) *Observer[T] {
	o.mu.Lock()
	if o.completed {
		err := o.err
		o.mu.Unlock()
		if err != nil {
			fn(err)
		}
		return o
	}
	o.onError.Append(fn)
	o.mu.Unlock()
	return o
}

// WithOnComplete registers a completion subscriber. If the observer already
// completed, fn is called immediately.
func (o *Observer[T]) WithOnComplete(fn func()) *Observer[T] {
	o.mu.Lock()
	if o.completed {
		o.mu.Unlock()
		fn()
		return o
	}
	o.onComplete.Append(func(struct{}) { fn() })
	o.mu.Unlock()
	return o
}

// Subscribe registers any non-nil subscribers in one call.
func (o *Observer[T]) Subscribe(next func(T) error, onErr func(error), onComplete func()) *Observer[T] {
	if next != nil {
		o.WithOnNext(next)
	}
	if onErr != nil {
		o.WithOnError(onErr)
	}
	if onComplete != nil {
		o.WithOnComplete(onComplete)
	}
	return o
}

// Merge forwards every event of o to other.
func (o *Observer[T]) Merge(other *Observer[T]) *Observer[T] {
	return o.Subscribe(
		func(v T) error {
			other.OnNext(v)
			return nil
		},
		other.OnError,
		other.OnCompleted,
	)
}

// OnNext delivers v to every value subscriber. Ignored after completion.
func (o *Observer[T]) OnNext(v T) {
	if o.Completed() {
		return
	}

	d := &delivery[T]{value: v}
	o.onNext.Invoke(d)

	if d.err != nil {
		o.OnError(d.err)
	}
}

// OnError terminates the observer with err. A nil err completes normally.
func (o *Observer[T]) OnError(err error) {
	if err == nil {
		o.OnCompleted()
		return
	}
	if !o.finish(err) {
		return
	}

	o.onError.Invoke(err)
	o.onComplete.Invoke(struct{}{})
}

// OnCompleted terminates the observer without error.
func (o *Observer[T]) OnCompleted() {
	if !o.finish(nil) {
		return
	}
	o.onComplete.Invoke(struct{}{})
}

// finish marks the observer completed and reports whether this call did so.
func (o *Observer[T]) finish(err error) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.completed {
		return false
	}
	o.completed = true
	o.err = err
	return true
}

// Completed reports whether a terminal event has been delivered.
func (o *Observer[T]) Completed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.completed
}

// Err returns the error the observer failed with, if any.
func (o *Observer[T]) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}
