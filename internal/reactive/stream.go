package reactive

// Stream is a multi-shot observer. It completes only through OnCompleted or
// OnError.
type Stream[T any] struct {
	obs *Observer[T]
}

// NewStream returns an open stream.
func NewStream[T any]() *Stream[T] {
	return &Stream[T]{obs: NewObserver[T]()}
}

// FailedStream returns a stream that has already failed with err.
func FailedStream[T any](err error) *Stream[T] {
	s := NewStream[T]()
	s.OnError(err)
	return s
}

func (s *Stream[T]) WithOnNext(fn func(T) error) *Stream[T] {
	s.obs.WithOnNext(fn)
	return s
}

func (s *Stream[T]) WithOnError(fn func(error)) *Stream[T] {
	s.obs.WithOnError(fn)
	return s
}

func (s *Stream[T]) WithOnComplete(fn func()) *Stream[T] {
	s.obs.WithOnComplete(fn)
	return s
}

func (s *Stream[T]) Subscribe(next func(T) error, onErr func(error), onComplete func()) *Stream[T] {
	s.obs.Subscribe(next, onErr, onComplete)
	return s
}

// Merge forwards every event of s to other.
func (s *Stream[T]) Merge(other *Observer[T]) *Stream[T] {
	s.obs.Merge(other)
	return s
}

func (s *Stream[T]) OnNext(v T)        { s.obs.OnNext(v) }
func (s *Stream[T]) OnError(err error) { s.obs.OnError(err) }
func (s *Stream[T]) OnCompleted()      { s.obs.OnCompleted() }
func (s *Stream[T]) Completed() bool   { return s.obs.Completed() }
func (s *Stream[T]) Err() error        { return s.obs.Err() }
