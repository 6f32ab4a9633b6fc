package reactive

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserver_ErrorFromSubscriberTerminates(t *testing.T) {
	obs := NewObserver[int]()

	var seen []int
	var gotErr error
	completed := false

	obs.WithOnNext(func(v int) error {
		seen = append(seen, v)
		if v == 2 {
			return errors.New("HELP!")
		}
		return nil
	}).WithOnError(func(err error) {
		gotErr = err
	}).WithOnComplete(func() {
		completed = true
	})

	obs.OnNext(1)
	assert.False(t, obs.Completed())

	obs.OnNext(2)
	require.True(t, obs.Completed())
	require.Error(t, gotErr)
	assert.Equal(t, "HELP!", gotErr.Error())
	assert.Equal(t, gotErr, obs.Err())
	assert.True(t, completed)

	obs.OnNext(3)
	assert.Equal(t, []int{1, 2}, seen, "values after completion are ignored")
}

func TestObserver_AllSubscribersCalledBeforeError(t *testing.T) {
	obs := NewObserver[string]()
	calls := 0
	var errs []error

	obs.WithOnNext(func(string) error { calls++; return errors.New("first") })
	obs.WithOnNext(func(string) error { calls++; panic("second") })
	obs.WithOnNext(func(string) error { calls++; return nil })
	obs.WithOnError(func(err error) { errs = append(errs, err) })

	obs.OnNext("x")

	assert.Equal(t, 3, calls)
	require.Len(t, errs, 1)
	assert.EqualError(t, errs[0], "first")
}

func TestObserver_PanicBecomesError(t *testing.T) {
	obs := NewObserver[int]()
	obs.WithOnNext(func(int) error { panic("kaboom") })

	assert.NotPanics(t, func() { obs.OnNext(1) })
	require.Error(t, obs.Err())
	assert.Contains(t, obs.Err().Error(), "kaboom")
}

func TestObserver_TerminalEventsIdempotent(t *testing.T) {
	obs := NewObserver[int]()
	errCalls, completeCalls := 0, 0

	obs.Subscribe(nil, func(error) { errCalls++ }, func() { completeCalls++ })

	obs.OnError(errors.New("a"))
	obs.OnError(errors.New("b"))
	obs.OnCompleted()

	assert.Equal(t, 1, errCalls)
	assert.Equal(t, 1, completeCalls)
	assert.EqualError(t, obs.Err(), "a")
}

func TestObserver_LateSubscribersReplay(t *testing.T) {
	obs := NewObserver[int]()
	obs.OnError(errors.New("late"))

	var replayed []error
	obs.WithOnError(func(err error) { replayed = append(replayed, err) })
	require.Len(t, replayed, 1)
	assert.EqualError(t, replayed[0], "late")

	// Further terminal calls do not replay again.
	obs.OnError(errors.New("again"))
	assert.Len(t, replayed, 1)

	fired := false
	obs.WithOnComplete(func() { fired = true })
	assert.True(t, fired)
}

func TestObserver_LateErrorSubscriberAfterCleanCompletion(t *testing.T) {
	obs := NewObserver[int]()
	obs.OnCompleted()

	called := false
	obs.WithOnError(func(error) { called = true })
	assert.False(t, called)
	assert.NoError(t, obs.Err())
}

func TestObserver_NilErrorCompletes(t *testing.T) {
	obs := NewObserver[int]()
	obs.OnError(nil)

	assert.True(t, obs.Completed())
	assert.NoError(t, obs.Err())
}

func TestObserver_Merge(t *testing.T) {
	src := NewObserver[int]()
	dst := NewObserver[int]()

	var got []int
	dst.WithOnNext(func(v int) error { got = append(got, v); return nil })

	src.Merge(dst)
	src.OnNext(4)
	src.OnCompleted()

	assert.Equal(t, []int{4}, got)
	assert.True(t, dst.Completed())
}
