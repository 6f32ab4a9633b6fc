package reactive

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStream_MultipleValues(t *testing.T) {
	s := NewStream[int]()

	var got []int
	s.WithOnNext(func(v int) error { got = append(got, v); return nil })

	s.OnNext(1)
	s.OnNext(2)
	s.OnNext(3)
	assert.False(t, s.Completed())

	s.OnCompleted()
	s.OnNext(4)

	assert.Equal(t, []int{1, 2, 3}, got)
	assert.True(t, s.Completed())
	assert.NoError(t, s.Err())
}

func TestFailedStream(t *testing.T) {
	s := FailedStream[int](errors.New("down"))

	var got error
	s.WithOnError(func(err error) { got = err })

	assert.EqualError(t, got, "down")
	assert.True(t, s.Completed())
}
