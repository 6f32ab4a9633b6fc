package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/simlink/internal/reactive"
)

func TestRequestRegistry_DispatchToResult(t *testing.T) {
	reg := NewRequestRegistry[string]()

	id := reg.NextID()
	res := reactive.NewResult[string]()
	require.NoError(t, reg.Register(id, res))
	assert.ErrorIs(t, reg.Register(id, res), ErrAlreadyRegistered)

	assert.True(t, reg.Dispatch(id, "Cessna 172"))
	assert.True(t, res.Completed())

	assert.True(t, reg.Deregister(id))
	assert.False(t, reg.Deregister(id))
	assert.False(t, reg.Dispatch(id, "late"))
}

func TestRequestRegistry_IDsIncrease(t *testing.T) {
	reg := NewRequestRegistry[int]()
	a, b, c := reg.NextID(), reg.NextID(), reg.NextID()

	assert.Equal(t, a+1, b)
	assert.Equal(t, b+1, c)
	assert.NotZero(t, a)
}

func TestRequestRegistry_StreamReceivesMany(t *testing.T) {
	reg := NewRequestRegistry[int]()
	id := reg.NextID()

	var got []int
	s := reactive.NewStream[int]().WithOnNext(func(v int) error {
		got = append(got, v)
		return nil
	})
	require.NoError(t, reg.Register(id, s))

	reg.Dispatch(id, 1)
	reg.Dispatch(id, 2)

	assert.Equal(t, []int{1, 2}, got)
	assert.Equal(t, 1, reg.Len())
}

func TestRequestRegistry_Reset(t *testing.T) {
	reg := NewRequestRegistry[int]()

	pending := reactive.NewResult[int]()
	done := reactive.NewResult[int]()
	done.OnNext(1)

	require.NoError(t, reg.Register(reg.NextID(), pending))
	require.NoError(t, reg.Register(reg.NextID(), done))

	disconnected := errors.New("disconnected")
	assert.Equal(t, 1, reg.Reset(disconnected))
	assert.Equal(t, 0, reg.Len())
	assert.ErrorIs(t, pending.Err(), disconnected)
	assert.NoError(t, done.Err())
}

func TestRequestRegistry_ResetDefaultError(t *testing.T) {
	reg := NewRequestRegistry[int]()
	res := reactive.NewResult[int]()
	require.NoError(t, reg.Register(reg.NextID(), res))

	reg.Reset(nil)
	assert.ErrorIs(t, res.Err(), ErrReset)
}

func TestRequestRegistry_TakeLeavesLaterRequests(t *testing.T) {
	reg := NewRequestRegistry[int]()

	old := reactive.NewResult[int]()
	require.NoError(t, reg.Register(reg.NextID(), old))

	taken := reg.Take()
	require.Len(t, taken, 1)
	assert.False(t, old.Completed(), "Take does not notify")

	fresh := reactive.NewResult[int]()
	freshID := reg.NextID()
	require.NoError(t, reg.Register(freshID, fresh))

	assert.Equal(t, 1, FailAll(taken, nil))
	assert.ErrorIs(t, old.Err(), ErrReset)
	assert.False(t, fresh.Completed())
	assert.True(t, reg.Dispatch(freshID, 7))
	v, err := fresh.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}
