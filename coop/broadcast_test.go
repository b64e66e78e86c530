package coop

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastFanOut(t *testing.T) {
	t.Parallel()
	b := NewBroadcast[int]()
	r1 := b.Receiver()
	r2 := b.Receiver()
	require.Equal(t, 2, b.Len())

	require.NoError(t, b.Send(7))
	ctx := context.Background()
	v1, err := r1.Receive(ctx)
	require.NoError(t, err)
	v2, err := r2.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, v1)
	assert.Equal(t, 7, v2)
}

func TestBroadcastIterateEachReceiver(t *testing.T) {
	t.Parallel()
	b := NewBroadcast[int]()
	const consumers = 4
	recvs := make([]Receiver[int], consumers)
	for i := range recvs {
		recvs[i] = b.Receiver()
	}

	received := make([][]int, consumers)
	var wg conc.WaitGroup
	for i, r := range recvs {
		wg.Go(func() {
			received[i] = slices.Collect(r.All(context.Background()))
		})
	}
	for i := 1; i <= 5; i++ {
		require.NoError(t, b.Send(i))
	}
	b.Close()
	wg.Wait()

	for i := range consumers {
		assert.Equal(t, []int{1, 2, 3, 4, 5}, received[i], "consumer %d", i)
		assert.Equal(t, StateClosed, recvs[i].State())
	}
}

func TestBroadcastRemoveReceiverDoesNotClose(t *testing.T) {
	t.Parallel()
	b := NewBroadcast[string]()
	kept := b.Receiver()
	removed := b.Receiver()
	b.RemoveReceiver(removed)
	require.Equal(t, 1, b.Len())

	require.NoError(t, b.Send("a"))
	b.Close()

	assert.Equal(t, StateEmpty, removed.State())
	_, ok, err := removed.TryReceive()
	assert.False(t, ok)
	assert.NoError(t, err)

	assert.Equal(t, []string{"a"}, slices.Collect(kept.All(context.Background())))
}

func TestBroadcastMembershipNotRetroactive(t *testing.T) {
	t.Parallel()
	b := NewBroadcast[int]()
	early := b.Receiver()
	require.NoError(t, b.Send(1))
	late := b.Receiver()
	require.NoError(t, b.Send(2))

	_, ok, _ := early.TryReceive()
	require.True(t, ok)
	v, ok, err := late.TryReceive()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestBroadcastSendJoinsMemberErrors(t *testing.T) {
	t.Parallel()
	b := NewBroadcast[int]()
	open := b.Receiver()
	closed := b.Receiver()
	require.True(t, b.CloseReceiver(closed))

	err := b.Send(9)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSendOnClosed))

	v, ok, err := open.TryReceive()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 9, v)
}

func TestBroadcastReceiverHidesSend(t *testing.T) {
	t.Parallel()
	b := NewBroadcast[int]()
	r := b.Receiver()
	_, isChannel := r.(*Channel[int])
	assert.False(t, isChannel)
	assert.False(t, b.CloseReceiver(NewChannel[int]()))
	b.RemoveReceiver(NewChannel[int]())
	assert.Equal(t, 1, b.Len())
}

func TestZeroBroadcast(t *testing.T) {
	t.Parallel()
	var b Broadcast[int]
	require.NoError(t, b.Send(1), "send with no receivers")
	r := b.Receiver()
	require.Equal(t, 1, b.Len())
	require.NoError(t, b.Send(2))
	b.Close()
	assert.Equal(t, []int{2}, slices.Collect(r.All(context.Background())))
}
