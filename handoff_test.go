package dfir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandoff_FIFOOrdering(t *testing.T) {
	h := newHandoff[int](0, HandoffNormal, 0, TeeBroadcast)
	h.setEndpoints(0, []SubgraphId{1})

	require.NoError(t, h.Push([]int{1, 2, 3}))
	require.True(t, h.HasPending(0))
	require.Equal(t, []int{1, 2, 3}, h.Drain(0))
	require.False(t, h.HasPending(0))
}

func TestHandoff_BoundedRejectsOverCapacity(t *testing.T) {
	h := newHandoff[int](0, HandoffBounded, 2, TeeBroadcast)
	h.setEndpoints(0, []SubgraphId{1})

	require.NoError(t, h.Push([]int{1, 2}))
	err := h.Push([]int{3})
	require.ErrorIs(t, err, ErrWouldBlock)
	require.True(t, IsWouldBlock(err))

	require.Equal(t, []int{1, 2}, h.Drain(0))
	require.NoError(t, h.Push([]int{3}))
}

func TestHandoff_StratumCrossingDeferredUntilPromoted(t *testing.T) {
	h := newHandoff[string](0, HandoffStratumCrossing, 0, TeeBroadcast)
	h.setEndpoints(0, []SubgraphId{1})

	require.NoError(t, h.Push([]string{"a"}))
	require.False(t, h.HasPending(0))
	require.True(t, h.hasCrossingPending())

	h.promoteCrossing()
	require.True(t, h.HasPending(0))
	require.False(t, h.hasCrossingPending())
	require.Equal(t, []string{"a"}, h.Drain(0))
}

func TestHandoff_TeeBroadcastDeliversToEveryConsumer(t *testing.T) {
	h := newHandoff[int](0, HandoffTee, 0, TeeBroadcast)
	h.setEndpoints(0, []SubgraphId{1, 2})

	require.NoError(t, h.Push([]int{10, 20}))
	require.True(t, h.HasPending(0))
	require.True(t, h.HasPending(1))

	require.Equal(t, []int{10, 20}, h.Drain(0))
	require.False(t, h.HasPending(0))
	require.True(t, h.HasPending(1))

	require.Equal(t, []int{10, 20}, h.Drain(1))
	require.False(t, h.HasPending(1))
}

func TestHandoff_TeeRoundRobinSplitsItems(t *testing.T) {
	h := newHandoff[int](0, HandoffTee, 0, TeeRoundRobin)
	h.setEndpoints(0, []SubgraphId{1, 2})

	require.NoError(t, h.Push([]int{1, 2, 3, 4}))
	require.Equal(t, []int{1, 3}, h.Drain(0))
	require.Equal(t, []int{2, 4}, h.Drain(1))
}
