package dfir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSeal_RejectsHandoffWithNoProducer(t *testing.T) {
	g := NewGraph()
	hid, err := RegisterHandoff[int](g, HandoffNormal)
	require.NoError(t, err)

	_, err = g.RegisterSubgraph("consumer", 0, false, []HandoffId{hid}, nil, func(ctx *Context) error {
		return nil
	})
	require.NoError(t, err)

	err = g.Seal()
	require.Error(t, err)
	var misconfig *GraphMisconfigurationError
	require.ErrorAs(t, err, &misconfig)
}

func TestSeal_RejectsHandoffWithNoConsumer(t *testing.T) {
	g := NewGraph()
	hid, err := RegisterHandoff[int](g, HandoffNormal)
	require.NoError(t, err)

	_, err = g.RegisterSubgraph("producer", 0, false, nil, []HandoffId{hid}, func(ctx *Context) error {
		return nil
	})
	require.NoError(t, err)

	err = g.Seal()
	require.Error(t, err)
}

func TestSeal_RejectsForwardEdgeWithoutStratumCrossingHandoff(t *testing.T) {
	g := NewGraph()
	hid, err := RegisterHandoff[int](g, HandoffNormal)
	require.NoError(t, err)

	producer, err := g.RegisterSubgraph("producer", 1, false, nil, []HandoffId{hid}, func(ctx *Context) error {
		return Write(ctx, hid, []int{1})
	})
	require.NoError(t, err)
	_ = producer

	_, err = g.RegisterSubgraph("consumer", 0, false, []HandoffId{hid}, nil, func(ctx *Context) error {
		return nil
	})
	require.NoError(t, err)

	err = g.Seal()
	require.Error(t, err)
}

func TestSeal_AllowsForwardEdgeViaStratumCrossingHandoff(t *testing.T) {
	g := NewGraph()
	hid, err := RegisterHandoff[int](g, HandoffStratumCrossing)
	require.NoError(t, err)

	_, err = g.RegisterSubgraph("producer", 1, true, nil, []HandoffId{hid}, func(ctx *Context) error {
		return Write(ctx, hid, []int{1})
	})
	require.NoError(t, err)

	_, err = g.RegisterSubgraph("consumer", 0, false, []HandoffId{hid}, nil, func(ctx *Context) error {
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, g.Seal())
}

func TestSeal_RejectsNonLazySourceOffStratumZero(t *testing.T) {
	g := NewGraph()
	_, err := g.RegisterSubgraph("source", 1, false, nil, nil, func(ctx *Context) error {
		return nil
	})
	require.NoError(t, err)

	err = g.Seal()
	require.Error(t, err)
}

func TestRegister_FailsAfterSeal(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.Seal())

	_, err := RegisterHandoff[int](g, HandoffNormal)
	require.ErrorIs(t, err, ErrSealed)

	_, err = RegisterState(g, 0, LifetimeTick, func(old int) int { return old })
	require.ErrorIs(t, err, ErrSealed)

	_, err = g.RegisterSubgraph("x", 0, false, nil, nil, func(ctx *Context) error { return nil })
	require.ErrorIs(t, err, ErrSealed)
}
