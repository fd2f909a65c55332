package dfir

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// buildLinear wires an externally fed input handoff -> double(stratum 0) ->
// sink(stratum 1), returning the sealed graph and a slice sink records land in.
func buildLinear(t *testing.T) (*Graph, *[]int) {
	t.Helper()
	g := NewGraph()

	in, err := RegisterHandoff[int](g, HandoffNormal)
	require.NoError(t, err)
	out, err := RegisterHandoff[int](g, HandoffNormal)
	require.NoError(t, err)

	var results []int

	_, err = g.RegisterSubgraph("double", 0, false, []HandoffId{in}, []HandoffId{out}, func(ctx *Context) error {
		items := Read[int](ctx, in)
		if len(items) == 0 {
			return nil
		}
		doubled := make([]int, len(items))
		for i, v := range items {
			doubled[i] = v * 2
		}
		return Write(ctx, out, doubled)
	})
	require.NoError(t, err)

	_, err = g.RegisterSubgraph("sink", 1, false, []HandoffId{out}, nil, func(ctx *Context) error {
		results = append(results, Read[int](ctx, out)...)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, g.Seal())
	return g, &results
}

func TestDriver_FanOutAcrossStrata(t *testing.T) {
	g, results := buildLinear(t)
	d := NewDriver(g)

	in := g.subgraph[0].inputs[0]
	sink := EventSink[int](g, in)
	sink.Push(1, 2, 3)

	require.NoError(t, d.RunTick())
	require.Equal(t, []int{2, 4, 6}, *results)
	require.Equal(t, TickId(1), d.CurrentTick())
}

// TestScheduler_HasPendingWorkAccountsForPerpetualSources asserts that a
// graph built around a non-lazy, zero-input source subgraph never reports
// quiescence, since such a subgraph self-reschedules every tick.
func TestScheduler_HasPendingWorkAccountsForPerpetualSources(t *testing.T) {
	g := NewGraph()
	_, err := g.RegisterSubgraph("source", 0, false, nil, nil, func(ctx *Context) error {
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, g.Seal())

	require.True(t, g.scheduler.hasPendingWork())
}

// TestDriver_RunTickIsNoOpWithoutWork asserts that re-invoking RunTick on
// a graph with no pending events and no ready work neither advances the
// tick counter nor runs tick-lifetime resets.
func TestDriver_RunTickIsNoOpWithoutWork(t *testing.T) {
	g := NewGraph()
	counter, err := RegisterState(g, 0, LifetimeTick, func(old int) int { return old + 1 })
	require.NoError(t, err)

	lazyID, err := g.RegisterSubgraph("lazy", 0, true, nil, nil, func(ctx *Context) error {
		_ = GetState[int](ctx, counter)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, g.Seal())
	_ = lazyID

	d := NewDriver(g)
	require.NoError(t, d.RunTick())
	require.Equal(t, TickId(0), d.CurrentTick())

	require.NoError(t, d.RunTick())
	require.Equal(t, TickId(0), d.CurrentTick())
	require.Equal(t, 0, g.states.get(counter))
}

func TestDriver_TickLifetimeStateResets(t *testing.T) {
	g := NewGraph()
	counter, err := RegisterState(g, 0, LifetimeTick, func(old int) int { return 0 })
	require.NoError(t, err)

	var seen []int
	_, err = g.RegisterSubgraph("counter", 0, false, nil, nil, func(ctx *Context) error {
		v := GetState[int](ctx, counter) + 1
		SetState(ctx, counter, v)
		seen = append(seen, v)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, g.Seal())

	d := NewDriver(g)
	require.NoError(t, d.RunTick())
	require.NoError(t, d.RunTick())
	require.NoError(t, d.RunTick())

	require.Equal(t, []int{1, 1, 1}, seen)
}

func TestDriver_StratumCrossingHandoffDefersToNextTick(t *testing.T) {
	g := NewGraph()
	feedback, err := RegisterHandoff[string](g, HandoffStratumCrossing)
	require.NoError(t, err)

	var seen []string
	_, err = g.RegisterSubgraph("consumer", 0, false, []HandoffId{feedback}, nil, func(ctx *Context) error {
		seen = append(seen, Read[string](ctx, feedback)...)
		return nil
	})
	require.NoError(t, err)

	producerID, err := g.RegisterSubgraph("producer", 1, true, nil, []HandoffId{feedback}, func(ctx *Context) error {
		return Write(ctx, feedback, []string{"fed-back"})
	})
	require.NoError(t, err)
	require.NoError(t, g.Seal())

	d := NewDriver(g)
	GraphWaker(g, producerID).Wake()

	require.NoError(t, d.RunTick())
	require.Empty(t, seen, "data pushed by a later stratum must not be visible in the same tick")

	require.NoError(t, d.RunTick())
	require.Equal(t, []string{"fed-back"}, seen)
}

func TestDriver_LazySubgraphOnlyRunsWhenScheduled(t *testing.T) {
	g := NewGraph()
	runs := 0
	lazyID, err := g.RegisterSubgraph("lazy", 0, true, nil, nil, func(ctx *Context) error {
		runs++
		return nil
	})
	require.NoError(t, err)
	_, err = g.RegisterSubgraph("trigger", 0, false, nil, nil, func(ctx *Context) error {
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, g.Seal())

	d := NewDriver(g)
	require.NoError(t, d.RunTick())
	require.Equal(t, 0, runs)

	require.NoError(t, d.RunTick())
	require.Equal(t, 0, runs)

	_ = lazyID
}

func TestDriver_ExternalWakerForcesLazySubgraphToRun(t *testing.T) {
	g := NewGraph()
	runs := 0
	lazyID, err := g.RegisterSubgraph("lazy", 0, true, nil, nil, func(ctx *Context) error {
		runs++
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, g.Seal())

	d := NewDriver(g)
	waker := GraphWaker(g, lazyID)
	waker.Wake()

	require.NoError(t, d.RunTick())
	require.Equal(t, 1, runs)
}

// TestDriver_BoundedHandoffBackpressure pushes a batch far larger than the
// handoff's capacity, one item at a time, retrying on ErrWouldBlock by
// rescheduling itself rather than losing its place. It asserts every item
// is eventually delivered, in order, with none lost or duplicated, driven
// purely through RunAvailable.
func TestDriver_BoundedHandoffBackpressure(t *testing.T) {
	const capacity = 1
	const total = 20 // batch size far exceeds capacity

	g := NewGraph()
	hid, err := RegisterHandoff[int](g, HandoffBounded, WithCapacity(capacity))
	require.NoError(t, err)
	nextID, err := RegisterState(g, 1, LifetimeStatic, func(old int) int { return old })
	require.NoError(t, err)

	blockedPushes := 0
	producerID, err := g.RegisterSubgraph("producer", 0, true, nil, []HandoffId{hid}, func(ctx *Context) error {
		next := GetState[int](ctx, nextID)
		if next > total {
			return nil
		}
		if err := Write(ctx, hid, []int{next}); err == nil {
			SetState(ctx, nextID, next+1)
		} else if IsWouldBlock(err) {
			blockedPushes++
		} else {
			return err
		}
		return ctx.Schedule(ctx.Subgraph())
	})
	require.NoError(t, err)

	var delivered []int
	_, err = g.RegisterSubgraph("consumer", 0, false, []HandoffId{hid}, nil, func(ctx *Context) error {
		delivered = append(delivered, Read[int](ctx, hid)...)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, g.Seal())

	d := NewDriver(g)
	GraphWaker(g, producerID).Wake()
	require.NoError(t, d.RunAvailable())
	require.Nil(t, g.PoisonError())

	want := make([]int, total)
	for i := range want {
		want[i] = i + 1
	}
	require.Equal(t, want, delivered)
	require.Greater(t, blockedPushes, 0, "capacity 1 against a batch of 20 should have produced real backpressure")
}

func TestDriver_PanicPoisonsGraph(t *testing.T) {
	g := NewGraph()
	_, err := g.RegisterSubgraph("boom", 0, false, nil, nil, func(ctx *Context) error {
		panic("kaboom")
	})
	require.NoError(t, err)
	require.NoError(t, g.Seal())

	d := NewDriver(g)
	err = d.RunTick()
	require.ErrorIs(t, err, ErrPoisonedGraph)

	err = d.RunTick()
	require.ErrorIs(t, err, ErrPoisonedGraph)
}

func TestDriver_RunAsyncRespectsCancellation(t *testing.T) {
	g := NewGraph()
	_, err := g.RegisterSubgraph("noop", 0, false, nil, nil, func(ctx *Context) error {
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, g.Seal())

	d := NewDriver(g, WithAsyncIdleWait(5*time.Millisecond))
	token := NewCancelToken()

	done := make(chan error, 1)
	go func() {
		done <- d.RunAsync(context.Background(), token)
	}()

	time.Sleep(20 * time.Millisecond)
	token.Cancel(nil)

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrDriverCancelled)
	case <-time.After(time.Second):
		t.Fatal("RunAsync did not return after cancellation")
	}
}
