package dfir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStateTable_ResetRunsInRegistrationOrder(t *testing.T) {
	st := newStateTable()
	var order []string

	a := st.register(0, LifetimeTick, func(old any) any {
		order = append(order, "a")
		return old
	})
	b := st.register(0, LifetimeTick, func(old any) any {
		order = append(order, "b")
		return old
	})
	_ = st.register(0, LifetimeEpoch, func(old any) any {
		order = append(order, "epoch-only")
		return old
	})

	st.resetTick()
	require.Equal(t, []string{"a", "b"}, order)
	require.Equal(t, a, StateId(0))
	require.Equal(t, b, StateId(1))
}

func TestStateTable_StaticCellsNeverReset(t *testing.T) {
	st := newStateTable()
	resetCalls := 0
	id := st.register("unchanged", LifetimeStatic, func(old any) any {
		resetCalls++
		return old
	})

	st.resetTick()
	st.resetEpoch()
	require.Equal(t, 0, resetCalls)
	require.Equal(t, "unchanged", st.get(id))
}

func TestClock_AdvanceTickAndEpochAreIndependent(t *testing.T) {
	c := newClock()
	st := newStateTable()

	require.Equal(t, TickId(0), c.currentTick())
	require.Equal(t, EpochId(0), c.currentEpoch())

	c.advanceTick(st)
	c.advanceTick(st)
	require.Equal(t, TickId(2), c.currentTick())
	require.Equal(t, EpochId(0), c.currentEpoch())

	c.advanceEpoch(st)
	require.Equal(t, EpochId(1), c.currentEpoch())
	require.Equal(t, TickId(2), c.currentTick())
}
