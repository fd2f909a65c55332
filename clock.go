package dfir

// TickId identifies one run-to-quiescence cycle of the scheduler. Tick ids are monotonically increasing and never reused.
type TickId uint64

// EpochId identifies a coarser unit of logical time advanced only by the
// external driver, never by the scheduler itself.
type EpochId uint64

// clock tracks the current tick and epoch for a Graph and dispatches the
// state table resets that accompany each boundary: tick advances every
// scheduler quiescence, epoch advances only when the driver calls
// AdvanceEpoch.
type clock struct {
	tick  TickId
	epoch EpochId
}

func newClock() *clock {
	return &clock{}
}

func (c *clock) currentTick() TickId   { return c.tick }
func (c *clock) currentEpoch() EpochId { return c.epoch }

// advanceTick closes out the current tick: it runs every LifetimeTick
// state cell's reset function in registration order, then increments the
// tick counter.
func (c *clock) advanceTick(states *stateTable) {
	states.resetTick()
	c.tick++
}

// advanceEpoch closes out the current epoch: it runs every LifetimeEpoch
// state cell's reset function in registration order, then increments the
// epoch counter. This may only happen between ticks, never mid-tick; the
// driver enforces that precondition before calling this.
func (c *clock) advanceEpoch(states *stateTable) {
	states.resetEpoch()
	c.epoch++
}
