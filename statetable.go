package dfir

import "sync"

// Lifetime selects when a state cell is reset.
type Lifetime int

const (
	// LifetimeTick cells are reset at every tick boundary.
	LifetimeTick Lifetime = iota
	// LifetimeEpoch cells are reset at every epoch boundary.
	LifetimeEpoch
	// LifetimeStatic cells are never reset.
	LifetimeStatic
)

func (l Lifetime) String() string {
	switch l {
	case LifetimeTick:
		return "tick"
	case LifetimeEpoch:
		return "epoch"
	case LifetimeStatic:
		return "static"
	default:
		return "unknown"
	}
}

// stateCell holds one registered state slot: its current value, lifetime,
// and the reset function supplied at registration. A graph owns its cells
// for its whole lifetime, so stateTable is a plain append-only slice
// indexed directly by StateId, with no reclamation.
type stateCell struct {
	value    any
	lifetime Lifetime
	reset    func(old any) any
}

// stateTable is the per-graph arena of user state cells.
//
// Thread Safety: callers (the scheduler) guarantee a cell is accessed by at
// most one subgraph at a time, because subgraphs run one-at-a-time in the
// cooperative loop; the mutex here only protects the
// registration phase, which is single-threaded by construction, and allows
// get/set to be called without additional locking from the single scheduler
// goroutine.
type stateTable struct {
	mu    sync.Mutex
	cells []*stateCell
	// tickOrder and epochOrder record StateIds by lifetime in registration
	// order, so resets run in that same order at each boundary.
	tickOrder  []StateId
	epochOrder []StateId
}

func newStateTable() *stateTable {
	return &stateTable{}
}

// register allocates a new state cell and returns its StateId.
func (t *stateTable) register(initial any, lifetime Lifetime, reset func(old any) any) StateId {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := StateId(len(t.cells))
	t.cells = append(t.cells, &stateCell{
		value:    initial,
		lifetime: lifetime,
		reset:    reset,
	})

	switch lifetime {
	case LifetimeTick:
		t.tickOrder = append(t.tickOrder, id)
	case LifetimeEpoch:
		t.epochOrder = append(t.epochOrder, id)
	}

	return id
}

// get returns the current value of a cell. Panics on an unknown id: an
// out-of-range StateId can only originate from a programmer bug (a builder
// emitting ids from a different graph), never from data.
func (t *stateTable) get(id StateId) any {
	return t.cells[id].value
}

// set overwrites the current value of a cell.
func (t *stateTable) set(id StateId, value any) {
	t.cells[id].value = value
}

// resetTick runs every LifetimeTick cell's reset function in registration
// order.
func (t *stateTable) resetTick() {
	for _, id := range t.tickOrder {
		c := t.cells[id]
		c.value = c.reset(c.value)
	}
}

// resetEpoch runs every LifetimeEpoch cell's reset function in registration
// order.
func (t *stateTable) resetEpoch() {
	for _, id := range t.epochOrder {
		c := t.cells[id]
		c.value = c.reset(c.value)
	}
}

func (t *stateTable) len() int { return len(t.cells) }
