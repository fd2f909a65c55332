package dfir

// Context is the per-invocation view a SubgraphFunc receives. It exposes the current tick/epoch/stratum, lets the closure
// explicitly schedule another subgraph, and is the handle Read/Write use to
// reach the closure's declared handoffs.
//
// Schedule's plumbing reuses the same "requester consults the scheduler's
// current position before resubmitting" check used elsewhere for queue
// resubmission.
type Context struct {
	g        *Graph
	subgraph SubgraphId
	stratum  int
	sched    *scheduler
}

func newContext(g *Graph, sg SubgraphId, stratum int, sched *scheduler) *Context {
	return &Context{g: g, subgraph: sg, stratum: stratum, sched: sched}
}

// Tick returns the tick currently in progress.
func (c *Context) Tick() TickId { return c.g.clock.currentTick() }

// Epoch returns the epoch currently in effect.
func (c *Context) Epoch() EpochId { return c.g.clock.currentEpoch() }

// Stratum returns the stratum the calling subgraph belongs to.
func (c *Context) Stratum() int { return c.stratum }

// Subgraph returns the id of the subgraph currently executing.
func (c *Context) Subgraph() SubgraphId { return c.subgraph }

// Schedule explicitly marks another subgraph as runnable within the
// current tick. It is an error to schedule a subgraph whose stratum has
// already finished running this tick, returned as
// *InvalidScheduleRequestError; such a request also poisons the graph.
func (c *Context) Schedule(target SubgraphId) error {
	return c.sched.requestSchedule(c.subgraph, c.stratum, target)
}

// Read drains every pending item visible to the calling subgraph on the
// given input handoff. T must match the type the handoff was registered
// with; a mismatch panics, since inputs/outputs are wired at construction
// time and a mismatch is a programmer bug, not a runtime condition.
func Read[T any](ctx *Context, id HandoffId) []T {
	h := mustHandoff[T](ctx.g, id)
	idx := consumerIndex(h, ctx.subgraph)
	return h.Drain(idx)
}

// Write appends items to the given output handoff on behalf of the calling
// subgraph.
func Write[T any](ctx *Context, id HandoffId, items []T) error {
	h := mustHandoff[T](ctx.g, id)
	return h.Push(items)
}

// GetState returns the current value of a state cell. T must match the type supplied at RegisterState time.
func GetState[T any](ctx *Context, id StateId) T {
	v := ctx.g.states.get(id)
	return v.(T)
}

// SetState overwrites the current value of a state cell.
func SetState[T any](ctx *Context, id StateId, value T) {
	ctx.g.states.set(id, value)
}

func mustHandoff[T any](g *Graph, id HandoffId) *Handoff[T] {
	raw := g.handoffByID(id)
	h, ok := raw.(*Handoff[T])
	if !ok {
		panic("dfir: handoff " + id.String() + " accessed with the wrong item type")
	}
	return h
}

func consumerIndex(h handoffHandle, sg SubgraphId) int {
	for i, c := range h.Consumers() {
		if c == sg {
			return i
		}
	}
	return 0
}
