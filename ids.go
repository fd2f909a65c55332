package dfir

import "fmt"

// SubgraphId, HandoffId and StateId are opaque dense arena indices, each
// kind issued monotonically from its own counter during registration, under
// the Graph's mutex. A graph owns its
// subgraphs, handoffs and state cells for its whole lifetime, so ids are
// never reclaimed once registered.
type (
	SubgraphId uint32
	HandoffId  uint32
	StateId    uint32
)

func (id SubgraphId) String() string { return fmt.Sprintf("subgraph#%d", uint32(id)) }
func (id HandoffId) String() string  { return fmt.Sprintf("handoff#%d", uint32(id)) }
func (id StateId) String() string    { return fmt.Sprintf("state#%d", uint32(id)) }

// idAllocator hands out dense, append-only ids starting at 0.
//
// Thread Safety: NOT thread-safe. Only used during graph construction,
// which happens before the graph is sealed and execution begins;
// construction is never concurrent with itself.
type idAllocator struct {
	next uint32
}

func (a *idAllocator) allocate() uint32 {
	id := a.next
	a.next++
	return id
}

func (a *idAllocator) len() int { return int(a.next) }
