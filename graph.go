package dfir

import (
	"fmt"
	"sync"
)

// Graph is a sealed, runnable dataflow program: an arena of state cells,
// handoffs and subgraphs plus the scheduler and clock that drive them.
// Construction is a two-phase protocol: register everything while unsealed,
// then call Seal once to validate wiring and transition to runnable.
type Graph struct {
	mu sync.Mutex

	opts graphOptions

	ids struct {
		subgraph idAllocator
		handoff  idAllocator
	}

	states   *stateTable
	handoffs []handoffHandle
	subgraph []*Subgraph

	clock     *clock
	state     *fastState
	scheduler *scheduler
	ingress   *eventIngress
	metrics   *SchedulerMetrics
	logger    Logger
}

// NewGraph constructs an unsealed Graph ready to receive
// RegisterState/RegisterHandoff/RegisterSubgraph calls.
func NewGraph(opts ...GraphOption) *Graph {
	resolved := resolveGraphOptions(opts)
	g := &Graph{
		opts:    resolved,
		states:  newStateTable(),
		clock:   newClock(),
		state:   newFastState(StateUnsealed),
		ingress: newEventIngress(),
		metrics: newSchedulerMetrics(),
		logger:  resolved.logger,
	}
	g.scheduler = newScheduler(g)
	return g
}

// RegisterState allocates a new state cell. reset receives the cell's
// current value at each boundary matching its lifetime and returns the
// cell's next value.
func RegisterState[T any](g *Graph, initial T, lifetime Lifetime, reset func(old T) T) (StateId, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state.Load() != StateUnsealed {
		return 0, ErrSealed
	}
	erased := func(old any) any {
		return reset(old.(T))
	}
	return g.states.register(initial, lifetime, erased), nil
}

// RegisterHandoff allocates a new handoff of the given kind and item type
// T. Its producer/consumer endpoints are discovered later, from the
// inputs/outputs declared by RegisterSubgraph calls, and validated by
// Seal.
func RegisterHandoff[T any](g *Graph, kind HandoffKind, opts ...HandoffOption) (HandoffId, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state.Load() != StateUnsealed {
		return 0, ErrSealed
	}
	resolved := resolveHandoffOptions(opts)
	id := HandoffId(g.ids.handoff.allocate())
	h := newHandoff[T](id, kind, resolved.capacity, resolved.teePolicy)
	g.handoffs = append(g.handoffs, h)
	return id, nil
}

// RegisterSubgraph registers a fused chunk of dataflow logic at the given
// stratum, with the given laziness and declared input/output handoffs.
func (g *Graph) RegisterSubgraph(name string, stratum int, lazy bool, inputs, outputs []HandoffId, fn SubgraphFunc) (SubgraphId, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state.Load() != StateUnsealed {
		return 0, ErrSealed
	}
	id := SubgraphId(g.ids.subgraph.allocate())
	sg := &Subgraph{
		id:      id,
		name:    name,
		stratum: stratum,
		lazy:    lazy,
		inputs:  append([]HandoffId(nil), inputs...),
		outputs: append([]HandoffId(nil), outputs...),
		fn:      fn,
	}
	g.subgraph = append(g.subgraph, sg)
	return id, nil
}

// Seal validates the graph's wiring and transitions it out of construction.
// Seal returns a *GraphMisconfigurationError
// listing every violation found; no execution proceeds until the
// violations are fixed and Seal succeeds. Seal is idempotent once it
// succeeds: calling it again on an already-sealed graph returns nil.
func (g *Graph) Seal() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state.Load() != StateUnsealed {
		return nil
	}

	var violations []string
	producers := make(map[HandoffId]SubgraphId)
	hasProducer := make(map[HandoffId]bool)
	consumers := make(map[HandoffId][]SubgraphId)

	for _, sg := range g.subgraph {
		for _, out := range sg.outputs {
			if hasProducer[out] {
				violations = append(violations, fmt.Sprintf("%s has more than one producer", out))
				continue
			}
			producers[out] = sg.id
			hasProducer[out] = true
		}
		for _, in := range sg.inputs {
			consumers[in] = append(consumers[in], sg.id)
		}
	}

	for _, h := range g.handoffs {
		id := h.ID()
		if !hasProducer[id] {
			violations = append(violations, fmt.Sprintf("%s has no producer", id))
		}
		if len(consumers[id]) == 0 {
			violations = append(violations, fmt.Sprintf("%s has no consumers", id))
		}
	}

	for _, sg := range g.subgraph {
		if !sg.lazy && len(sg.inputs) == 0 && sg.stratum != 0 {
			violations = append(violations, fmt.Sprintf(
				"%s is a non-lazy subgraph with no inputs but is on stratum %d, not 0", sg.id, sg.stratum,
			))
		}
	}

	for _, sg := range g.subgraph {
		for _, out := range sg.outputs {
			h := g.handoffByID(out)
			if h.Kind() == HandoffStratumCrossing {
				continue
			}
			for _, consumer := range consumers[out] {
				consumerStratum := g.subgraph[consumer].stratum
				if consumerStratum < sg.stratum {
					violations = append(violations, fmt.Sprintf(
						"%s (stratum %d) feeds %s (stratum %d) without a stratum-crossing handoff",
						sg.id, sg.stratum, h.ID(), consumerStratum,
					))
				}
			}
		}
	}

	if len(violations) > 0 {
		return &GraphMisconfigurationError{Violations: violations}
	}

	for _, h := range g.handoffs {
		h.setEndpoints(producers[h.ID()], consumers[h.ID()])
	}

	g.scheduler.build(g.subgraph)
	g.state.Store(StateSealed)
	return nil
}

func (g *Graph) handoffByID(id HandoffId) handoffHandle {
	return g.handoffs[id]
}

// SubgraphCount returns the number of registered subgraphs.
func (g *Graph) SubgraphCount() int { return len(g.subgraph) }

// HandoffCount returns the number of registered handoffs.
func (g *Graph) HandoffCount() int { return len(g.handoffs) }

func (g *Graph) reportOverload(id HandoffId, dropped int, cause error) {
	if g.logger != nil {
		g.logger.Logf(LevelWarn, "dfir: dropped %d item(s) pushed to %s: %v", dropped, id, cause)
	}
	g.metrics.recordDropped(id, dropped)
}

// poison transitions the graph to StatePoisoned and records the cause
//. Idempotent: only the first
// call's error is retained.
func (g *Graph) poison(err error) {
	if g.state.TryTransition(StateRunning, StatePoisoned) || g.state.TryTransition(StateSealed, StatePoisoned) {
		g.scheduler.lastErr = err
		g.logger.Logf(LevelError, "%v", err)
	}
}

// PoisonError returns the error that poisoned the graph, wrapped with
// ErrPoisonedGraph so callers can use errors.Is(err, ErrPoisonedGraph). It
// returns nil if the graph is not poisoned.
func (g *Graph) PoisonError() error {
	if g.state.Load() != StatePoisoned || g.scheduler.lastErr == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrPoisonedGraph, g.scheduler.lastErr)
}

// Metrics returns the graph's scheduler metrics.
func (g *Graph) Metrics() *SchedulerMetrics { return g.metrics }
