package dfir

import (
	"runtime/debug"
	"sort"
	"time"
)

// scheduler drives one tick's worth of subgraph invocations to quiescence,
// stratum by stratum: N stratum-ordered ready queues are consulted in
// order, each run to its own local fixpoint before the scheduler advances
// to the next.
type scheduler struct {
	g *Graph

	subgraphs    []*Subgraph // indexed by SubgraphId
	strataValues []int       // distinct stratum values, ascending
	strataIndex  map[int]int // stratum value -> position in strata/readyQueue/readySet
	strata       [][]SubgraphId
	sources      []SubgraphId // non-lazy subgraphs with no inputs: fire every tick
	isSource     map[SubgraphId]bool

	readyQueue [][]SubgraphId
	readySet   []map[SubgraphId]bool

	crossing []handoffHandle // all HandoffStratumCrossing handoffs

	lastErr error
}

func newScheduler(g *Graph) *scheduler {
	return &scheduler{g: g, isSource: make(map[SubgraphId]bool)}
}

// build indexes subgraphs by stratum once the graph is sealed. Called
// exactly once, from Graph.Seal.
func (s *scheduler) build(subgraphs []*Subgraph) {
	s.subgraphs = subgraphs

	values := make(map[int]bool)
	for _, sg := range subgraphs {
		values[sg.stratum] = true
	}
	sorted := make([]int, 0, len(values))
	for v := range values {
		sorted = append(sorted, v)
	}
	sort.Ints(sorted)
	s.strataValues = sorted

	s.strataIndex = make(map[int]int, len(sorted))
	for i, v := range sorted {
		s.strataIndex[v] = i
	}

	s.strata = make([][]SubgraphId, len(sorted))
	s.readyQueue = make([][]SubgraphId, len(sorted))
	s.readySet = make([]map[SubgraphId]bool, len(sorted))
	for i := range s.readySet {
		s.readySet[i] = make(map[SubgraphId]bool)
	}

	for _, sg := range subgraphs {
		idx := s.strataIndex[sg.stratum]
		s.strata[idx] = append(s.strata[idx], sg.id)
		if !sg.lazy && len(sg.inputs) == 0 {
			s.sources = append(s.sources, sg.id)
			s.isSource[sg.id] = true
		}
	}

	for _, h := range s.g.handoffs {
		if h.Kind() == HandoffStratumCrossing {
			s.crossing = append(s.crossing, h)
		}
	}
}

// requestSchedule implements Context.Schedule: it marks target runnable
// within the current tick, rejecting requests that name a subgraph in a
// stratum earlier than the requester's and poisoning the graph when it does.
func (s *scheduler) requestSchedule(requester SubgraphId, requesterStratum int, target SubgraphId) error {
	targetStratum := s.subgraphs[target].stratum
	if s.strataIndex[targetStratum] < s.strataIndex[requesterStratum] {
		err := &InvalidScheduleRequestError{
			Requester:        requester,
			Requested:        target,
			RequesterStratum: requesterStratum,
			RequestedStratum: targetStratum,
		}
		s.g.poison(err)
		return err
	}
	s.forceReady(target)
	return nil
}

// forceReady marks a subgraph runnable, regardless of laziness, deduping
// against its stratum's current ready set.
func (s *scheduler) forceReady(id SubgraphId) {
	idx := s.strataIndex[s.subgraphs[id].stratum]
	if s.readySet[idx][id] {
		return
	}
	s.readySet[idx][id] = true
	s.readyQueue[idx] = append(s.readyQueue[idx], id)
}

// notifyHandoffProduced marks every consumer of the given handoff runnable;
// called when an external Sink delivers items directly.
func (s *scheduler) notifyHandoffProduced(id HandoffId) {
	h := s.g.handoffByID(id)
	for _, c := range h.Consumers() {
		s.forceReady(c)
	}
}

// refreshStage scans a stratum's non-lazy, non-source subgraphs for
// handoffs with pending input and marks them runnable.
func (s *scheduler) refreshStage(stage int) {
	for _, id := range s.strata[stage] {
		sg := s.subgraphs[id]
		if sg.lazy || s.isSource[id] || s.readySet[stage][id] {
			continue
		}
		for _, in := range sg.inputs {
			h := s.g.handoffByID(in)
			if h.HasPending(consumerIndex(h, id)) {
				s.forceReady(id)
				break
			}
		}
	}
}

// runOneTick invokes every runnable subgraph, stratum by stratum, until no
// stratum has further runnable subgraphs. It returns whether any subgraph actually ran.
func (s *scheduler) runOneTick() bool {
	ran := false
	start := time.Now()
	defer func() {
		if ran {
			s.g.metrics.TickLatency.Record(time.Since(start))
		}
	}()
	for _, id := range s.sources {
		s.forceReady(id)
	}

	for stage := range s.strata {
		s.refreshStage(stage)
		s.g.metrics.Ready.Update(len(s.readyQueue[stage]))
		for {
			s.refreshStage(stage)
			if len(s.readyQueue[stage]) == 0 {
				break
			}
			batch := s.readyQueue[stage]
			s.readyQueue[stage] = nil
			if order := s.g.opts.readyOrder; order != nil {
				batch = order(batch)
			}
			for _, id := range batch {
				delete(s.readySet[stage], id)
				s.invoke(id, stage)
				ran = true
				if s.g.state.IsPoisoned() {
					return ran
				}
			}
		}
	}
	return ran
}

// invoke runs one subgraph to completion, recovering panics into
// *PanicError and poisoning the graph on any failure: a panicking subgraph
// is treated as catastrophic for the whole graph, not an isolated failure.
func (s *scheduler) invoke(id SubgraphId, stage int) {
	sg := s.subgraphs[id]
	ctx := newContext(s.g, id, sg.stratum, s)

	start := time.Now()
	defer func() {
		s.g.metrics.SubgraphLatency.Record(time.Since(start))
		if r := recover(); r != nil {
			s.g.poison(&PanicError{Subgraph: id, Value: r, Stack: debug.Stack()})
		}
	}()

	err := sg.fn(ctx)
	if err == nil {
		return
	}
	if IsWouldBlock(err) {
		// The producer could not complete this invocation; it is not
		// re-queued immediately, since its blocked output handoff's
		// consumer has not necessarily run yet this tick. It runs again
		// only once it becomes runnable by the usual rules: pending data
		// on its own inputs (picked up by the next refreshStage pass),
		// Context.Schedule, a Waker, or, for a source, the next tick.
		s.g.logger.Logf(LevelDebug, "dfir: %s deferred: %v", id, err)
		return
	}
	s.g.poison(WrapError("subgraph "+id.String()+" failed", err))
}

// finishTick runs the tick-boundary sequence: stratum-crossing handoffs
// become visible, tick-lifetime state resets, and the tick counter
// advances.
func (s *scheduler) finishTick() {
	for _, h := range s.crossing {
		h.promoteCrossing()
	}
	s.g.clock.advanceTick(s.g.states)
	s.g.metrics.TPS.Increment()
}

// hasPendingWork reports whether any handoff has undelivered data, the
// external ingress has queued thunks, or any subgraph is already marked
// runnable. Driver.RunAvailable uses this to decide whether another tick
// is warranted.
//
// Note: a graph containing a perpetual source subgraph (non-lazy, no
// inputs, always producing) never reaches quiescence; RunAvailable on such
// a graph will not return. Callers with that shape should drive the graph
// with RunTick in their own bounded loop instead.
func (s *scheduler) hasPendingWork() bool {
	if len(s.sources) > 0 {
		return true
	}
	if s.g.ingress.hasPending() {
		return true
	}
	for _, set := range s.readySet {
		if len(set) > 0 {
			return true
		}
	}
	for _, h := range s.g.handoffs {
		if h.hasCrossingPending() {
			return true
		}
		for i := range h.Consumers() {
			if h.HasPending(i) {
				return true
			}
		}
	}
	return false
}
