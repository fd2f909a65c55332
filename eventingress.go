package dfir

import "sync"

// eventIngress is the multi-producer, single-consumer queue external
// callers use to inject work into a Graph from goroutines other than the
// one driving the scheduler.
//
// Thunks are appended under a mutex and drained in FIFO order by the
// driver between ticks. A lock-free ring with an overflow fallback would
// buy a wait-free fast path, but a single process feeding a handful of
// registered sinks and wakers never contends hard enough to need it, so
// only the mutex-protected overflow path is kept.
type eventIngress struct {
	mu    sync.Mutex
	queue []func(*Graph)
}

func newEventIngress() *eventIngress {
	return &eventIngress{}
}

// enqueue is safe to call from any goroutine.
func (e *eventIngress) enqueue(fn func(*Graph)) {
	e.mu.Lock()
	e.queue = append(e.queue, fn)
	e.mu.Unlock()
}

// drain removes and returns every queued thunk, in FIFO order. Only the
// scheduler's driving goroutine calls this.
func (e *eventIngress) drain() []func(*Graph) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return nil
	}
	out := e.queue
	e.queue = nil
	return out
}

// drainBudget removes and returns up to budget queued thunks, leaving any
// remainder queued for the next drain (options.go WithEventBudget).
func (e *eventIngress) drainBudget(budget int) []func(*Graph) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 || budget <= 0 || budget >= len(e.queue) {
		out := e.queue
		e.queue = nil
		return out
	}
	out := e.queue[:budget]
	e.queue = e.queue[budget:]
	return out
}

func (e *eventIngress) hasPending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue) > 0
}

// Sink is the external producer handle returned by EventSink, bound to one
// handoff of item type T. A Sink may be used concurrently from many
// goroutines.
type Sink[T any] struct {
	g       *Graph
	handoff *Handoff[T]
}

// EventSink returns a typed Sink bound to the given handoff. T must match
// the type the handoff was registered with; a mismatch panics.
func EventSink[T any](g *Graph, id HandoffId) Sink[T] {
	return Sink[T]{g: g, handoff: mustHandoff[T](g, id)}
}

// Push enqueues items for delivery into the bound handoff. Delivery happens
// asynchronously, the next time the driver drains external events; Push itself never blocks.
//
// If the handoff is HandoffBounded and at capacity by the time delivery is
// attempted, the batch is dropped and reported to the graph's Logger at
// warn level: an external producer has no subgraph invocation to
// backpressure against, so there is no other place to push the failure.
func (s Sink[T]) Push(items ...T) {
	if len(items) == 0 {
		return
	}
	h := s.handoff
	g := s.g
	g.ingress.enqueue(func(g *Graph) {
		if err := h.Push(items); err != nil {
			g.reportOverload(h.ID(), len(items), err)
			return
		}
		g.scheduler.notifyHandoffProduced(h.ID())
	})
}

// Waker is the external handle returned by GraphWaker, letting a producer
// goroutine force a specific (typically lazy) subgraph to become
// schedulable.
type Waker struct {
	g        *Graph
	subgraph SubgraphId
}

// GraphWaker returns a Waker bound to the given subgraph.
func GraphWaker(g *Graph, id SubgraphId) Waker {
	return Waker{g: g, subgraph: id}
}

// Wake marks the bound subgraph schedulable for the next time the driver
// drains external events, overriding laziness for this one activation.
func (w Waker) Wake() {
	w.g.ingress.enqueue(func(g *Graph) {
		g.scheduler.forceReady(w.subgraph)
	})
}
