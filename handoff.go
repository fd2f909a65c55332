package dfir

import "sync"

// HandoffKind selects the buffering/fan-out behavior of a Handoff, chosen
// at RegisterHandoff time.
type HandoffKind int

const (
	// HandoffNormal is unbounded, single-producer single-consumer, FIFO.
	HandoffNormal HandoffKind = iota
	// HandoffBounded is capacity-limited; Push signals ErrWouldBlock when
	// full instead of growing.
	HandoffBounded
	// HandoffStratumCrossing delivers pushed items only in the next tick.
	// Its items never become visible within the tick they were pushed in,
	// not even to a consumer on a later stratum.
	HandoffStratumCrossing
	// HandoffTee fans a single producer out to several independent
	// consumer cursors over the same ordered sequence.
	HandoffTee
)

// TeePolicy selects how a HandoffTee distributes items across its
// consumers.
type TeePolicy int

const (
	// TeeBroadcast delivers every item to every consumer (independent
	// cursors over one shared log). This is the default.
	TeeBroadcast TeePolicy = iota
	// TeeRoundRobin assigns each item to exactly one consumer, cycling
	// through consumers in registration order.
	TeeRoundRobin
)

// handoffHandle is the type-erased view the Graph and Scheduler use to
// manage a Handoff without knowing its item type. The arena holds handles;
// the generic Handoff[T] underneath agrees on a concrete type with its two
// endpoints by construction.
type handoffHandle interface {
	ID() HandoffId
	Kind() HandoffKind
	Producer() SubgraphId
	Consumers() []SubgraphId
	// HasPending reports whether the handoff has unconsumed items visible
	// in the current tick, for the given consumer index (0 for non-tee
	// handoffs).
	HasPending(consumerIdx int) bool
	// promoteCrossing makes pending stratum-crossing pushes visible; called
	// by the scheduler at each tick boundary.
	promoteCrossing()
	// hasCrossingPending reports unpromoted stratum-crossing data exists.
	hasCrossingPending() bool
	// setEndpoints records the producer/consumers discovered at Seal time.
	setEndpoints(producer SubgraphId, consumers []SubgraphId)
}

// Handoff is a typed, ordered buffer between exactly one producer subgraph
// and one-or-more consumer subgraphs, with bounded, stratum-crossing and
// tee (broadcast/round-robin) variants.
//
// A Handoff is only ever touched by the single scheduler goroutine driving
// subgraph execution, plus that same goroutine applying ingress-delivered
// external events, so the mutex exists to let push (a producer's return
// path) and drain (a consumer's call) nest safely, not to support genuine
// cross-thread contention.
type Handoff[T any] struct {
	id       HandoffId
	kind     HandoffKind
	capacity int // 0 means unbounded
	producer SubgraphId
	consumer []SubgraphId
	policy   TeePolicy

	mu sync.Mutex

	// buf holds items visible to consumers in the current tick.
	buf []T
	// cursors[i] is the read offset of consumer i into buf (tee only).
	cursors []int
	// nextConsumer is the round-robin cursor into consumer (tee + RoundRobin only).
	nextConsumer int

	// pending holds stratum-crossing pushes not yet promoted into buf.
	pending []T
}

func newHandoff[T any](id HandoffId, kind HandoffKind, capacity int, policy TeePolicy) *Handoff[T] {
	return &Handoff[T]{
		id:       id,
		kind:     kind,
		capacity: capacity,
		policy:   policy,
	}
}

// setEndpoints records the producer and consumers discovered by scanning
// registered subgraphs' declared inputs/outputs at Seal time. Handoffs
// are registered before the subgraphs that use them, so these endpoints
// are not known until seal.
func (h *Handoff[T]) setEndpoints(producer SubgraphId, consumers []SubgraphId) {
	h.producer = producer
	h.consumer = append([]SubgraphId(nil), consumers...)
	if h.kind == HandoffTee && h.policy == TeeBroadcast {
		h.cursors = make([]int, len(consumers))
	}
}

func (h *Handoff[T]) ID() HandoffId          { return h.id }
func (h *Handoff[T]) Kind() HandoffKind      { return h.kind }
func (h *Handoff[T]) Producer() SubgraphId   { return h.producer }
func (h *Handoff[T]) Consumers() []SubgraphId { return h.consumer }

// Push appends items to the handoff.
//
// On a HandoffBounded handoff at capacity, Push appends nothing and
// returns ErrWouldBlock. The scheduler does not requeue the producer
// subgraph on this signal (see ErrWouldBlock).
//
// On a HandoffStratumCrossing handoff, items are held in a side buffer and
// only become visible to consumers once promoteCrossing is called by the
// scheduler at the next tick boundary.
func (h *Handoff[T]) Push(items []T) error {
	if len(items) == 0 {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.kind == HandoffStratumCrossing {
		h.pending = append(h.pending, items...)
		return nil
	}

	if h.kind == HandoffBounded && h.capacity > 0 {
		dest := &h.buf
		if h.kind == HandoffTee && h.policy == TeeRoundRobin {
			dest = nil // round robin below doesn't use a single capacity-checked buf
		}
		if dest != nil && len(*dest)+len(items) > h.capacity {
			return ErrWouldBlock
		}
	}

	if h.kind == HandoffTee && h.policy == TeeRoundRobin {
		for _, item := range items {
			idx := h.nextConsumer % len(h.consumer)
			h.nextConsumer++
			h.buf = append(h.buf, item)
			_ = idx // assignment is recorded positionally; Drain uses per-item ownership below
		}
		return nil
	}

	h.buf = append(h.buf, items...)
	return nil
}

// Drain removes and returns all pending items for the given consumer
// index. For non-tee handoffs, consumerIdx must be 0.
func (h *Handoff[T]) Drain(consumerIdx int) []T {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.kind == HandoffTee {
		return h.drainTeeLocked(consumerIdx)
	}

	if len(h.buf) == 0 {
		return nil
	}
	out := h.buf
	h.buf = nil
	return out
}

func (h *Handoff[T]) drainTeeLocked(consumerIdx int) []T {
	if h.policy == TeeRoundRobin {
		var out []T
		n := len(h.consumer)
		// Round-robin items are single-owner: once drained by their
		// assigned consumer they will never be requested again, so the
		// whole shared log can be dropped once every consumer has taken
		// its share. DFIR tracks this with the same cursor slice used by
		// broadcast, sized lazily here.
		if h.cursors == nil {
			h.cursors = make([]int, n)
		}
		for i := h.cursors[consumerIdx]; i < len(h.buf); i++ {
			if i%n == consumerIdx {
				out = append(out, h.buf[i])
			}
		}
		h.cursors[consumerIdx] = len(h.buf)
		if allCursorsCaughtUp(h.cursors, len(h.buf)) {
			h.buf = nil
			for i := range h.cursors {
				h.cursors[i] = 0
			}
		}
		return out
	}

	cur := h.cursors[consumerIdx]
	if cur >= len(h.buf) {
		return nil
	}
	out := h.buf[cur:]
	h.cursors[consumerIdx] = len(h.buf)

	if allCursorsCaughtUp(h.cursors, len(h.buf)) {
		h.buf = nil
		for i := range h.cursors {
			h.cursors[i] = 0
		}
	}
	return out
}

func allCursorsCaughtUp(cursors []int, n int) bool {
	for _, c := range cursors {
		if c < n {
			return false
		}
	}
	return true
}

// HasPending reports whether the given consumer has unconsumed items
// visible in the current tick. Runs in O(1).
func (h *Handoff[T]) HasPending(consumerIdx int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.kind == HandoffTee {
		if len(h.cursors) <= consumerIdx {
			return len(h.buf) > 0
		}
		return h.cursors[consumerIdx] < len(h.buf)
	}
	return len(h.buf) > 0
}

func (h *Handoff[T]) promoteCrossing() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.pending) == 0 {
		return
	}
	h.buf = append(h.buf, h.pending...)
	h.pending = nil
}

func (h *Handoff[T]) hasCrossingPending() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pending) > 0
}
