// Package dfir provides a single-process runtime for a streaming dataflow
// graph: fused subgraphs exchanging typed batches over handoffs, run by a
// cooperative, stratified scheduler under a tick/epoch clock.
//
// # Architecture
//
// A [Graph] is built by registering state cells ([RegisterState]), typed
// buffers between subgraphs ([RegisterHandoff]), and the subgraphs
// themselves ([Graph.RegisterSubgraph]), then validated and frozen with
// [Graph.Seal]. A [Driver] then steps the sealed graph: [Driver.RunTick]
// runs one tick to quiescence, [Driver.RunAvailable] runs ticks back to
// back while work remains, and [Driver.RunAsync] does the same forever
// (or until a [CancelToken] fires), parking between polls when idle.
//
// # Scheduling
//
// Each tick runs every stratum in ascending order. Within a stratum, a
// subgraph becomes runnable when a non-lazy input handoff has pending
// data, when another subgraph explicitly schedules it ([Context.Schedule]),
// or when an external [Sink] or [Waker] targets it directly. A stratum
// runs to its own local fixpoint — repeatedly draining its ready queue —
// before the scheduler advances to the next one.
//
// # Handoffs
//
// [Handoff] is generic over its item type; the Graph itself only ever
// holds the type-erased [handoffHandle] view, since its two endpoints
// agree on the concrete type by construction, not at the arena level.
// Four kinds are supported: unbounded FIFO, capacity-bounded (signals
// [ErrWouldBlock] rather than growing), stratum-crossing (delivery
// deferred to a later tick boundary), and tee (one producer fanned out to
// several independent or round-robin consumers).
//
// # State and time
//
// State cells ([RegisterState]) carry a [Lifetime]: tick-scoped and
// epoch-scoped cells are reset, in registration order, at the
// corresponding clock boundary; static cells are never reset. [TickId] and
// [EpochId] are independent counters — only the external driver advances
// the epoch, never the scheduler itself.
//
// # Failure
//
// A panicking or erroring subgraph poisons the whole graph
// ([ErrPoisonedGraph]): every subsequent driver call fails until a fresh
// Graph is built. Cancellation via [CancelToken] is only honored between
// ticks, never mid-invocation.
package dfir
