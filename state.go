package dfir

import (
	"sync/atomic"
)

// GraphState represents the current lifecycle state of a Graph.
//
// State Machine:
//
//	StateUnsealed (0) → StateSealed (1)      [Seal()]
//	StateSealed (1) → StateRunning (2)       [a driver entry point starts work]
//	StateRunning (2) → StateSealed (1)       [driver call returns to quiescence]
//	StateRunning (2) → StatePoisoned (3)     [a subgraph panics or fails]
//	StateSealed (1) → StatePoisoned (3)      [a subgraph panics or fails]
//	StatePoisoned (3) → (terminal)
//
// There is no "parked awaiting external events" state here: that belongs
// to the driver's RunAsync loop, not the graph itself, since RunTick and
// RunAvailable never park.
type GraphState uint64

const (
	// StateUnsealed indicates the graph is still under construction:
	// RegisterState/RegisterHandoff/RegisterSubgraph may still be called.
	StateUnsealed GraphState = 0
	// StateSealed indicates the graph has been validated and is ready to
	// run, but no driver call is currently executing.
	StateSealed GraphState = 1
	// StateRunning indicates a driver call is actively invoking subgraphs.
	StateRunning GraphState = 2
	// StatePoisoned indicates a subgraph panicked or failed; the graph
	// refuses all further execution.
	StatePoisoned GraphState = 3
)

func (s GraphState) String() string {
	switch s {
	case StateUnsealed:
		return "Unsealed"
	case StateSealed:
		return "Sealed"
	case StateRunning:
		return "Running"
	case StatePoisoned:
		return "Poisoned"
	default:
		return "Unknown"
	}
}

// fastState is a lock-free state machine used for the graph lifecycle.
//
// PERFORMANCE: Pure atomic CAS, no mutex; cache-line padded to prevent
// false sharing with neighboring hot fields.
type fastState struct { // betteralign:ignore
	_ [sizeOfCacheLine]byte
	v atomic.Uint64
	_ [sizeOfCacheLine - sizeOfAtomicUint64]byte
}

func newFastState(initial GraphState) *fastState {
	s := &fastState{}
	s.v.Store(uint64(initial))
	return s
}

func (s *fastState) Load() GraphState {
	return GraphState(s.v.Load())
}

func (s *fastState) Store(state GraphState) {
	s.v.Store(uint64(state))
}

func (s *fastState) TryTransition(from, to GraphState) bool {
	return s.v.CompareAndSwap(uint64(from), uint64(to))
}

func (s *fastState) IsPoisoned() bool {
	return s.Load() == StatePoisoned
}
