// Package dfir error types follow a cause-chain idiom: sentinel errors for
// control-flow signals, wrapped struct types for errors that carry
// structured detail, all satisfying errors.Is/As/Unwrap.
package dfir

import (
	"errors"
	"fmt"
)

// ErrWouldBlock signals that a bounded Handoff push could not proceed
// immediately because the handoff is at capacity. It is
// a scheduling signal, not a failure: a subgraph that returns it does not
// poison the graph. The scheduler does not requeue the producer subgraph
// on this signal; the producer runs again only when it next becomes
// schedulable (pending input, Context.Schedule, or a Waker). A non-lazy
// consumer is marked ready by its own pending input.
var ErrWouldBlock = errors.New("dfir: handoff would block")

// ErrPoisonedGraph is returned by every driver entry point once a subgraph
// invocation has failed catastrophically. Once poisoned, a graph never recovers.
var ErrPoisonedGraph = errors.New("dfir: graph is poisoned")

// ErrDriverCancelled is returned from RunAsync when its CancelToken fires.
var ErrDriverCancelled = errors.New("dfir: driver run was cancelled")

// ErrSealed is returned by the construction API (RegisterState,
// RegisterHandoff, RegisterSubgraph) once Seal has been called.
var ErrSealed = errors.New("dfir: graph is sealed")

// ErrNotSealed is returned by driver entry points invoked before Seal.
var ErrNotSealed = errors.New("dfir: graph is not sealed")

// IsWouldBlock reports whether err is (or wraps) ErrWouldBlock.
func IsWouldBlock(err error) bool {
	return errors.Is(err, ErrWouldBlock)
}

// GraphMisconfigurationError reports one or more seal-time validation
// failures. Seal returns one of these
// wrapping every violation found; no execution proceeds.
type GraphMisconfigurationError struct {
	Violations []string
}

func (e *GraphMisconfigurationError) Error() string {
	if len(e.Violations) == 1 {
		return fmt.Sprintf("dfir: graph misconfiguration: %s", e.Violations[0])
	}
	return fmt.Sprintf("dfir: graph misconfiguration: %d violations (first: %s)", len(e.Violations), e.Violations[0])
}

// Is reports whether target is a *GraphMisconfigurationError, regardless
// of its contents.
func (e *GraphMisconfigurationError) Is(target error) bool {
	var t *GraphMisconfigurationError
	return errors.As(target, &t)
}

// InvalidScheduleRequestError reports a Context.Schedule call naming a
// subgraph in an earlier stratum than the current one. This is a programmer bug: it aborts the current
// run and poisons the graph.
type InvalidScheduleRequestError struct {
	Requester        SubgraphId
	Requested        SubgraphId
	RequesterStratum int
	RequestedStratum int
}

func (e *InvalidScheduleRequestError) Error() string {
	return fmt.Sprintf(
		"dfir: %s (stratum %d) attempted to schedule %s (stratum %d), which is earlier in the current tick",
		e.Requester, e.RequesterStratum, e.Requested, e.RequestedStratum,
	)
}

func (e *InvalidScheduleRequestError) Is(target error) bool {
	var t *InvalidScheduleRequestError
	return errors.As(target, &t)
}

// PanicError wraps a value recovered from a panicking subgraph closure,
// along with the stack captured at the point of recovery.
type PanicError struct {
	Subgraph SubgraphId
	Value    any
	Stack    []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("dfir: subgraph %s panicked: %v", e.Subgraph, e.Value)
}

// Unwrap returns the underlying error if the panic value is itself an
// error, enabling errors.Is/As through the cause chain.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// WrapError wraps an error with a message, preserving the cause chain.
func WrapError(message string, cause error) error {
	return fmt.Errorf("%s: %w", message, cause)
}
