package dfir

import (
	"context"
	"fmt"
	"time"
)

// Driver is the external entry point that steps a sealed Graph. A Driver is not safe for concurrent use: all
// three run methods assume a single caller goroutine, matching the
// single-threaded cooperative execution model of the scheduler itself.
//
// The three run methods give callers three distinct stepping disciplines
// around the same tick core: one tick at a time, every tick currently
// available, or a context.Context-cancellable loop that idles between
// bursts of work.
type Driver struct {
	g    *Graph
	opts driverOptions
}

// NewDriver wraps a Graph for external stepping. g must already be sealed.
func NewDriver(g *Graph, opts ...DriverOption) *Driver {
	return &Driver{g: g, opts: resolveDriverOptions(opts)}
}

// Graph returns the driven graph.
func (d *Driver) Graph() *Graph { return d.g }

// RunTick drains pending external events, then runs the scheduler to
// quiescence at most once. If no subgraph actually ran, the call is a
// no-op: the tick counter does not advance and tick-lifetime state is not
// reset.
func (d *Driver) RunTick() error {
	g := d.g
	if err := d.enterRunning(); err != nil {
		return err
	}
	defer d.leaveRunning()

	d.drainIngress()
	ran := g.scheduler.runOneTick()
	if g.state.IsPoisoned() {
		return g.PoisonError()
	}
	if ran {
		g.scheduler.finishTick()
	}
	return nil
}

// RunAvailable calls RunTick repeatedly until no further work is available
// without external intervention. It never
// blocks waiting for new external events; see scheduler.hasPendingWork for
// the non-termination caveat on graphs with a perpetual source subgraph.
func (d *Driver) RunAvailable() error {
	for {
		if err := d.RunTick(); err != nil {
			return err
		}
		if !d.g.scheduler.hasPendingWork() {
			return nil
		}
	}
}

// RunAsync runs RunAvailable in a loop until token is cancelled, parking
// for opts.asyncIdleWait between polls whenever a pass finds no pending
// work. It returns ErrDriverCancelled (wrapping
// token.Reason(), if set) once cancellation is observed. Cancellation is
// only honored between ticks, never mid-invocation.
func (d *Driver) RunAsync(ctx context.Context, token *CancelToken) error {
	wait := d.opts.asyncIdleWait
	for {
		if token != nil && token.Cancelled() {
			return wrapCancellation(token)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := d.RunTick(); err != nil {
			return err
		}

		if d.g.scheduler.hasPendingWork() {
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

func wrapCancellation(token *CancelToken) error {
	reason := token.Reason()
	if reason == nil || reason == ErrDriverCancelled {
		return ErrDriverCancelled
	}
	return fmt.Errorf("%w: %v", ErrDriverCancelled, reason)
}

// CurrentTick returns the tick in progress or most recently completed.
func (d *Driver) CurrentTick() TickId { return d.g.clock.currentTick() }

// CurrentEpoch returns the epoch currently in effect.
func (d *Driver) CurrentEpoch() EpochId { return d.g.clock.currentEpoch() }

// AdvanceEpoch closes out the current epoch, running every LifetimeEpoch
// state cell's reset in registration order. It is an
// error to call this while a tick is in progress; since Driver is single-
// goroutine, that can only happen from a re-entrant call out of a subgraph
// closure, which is itself a programmer error.
func (d *Driver) AdvanceEpoch() error {
	g := d.g
	if !g.state.TryTransition(StateSealed, StateRunning) {
		if g.state.IsPoisoned() {
			return g.PoisonError()
		}
		if g.state.Load() == StateUnsealed {
			return ErrNotSealed
		}
		return ErrSealed
	}
	defer g.state.Store(StateSealed)
	g.clock.advanceEpoch(g.states)
	return nil
}

// Stats returns the graph's live scheduler metrics, the same value as
// Graph.Metrics (SUPPLEMENTED FEATURES: "Driver.Stats()").
func (d *Driver) Stats() *SchedulerMetrics { return d.g.metrics }

func (d *Driver) enterRunning() error {
	g := d.g
	if g.state.IsPoisoned() {
		return g.PoisonError()
	}
	switch g.state.Load() {
	case StateUnsealed:
		return ErrNotSealed
	case StateRunning:
		return ErrSealed
	}
	if !g.state.TryTransition(StateSealed, StateRunning) {
		if g.state.IsPoisoned() {
			return g.PoisonError()
		}
		return ErrSealed
	}
	return nil
}

func (d *Driver) leaveRunning() {
	d.g.state.TryTransition(StateRunning, StateSealed)
}

func (d *Driver) drainIngress() {
	g := d.g
	for _, fn := range g.ingress.drainBudget(g.opts.eventBudget) {
		fn(g)
	}
}
