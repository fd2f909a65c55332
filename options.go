// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package dfir

import "time"

// graphOptions holds configuration options for Graph creation. readyOrder
// controls intra-stratum fairness (see DESIGN.md); eventBudget caps how
// much queued external work a single drain pass applies.
type graphOptions struct {
	logger       Logger
	readyOrder   func(ready []SubgraphId) []SubgraphId
	eventBudget  int
}

// GraphOption configures a Graph instance.
type GraphOption interface {
	applyGraph(*graphOptions)
}

type graphOptionFunc func(*graphOptions)

func (f graphOptionFunc) applyGraph(opts *graphOptions) { f(opts) }

// WithLogger sets the Logger a Graph reports diagnostics through. The
// default is a no-op logger.
func WithLogger(logger Logger) GraphOption {
	return graphOptionFunc(func(opts *graphOptions) {
		opts.logger = logger
	})
}

// WithReadyOrder installs a deterministic permutation applied to the set
// of subgraphs that became ready within a stratum before the scheduler
// runs them, instead of the default registration-order FIFO. Tests that need to
// explore schedule orderings exhaustively can supply a fuzz-seeded
// permutation here.
func WithReadyOrder(order func(ready []SubgraphId) []SubgraphId) GraphOption {
	return graphOptionFunc(func(opts *graphOptions) {
		opts.readyOrder = order
	})
}

// WithEventBudget caps how many external-ingress thunks are applied per
// drain before yielding back to subgraph execution, mirroring the
// teacher's processExternal per-tick budget in loop.go. A budget of 0
// (the default) means unbounded: drain the whole queue every time.
func WithEventBudget(n int) GraphOption {
	return graphOptionFunc(func(opts *graphOptions) {
		opts.eventBudget = n
	})
}

func resolveGraphOptions(opts []GraphOption) graphOptions {
	cfg := graphOptions{
		logger: noOpLogger{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyGraph(&cfg)
	}
	return cfg
}

// handoffOptions holds configuration for RegisterHandoff.
type handoffOptions struct {
	capacity  int
	teePolicy TeePolicy
}

// HandoffOption configures a single RegisterHandoff call.
type HandoffOption interface {
	applyHandoff(*handoffOptions)
}

type handoffOptionFunc func(*handoffOptions)

func (f handoffOptionFunc) applyHandoff(opts *handoffOptions) { f(opts) }

// WithCapacity sets the bound for a HandoffBounded handoff. It has no
// effect on other handoff kinds.
func WithCapacity(n int) HandoffOption {
	return handoffOptionFunc(func(opts *handoffOptions) {
		opts.capacity = n
	})
}

// WithTeePolicy selects the fan-out policy for a HandoffTee handoff. It has
// no effect on other handoff kinds.
func WithTeePolicy(policy TeePolicy) HandoffOption {
	return handoffOptionFunc(func(opts *handoffOptions) {
		opts.teePolicy = policy
	})
}

func resolveHandoffOptions(opts []HandoffOption) handoffOptions {
	var cfg handoffOptions
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyHandoff(&cfg)
	}
	return cfg
}

// driverOptions holds configuration for a Driver.
type driverOptions struct {
	asyncIdleWait time.Duration
}

// DriverOption configures a Driver instance.
type DriverOption interface {
	applyDriver(*driverOptions)
}

type driverOptionFunc func(*driverOptions)

func (f driverOptionFunc) applyDriver(opts *driverOptions) { f(opts) }

// WithAsyncIdleWait sets how long RunAsync parks between polls of the
// external ingress queue when the graph has reached quiescence with no
// pending external work. The default is 1ms.
func WithAsyncIdleWait(d time.Duration) DriverOption {
	return driverOptionFunc(func(opts *driverOptions) {
		opts.asyncIdleWait = d
	})
}

func resolveDriverOptions(opts []DriverOption) driverOptions {
	cfg := driverOptions{
		asyncIdleWait: time.Millisecond,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyDriver(&cfg)
	}
	return cfg
}
