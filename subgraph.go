package dfir

// SubgraphFunc is the closure a subgraph runs each time it is invoked. It
// reads from its declared input handoffs and writes to its declared output
// handoffs via the supplied Context.
//
// A SubgraphFunc must return promptly: run-to-completion semantics mean
// the scheduler blocks on this call for its whole duration, and
// cancellation only takes effect between subgraph invocations, never
// inside one.
type SubgraphFunc func(ctx *Context) error

// Subgraph is the registered record of one fused chunk of dataflow logic.
// Subgraphs are immutable once registered; RegisterSubgraph returns their
// SubgraphId.
type Subgraph struct {
	id      SubgraphId
	name    string
	stratum int
	lazy    bool
	inputs  []HandoffId
	outputs []HandoffId
	fn      SubgraphFunc
}

// ID returns the subgraph's assigned identifier.
func (s *Subgraph) ID() SubgraphId { return s.id }

// Name returns the human-readable name supplied at registration, used in
// diagnostics and DOT export (describe.go).
func (s *Subgraph) Name() string { return s.name }

// Stratum returns the intra-tick ordering layer this subgraph runs in.
func (s *Subgraph) Stratum() int { return s.stratum }

// Lazy reports whether this subgraph only becomes schedulable via an
// explicit Context.Schedule call or an external waker/event target, rather
// than automatically whenever an input handoff has pending items.
func (s *Subgraph) Lazy() bool { return s.lazy }

// Inputs returns the handoffs this subgraph reads from.
func (s *Subgraph) Inputs() []HandoffId { return append([]HandoffId(nil), s.inputs...) }

// Outputs returns the handoffs this subgraph writes to.
func (s *Subgraph) Outputs() []HandoffId { return append([]HandoffId(nil), s.outputs...) }
