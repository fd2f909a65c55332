package dfir

import (
	"fmt"
	"sort"
	"strings"
)

// SubgraphStats is a named diagnostics snapshot for one subgraph
// (SUPPLEMENTED FEATURES: "named diagnostics").
type SubgraphStats struct {
	ID      SubgraphId
	Name    string
	Stratum int
	Lazy    bool
	Inputs  []HandoffId
	Outputs []HandoffId
}

// SubgraphStats returns the diagnostics snapshot for id.
func (g *Graph) SubgraphStats(id SubgraphId) SubgraphStats {
	sg := g.subgraph[id]
	return SubgraphStats{
		ID:      sg.id,
		Name:    sg.name,
		Stratum: sg.stratum,
		Lazy:    sg.lazy,
		Inputs:  sg.Inputs(),
		Outputs: sg.Outputs(),
	}
}

// AllSubgraphStats returns a SubgraphStats snapshot for every registered
// subgraph, in registration order.
func (g *Graph) AllSubgraphStats() []SubgraphStats {
	out := make([]SubgraphStats, len(g.subgraph))
	for i, sg := range g.subgraph {
		out[i] = g.SubgraphStats(sg.id)
	}
	return out
}

// Describe renders the graph's wiring as Graphviz DOT (SUPPLEMENTED
// FEATURES: "Graph.Describe()/DOT export"). Subgraphs are grouped into one
// cluster per stratum; handoffs are edges, labeled with their kind.
func (g *Graph) Describe() string {
	var b strings.Builder
	b.WriteString("digraph dfir {\n")
	b.WriteString("  rankdir=LR;\n")

	byStratum := make(map[int][]*Subgraph)
	for _, sg := range g.subgraph {
		byStratum[sg.stratum] = append(byStratum[sg.stratum], sg)
	}

	strata := make([]int, 0, len(byStratum))
	for stratum := range byStratum {
		strata = append(strata, stratum)
	}
	sort.Ints(strata)

	for _, stratum := range strata {
		fmt.Fprintf(&b, "  subgraph cluster_stratum_%d {\n", stratum)
		fmt.Fprintf(&b, "    label=\"stratum %d\";\n", stratum)
		for _, sg := range byStratum[stratum] {
			shape := "box"
			if sg.lazy {
				shape = "box,style=dashed"
			}
			fmt.Fprintf(&b, "    sg_%d [label=%q, shape=%s];\n", sg.id, sg.name, shape)
		}
		b.WriteString("  }\n")
	}

	for _, sg := range g.subgraph {
		for _, out := range sg.outputs {
			h := g.handoffByID(out)
			for _, consumer := range h.Consumers() {
				fmt.Fprintf(&b, "  sg_%d -> sg_%d [label=%q];\n", sg.id, consumer, handoffKindLabel(h.Kind()))
			}
		}
	}

	b.WriteString("}\n")
	return b.String()
}

func handoffKindLabel(k HandoffKind) string {
	switch k {
	case HandoffNormal:
		return "normal"
	case HandoffBounded:
		return "bounded"
	case HandoffStratumCrossing:
		return "stratum-crossing"
	case HandoffTee:
		return "tee"
	default:
		return "unknown"
	}
}
