package scheduler

import (
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/confgraph/confgraph/graph"
	"github.com/confgraph/confgraph/resolver"
)

// findCycles returns the dependency cycles among the given nodes, as
// lists of full paths. Only edges between the given nodes are
// considered; a dependency on a node outside the set cannot be part of
// a cycle among them.
func findCycles(nodes []*graph.Node) [][]string {
	ids := make(map[string]int64, len(nodes))
	paths := make([]string, 0, len(nodes))
	dg := simple.NewDirectedGraph()

	for _, n := range nodes {
		p := n.FullPath()
		ids[p] = int64(len(paths))
		paths = append(paths, p)
		dg.AddNode(simple.Node(ids[p]))
	}

	var cycles [][]string
	for _, n := range nodes {
		from := n.FullPath()
		for dep := range n.Resolver().Dependencies(resolver.DepsAll) {
			to, ok := ids[dep]
			if !ok {
				continue
			}
			if dep == from {
				// Self-dependency.
				cycles = append(cycles, []string{from})
				continue
			}
			dg.SetEdge(dg.NewEdge(simple.Node(ids[from]), simple.Node(to)))
		}
	}

	for _, cyc := range topo.DirectedCyclesIn(dg) {
		// The first node is repeated at the end of the cycle.
		if len(cyc) > 1 && cyc[0].ID() == cyc[len(cyc)-1].ID() {
			cyc = cyc[:len(cyc)-1]
		}
		out := make([]string, len(cyc))
		for i, n := range cyc {
			out[i] = paths[n.ID()]
		}
		cycles = append(cycles, out)
	}
	return cycles
}
