package euler

import (
	"fmt"

	"github.com/streetcover/routecore/pkg/geo"
	"github.com/streetcover/routecore/pkg/graphbuild"
)

// Circuit is a closed directed walk that visits every edge of its graph
// exactly once: Nodes[0] == Nodes[len(Nodes)-1], and Edges[i] runs from
// Nodes[i] to Nodes[i+1].
type Circuit struct {
	Nodes []geo.NodeID
	Edges []uint64
}

// LengthM sums the geometric length of every edge the circuit traverses.
func (c Circuit) LengthM(g *graphbuild.Graph) float64 {
	var total float64
	for _, key := range c.Edges {
		total += g.Edge(key).LengthM
	}
	return total
}

// hierholzer builds a directed Eulerian circuit over g starting (and
// ending) at start, using the standard iterative two-stack formulation:
// walk forward consuming an unused outgoing edge from the current node
// whenever one exists, and when stuck, pop the node onto the circuit and
// back up to the previous choice point. Because g is balanced, a forward
// walk can only get stuck at the node it set out from; backing up then
// resumes from the nearest node that still has unused edges, until every
// edge has been consumed.
//
// g must already satisfy in_degree(v) == out_degree(v) for every v (see
// balance) and be strongly connected (guaranteed by construction: circuit
// is only ever called per-SCC).
func hierholzer(g *graphbuild.Graph, start geo.NodeID) (Circuit, error) {
	remaining := make(map[geo.NodeID][]uint64, g.NumNodes())
	for _, n := range g.Nodes() {
		remaining[n] = append([]uint64(nil), g.OutEdges(n)...)
	}

	stackNodes := []geo.NodeID{start}
	stackEdges := []uint64{}
	var circuitNodes []geo.NodeID
	var circuitEdges []uint64

	for len(stackNodes) > 0 {
		cur := stackNodes[len(stackNodes)-1]
		if edges := remaining[cur]; len(edges) > 0 {
			key := edges[len(edges)-1]
			remaining[cur] = edges[:len(edges)-1]
			stackNodes = append(stackNodes, g.Edge(key).To)
			stackEdges = append(stackEdges, key)
			continue
		}

		circuitNodes = append(circuitNodes, cur)
		stackNodes = stackNodes[:len(stackNodes)-1]
		if len(stackEdges) > 0 {
			circuitEdges = append(circuitEdges, stackEdges[len(stackEdges)-1])
			stackEdges = stackEdges[:len(stackEdges)-1]
		}
	}

	for i, j := 0, len(circuitNodes)-1; i < j; i, j = i+1, j-1 {
		circuitNodes[i], circuitNodes[j] = circuitNodes[j], circuitNodes[i]
	}
	for i, j := 0, len(circuitEdges)-1; i < j; i, j = i+1, j-1 {
		circuitEdges[i], circuitEdges[j] = circuitEdges[j], circuitEdges[i]
	}

	if len(circuitEdges) != g.NumEdges() {
		return Circuit{}, fmt.Errorf("euler: hierholzer covered %d of %d edges; component is not balanced and strongly connected", len(circuitEdges), g.NumEdges())
	}
	return Circuit{Nodes: circuitNodes, Edges: circuitEdges}, nil
}
