package euler

import (
	"github.com/streetcover/routecore/pkg/geo"
	"github.com/streetcover/routecore/pkg/graphbuild"
)

// shortestPathTree is one Dijkstra run's result from a single source: for
// every reachable node, its distance and the edge key used to reach it.
type shortestPathTree struct {
	dist     map[geo.NodeID]float64
	prevEdge map[geo.NodeID]uint64
}

// pathTo reconstructs the node sequence and edge-key sequence from source
// to target, walking prevEdge backward. ok is false if target is
// unreached.
func (t shortestPathTree) pathTo(g *graphbuild.Graph, target geo.NodeID) (edgeKeys []uint64, ok bool) {
	if _, reached := t.dist[target]; !reached {
		return nil, false
	}
	var keys []uint64
	cur := target
	for {
		key, hasEdge := t.prevEdge[cur]
		if !hasEdge {
			break // reached the source, which has no incoming edge on this tree
		}
		keys = append(keys, key)
		cur = g.Edge(key).From
	}
	// reverse into source->target order
	for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
		keys[i], keys[j] = keys[j], keys[i]
	}
	return keys, true
}

// shortestPaths runs single-source Dijkstra over g from source, using
// LengthM as edge weight, with a one-to-many run (no target) since
// balancing needs distances to every node in the component.
func shortestPaths(g *graphbuild.Graph, source geo.NodeID) shortestPathTree {
	dist := map[geo.NodeID]float64{source: 0}
	prevEdge := make(map[geo.NodeID]uint64)

	h := &floatMinHeap{}
	nodeIndex := map[geo.NodeID]int{source: 0}
	indexNode := []geo.NodeID{source}
	h.push(0, 0)

	for h.len() > 0 {
		item := h.pop()
		u := indexNode[item.node]
		if item.dist > dist[u] {
			continue
		}
		for _, key := range g.OutEdges(u) {
			e := g.Edge(key)
			nd := dist[u] + e.LengthM
			if cur, ok := dist[e.To]; !ok || nd < cur {
				dist[e.To] = nd
				prevEdge[e.To] = key
				idx, known := nodeIndex[e.To]
				if !known {
					idx = len(indexNode)
					indexNode = append(indexNode, e.To)
					nodeIndex[e.To] = idx
				}
				h.push(idx, nd)
			}
		}
	}

	return shortestPathTree{dist: dist, prevEdge: prevEdge}
}
