package euler

import (
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/streetcover/routecore/pkg/geo"
	"github.com/streetcover/routecore/pkg/graphbuild"
)

// StronglyConnectedComponents partitions g's nodes into strongly connected
// components via gonum's Tarjan implementation. A weak (undirected)
// component pass isn't enough here: an Eulerian circuit can only be
// built per strongly connected component, so balancing needs the
// directed SCC decomposition.
func StronglyConnectedComponents(g *graphbuild.Graph) [][]geo.NodeID {
	a := newDirectedAdapter(g)
	comps := topo.TarjanSCC(a)

	out := make([][]geo.NodeID, len(comps))
	for i, comp := range comps {
		ids := make([]geo.NodeID, len(comp))
		for j, n := range comp {
			ids[j] = a.nodeOf[n.ID()]
		}
		out[i] = ids
	}
	return out
}

// simpleNode and simpleEdge are the minimal graph.Node/graph.Edge
// implementations the adapter hands back to gonum's algorithms.
type simpleNode int64

func (n simpleNode) ID() int64 { return int64(n) }

type simpleEdge struct{ f, t simpleNode }

func (e simpleEdge) From() graph.Node         { return e.f }
func (e simpleEdge) To() graph.Node           { return e.t }
func (e simpleEdge) ReversedEdge() graph.Edge { return simpleEdge{f: e.t, t: e.f} }

// directedAdapter presents a graphbuild.Graph as a gonum graph.Directed,
// mapping each geo.NodeID to a dense int64 index.
type directedAdapter struct {
	g      *graphbuild.Graph
	idOf   map[geo.NodeID]int64
	nodeOf []geo.NodeID
}

func newDirectedAdapter(g *graphbuild.Graph) *directedAdapter {
	nodes := g.Nodes()
	idOf := make(map[geo.NodeID]int64, len(nodes))
	for i, n := range nodes {
		idOf[n] = int64(i)
	}
	return &directedAdapter{g: g, idOf: idOf, nodeOf: nodes}
}

func (a *directedAdapter) Node(id int64) graph.Node {
	if id < 0 || int(id) >= len(a.nodeOf) {
		return nil
	}
	return simpleNode(id)
}

func (a *directedAdapter) Nodes() graph.Nodes {
	nodes := make([]graph.Node, len(a.nodeOf))
	for i := range a.nodeOf {
		nodes[i] = simpleNode(i)
	}
	return iterator.NewOrderedNodes(nodes)
}

func (a *directedAdapter) From(id int64) graph.Nodes {
	u := a.nodeOf[id]
	seen := make(map[int64]bool)
	var nodes []graph.Node
	for _, key := range a.g.OutEdges(u) {
		v := a.idOf[a.g.Edge(key).To]
		if !seen[v] {
			seen[v] = true
			nodes = append(nodes, simpleNode(v))
		}
	}
	return iterator.NewOrderedNodes(nodes)
}

func (a *directedAdapter) To(id int64) graph.Nodes {
	v := a.nodeOf[id]
	seen := make(map[int64]bool)
	var nodes []graph.Node
	for _, key := range a.g.InEdges(v) {
		u := a.idOf[a.g.Edge(key).From]
		if !seen[u] {
			seen[u] = true
			nodes = append(nodes, simpleNode(u))
		}
	}
	return iterator.NewOrderedNodes(nodes)
}

func (a *directedAdapter) HasEdgeBetween(xid, yid int64) bool {
	return a.HasEdgeFromTo(xid, yid) || a.HasEdgeFromTo(yid, xid)
}

func (a *directedAdapter) HasEdgeFromTo(uid, vid int64) bool {
	u, v := a.nodeOf[uid], a.nodeOf[vid]
	for _, key := range a.g.OutEdges(u) {
		if a.g.Edge(key).To == v {
			return true
		}
	}
	return false
}

func (a *directedAdapter) Edge(uid, vid int64) graph.Edge {
	if !a.HasEdgeFromTo(uid, vid) {
		return nil
	}
	return simpleEdge{f: simpleNode(uid), t: simpleNode(vid)}
}
