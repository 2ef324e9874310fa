// Package graphbuild turns raw street features into a directed multigraph
// with detected intersections, snapped vertices, and aligned edge
// geometry (spec component C).
package graphbuild

import (
	"sort"

	"github.com/streetcover/routecore/pkg/geo"
	"github.com/streetcover/routecore/pkg/ingest"
)

// EdgeKind records an edge's provenance.
type EdgeKind int

const (
	Street EdgeKind = iota
	Duplicate
	Connector
)

func (k EdgeKind) String() string {
	switch k {
	case Street:
		return "street"
	case Duplicate:
		return "duplicate"
	case Connector:
		return "connector"
	default:
		return "unknown"
	}
}

// Edge is a directed arc from From to To. Geometry[0] and Geometry[-1]
// always equal From.Point() and To.Point() exactly, post-alignment.
type Edge struct {
	Key      uint64
	From, To geo.NodeID
	LengthM  float64
	Geometry []geo.Point
	Kind     EdgeKind
	Tags     ingest.Tags
}

// Graph is a directed multigraph over quantized nodes, keyed by stable
// edge keys so parallel (including duplicated) edges are disambiguated by
// key, never by their (u, v) endpoints.
type Graph struct {
	out     map[geo.NodeID][]uint64
	in      map[geo.NodeID][]uint64
	edges   map[uint64]*Edge
	order   []geo.NodeID // insertion order, for determinism
	nextKey uint64
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		out:   make(map[geo.NodeID][]uint64),
		in:    make(map[geo.NodeID][]uint64),
		edges: make(map[uint64]*Edge),
	}
}

// AddNode registers a node if it is not already present. Nodes with no
// edges are legal (isolated junction candidates before edges land).
func (g *Graph) AddNode(id geo.NodeID) {
	if _, ok := g.out[id]; ok {
		return
	}
	g.out[id] = nil
	g.in[id] = nil
	g.order = append(g.order, id)
}

// AddEdge appends a new directed edge and returns its stable key. Parallel
// edges are permitted; insertion order is preserved within a node's
// adjacency list, which is what makes circuit emission deterministic.
func (g *Graph) AddEdge(from, to geo.NodeID, lengthM float64, geometry []geo.Point, kind EdgeKind, tags ingest.Tags) uint64 {
	g.AddNode(from)
	g.AddNode(to)

	key := g.nextKey
	g.nextKey++

	g.edges[key] = &Edge{
		Key:      key,
		From:     from,
		To:       to,
		LengthM:  lengthM,
		Geometry: geometry,
		Kind:     kind,
		Tags:     tags,
	}
	g.out[from] = append(g.out[from], key)
	g.in[to] = append(g.in[to], key)
	return key
}

// DuplicateEdge adds a second parallel copy of the edge identified by key,
// marked Kind=Duplicate, preserving geometry and direction. Used by the
// eulerization pass to balance node degree.
func (g *Graph) DuplicateEdge(key uint64) uint64 {
	e := g.edges[key]
	return g.AddEdge(e.From, e.To, e.LengthM, e.Geometry, Duplicate, e.Tags)
}

// Edge returns the edge for key.
func (g *Graph) Edge(key uint64) *Edge { return g.edges[key] }

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []geo.NodeID { return g.order }

// NumNodes returns the node count.
func (g *Graph) NumNodes() int { return len(g.order) }

// NumEdges returns the edge count.
func (g *Graph) NumEdges() int { return len(g.edges) }

// OutEdges returns the keys of edges leaving node, in insertion order.
func (g *Graph) OutEdges(node geo.NodeID) []uint64 { return g.out[node] }

// InEdges returns the keys of edges entering node, in insertion order.
func (g *Graph) InEdges(node geo.NodeID) []uint64 { return g.in[node] }

// OutDegree returns the number of edges leaving node.
func (g *Graph) OutDegree(node geo.NodeID) int { return len(g.out[node]) }

// InDegree returns the number of edges entering node.
func (g *Graph) InDegree(node geo.NodeID) int { return len(g.in[node]) }

// Clone returns an independent deep copy of the graph's adjacency
// structure (edges are copied by value; geometry slices are shared, since
// eulerization never mutates geometry). Eulerization operates on an owned
// clone per SCC so that per-component duplication never disturbs sibling
// components sharing the same base graph.
func (g *Graph) Clone() *Graph {
	clone := &Graph{
		out:     make(map[geo.NodeID][]uint64, len(g.out)),
		in:      make(map[geo.NodeID][]uint64, len(g.in)),
		edges:   make(map[uint64]*Edge, len(g.edges)),
		order:   append([]geo.NodeID(nil), g.order...),
		nextKey: g.nextKey,
	}
	for n, keys := range g.out {
		clone.out[n] = append([]uint64(nil), keys...)
	}
	for n, keys := range g.in {
		clone.in[n] = append([]uint64(nil), keys...)
	}
	for k, e := range g.edges {
		ec := *e
		clone.edges[k] = &ec
	}
	return clone
}

// Subgraph returns a clone restricted to the given node set; edges with
// either endpoint outside the set are dropped. Used to isolate a single
// SCC for independent eulerization.
func (g *Graph) Subgraph(nodes []geo.NodeID) *Graph {
	keep := make(map[geo.NodeID]bool, len(nodes))
	for _, n := range nodes {
		keep[n] = true
	}

	sub := NewGraph()
	for _, n := range nodes {
		sub.AddNode(n)
	}
	// Iterate edges in key order for determinism regardless of map
	// iteration order.
	keys := make([]uint64, 0, len(g.edges))
	for k := range g.edges {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, k := range keys {
		e := g.edges[k]
		if keep[e.From] && keep[e.To] {
			sub.AddEdge(e.From, e.To, e.LengthM, e.Geometry, e.Kind, e.Tags)
		}
	}
	return sub
}

// Imbalance returns out_degree(v) - in_degree(v).
func (g *Graph) Imbalance(node geo.NodeID) int {
	return g.OutDegree(node) - g.InDegree(node)
}
