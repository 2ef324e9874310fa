package euler

import (
	"testing"

	"github.com/streetcover/routecore/pkg/geo"
	"github.com/streetcover/routecore/pkg/graphbuild"
)

func node(lon, lat float64) geo.NodeID {
	return geo.NodeIDOf(geo.Point{Lon: lon, Lat: lat})
}

func addStreet(g *graphbuild.Graph, a, b geo.NodeID, lengthM float64, oneway bool) {
	geomAB := []geo.Point{a.Point(), b.Point()}
	g.AddEdge(a, b, lengthM, geomAB, graphbuild.Street, nil)
	if !oneway {
		geomBA := []geo.Point{b.Point(), a.Point()}
		g.AddEdge(b, a, lengthM, geomBA, graphbuild.Street, nil)
	}
}

// TestEulerizeTwoWaySquareIsAlreadyEulerian covers S1: a square of
// two-way streets is already balanced, so Eulerize must duplicate
// nothing (invariant 8, round-trip no-op).
func TestEulerizeTwoWaySquareIsAlreadyEulerian(t *testing.T) {
	a, b, c, d := node(0, 0), node(0.001, 0), node(0.001, 0.001), node(0, 0.001)
	g := graphbuild.NewGraph()
	addStreet(g, a, b, 100, false)
	addStreet(g, b, c, 100, false)
	addStreet(g, c, d, 100, false)
	addStreet(g, d, a, 100, false)

	results, err := Eulerize(g)
	if err != nil {
		t.Fatalf("Eulerize: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d SCCs, want 1", len(results))
	}
	r := results[0]
	if r.DuplicatedEdges != 0 {
		t.Errorf("duplicated %d edges, want 0 (already Eulerian)", r.DuplicatedEdges)
	}
	if r.ImbalancedNodes != 0 {
		t.Errorf("ImbalancedNodes = %d, want 0 (already Eulerian)", r.ImbalancedNodes)
	}
	if ratio := r.DeadheadRatio(); ratio != 0 {
		t.Errorf("deadhead_ratio = %v, want 0", ratio)
	}
	if got := len(r.Circuit.Edges); got != 8 {
		t.Errorf("circuit has %d edges, want 8", got)
	}
	if r.Circuit.Nodes[0] != r.Circuit.Nodes[len(r.Circuit.Nodes)-1] {
		t.Error("circuit is not closed")
	}
}

// TestEulerizeOneWayTriangleNeedsNoBalancing covers S2: a one-way
// triangle is already balanced and strongly connected.
func TestEulerizeOneWayTriangleNeedsNoBalancing(t *testing.T) {
	a, b, c := node(0, 0), node(0.0005, 0), node(0.00025, 0.0004)
	g := graphbuild.NewGraph()
	addStreet(g, a, b, 50, true)
	addStreet(g, b, c, 50, true)
	addStreet(g, c, a, 50, true)

	results, err := Eulerize(g)
	if err != nil {
		t.Fatalf("Eulerize: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d SCCs, want 1", len(results))
	}
	r := results[0]
	if r.DuplicatedEdges != 0 {
		t.Errorf("duplicated %d edges, want 0", r.DuplicatedEdges)
	}
	if r.ImbalancedNodes != 0 {
		t.Errorf("ImbalancedNodes = %d, want 0 (one-way triangle is already balanced)", r.ImbalancedNodes)
	}
	if got := r.Circuit.LengthM(r.Graph); got != 150 {
		t.Errorf("circuit length = %v, want 150", got)
	}
}

// TestEulerizeDeadEndStubAlreadyBalanced covers S3: a two-way stub off a
// two-way main road already has in_degree == out_degree == 2 at the stub
// endpoint, so no duplication is needed and the circuit must traverse the
// spur out and back.
func TestEulerizeDeadEndStubAlreadyBalanced(t *testing.T) {
	mainStart, junction, mainEnd := node(0, 0), node(0.001, 0), node(0.002, 0)
	stubEnd := node(0.001, 0.0002)

	g := graphbuild.NewGraph()
	addStreet(g, mainStart, junction, 100, false)
	addStreet(g, junction, mainEnd, 100, false)
	addStreet(g, junction, stubEnd, 20, false)

	results, err := Eulerize(g)
	if err != nil {
		t.Fatalf("Eulerize: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d SCCs, want 1", len(results))
	}
	r := results[0]
	if r.DuplicatedEdges != 0 {
		t.Errorf("duplicated %d edges, want 0 (two-way stub is already balanced)", r.DuplicatedEdges)
	}
	if got, want := r.Circuit.LengthM(r.Graph), 2*(100.0+100.0+20.0); got != want {
		t.Errorf("circuit length = %v, want %v", got, want)
	}
}

// TestEulerizeImbalancedTriangleDuplicatesShortestPath exercises the
// imbalance path directly: a one-way triangle plus an extra parallel a->b
// edge leaves b with out_degree < in_degree and a with out_degree >
// in_degree, while the whole component stays strongly connected. Eulerize
// must duplicate edges along the b->...->a shortest path to balance it.
func TestEulerizeImbalancedTriangleDuplicatesShortestPath(t *testing.T) {
	a, b, c := node(0, 0), node(0.0005, 0), node(0.00025, 0.0004)
	g := graphbuild.NewGraph()
	addStreet(g, a, b, 50, true)
	addStreet(g, b, c, 50, true)
	addStreet(g, c, a, 50, true)
	addStreet(g, a, b, 50, true) // parallel one-way edge, unbalances a and b

	results, err := Eulerize(g)
	if err != nil {
		t.Fatalf("Eulerize: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d SCCs, want 1", len(results))
	}
	r := results[0]
	if r.DuplicatedEdges != 2 {
		t.Errorf("duplicated %d edges, want 2 (b->c and c->a)", r.DuplicatedEdges)
	}
	if r.ImbalancedNodes != 2 {
		t.Errorf("ImbalancedNodes = %d, want 2 (a and b, before balancing)", r.ImbalancedNodes)
	}
	if ratio := r.DeadheadRatio(); ratio <= 0 {
		t.Errorf("deadhead_ratio = %v, want > 0", ratio)
	}
	for _, n := range r.Graph.Nodes() {
		if r.Graph.Imbalance(n) != 0 {
			t.Errorf("node %v still imbalanced after balancing: %d", n, r.Graph.Imbalance(n))
		}
	}
	if got := len(r.Circuit.Edges); got != r.Graph.NumEdges() {
		t.Errorf("circuit covers %d edges, want %d", got, r.Graph.NumEdges())
	}
}

// TestEulerizeSkipsIsolatedEdgelessComponents covers components made of
// lone junction candidates with no incident edges: Eulerize must not
// error or emit a circuit for them.
func TestEulerizeSkipsIsolatedEdgelessComponents(t *testing.T) {
	g := graphbuild.NewGraph()
	g.AddNode(node(1, 1))

	results, err := Eulerize(g)
	if err != nil {
		t.Fatalf("Eulerize: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0 for an edgeless graph", len(results))
	}
}

// TestStronglyConnectedComponentsSeparatesDisconnectedClusters covers S5:
// two clusters with no connecting feature are distinct SCCs.
func TestStronglyConnectedComponentsSeparatesDisconnectedClusters(t *testing.T) {
	a, b := node(0, 0), node(0.001, 0)
	c, d := node(10, 10), node(10.001, 10)

	g := graphbuild.NewGraph()
	addStreet(g, a, b, 100, false)
	addStreet(g, c, d, 100, false)

	sccs := StronglyConnectedComponents(g)
	nonTrivial := 0
	for _, comp := range sccs {
		if len(comp) > 1 {
			nonTrivial++
		}
	}
	if nonTrivial != 2 {
		t.Errorf("got %d nontrivial components, want 2", nonTrivial)
	}
}
