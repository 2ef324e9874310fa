// Package euler balances and covers a directed street graph per strongly
// connected component (spec component D): it computes per-node imbalance,
// routes minimum-cost duplicate edges to correct it, and emits one
// Eulerian circuit per component via Hierholzer's algorithm.
package euler

import (
	"fmt"

	"github.com/streetcover/routecore/pkg/geo"
	"github.com/streetcover/routecore/pkg/graphbuild"
)

// NotStronglyConnectedError reports that a component handed to hierholzer
// was not actually strongly connected — a defect in SCC extraction, since
// StronglyConnectedComponents is defined to always return genuinely
// strongly connected groups. It should never occur; surfacing it as a
// distinct type lets callers treat it as the fatal bug it is rather than
// a recoverable routing condition.
type NotStronglyConnectedError struct {
	Err error
}

func (e *NotStronglyConnectedError) Error() string {
	return fmt.Sprintf("euler: component not strongly connected: %v", e.Err)
}
func (e *NotStronglyConnectedError) Unwrap() error { return e.Err }

// FlowInfeasibleError reports that the min-cost-flow balancing pass could
// not route every unit of required supply to demand within a single
// strongly connected component. Since every node in an SCC is reachable
// from every other, this indicates a bug upstream (SCC extraction or
// subgraph construction), never a property of real street data.
type FlowInfeasibleError struct {
	Err error
}

func (e *FlowInfeasibleError) Error() string {
	return fmt.Sprintf("euler: flow infeasible: %v", e.Err)
}
func (e *FlowInfeasibleError) Unwrap() error { return e.Err }

// SCCResult is one strongly connected component after balancing: the
// owned, possibly edge-duplicated subgraph and the Eulerian circuit over
// it, plus the diagnostics needed to compute deadhead_ratio.
type SCCResult struct {
	Nodes           []geo.NodeID
	Graph           *graphbuild.Graph
	Circuit         Circuit
	OriginalLengthM float64
	DeadheadLengthM float64
	DuplicatedEdges int
	ImbalancedNodes int // nodes with in_degree != out_degree before balancing
}

// DeadheadRatio is the fraction of the component's covered distance that
// comes from duplicated (non-revenue) edges.
func (r SCCResult) DeadheadRatio() float64 {
	total := r.OriginalLengthM + r.DeadheadLengthM
	if total == 0 {
		return 0
	}
	return r.DeadheadLengthM / total
}

// Eulerize partitions g into strongly connected components, balances each
// one independently via minimum-cost flow, and constructs an Eulerian
// circuit over the balanced result. Components with no edges (isolated
// junction candidates) are skipped: they carry nothing to route.
//
// The graph g itself is never mutated — each component operates on its
// own Subgraph clone, matching the "own clone per SCC" isolation the
// scheduling model requires so independent components could in principle
// be processed concurrently without sharing mutable state.
func Eulerize(g *graphbuild.Graph) ([]SCCResult, error) {
	sccs := StronglyConnectedComponents(g)

	var results []SCCResult
	for _, nodes := range sccs {
		sub := g.Subgraph(nodes)
		if sub.NumEdges() == 0 {
			continue
		}

		var originalLength float64
		var imbalancedNodes int
		for _, n := range sub.Nodes() {
			for _, key := range sub.OutEdges(n) {
				originalLength += sub.Edge(key).LengthM
			}
			if sub.Imbalance(n) != 0 {
				imbalancedNodes++
			}
		}

		stats, err := balance(sub)
		if err != nil {
			return nil, &FlowInfeasibleError{Err: err}
		}

		circuit, err := hierholzer(sub, sub.Nodes()[0])
		if err != nil {
			return nil, &NotStronglyConnectedError{Err: err}
		}

		results = append(results, SCCResult{
			Nodes:           nodes,
			Graph:           sub,
			Circuit:         circuit,
			OriginalLengthM: originalLength,
			DeadheadLengthM: stats.DeadheadLengthM,
			DuplicatedEdges: stats.DuplicatedEdges,
			ImbalancedNodes: imbalancedNodes,
		})
	}
	return results, nil
}
