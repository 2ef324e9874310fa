package euler

import (
	"fmt"

	"github.com/streetcover/routecore/pkg/geo"
	"github.com/streetcover/routecore/pkg/graphbuild"
)

// balanceStats reports what a balance pass did to a single SCC, feeding the
// deadhead_ratio diagnostic.
type balanceStats struct {
	DuplicatedEdges int
	DeadheadLengthM float64
}

// balance brings sub to in_degree(v) == out_degree(v) for every node by
// duplicating edges along shortest paths from supply nodes (in_degree >
// out_degree, b(v) < 0) to demand nodes (out_degree > in_degree, b(v) > 0).
// Every unit of flow routed along a shortest path duplicates each edge on
// that path once, which raises the out-degree of the path's first node and
// the in-degree of its last node by exactly one while leaving every
// intermediate node's balance unchanged — so total supply and demand, which
// are always equal by the handshake lemma, drain to zero together.
//
// sub must already be a single strongly connected component: every supply
// node is then guaranteed a finite-distance path to every demand node, and
// FlowInfeasible below should never actually trigger.
func balance(sub *graphbuild.Graph) (balanceStats, error) {
	var supplies, demands []supplyDemand
	for _, n := range sub.Nodes() {
		switch b := sub.Imbalance(n); {
		case b < 0:
			supplies = append(supplies, supplyDemand{node: n, amount: -b})
		case b > 0:
			demands = append(demands, supplyDemand{node: n, amount: b})
		}
	}
	if len(supplies) == 0 {
		return balanceStats{}, nil
	}

	trees := make(map[int]shortestPathTree, len(supplies))
	for i, s := range supplies {
		trees[i] = shortestPaths(sub, s.node)
	}

	const superSource = 0
	superSink := 1 + len(supplies) + len(demands)
	fg := newFlowGraph(superSink + 1)

	for i, s := range supplies {
		fg.addEdge(superSource, 1+i, s.amount, 0)
	}
	for j, d := range demands {
		fg.addEdge(1+len(supplies)+j, superSink, d.amount, 0)
	}

	type pairEdge struct {
		edgeIdx       int
		supply, demand int // indexes into supplies / demands
	}
	var pairs []pairEdge
	for i, s := range supplies {
		tree := trees[i]
		for j, d := range demands {
			dist, reached := tree.dist[d.node]
			if !reached {
				continue
			}
			capacity := s.amount
			if d.amount < capacity {
				capacity = d.amount
			}
			edgeIdx := len(fg.edges)
			fg.addEdge(1+i, 1+len(supplies)+j, capacity, dist)
			pairs = append(pairs, pairEdge{edgeIdx: edgeIdx, supply: i, demand: j})
		}
	}

	totalFlow, _ := fg.minCostFlow(superSource, superSink)

	var totalSupply int
	for _, s := range supplies {
		totalSupply += s.amount
	}
	if totalFlow < totalSupply {
		return balanceStats{}, fmt.Errorf("euler: flow infeasible, routed %d of %d required units inside a strongly connected component", totalFlow, totalSupply)
	}

	var stats balanceStats
	for _, p := range pairs {
		flow := fg.edges[p.edgeIdx].flow
		if flow <= 0 {
			continue
		}
		path, ok := trees[p.supply].pathTo(sub, demands[p.demand].node)
		if !ok {
			return stats, fmt.Errorf("euler: no path from supply to demand node inside a strongly connected component")
		}
		for i := 0; i < flow; i++ {
			for _, key := range path {
				e := sub.Edge(key)
				sub.DuplicateEdge(key)
				stats.DuplicatedEdges++
				stats.DeadheadLengthM += e.LengthM
			}
		}
	}
	return stats, nil
}

type supplyDemand struct {
	node   geo.NodeID
	amount int
}
