package euler

import "math"

// flowEdge is one directed arc in the min-cost-flow residual network.
// Edges are always added in forward/backward pairs so that the backward
// edge for edge index e sits at e^1, letting augmentation update both
// sides of a residual arc with a single XOR.
type flowEdge struct {
	to   int
	cap  int
	flow int
	cost float64
}

// flowGraph is a tiny adjacency-list min-cost-flow network: one node per
// supply/demand node in a single SCC plus a super-source and super-sink,
// so it stays small regardless of how large the underlying street graph
// is.
type flowGraph struct {
	n     int
	adj   [][]int
	edges []flowEdge
}

func newFlowGraph(n int) *flowGraph {
	return &flowGraph{n: n, adj: make([][]int, n)}
}

func (g *flowGraph) addEdge(u, v, cap int, cost float64) {
	g.edges = append(g.edges, flowEdge{to: v, cap: cap, cost: cost})
	g.adj[u] = append(g.adj[u], len(g.edges)-1)
	g.edges = append(g.edges, flowEdge{to: u, cap: 0, cost: -cost})
	g.adj[v] = append(g.adj[v], len(g.edges)-1)
}

func (g *flowGraph) fromNode(edgeIdx int) int {
	return g.edges[edgeIdx^1].to
}

// minCostFlow runs Successive Shortest Paths from s to t: each iteration
// finds the cheapest augmenting path in the residual graph via Dijkstra
// over Johnson-reduced costs (so residual edges with negative cost never
// break Dijkstra's nonnegative-edge assumption), then saturates it.
// Returns the total flow pushed and its total cost.
func (g *flowGraph) minCostFlow(s, t int) (totalFlow int, totalCost float64) {
	potential := g.bellmanFordPotentials(s)

	for {
		dist, prevEdge, reached := g.dijkstraReduced(s, potential)
		if !reached[t] {
			break
		}
		for v := 0; v < g.n; v++ {
			if reached[v] {
				potential[v] += dist[v]
			}
		}

		bottleneck := math.MaxInt
		pathCost := 0.0
		for v := t; v != s; {
			e := prevEdge[v]
			if rem := g.edges[e].cap - g.edges[e].flow; rem < bottleneck {
				bottleneck = rem
			}
			pathCost += g.edges[e].cost
			v = g.fromNode(e)
		}

		for v := t; v != s; {
			e := prevEdge[v]
			g.edges[e].flow += bottleneck
			g.edges[e^1].flow -= bottleneck
			v = g.fromNode(e)
		}

		totalFlow += bottleneck
		totalCost += float64(bottleneck) * pathCost
	}

	return totalFlow, totalCost
}

// bellmanFordPotentials seeds Johnson potentials from s. The first
// iteration's graph has only nonnegative real costs (supply/demand
// hookup edges cost 0, source-to-sink edges are shortest-path distances),
// so this always converges; it exists mainly to make the reduction
// correct if a caller ever feeds a network with negative source edges.
func (g *flowGraph) bellmanFordPotentials(s int) []float64 {
	dist := make([]float64, g.n)
	for i := range dist {
		dist[i] = math.Inf(1)
	}
	dist[s] = 0

	for i := 0; i < g.n-1; i++ {
		changed := false
		for u := 0; u < g.n; u++ {
			if math.IsInf(dist[u], 1) {
				continue
			}
			for _, eIdx := range g.adj[u] {
				e := g.edges[eIdx]
				if e.cap-e.flow <= 0 {
					continue
				}
				if nd := dist[u] + e.cost; nd < dist[e.to] {
					dist[e.to] = nd
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}

	for i := range dist {
		if math.IsInf(dist[i], 1) {
			dist[i] = 0
		}
	}
	return dist
}

func (g *flowGraph) dijkstraReduced(s int, potential []float64) (dist []float64, prevEdge []int, reached []bool) {
	dist = make([]float64, g.n)
	prevEdge = make([]int, g.n)
	reached = make([]bool, g.n)
	for i := range dist {
		dist[i] = math.Inf(1)
		prevEdge[i] = -1
	}
	dist[s] = 0
	reached[s] = true

	h := &floatMinHeap{}
	h.push(s, 0)

	for h.len() > 0 {
		item := h.pop()
		u, d := item.node, item.dist
		if d > dist[u] {
			continue
		}
		for _, eIdx := range g.adj[u] {
			e := g.edges[eIdx]
			if e.cap-e.flow <= 0 {
				continue
			}
			reduced := e.cost + potential[u] - potential[e.to]
			if nd := d + reduced; nd < dist[e.to] {
				dist[e.to] = nd
				prevEdge[e.to] = eIdx
				reached[e.to] = true
				h.push(e.to, nd)
			}
		}
	}

	return dist, prevEdge, reached
}

// floatMinHeap is a concrete-typed binary heap over float64 distances,
// since flow costs are real-valued path lengths in meters.
type floatMinHeap struct {
	items []floatPQItem
}

type floatPQItem struct {
	node int
	dist float64
}

func (h *floatMinHeap) len() int { return len(h.items) }

func (h *floatMinHeap) push(node int, dist float64) {
	h.items = append(h.items, floatPQItem{node, dist})
	i := len(h.items) - 1
	for i > 0 {
		parent := (i - 1) / 2
		if h.items[i].dist >= h.items[parent].dist {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *floatMinHeap) pop() floatPQItem {
	n := len(h.items)
	item := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	n--
	i := 0
	for {
		smallest := i
		left, right := 2*i+1, 2*i+2
		if left < n && h.items[left].dist < h.items[smallest].dist {
			smallest = left
		}
		if right < n && h.items[right].dist < h.items[smallest].dist {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
	return item
}
