package assemble

import (
	"github.com/streetcover/routecore/pkg/euler"
	"github.com/streetcover/routecore/pkg/geo"
)

// VisitOrder returns a permutation of indices into results describing the
// SCC visit order for final stitching: a nearest-neighbor tour over SCC
// centroids, starting from the SCC that has start as one of its nodes (if
// start is given; when start is not a node of any SCC, the SCC whose
// centroid is nearest start) or otherwise the largest SCC by node count.
// This is explicitly an
// approximation — optimality is not required, only a deterministic,
// reasonable order to splice circuits in.
func VisitOrder(results []euler.SCCResult, start *geo.Point) []int {
	n := len(results)
	if n == 0 {
		return nil
	}

	centroids := make([]geo.Point, n)
	for i, r := range results {
		centroids[i] = centroidOf(r)
	}

	first := largestComponent(results)
	if start != nil {
		best := -1
		bestDist := 0.0
		for i, c := range centroids {
			d := geo.Haversine(start.Lat, start.Lon, c.Lat, c.Lon)
			if best == -1 || d < bestDist {
				best, bestDist = i, d
			}
		}
		first = best

		startID := geo.NodeIDOf(*start)
	search:
		for i, r := range results {
			for _, id := range r.Nodes {
				if id == startID {
					first = i
					break search
				}
			}
		}
	}

	visited := make([]bool, n)
	order := make([]int, 0, n)
	cur := first
	for len(order) < n {
		order = append(order, cur)
		visited[cur] = true
		next, nextDist := -1, 0.0
		for i, c := range centroids {
			if visited[i] {
				continue
			}
			d := geo.Haversine(centroids[cur].Lat, centroids[cur].Lon, c.Lat, c.Lon)
			if next == -1 || d < nextDist {
				next, nextDist = i, d
			}
		}
		if next == -1 {
			break
		}
		cur = next
	}
	return order
}

func largestComponent(results []euler.SCCResult) int {
	best, bestSize := 0, -1
	for i, r := range results {
		if len(r.Nodes) > bestSize {
			best, bestSize = i, len(r.Nodes)
		}
	}
	return best
}

func centroidOf(r euler.SCCResult) geo.Point {
	var lonSum, latSum float64
	for _, n := range r.Nodes {
		p := n.Point()
		lonSum += p.Lon
		latSum += p.Lat
	}
	count := float64(len(r.Nodes))
	if count == 0 {
		return geo.Point{}
	}
	return geo.Point{Lon: lonSum / count, Lat: latSum / count}
}
