package graphbuild

import (
	"fmt"
	"math"
	"sort"

	"github.com/tidwall/rtree"

	"github.com/streetcover/routecore/pkg/geo"
	"github.com/streetcover/routecore/pkg/ingest"
)

// NaiveThreshold is the feature count at or below which the builder skips the
// R-tree and does a direct O(n^2) pairwise bounding-box scan, per spec's
// "naive O(n^2) is acceptable only under a documented threshold" note.
const NaiveThreshold = 64

// Options configures graph construction.
type Options struct {
	// SnapToleranceM unifies vertices within this radius into one node,
	// closing hairline gaps at T-junctions. Default 1.0.
	SnapToleranceM float64
}

// DefaultOptions returns the documented default thresholds.
func DefaultOptions() Options {
	return Options{SnapToleranceM: 1.0}
}

// ErrInvalidGeometry describes a feature with fewer than two distinct
// vertices (either before ingestion or after quantization collapses it).
// Build never returns this as a fatal error — it skips the feature,
// counts it in FeaturesSkipped, and appends it here so a caller can log
// or inspect which input features were dropped.
type ErrInvalidGeometry struct{ Index int }

func (e ErrInvalidGeometry) Error() string {
	return fmt.Sprintf("ingest: feature %d has fewer than two distinct vertices after quantization", e.Index)
}

// ErrProjectionUnavailable is returned when no local CRS origin can be
// determined (e.g. an empty polygon and no features to fall back on).
var ErrProjectionUnavailable = fmt.Errorf("graphbuild: no polygon or feature points to derive a local projection from")

// BuildStats records counts useful for diagnostics (component F).
type BuildStats struct {
	FeaturesIn      int
	FeaturesSkipped int
	Intersections   int
	SnappedVertices int
	InvalidGeometry []ErrInvalidGeometry
}

// breakPoint is a vertex that becomes an edge endpoint: either an original
// feature endpoint or a detected crossing.
type breakPoint struct {
	segIdx int // index i such that the point lies on segment (P[i], P[i+1]), or -1 for endpoints
	t      float64
	planar [2]float64
}

// Build runs the graph builder algorithm (spec component C, §4.C):
// project, detect intersections, snap vertices, construct aligned edges,
// apply directionality, unproject. Invalid features are skipped and
// counted rather than failing the whole build.
func Build(features []ingest.StreetFeature, polygon ingest.Polygon, opts Options) (*Graph, BuildStats, error) {
	origin, err := projectionOrigin(features, polygon)
	if err != nil {
		return nil, BuildStats{}, err
	}
	proj := geo.NewLocalProjector(origin)

	stats := BuildStats{FeaturesIn: len(features)}

	// Project every feature's points to planar meters up front.
	planar := make([][][2]float64, len(features))
	for i, f := range features {
		pts := make([][2]float64, len(f.Points))
		for j, p := range f.Points {
			x, y := proj.Project(p)
			pts[j] = [2]float64{x, y}
		}
		planar[i] = pts
	}

	crossings := detectIntersections(planar)
	stats.Intersections = countCrossings(crossings)

	// Build the break-point sequence for every feature.
	breakSeqs := make([][]breakPoint, len(features))
	for i, pts := range planar {
		breakSeqs[i] = buildBreakSequence(pts, crossings[i])
	}

	snapper := newVertexSnapper(opts.snapTolerance())

	g := NewGraph()

	for i, f := range features {
		if !f.Valid() {
			stats.FeaturesSkipped++
			stats.InvalidGeometry = append(stats.InvalidGeometry, ErrInvalidGeometry{Index: i})
			continue
		}

		pts := planar[i]
		bps := breakSeqs[i]
		if len(pts) < 2 || len(bps) < 2 {
			stats.FeaturesSkipped++
			stats.InvalidGeometry = append(stats.InvalidGeometry, ErrInvalidGeometry{Index: i})
			continue
		}

		// Canonicalize every break point's planar coordinate through the
		// snapper, then derive node identity by unprojecting + quantizing.
		nodeAt := make([]geo.NodeID, len(bps))
		for k, bp := range bps {
			canon := snapper.canonicalize(bp.planar)
			nodeAt[k] = geo.NodeIDOf(proj.Unproject(canon[0], canon[1]))
		}

		pieceCount := 0
		for k := 0; k < len(bps)-1; k++ {
			from, to := nodeAt[k], nodeAt[k+1]
			if from == to {
				continue
			}

			geomPlanar := piecePoints(pts, bps[k], bps[k+1])
			geomWGS84 := make([]geo.Point, len(geomPlanar))
			for gi, gp := range geomPlanar {
				geomWGS84[gi] = proj.Unproject(gp[0], gp[1])
			}
			// Alignment invariant: endpoints exactly equal node coordinates.
			geomWGS84[0] = from.Point()
			geomWGS84[len(geomWGS84)-1] = to.Point()

			lengthM := polylineLength(geomWGS84)
			if lengthM <= 0 {
				continue
			}

			addDirectedEdges(g, from, to, lengthM, geomWGS84, f)
			pieceCount++
		}

		if pieceCount == 0 {
			stats.FeaturesSkipped++
			stats.InvalidGeometry = append(stats.InvalidGeometry, ErrInvalidGeometry{Index: i})
		}
	}

	stats.SnappedVertices = snapper.groupCount()

	return g, stats, nil
}

func (o Options) snapTolerance() float64 {
	if o.SnapToleranceM <= 0 {
		return DefaultOptions().SnapToleranceM
	}
	return o.SnapToleranceM
}

// addDirectedEdges adds u->v (and v->u with reversed geometry, if the
// feature is not oneway) to the graph.
func addDirectedEdges(g *Graph, from, to geo.NodeID, lengthM float64, geomWGS84 []geo.Point, f ingest.StreetFeature) {
	g.AddEdge(from, to, lengthM, geomWGS84, Street, f.Tags)
	if !f.Oneway {
		reversed := make([]geo.Point, len(geomWGS84))
		for i, p := range geomWGS84 {
			reversed[len(geomWGS84)-1-i] = p
		}
		g.AddEdge(to, from, lengthM, reversed, Street, f.Tags)
	}
}

// polylineLength sums geodesic distance along consecutive points.
func polylineLength(pts []geo.Point) float64 {
	var total float64
	for i := 0; i+1 < len(pts); i++ {
		total += geo.Haversine(pts[i].Lat, pts[i].Lon, pts[i+1].Lat, pts[i+1].Lon)
	}
	return total
}

// projectionOrigin picks the local CRS origin from the polygon centroid,
// falling back to the centroid of all feature points if no polygon is
// given.
func projectionOrigin(features []ingest.StreetFeature, polygon ingest.Polygon) (geo.Point, error) {
	if len(polygon) > 0 {
		return geo.PolygonCentroid([]geo.Point(polygon)), nil
	}
	var all []geo.Point
	for _, f := range features {
		all = append(all, f.Points...)
	}
	if len(all) == 0 {
		return geo.Point{}, ErrProjectionUnavailable
	}
	return geo.PolygonCentroid(all), nil
}

// --- intersection detection -------------------------------------------------

// featureCrossing records a crossing on one feature, including which of
// its original segments it falls on and where along that segment.
type featureCrossing struct {
	segIdx int
	t      float64
	planar [2]float64
}

// detectIntersections finds all pairwise segment crossings among
// features, returning per-feature crossing lists. At or below NaiveThreshold
// features it does a direct pairwise scan; above it, an R-tree prefilters
// candidate pairs by bounding-box overlap.
func detectIntersections(planar [][][2]float64) [][]featureCrossing {
	out := make([][]featureCrossing, len(planar))
	if len(planar) < 2 {
		return out
	}

	boxes := make([]geo.BBox, len(planar))
	for i, pts := range planar {
		boxes[i] = polylineBBox(pts)
	}

	addPair := func(i, j int) {
		testFeaturePair(planar, i, j, out)
	}

	if len(planar) <= NaiveThreshold {
		for i := 0; i < len(planar); i++ {
			for j := i + 1; j < len(planar); j++ {
				if boxes[i].Overlaps(boxes[j]) {
					addPair(i, j)
				}
			}
		}
		return out
	}

	var tr rtree.RTree
	for i, b := range boxes {
		tr.Insert([2]float64{b.MinX, b.MinY}, [2]float64{b.MaxX, b.MaxY}, i)
	}

	seen := make(map[[2]int]bool)
	for i, b := range boxes {
		tr.Search([2]float64{b.MinX, b.MinY}, [2]float64{b.MaxX, b.MaxY}, func(_, _ [2]float64, data any) bool {
			j := data.(int)
			if j == i {
				return true
			}
			key := [2]int{i, j}
			if i > j {
				key = [2]int{j, i}
			}
			if seen[key] {
				return true
			}
			seen[key] = true
			addPair(key[0], key[1])
			return true
		})
	}
	return out
}

func testFeaturePair(planar [][][2]float64, i, j int, out [][]featureCrossing) {
	pi, pj := planar[i], planar[j]
	for si := 0; si+1 < len(pi); si++ {
		a1, a2 := pi[si], pi[si+1]
		for sj := 0; sj+1 < len(pj); sj++ {
			b1, b2 := pj[sj], pj[sj+1]
			pt, ok := geo.SegmentIntersect(a1, a2, b1, b2)
			if !ok {
				continue
			}
			tI := paramT(a1, a2, pt)
			tJ := paramT(b1, b2, pt)
			// Ignore crossings at shared endpoints: these are already
			// explicit vertices and don't need a synthetic split.
			if isEndpointT(tI) && isEndpointT(tJ) {
				continue
			}
			out[i] = append(out[i], featureCrossing{segIdx: si, t: tI, planar: pt})
			out[j] = append(out[j], featureCrossing{segIdx: sj, t: tJ, planar: pt})
		}
	}
}

func isEndpointT(t float64) bool {
	const eps = 1e-6
	return t < eps || t > 1-eps
}

func paramT(a, b, p [2]float64) float64 {
	dx, dy := b[0]-a[0], b[1]-a[1]
	denom := dx*dx + dy*dy
	if denom == 0 {
		return 0
	}
	return ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / denom
}

func polylineBBox(pts [][2]float64) geo.BBox {
	box := geo.BBoxOf(pts[0], pts[0])
	for _, p := range pts[1:] {
		box = box.Union(geo.BBoxOf(p, p))
	}
	return box
}

func countCrossings(crossings [][]featureCrossing) int {
	var n int
	for _, c := range crossings {
		n += len(c)
	}
	return n / 2 // each crossing is recorded on both features
}

// --- break-point sequencing --------------------------------------------------

// buildBreakSequence returns the feature's break points in order: its
// start, every detected crossing (in polyline order), and its end. Plain
// interior vertices are deliberately NOT break points — piecePoints walks
// the original point slice to recover them, so a run with no crossing in
// it becomes one edge with its full shape preserved, instead of one edge
// per original OSM-digitized sub-segment.
func buildBreakSequence(pts [][2]float64, crossings []featureCrossing) []breakPoint {
	sort.Slice(crossings, func(i, j int) bool {
		if crossings[i].segIdx != crossings[j].segIdx {
			return crossings[i].segIdx < crossings[j].segIdx
		}
		return crossings[i].t < crossings[j].t
	})

	seq := make([]breakPoint, 0, 2+len(crossings))
	seq = append(seq, breakPoint{segIdx: -1, planar: pts[0]})
	for _, c := range crossings {
		seq = append(seq, breakPoint{segIdx: c.segIdx, t: c.t, planar: c.planar})
	}
	seq = append(seq, breakPoint{segIdx: -1, planar: pts[len(pts)-1]})
	return seq
}

// piecePoints returns the planar points of the full-shape geometry run
// from break point at index k to index k+1, given the caller already knows
// their positions in pts via segIdx bookkeeping. Geometry always starts
// and ends with the break points themselves.
func piecePoints(pts [][2]float64, from, to breakPoint) [][2]float64 {
	// Collect original vertices strictly between the two break points by
	// their position in pts, using segIdx as an anchor.
	startIdx := from.segIdx
	if startIdx < 0 {
		startIdx = indexOfOriginal(pts, from.planar) + 1 // skip from.planar itself, already prepended
	} else {
		startIdx++ // first original vertex after a mid-segment crossing
	}
	endIdx := to.segIdx
	if endIdx < 0 {
		endIdx = indexOfOriginal(pts, to.planar) - 1 // skip to.planar itself, appended separately below
	}

	out := [][2]float64{from.planar}
	for idx := startIdx; idx <= endIdx && idx >= 0 && idx < len(pts); idx++ {
		out = append(out, pts[idx])
	}
	out = append(out, to.planar)
	return out
}

// indexOfOriginal finds the index of an original vertex by coordinate
// (used only for feature endpoints, which are always exact members of
// pts).
func indexOfOriginal(pts [][2]float64, p [2]float64) int {
	for i, q := range pts {
		if q == p {
			return i
		}
	}
	return -1
}

// --- vertex snapping ----------------------------------------------------

// vertexSnapper unifies planar points within a tolerance radius onto a
// single canonical coordinate, using the same uniform-grid technique as a
// nearest-road snap index: bucket by cell, then search a 3x3 neighborhood.
type vertexSnapper struct {
	tolerance float64
	cellSize  float64
	cells     map[[2]int32][][2]float64
	groups    int
}

func newVertexSnapper(tolerance float64) *vertexSnapper {
	cellSize := tolerance * 2
	if cellSize <= 0 {
		cellSize = 2
	}
	return &vertexSnapper{
		tolerance: tolerance,
		cellSize:  cellSize,
		cells:     make(map[[2]int32][][2]float64),
	}
}

func (s *vertexSnapper) cellOf(p [2]float64) [2]int32 {
	return [2]int32{int32(math.Floor(p[0] / s.cellSize)), int32(math.Floor(p[1] / s.cellSize))}
}

// canonicalize returns the canonical coordinate for p: the nearest
// previously-seen canonical point within tolerance, or p itself if none
// exists.
func (s *vertexSnapper) canonicalize(p [2]float64) [2]float64 {
	cx, cy := s.cellOf(p)[0], s.cellOf(p)[1]

	var best [2]float64
	bestDist := math.Inf(1)
	found := false

	for dx := int32(-1); dx <= 1; dx++ {
		for dy := int32(-1); dy <= 1; dy++ {
			for _, q := range s.cells[[2]int32{cx + dx, cy + dy}] {
				d := math.Hypot(p[0]-q[0], p[1]-q[1])
				if d <= s.tolerance && d < bestDist {
					best = q
					bestDist = d
					found = true
				}
			}
		}
	}

	if found {
		return best
	}

	cell := s.cellOf(p)
	s.cells[cell] = append(s.cells[cell], p)
	s.groups++
	return p
}

func (s *vertexSnapper) groupCount() int { return s.groups }
