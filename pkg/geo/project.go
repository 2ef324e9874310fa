package geo

import "math"

// LocalProjector converts between WGS84 points and a local, area-scale
// planar approximation (meters) centered on an origin, typically the
// centroid of the area polygon. It is the same equirectangular technique
// as EquirectangularDist, generalized to a reusable projector so that
// callers needing many conversions (intersection detection) don't repeat
// the cosine-latitude setup per call.
//
// This is accurate to well under 1% distortion over areas a few tens of
// kilometers across, which covers a single routing job's polygon; it is
// not a substitute for a true UTM projection over country-scale extents.
type LocalProjector struct {
	originLat float64
	originLon float64
	cosLat    float64
}

// NewLocalProjector builds a projector centered on origin.
func NewLocalProjector(origin Point) *LocalProjector {
	return &LocalProjector{
		originLat: origin.Lat,
		originLon: origin.Lon,
		cosLat:    math.Cos(origin.Lat * math.Pi / 180),
	}
}

// Project converts a WGS84 point to local planar meters (x=east, y=north).
func (p *LocalProjector) Project(pt Point) (x, y float64) {
	x = (pt.Lon - p.originLon) * p.cosLat * math.Pi / 180 * earthRadiusMeters
	y = (pt.Lat - p.originLat) * math.Pi / 180 * earthRadiusMeters
	return x, y
}

// Unproject converts local planar meters back to a WGS84 point.
func (p *LocalProjector) Unproject(x, y float64) Point {
	lat := p.originLat + (y/earthRadiusMeters)*180/math.Pi
	lon := p.originLon + (x/(earthRadiusMeters*p.cosLat))*180/math.Pi
	return Point{Lon: lon, Lat: lat}
}

// SegmentIntersect reports whether planar segments (a1,a2) and (b1,b2)
// cross, returning the crossing point in the same planar coordinates.
// Collinear and parallel segments report no intersection rather than
// attempting to resolve overlap geometry — numerical degeneracies are
// treated as "no crossing" per the geometry primitives' failure policy.
func SegmentIntersect(a1, a2, b1, b2 [2]float64) (pt [2]float64, ok bool) {
	r := [2]float64{a2[0] - a1[0], a2[1] - a1[1]}
	s := [2]float64{b2[0] - b1[0], b2[1] - b1[1]}

	rxs := cross2(r, s)
	if math.Abs(rxs) < 1e-9 {
		return pt, false // parallel or collinear
	}

	qp := [2]float64{b1[0] - a1[0], b1[1] - a1[1]}
	t := cross2(qp, s) / rxs
	u := cross2(qp, r) / rxs

	if t < 0 || t > 1 || u < 0 || u > 1 {
		return pt, false
	}

	pt = [2]float64{a1[0] + t*r[0], a1[1] + t*r[1]}
	return pt, true
}

func cross2(a, b [2]float64) float64 {
	return a[0]*b[1] - a[1]*b[0]
}

// BBox is an axis-aligned bounding box in planar meters, used by the
// graph builder's spatial index to prefilter candidate segment pairs.
type BBox struct {
	MinX, MinY, MaxX, MaxY float64
}

// Union returns the smallest BBox containing both b and o.
func (b BBox) Union(o BBox) BBox {
	return BBox{
		MinX: math.Min(b.MinX, o.MinX),
		MinY: math.Min(b.MinY, o.MinY),
		MaxX: math.Max(b.MaxX, o.MaxX),
		MaxY: math.Max(b.MaxY, o.MaxY),
	}
}

// Overlaps reports whether two bounding boxes intersect or touch.
func (b BBox) Overlaps(o BBox) bool {
	return b.MinX <= o.MaxX && o.MinX <= b.MaxX && b.MinY <= o.MaxY && o.MinY <= b.MaxY
}

// BBoxOf returns the bounding box of a planar segment.
func BBoxOf(a, b [2]float64) BBox {
	return BBox{
		MinX: math.Min(a[0], b[0]),
		MinY: math.Min(a[1], b[1]),
		MaxX: math.Max(a[0], b[0]),
		MaxY: math.Max(a[1], b[1]),
	}
}
