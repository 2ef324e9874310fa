package geo

import "math"

// QuantizeDigits is the decimal precision that defines node identity
// (~0.1 m at the equator).
const QuantizeDigits = 6

// Point is a (longitude, latitude) pair in WGS84.
type Point struct {
	Lon float64
	Lat float64
}

// NodeID is the quantized, integer identity of a Point. Two points are
// the same node iff their NodeIDs are equal. Integers are used instead of
// quantized floats so map keys and equality checks never depend on
// floating-point rounding after the initial quantization step.
type NodeID struct {
	LonMicros int32
	LatMicros int32
}

// quantizeScale maps QuantizeDigits decimal places onto micro-degree units.
const quantizeScale = 1_000_000 // 6 decimal places == micro-degrees

// Quantize rounds both coordinates of p to QuantizeDigits decimal places.
func Quantize(p Point) Point {
	return Point{
		Lon: quantizeCoord(p.Lon),
		Lat: quantizeCoord(p.Lat),
	}
}

func quantizeCoord(v float64) float64 {
	return math.Round(v*quantizeScale) / quantizeScale
}

// NodeIDOf returns the quantized integer identity of p, without requiring
// p to have been pre-quantized.
func NodeIDOf(p Point) NodeID {
	return NodeID{
		LonMicros: int32(math.Round(p.Lon * quantizeScale)),
		LatMicros: int32(math.Round(p.Lat * quantizeScale)),
	}
}

// Point converts a NodeID back to its quantized WGS84 coordinates.
func (id NodeID) Point() Point {
	return Point{
		Lon: float64(id.LonMicros) / quantizeScale,
		Lat: float64(id.LatMicros) / quantizeScale,
	}
}

// Equal reports whether two points are identical after quantization.
func Equal(a, b Point) bool {
	return NodeIDOf(a) == NodeIDOf(b)
}

// PolygonCentroid returns the arithmetic mean of ring points, used to pick
// the origin of a local planar projection. It is not an area-weighted
// centroid — adequate for choosing a projection origin, not for area math.
func PolygonCentroid(ring []Point) Point {
	if len(ring) == 0 {
		return Point{}
	}
	var sumLon, sumLat float64
	for _, p := range ring {
		sumLon += p.Lon
		sumLat += p.Lat
	}
	n := float64(len(ring))
	return Point{Lon: sumLon / n, Lat: sumLat / n}
}
