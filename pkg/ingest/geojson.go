package ingest

import (
	"fmt"

	geojson "github.com/paulmach/go.geojson"

	"github.com/streetcover/routecore/pkg/geo"
)

// Polygon is a single ring of WGS84 points describing the area to cover.
// Only the outer ring is kept — holes are not meaningful for "cover every
// street inside this area" and the core does not clip features to the
// polygon anyway (callers pre-clip, per spec's open questions).
type Polygon []geo.Point

// PolygonFromGeoJSON decodes a GeoJSON Polygon or MultiPolygon into a
// single outer ring. For a MultiPolygon, the ring with the largest
// longitude/latitude bounding box is used, on the assumption that a
// generation job targets one contiguous area.
func PolygonFromGeoJSON(data []byte) (Polygon, error) {
	fc, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("decode polygon geojson: %w", err)
	}

	var rings [][][]float64
	switch {
	case fc.IsPolygon():
		rings = fc.Polygon
	case fc.IsMultiPolygon():
		best := -1.0
		for _, poly := range fc.MultiPolygon {
			if len(poly) == 0 {
				continue
			}
			area := boundingArea(poly[0])
			if area > best {
				best = area
				rings = poly
			}
		}
	default:
		return nil, fmt.Errorf("decode polygon geojson: expected Polygon or MultiPolygon, got %s", fc.Type)
	}

	if len(rings) == 0 || len(rings[0]) == 0 {
		return nil, fmt.Errorf("decode polygon geojson: empty ring")
	}

	outer := rings[0]
	ring := make(Polygon, len(outer))
	for i, c := range outer {
		ring[i] = geo.Point{Lon: c[0], Lat: c[1]}
	}
	return ring, nil
}

func boundingArea(ring [][]float64) float64 {
	if len(ring) == 0 {
		return 0
	}
	minX, minY := ring[0][0], ring[0][1]
	maxX, maxY := minX, minY
	for _, c := range ring {
		if c[0] < minX {
			minX = c[0]
		}
		if c[0] > maxX {
			maxX = c[0]
		}
		if c[1] < minY {
			minY = c[1]
		}
		if c[1] > maxY {
			maxY = c[1]
		}
	}
	return (maxX - minX) * (maxY - minY)
}

// geojsonFeature mirrors the input contract's street_features entries:
// a LineString geometry plus { highway, oneway, name, maxspeed?, access? }.
type geojsonFeature struct {
	Highway  string `json:"highway"`
	Oneway   bool   `json:"oneway"`
	Name     string `json:"name"`
	Maxspeed string `json:"maxspeed,omitempty"`
	Access   string `json:"access,omitempty"`
}

// StreetFeaturesFromGeoJSON decodes a GeoJSON FeatureCollection of
// LineStrings into StreetFeatures, reading highway/oneway/name/maxspeed
// from each feature's properties.
func StreetFeaturesFromGeoJSON(data []byte) ([]StreetFeature, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode street features geojson: %w", err)
	}

	features := make([]StreetFeature, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f.Geometry == nil || !f.Geometry.IsLineString() {
			continue
		}
		coords := f.Geometry.LineString
		if len(coords) < 2 {
			continue
		}

		points := make([]geo.Point, len(coords))
		for i, c := range coords {
			points[i] = geo.Point{Lon: c[0], Lat: c[1]}
		}

		tags := Tags{}
		if v, ok := f.Properties["highway"].(string); ok {
			tags[tagHighway] = v
		}
		if v, ok := f.Properties["name"].(string); ok {
			tags[tagName] = v
		}
		if v, ok := f.Properties["maxspeed"].(string); ok {
			tags[tagMaxspeed] = v
		}
		if v, ok := f.Properties["access"].(string); ok {
			tags[tagAccess] = v
		}
		oneway, _ := f.Properties["oneway"].(bool)

		features = append(features, StreetFeature{
			Points: points,
			Oneway: oneway,
			Tags:   tags,
		})
	}

	return features, nil
}
