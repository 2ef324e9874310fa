// Package ingest adapts raw input formats (OSM PBF extracts, GeoJSON
// uploads) into the StreetFeature shape the graph builder consumes. The
// graph builder owns intersection detection and vertex snapping; ingestion
// is responsible only for faithfully carrying way geometry, direction, and
// tags.
package ingest

import "github.com/streetcover/routecore/pkg/geo"

// Tags is a small string bag for highway classification, name, and speed.
type Tags map[string]string

// Highway returns the tags' highway class, or "" if absent.
func (t Tags) Highway() string { return t[tagHighway] }

// Name returns the tags' street name, or "" if absent.
func (t Tags) Name() string { return t[tagName] }

// Maxspeed returns the tags' raw maxspeed value (e.g. "50" or "30 mph"),
// or "" if absent.
func (t Tags) Maxspeed() string { return t[tagMaxspeed] }

const (
	tagHighway = "highway"
	tagName    = "name"
	tagMaxspeed = "maxspeed"
	tagAccess   = "access"
)

// StreetFeature is an ordered sequence of raw points describing a single
// street way, plus its directionality and tag bag. Invariant: at least
// two points.
type StreetFeature struct {
	Points []geo.Point
	Oneway bool
	Tags   Tags
}

// Valid reports whether the feature satisfies the minimum-vertex
// invariant. It does not check for post-quantization degeneracy — that is
// the graph builder's job, since it alone knows the quantization rule in
// effect.
func (f StreetFeature) Valid() bool {
	return len(f.Points) >= 2
}
