package assemble

import (
	"strconv"
	"strings"

	"github.com/streetcover/routecore/pkg/graphbuild"
)

// defaultSpeedKmh is the fallback speed for highway classes absent from
// highwaySpeedKmh and for oracle-free connector segments.
const defaultSpeedKmh = 30.0

// highwaySpeedKmh generalizes the drivability classification in
// pkg/ingest/osm.go from a yes/no accessibility table into a per-class
// nominal speed table, since duration estimation needs a number, not
// just a boolean.
var highwaySpeedKmh = map[string]float64{
	"motorway":       100,
	"motorway_link":  60,
	"trunk":          90,
	"trunk_link":     50,
	"primary":        70,
	"primary_link":   50,
	"secondary":      60,
	"secondary_link": 45,
	"tertiary":       50,
	"tertiary_link":  40,
	"unclassified":   40,
	"residential":    30,
	"living_street":  15,
	"service":        20,
}

// edgeSpeedKmh returns the nominal speed for traversing e: an explicit
// maxspeed tag wins, then the highway-class table, then the default.
func edgeSpeedKmh(e *graphbuild.Edge) float64 {
	if speed, ok := parseMaxspeedKmh(e.Tags.Maxspeed()); ok {
		return speed
	}
	if speed, ok := highwaySpeedKmh[e.Tags.Highway()]; ok {
		return speed
	}
	return defaultSpeedKmh
}

// parseMaxspeedKmh parses an OSM-style maxspeed value ("50", "50 km/h",
// "30 mph"). It does not recognize "none" or "walk" style qualifiers,
// which fall through to the highway-class table.
func parseMaxspeedKmh(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	fields := strings.Fields(raw)
	value, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, false
	}
	if len(fields) > 1 && strings.EqualFold(fields[1], "mph") {
		value *= 1.60934
	}
	return value, true
}

// kmhToMps converts a km/h speed to meters per second.
func kmhToMps(kmh float64) float64 {
	return kmh * 1000 / 3600
}
