package assemble

import (
	"context"

	"github.com/streetcover/routecore/pkg/geo"
	"github.com/streetcover/routecore/pkg/graphbuild"
	"github.com/streetcover/routecore/pkg/oracle"
)

// repairMaxPasses bounds the continuity repair loop so a pathological
// input (e.g. an oracle stuck returning straight lines) can never spin
// forever trying to close the same gap.
const repairMaxPasses = 2

// repair scans the assembled route for any gap above SmallJoinM left by
// stitching and attempts to close it with one more oracle call. Each
// pass that makes zero progress (no gap shrinks) stops the loop early;
// a gap a splice cannot improve is left for finalizeRoute to record as
// an unresolved violation.
func repair(ctx context.Context, route *Route, o oracle.Oracle, profile oracle.Profile, cfg Config, budget *oracleBudget) {
	for pass := 0; pass < repairMaxPasses; pass++ {
		progressed := false
		i := 0
		for i < len(route.Points)-1 {
			a, b := route.Points[i].Point, route.Points[i+1].Point
			gap := geo.Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
			if gap <= cfg.SmallJoinM {
				i++
				continue
			}
			if !budget.take() {
				i++
				continue
			}
			result, err := o.Route(ctx, a, b, profile)
			if err != nil {
				i++
				continue
			}
			route.OracleCalls++
			inserted := spliceInto(route, i, result, b)
			if inserted > 0 {
				progressed = true
			}
			i += inserted + 1
		}
		if !progressed {
			break
		}
	}
}

// spliceInto inserts result's interior geometry between index i and i+1.
// The oracle's own first and last points are dropped, so the splice is
// bounded exactly by route.Points[i] and the existing target point per
// the "overwrite spliced endpoints" correctness requirement. Returns the
// number of points inserted, 0 if the oracle had nothing new to add
// (e.g. a synthetic straight line duplicating the existing gap).
func spliceInto(route *Route, i int, result oracle.Result, target geo.Point) int {
	pts := result.Geometry
	if len(pts) < 3 {
		return 0
	}
	interior := pts[1 : len(pts)-1]

	avgSpeedMps := kmhToMps(defaultSpeedKmh)
	if result.DurationS > 0 {
		avgSpeedMps = result.DistanceM / result.DurationS
	}

	newPoints := make([]RoutePoint, len(interior))
	newDur := make([]float64, len(interior)+1)
	last := route.Points[i].Point
	for j, p := range interior {
		d := geo.Haversine(last.Lat, last.Lon, p.Lat, p.Lon)
		newDur[j] = travelTime(d, avgSpeedMps)
		newPoints[j] = RoutePoint{Point: p, Kind: graphbuild.Connector}
		last = p
	}
	newDur[len(interior)] = travelTime(geo.Haversine(last.Lat, last.Lon, target.Lat, target.Lon), avgSpeedMps)

	route.Points = append(route.Points[:i+1:i+1], append(newPoints, route.Points[i+1:]...)...)
	route.segDuration = append(route.segDuration[:i:i], append(newDur, route.segDuration[i+1:]...)...)
	return len(newPoints)
}

// finalizeRoute recomputes the route's summary metrics from its final
// point sequence: length, duration, connector distance, and the
// MaxGapM violations that drive continuity_valid.
func finalizeRoute(route *Route, cfg Config) {
	route.LengthM = 0
	route.DurationS = 0
	route.ConnectorLengthM = 0
	route.Violations = nil

	for i := 0; i < len(route.Points)-1; i++ {
		a, b := route.Points[i].Point, route.Points[i+1].Point
		d := geo.Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
		route.LengthM += d
		if i < len(route.segDuration) {
			route.DurationS += route.segDuration[i]
		}
		if route.Points[i+1].Kind == graphbuild.Connector {
			route.ConnectorLengthM += d
		}
		if d > cfg.MaxGapM {
			route.Violations = append(route.Violations, Violation{Index: i, GapM: d})
		}
	}

	route.ContinuityValid = len(route.Violations) == 0
}
