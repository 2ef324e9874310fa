package assemble

import (
	"context"

	"github.com/streetcover/routecore/pkg/euler"
	"github.com/streetcover/routecore/pkg/geo"
	"github.com/streetcover/routecore/pkg/graphbuild"
	"github.com/streetcover/routecore/pkg/oracle"
)

// stitchCircuit walks one SCC's Eulerian circuit edge by edge, applying
// the gap policy table between consecutive edges: aligned edges never
// gap, but numerical drift and, rarely, a short deliberate break can
// leave one, so every transition is checked.
func stitchCircuit(ctx context.Context, r euler.SCCResult, o oracle.Oracle, profile oracle.Profile, cfg Config, budget *oracleBudget) (segment, error) {
	g := r.Graph
	var seg segment

	appendPoint := func(p geo.Point, kind graphbuild.EdgeKind, speedMps float64) {
		if len(seg.points) > 0 {
			last := seg.points[len(seg.points)-1].Point
			d := geo.Haversine(last.Lat, last.Lon, p.Lat, p.Lon)
			seg.segDuration = append(seg.segDuration, travelTime(d, speedMps))
		}
		seg.points = append(seg.points, RoutePoint{Point: p, Kind: kind})
	}

	for i, key := range r.Circuit.Edges {
		e := g.Edge(key)
		speed := kmhToMps(edgeSpeedKmh(e))

		if i == 0 {
			for _, p := range e.Geometry {
				appendPoint(p, e.Kind, speed)
			}
			continue
		}

		next := e.Geometry[0]
		last := seg.points[len(seg.points)-1].Point
		gap := geo.Haversine(last.Lat, last.Lon, next.Lat, next.Lon)

		switch {
		case gap <= cfg.SmallJoinM:
			appendPoint(next, e.Kind, speed)
		default:
			if !budget.take() {
				appendPoint(next, e.Kind, speed)
				break
			}
			result, err := o.Route(ctx, last, next, profile)
			if err != nil {
				return segment{}, err
			}
			seg.oracleCalls++
			splice(&seg, result, next)
		}

		for _, p := range e.Geometry[1:] {
			appendPoint(p, e.Kind, speed)
		}
	}

	return seg, nil
}

// connectCircuits always consults the oracle for the bridge between two
// circuits; no gap-size threshold applies at SCC boundaries.
func connectCircuits(ctx context.Context, tail, head geo.Point, o oracle.Oracle, profile oracle.Profile, budget *oracleBudget) (segment, error) {
	seg := segment{points: []RoutePoint{{Point: tail, Kind: graphbuild.Connector}}}
	if !budget.take() {
		appendDirect(&seg, head, defaultSpeedKmh)
		return seg, nil
	}
	result, err := o.Route(ctx, tail, head, profile)
	if err != nil {
		return segment{}, err
	}
	seg.oracleCalls++
	splice(&seg, result, head)
	return seg, nil
}

func appendDirect(seg *segment, p geo.Point, speedKmh float64) {
	last := seg.points[len(seg.points)-1].Point
	d := geo.Haversine(last.Lat, last.Lon, p.Lat, p.Lon)
	seg.segDuration = append(seg.segDuration, travelTime(d, kmhToMps(speedKmh)))
	seg.points = append(seg.points, RoutePoint{Point: p, Kind: graphbuild.Connector})
}

// splice appends an oracle response onto seg, excluding its first point
// (already present as seg's current tail) and overwriting its last point
// with target's exact coordinates — the "critical correctness
// requirement" that splice endpoints must match the surrounding route
// exactly rather than trust oracle snapping.
func splice(seg *segment, result oracle.Result, target geo.Point) {
	pts := result.Geometry
	if len(pts) < 2 {
		pts = []geo.Point{seg.lastPoint(), target}
	}

	avgSpeedMps := 0.0
	if result.DurationS > 0 {
		avgSpeedMps = result.DistanceM / result.DurationS
	} else {
		avgSpeedMps = kmhToMps(defaultSpeedKmh)
	}

	for i := 1; i < len(pts); i++ {
		p := pts[i]
		if i == len(pts)-1 {
			p = target
		}
		last := seg.points[len(seg.points)-1].Point
		d := geo.Haversine(last.Lat, last.Lon, p.Lat, p.Lon)
		seg.segDuration = append(seg.segDuration, travelTime(d, avgSpeedMps))
		seg.points = append(seg.points, RoutePoint{Point: p, Kind: graphbuild.Connector})
	}
}

func travelTime(distanceM, speedMps float64) float64 {
	if speedMps <= 0 {
		return 0
	}
	return distanceM / speedMps
}
