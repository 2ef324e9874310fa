// Package oracle provides the routing-oracle client contract (spec
// component B): ask an external service for drivable geometry between two
// points, with retries, caching, rate limiting, and a synthetic fallback
// so the caller always gets a usable result.
package oracle

import (
	"context"

	"github.com/streetcover/routecore/pkg/geo"
)

// Profile selects the oracle's routing costing model.
type Profile string

const (
	ProfileCar  Profile = "car"
	ProfileHGV  Profile = "hgv"
	ProfileBike Profile = "bike"
	ProfileFoot Profile = "foot"
)

// Result is a driving path between two points.
type Result struct {
	Geometry  []geo.Point
	DistanceM float64
	DurationS float64
	Synthetic bool
}

// Oracle requests driving geometry between two points. Implementations
// never return an error from Route for ordinary transient failures — a
// FallbackOracle wrapper is expected at the top of any production stack,
// so the composed Oracle a caller holds should always succeed.
type Oracle interface {
	Route(ctx context.Context, start, end geo.Point, profile Profile) (Result, error)
}

// straightLine builds a synthetic two-point result, used by both
// FallbackOracle and HTTPOracle once its retries are exhausted or its
// wait is cancelled.
func straightLine(start, end geo.Point) Result {
	return Result{
		Geometry:  []geo.Point{start, end},
		DistanceM: geo.Haversine(start.Lat, start.Lon, end.Lat, end.Lon),
		Synthetic: true,
	}
}
