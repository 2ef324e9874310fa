package engine

import (
	"context"
	"sync/atomic"

	"github.com/streetcover/routecore/pkg/geo"
	"github.com/streetcover/routecore/pkg/oracle"
)

// countingOracle wraps a caller-supplied oracle.Oracle and tallies
// real vs. synthetic (fallback) responses for diag.Diagnostics, across
// the concurrent fan-out in assemble.Assemble.
type countingOracle struct {
	next      oracle.Oracle
	real      int64
	synthetic int64
}

func (c *countingOracle) Route(ctx context.Context, start, end geo.Point, profile oracle.Profile) (oracle.Result, error) {
	result, err := c.next.Route(ctx, start, end, profile)
	if err != nil {
		return result, err
	}
	if result.Synthetic {
		atomic.AddInt64(&c.synthetic, 1)
	} else {
		atomic.AddInt64(&c.real, 1)
	}
	return result, nil
}
