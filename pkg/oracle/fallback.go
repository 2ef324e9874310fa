package oracle

import (
	"context"

	"github.com/streetcover/routecore/pkg/geo"
)

// FallbackOracle guarantees Route never returns an error: with no
// upstream configured (Next is nil, e.g. no credentials supplied) or on
// any upstream failure, it returns the straight-line connector with
// Synthetic set, matching spec's "never raises" oracle contract.
type FallbackOracle struct {
	Next Oracle
}

func NewFallbackOracle(next Oracle) *FallbackOracle {
	return &FallbackOracle{Next: next}
}

func (f *FallbackOracle) Route(ctx context.Context, start, end geo.Point, profile Profile) (Result, error) {
	if f.Next == nil {
		return straightLine(start, end), nil
	}
	result, err := f.Next.Route(ctx, start, end, profile)
	if err != nil {
		return straightLine(start, end), nil
	}
	return result, nil
}
