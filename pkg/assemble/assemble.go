// Package assemble stitches per-SCC Eulerian circuits into a single
// continuous Route (spec component E): it walks each circuit's edges in
// order, bridges gaps against a fixed policy table, splices in oracle
// geometry across SCC boundaries, repairs any leftover discontinuities,
// and chunks the result by estimated drive time.
package assemble

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/streetcover/routecore/pkg/euler"
	"github.com/streetcover/routecore/pkg/geo"
	"github.com/streetcover/routecore/pkg/graphbuild"
	"github.com/streetcover/routecore/pkg/oracle"
)

// Config mirrors the assembler-relevant fields of GenerateRequest.
type Config struct {
	MaxGapM           float64
	SmallJoinM        float64
	MicroDriftM       float64
	ChunkDurationS    float64
	OracleConcurrency int
	OracleCallBudget  int // 0 means unlimited
}

// DefaultConfig returns the documented request defaults.
func DefaultConfig() Config {
	return Config{
		MaxGapM:           30,
		SmallJoinM:        15,
		MicroDriftM:       1,
		ChunkDurationS:    3600,
		OracleConcurrency: 4,
		OracleCallBudget:  0,
	}
}

// RoutePoint is one coordinate of the assembled route, tagged with the
// provenance of the edge (or oracle splice) it came from.
type RoutePoint struct {
	Point geo.Point
	Kind  graphbuild.EdgeKind
}

// Violation is a remaining gap, indexed by the point preceding it, that
// the repair pass could not close below MaxGapM.
type Violation struct {
	Index int
	GapM  float64
}

// Chunk is a contiguous slice of Route.Points bounded by estimated drive
// time, expressed as indices into Route.Points (inclusive).
type Chunk struct {
	StartIdx, EndIdx int
	LengthM          float64
	DurationS        float64
}

// Route is the assembler's output: the contiguous output geometry plus
// the diagnostics needed to compute continuity_valid and deadhead ratio
// downstream.
type Route struct {
	Points           []RoutePoint
	Chunks           []Chunk
	LengthM          float64
	DurationS        float64
	ConnectorLengthM float64
	Violations       []Violation
	ContinuityValid  bool
	OracleCalls      int
	OracleExhausted  bool

	// segDuration[i] is the estimated travel time from Points[i] to
	// Points[i+1]; kept parallel to Points so chunking never has to
	// recompute speeds from edge geometry it no longer has access to.
	segDuration []float64
}

// segment is one circuit's independently-stitched point sequence, with a
// parallel per-gap duration estimate so chunking never has to recompute
// haversine distances against the edge graph.
type segment struct {
	points      []RoutePoint
	segDuration []float64 // len(points)-1; segDuration[i] covers points[i]->points[i+1]
	oracleCalls int
}

func (s segment) lastPoint() geo.Point { return s.points[len(s.points)-1].Point }

// oracleBudget tracks a shared, possibly-unlimited call budget across
// concurrent stitching goroutines.
type oracleBudget struct {
	unlimited bool
	remaining int64
	exhausted int32
}

func newOracleBudget(limit int) *oracleBudget {
	if limit <= 0 {
		return &oracleBudget{unlimited: true}
	}
	return &oracleBudget{remaining: int64(limit)}
}

// take reports whether a call may proceed, decrementing the budget.
func (b *oracleBudget) take() bool {
	if b.unlimited {
		return true
	}
	if atomic.AddInt64(&b.remaining, -1) < 0 {
		atomic.StoreInt32(&b.exhausted, 1)
		return false
	}
	return true
}

func (b *oracleBudget) isExhausted() bool { return atomic.LoadInt32(&b.exhausted) == 1 }

// Assemble builds one Route from results (already eulerized, one per
// SCC) visited in the given order. The oracle is consulted for gaps above
// SmallJoinM and always at SCC boundaries; independent oracle calls are
// fanned out with bounded concurrency (cfg.OracleConcurrency), while the
// purely computational repair and chunking passes after run
// synchronously.
func Assemble(ctx context.Context, results []euler.SCCResult, order []int, o oracle.Oracle, profile oracle.Profile, cfg Config) (*Route, error) {
	ordered := make([]euler.SCCResult, len(order))
	for i, idx := range order {
		ordered[i] = results[idx]
	}
	// Circuits with no edges contribute nothing to the walk.
	nonEmpty := ordered[:0:0]
	for _, r := range ordered {
		if len(r.Circuit.Edges) > 0 {
			nonEmpty = append(nonEmpty, r)
		}
	}
	ordered = nonEmpty
	if len(ordered) == 0 {
		return &Route{ContinuityValid: true}, nil
	}

	budget := newOracleBudget(cfg.OracleCallBudget)

	segments := make([]segment, len(ordered))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, cfg.OracleConcurrency))
	for i := range ordered {
		i := i
		g.Go(func() error {
			seg, err := stitchCircuit(gctx, ordered[i], o, profile, cfg, budget)
			if err != nil {
				return fmt.Errorf("assemble: circuit %d: %w", i, err)
			}
			segments[i] = seg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	connectors := make([]segment, 0)
	if len(segments) > 1 {
		connectors = make([]segment, len(segments)-1)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(1, cfg.OracleConcurrency))
		for i := 0; i < len(segments)-1; i++ {
			i := i
			g.Go(func() error {
				conn, err := connectCircuits(gctx, segments[i].lastPoint(), segments[i+1].points[0].Point, o, profile, budget)
				if err != nil {
					return fmt.Errorf("assemble: connector %d: %w", i, err)
				}
				connectors[i] = conn
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	route := &Route{OracleExhausted: budget.isExhausted()}
	for i, seg := range segments {
		appendSegment(route, seg)
		if i < len(connectors) {
			appendSegment(route, connectors[i])
		}
	}

	repair(ctx, route, o, profile, cfg, budget)
	route.OracleExhausted = route.OracleExhausted || budget.isExhausted()

	finalizeRoute(route, cfg)
	route.Chunks = buildChunks(route, cfg)
	return route, nil
}

func appendSegment(route *Route, seg segment) {
	route.OracleCalls += seg.oracleCalls
	route.segDuration = append(route.segDuration, seg.segDuration...)
	if len(route.Points) == 0 {
		route.Points = append(route.Points, seg.points...)
		return
	}
	// seg.points[0] is expected to already coincide with route's current
	// tail (the previous circuit's own closing node, for a connector
	// segment, or the connector's forced-exact endpoint, for the circuit
	// segment that follows it); seg.segDuration already accounts for every transition
	// including that shared point, so only the duplicate point is
	// dropped here.
	route.Points = append(route.Points, seg.points[1:]...)
}
