// Package engine is the public entry point: it wires graph construction,
// eulerization, assembly, and diagnostics into the single Generate call a
// worker or HTTP handler invokes.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/streetcover/routecore/pkg/assemble"
	"github.com/streetcover/routecore/pkg/diag"
	"github.com/streetcover/routecore/pkg/euler"
	"github.com/streetcover/routecore/pkg/geo"
	"github.com/streetcover/routecore/pkg/graphbuild"
	"github.com/streetcover/routecore/pkg/ingest"
	"github.com/streetcover/routecore/pkg/oracle"
)

// Kind classifies a Generate failure.
type Kind string

const (
	KindInvalidInput Kind = "invalid_input"
	// KindInvalidGeometry is reserved for a graph build that cannot proceed
	// at all because of malformed geometry. Per-feature invalid geometry
	// (too few vertices, degenerate after quantization) is not fatal — it
	// is skipped, counted in graphbuild.BuildStats.InvalidGeometry, and
	// surfaced through Diagnostics.FeaturesSkipped instead, so Generate
	// does not currently construct this Kind.
	KindInvalidGeometry       Kind = "invalid_geometry"
	KindProjectionUnavailable Kind = "projection_unavailable"
	KindOracleTransient       Kind = "oracle_transient"
	KindFlowInfeasible        Kind = "flow_infeasible"
	KindCancelled             Kind = "cancelled"
)

// Error is the tagged-variant error Generate returns for any terminating
// failure; bounded issues (OracleExhausted, UnresolvedGap) never reach
// here — they are recorded in Diagnostics and surfaced via Status instead,
// since those can be locally recovered from and don't need to abort the run.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("engine: %s: %v", e.Kind, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// GenerateRequest is the input contract for Generate. Optional fields use
// pointers (see github.com/gotidy/ptr for convenience constructors) so the
// zero value is distinguishable from an explicit override during
// normalization.
type GenerateRequest struct {
	Polygon        ingest.Polygon
	StreetFeatures []ingest.StreetFeature
	Profile        oracle.Profile
	StartPoint     *geo.Point

	ChunkDurationS    *int
	MaxGapM           *int
	SnapToleranceM    *float64
	SmallJoinM        *float64
	OracleConcurrency *int
	OracleCallBudget  *int
}

// GenerateResult is the output contract for Generate.
type GenerateResult struct {
	Geometry    []geo.Point
	Chunks      []assemble.Chunk
	LengthM     float64
	DurationS   float64
	Diagnostics diag.Diagnostics
	Status      diag.Status
}

// Generate runs the full pipeline once for req against o: graph
// construction, per-SCC eulerization, route assembly, and diagnostic
// classification. It never panics on ordinary data problems — only
// InvalidInput, ProjectionUnavailable, FlowInfeasible, and Cancelled
// terminate the pipeline early, plus OracleTransient when o itself
// returns an error during assembly; everything else degrades to
// completed_with_warnings with the full Diagnostics bag attached.
func Generate(ctx context.Context, req GenerateRequest, o oracle.Oracle) (*GenerateResult, error) {
	cfg, snapToleranceM, profile, err := normalizeRequest(req)
	if err != nil {
		return nil, &Error{Kind: KindInvalidInput, Err: err}
	}

	var d diag.Diagnostics
	counting := &countingOracle{next: o}

	stage := diag.StartStage("graph_build")
	g, buildStats, err := graphbuild.Build(req.StreetFeatures, req.Polygon, graphbuild.Options{SnapToleranceM: snapToleranceM})
	stage.Stop(&d)
	if err != nil {
		if errors.Is(err, graphbuild.ErrProjectionUnavailable) {
			return nil, &Error{Kind: KindProjectionUnavailable, Err: err}
		}
		return nil, &Error{Kind: KindInvalidInput, Err: err}
	}
	d.NodesBefore = g.NumNodes()
	d.EdgesBefore = g.NumEdges()
	d.FeaturesSkipped = buildStats.FeaturesSkipped

	if err := ctx.Err(); err != nil {
		return nil, &Error{Kind: KindCancelled, Err: err}
	}

	stage = diag.StartStage("eulerize")
	results, err := euler.Eulerize(g)
	stage.Stop(&d)
	if err != nil {
		return nil, &Error{Kind: KindFlowInfeasible, Err: err}
	}
	populateEulerizeDiagnostics(&d, g, results)

	order := assemble.VisitOrder(results, req.StartPoint)

	stage = diag.StartStage("assemble")
	route, err := assemble.Assemble(ctx, results, order, counting, profile, cfg)
	stage.Stop(&d)
	if err != nil {
		if err := ctx.Err(); err != nil {
			return nil, &Error{Kind: KindCancelled, Err: err}
		}
		return nil, &Error{Kind: KindOracleTransient, Err: err}
	}

	d.OracleCallsReal = int(counting.real)
	d.OracleCallsSynthetic = int(counting.synthetic)
	d.OracleExhausted = route.OracleExhausted
	d.ContinuityValid = route.ContinuityValid
	d.Violations = len(route.Violations)
	d.GapHistogram = buildGapHistogram(route, cfg.MaxGapM)
	d.MaxGapM = d.GapHistogram.MaxM

	status := diag.Classify(d, false, false, false)

	geometry := make([]geo.Point, len(route.Points))
	for i, p := range route.Points {
		geometry[i] = p.Point
	}

	return &GenerateResult{
		Geometry:    geometry,
		Chunks:      route.Chunks,
		LengthM:     route.LengthM,
		DurationS:   route.DurationS,
		Diagnostics: d,
		Status:      status,
	}, nil
}

func populateEulerizeDiagnostics(d *diag.Diagnostics, g *graphbuild.Graph, results []euler.SCCResult) {
	d.SCCCount = len(results)
	var originalLengthM, deadheadLengthM float64
	var nodesAfter, edgesAfter int
	for _, r := range results {
		d.SCCSizes = append(d.SCCSizes, len(r.Nodes))
		nodesAfter += r.Graph.NumNodes()
		edgesAfter += r.Graph.NumEdges()
		originalLengthM += r.OriginalLengthM
		deadheadLengthM += r.DeadheadLengthM
		d.ImbalancedNodes += r.ImbalancedNodes
	}
	d.NodesAfter = nodesAfter
	d.EdgesAfter = edgesAfter
	d.DuplicatedLengthM = deadheadLengthM
	if total := originalLengthM + deadheadLengthM; total > 0 {
		d.DeadheadRatio = deadheadLengthM / total
	}
}

func buildGapHistogram(route *assemble.Route, maxGapM float64) diag.GapHistogram {
	if len(route.Points) < 2 {
		return diag.GapHistogram{}
	}
	gaps := make([]float64, 0, len(route.Points)-1)
	for i := 0; i < len(route.Points)-1; i++ {
		a, b := route.Points[i].Point, route.Points[i+1].Point
		gaps = append(gaps, geo.Haversine(a.Lat, a.Lon, b.Lat, b.Lon))
	}
	return diag.BuildGapHistogram(gaps, maxGapM)
}
