package engine

import (
	"context"
	"testing"

	"github.com/gotidy/ptr"

	"github.com/streetcover/routecore/pkg/diag"
	"github.com/streetcover/routecore/pkg/geo"
	"github.com/streetcover/routecore/pkg/ingest"
	"github.com/streetcover/routecore/pkg/oracle"
)

func pt(lon, lat float64) geo.Point { return geo.Point{Lon: lon, Lat: lat} }

func squarePolygon() ingest.Polygon {
	return ingest.Polygon{pt(-0.001, -0.001), pt(0.002, -0.001), pt(0.002, 0.002), pt(-0.001, 0.002), pt(-0.001, -0.001)}
}

func squareFeatures() []ingest.StreetFeature {
	a, b, c, d := pt(0, 0), pt(0.0009, 0), pt(0.0009, 0.0009), pt(0, 0.0009)
	return []ingest.StreetFeature{
		{Points: []geo.Point{a, b}, Oneway: false, Tags: ingest.Tags{"highway": "residential"}},
		{Points: []geo.Point{b, c}, Oneway: false, Tags: ingest.Tags{"highway": "residential"}},
		{Points: []geo.Point{c, d}, Oneway: false, Tags: ingest.Tags{"highway": "residential"}},
		{Points: []geo.Point{d, a}, Oneway: false, Tags: ingest.Tags{"highway": "residential"}},
	}
}

type stubOracle struct{}

func (stubOracle) Route(ctx context.Context, start, end geo.Point, profile oracle.Profile) (oracle.Result, error) {
	return oracle.Result{
		Geometry:  []geo.Point{start, end},
		DistanceM: geo.Haversine(start.Lat, start.Lon, end.Lat, end.Lon),
		DurationS: geo.Haversine(start.Lat, start.Lon, end.Lat, end.Lon) / 8.33,
		Synthetic: true,
	}, nil
}

// TestGenerateSquareBlockCompletesCleanly covers S1 end-to-end: an
// already-Eulerian square block should produce a completed status with
// zero oracle calls and valid continuity.
func TestGenerateSquareBlockCompletesCleanly(t *testing.T) {
	req := GenerateRequest{
		Polygon:        squarePolygon(),
		StreetFeatures: squareFeatures(),
		Profile:        oracle.ProfileCar,
	}
	result, err := Generate(context.Background(), req, stubOracle{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Status != diag.Completed {
		t.Errorf("status = %v, want %v (diagnostics: %+v)", result.Status, diag.Completed, result.Diagnostics)
	}
	if result.Diagnostics.OracleCallsReal != 0 || result.Diagnostics.OracleCallsSynthetic != 0 {
		t.Errorf("expected no oracle usage on an already-Eulerian block, got real=%d synthetic=%d",
			result.Diagnostics.OracleCallsReal, result.Diagnostics.OracleCallsSynthetic)
	}
	if result.LengthM < 399 || result.LengthM > 401 {
		t.Errorf("length = %v, want ~400", result.LengthM)
	}
	if result.Diagnostics.ImbalancedNodes != 0 {
		t.Errorf("ImbalancedNodes = %d, want 0 (square block is already Eulerian)", result.Diagnostics.ImbalancedNodes)
	}
	if len(result.Chunks) == 0 {
		t.Error("expected at least one chunk")
	}
}

// TestGenerateRejectsEmptyStreetFeatures covers the InvalidInput branch
// of the §7 error taxonomy.
func TestGenerateRejectsEmptyStreetFeatures(t *testing.T) {
	req := GenerateRequest{Polygon: squarePolygon()}
	_, err := Generate(context.Background(), req, stubOracle{})
	if err == nil {
		t.Fatal("expected an error for empty street_features")
	}
	var engineErr *Error
	if !asEngineError(err, &engineErr) {
		t.Fatalf("expected *engine.Error, got %T: %v", err, err)
	}
	if engineErr.Kind != KindInvalidInput {
		t.Errorf("kind = %v, want %v", engineErr.Kind, KindInvalidInput)
	}
}

// TestGenerateRejectsChunkDurationOutOfRange exercises the
// gotidy/ptr-style optional-field overlay and its validation range.
func TestGenerateRejectsChunkDurationOutOfRange(t *testing.T) {
	req := GenerateRequest{
		Polygon:        squarePolygon(),
		StreetFeatures: squareFeatures(),
		ChunkDurationS: ptr.Int(60),
	}
	_, err := Generate(context.Background(), req, stubOracle{})
	if err == nil {
		t.Fatal("expected an error for chunk_duration_s below the minimum")
	}
}

// TestGenerateIsDeterministic covers invariant 7: identical inputs must
// produce identical output geometry and length across repeated runs.
func TestGenerateIsDeterministic(t *testing.T) {
	req := GenerateRequest{
		Polygon:        squarePolygon(),
		StreetFeatures: squareFeatures(),
		Profile:        oracle.ProfileCar,
	}
	first, err := Generate(context.Background(), req, stubOracle{})
	if err != nil {
		t.Fatalf("Generate (first): %v", err)
	}
	second, err := Generate(context.Background(), req, stubOracle{})
	if err != nil {
		t.Fatalf("Generate (second): %v", err)
	}
	if first.LengthM != second.LengthM {
		t.Errorf("length mismatch across runs: %v != %v", first.LengthM, second.LengthM)
	}
	if len(first.Geometry) != len(second.Geometry) {
		t.Fatalf("geometry length mismatch: %d != %d", len(first.Geometry), len(second.Geometry))
	}
	for i := range first.Geometry {
		if first.Geometry[i] != second.Geometry[i] {
			t.Errorf("geometry[%d] mismatch: %v != %v", i, first.Geometry[i], second.Geometry[i])
		}
	}
}

func asEngineError(err error, target **Error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	*target = e
	return true
}
