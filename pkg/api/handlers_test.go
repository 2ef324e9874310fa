package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/streetcover/routecore/pkg/diag"
	"github.com/streetcover/routecore/pkg/engine"
	"github.com/streetcover/routecore/pkg/geo"
	"github.com/streetcover/routecore/pkg/oracle"
)

const testPolygon = `{"type":"Polygon","coordinates":[[[0,0],[0.002,0],[0.002,0.002],[0,0.002],[0,0]]]}`
const testFeatures = `{"type":"FeatureCollection","features":[` +
	`{"type":"Feature","properties":{"highway":"residential"},"geometry":{"type":"LineString","coordinates":[[0,0],[0.001,0]]}},` +
	`{"type":"Feature","properties":{"highway":"residential"},"geometry":{"type":"LineString","coordinates":[[0.001,0],[0.001,0.001]]}},` +
	`{"type":"Feature","properties":{"highway":"residential"},"geometry":{"type":"LineString","coordinates":[[0.001,0.001],[0,0.001]]}},` +
	`{"type":"Feature","properties":{"highway":"residential"},"geometry":{"type":"LineString","coordinates":[[0,0.001],[0,0]]}}` +
	`]}`

type stubGenerator struct {
	result *engine.GenerateResult
	err    error
}

func (s *stubGenerator) Generate(ctx context.Context, req engine.GenerateRequest, o oracle.Oracle) (*engine.GenerateResult, error) {
	return s.result, s.err
}

type noopOracle struct{}

func (noopOracle) Route(ctx context.Context, start, end geo.Point, profile oracle.Profile) (oracle.Result, error) {
	return oracle.Result{}, nil
}

func TestHandleGenerate_Success(t *testing.T) {
	stub := &stubGenerator{result: &engine.GenerateResult{
		Geometry:  []geo.Point{{Lon: 0, Lat: 0}, {Lon: 0.001, Lat: 0}},
		LengthM:   111.2,
		DurationS: 13.3,
		Status:    diag.Completed,
	}}
	h := &Handlers{generator: stub, oracle: noopOracle{}}

	body := `{"polygon":` + testPolygon + `,"street_features":` + testFeatures + `}`
	req := httptest.NewRequest("POST", "/api/v1/generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleGenerate(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200. body: %s", w.Code, w.Body.String())
	}
	var resp GenerateResponseJSON
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.LengthM != 111.2 {
		t.Errorf("LengthM = %v, want 111.2", resp.LengthM)
	}
	if resp.Status != string(diag.Completed) {
		t.Errorf("Status = %q, want %q", resp.Status, diag.Completed)
	}
	if len(resp.Geometry) != 2 {
		t.Errorf("Geometry length = %d, want 2", len(resp.Geometry))
	}
}

func TestHandleGenerate_InvalidJSON(t *testing.T) {
	h := &Handlers{generator: &stubGenerator{}, oracle: noopOracle{}}

	req := httptest.NewRequest("POST", "/api/v1/generate", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleGenerate(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleGenerate_MissingContentType(t *testing.T) {
	h := &Handlers{generator: &stubGenerator{}, oracle: noopOracle{}}

	body := `{"polygon":` + testPolygon + `,"street_features":` + testFeatures + `}`
	req := httptest.NewRequest("POST", "/api/v1/generate", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.HandleGenerate(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleGenerate_FlowInfeasible(t *testing.T) {
	stub := &stubGenerator{err: &engine.Error{Kind: engine.KindFlowInfeasible, Err: context.DeadlineExceeded}}
	h := &Handlers{generator: stub, oracle: noopOracle{}}

	body := `{"polygon":` + testPolygon + `,"street_features":` + testFeatures + `}`
	req := httptest.NewRequest("POST", "/api/v1/generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleGenerate(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	h := &Handlers{generator: &stubGenerator{}, oracle: noopOracle{}}

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()

	h.HandleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}

	var resp HealthResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != "ok" {
		t.Errorf("status = %q, want 'ok'", resp.Status)
	}
}
