package api

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/streetcover/routecore/pkg/engine"
	"github.com/streetcover/routecore/pkg/geo"
	"github.com/streetcover/routecore/pkg/ingest"
	"github.com/streetcover/routecore/pkg/oracle"
)

// maxRequestBytes bounds a generate request body; street_features for a
// large area can run into the tens of megabytes.
const maxRequestBytes = 64 << 20

// Generator is the subset of pkg/engine this handler depends on, so tests
// can substitute a stub without constructing a real oracle.
type Generator interface {
	Generate(ctx context.Context, req engine.GenerateRequest, o oracle.Oracle) (*engine.GenerateResult, error)
}

type generateFunc func(ctx context.Context, req engine.GenerateRequest, o oracle.Oracle) (*engine.GenerateResult, error)

func (f generateFunc) Generate(ctx context.Context, req engine.GenerateRequest, o oracle.Oracle) (*engine.GenerateResult, error) {
	return f(ctx, req, o)
}

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	generator Generator
	oracle    oracle.Oracle
}

// NewHandlers creates handlers wired to engine.Generate and the given
// routing oracle.
func NewHandlers(o oracle.Oracle) *Handlers {
	return &Handlers{generator: generateFunc(engine.Generate), oracle: o}
}

// HandleGenerate handles POST /api/v1/generate.
func (h *Handlers) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}

	var body GenerateRequestJSON
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}

	req, err := requestFromJSON(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}

	result, err := h.generator.Generate(r.Context(), req, h.oracle)
	if err != nil {
		var engineErr *engine.Error
		if errors.As(err, &engineErr) {
			switch engineErr.Kind {
			case engine.KindInvalidInput, engine.KindInvalidGeometry:
				// KindInvalidGeometry is reserved for a fatal geometry
				// failure; Generate does not construct it today (see its
				// doc comment), but a 400 is the right response if it ever did.
				writeErrorKind(w, http.StatusBadRequest, "invalid_request", string(engineErr.Kind))
				return
			case engine.KindProjectionUnavailable:
				writeErrorKind(w, http.StatusUnprocessableEntity, "projection_unavailable", string(engineErr.Kind))
				return
			case engine.KindFlowInfeasible:
				writeErrorKind(w, http.StatusUnprocessableEntity, "flow_infeasible", string(engineErr.Kind))
				return
			case engine.KindCancelled:
				writeErrorKind(w, http.StatusServiceUnavailable, "request_timeout", string(engineErr.Kind))
				return
			case engine.KindOracleTransient:
				writeErrorKind(w, http.StatusBadGateway, "oracle_unavailable", string(engineErr.Kind))
				return
			}
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			writeError(w, http.StatusServiceUnavailable, "request_timeout", "")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responseFromResult(result))
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(HealthResponse{Status: "ok"})
}

func requestFromJSON(body GenerateRequestJSON) (engine.GenerateRequest, error) {
	polygon, err := ingest.PolygonFromGeoJSON(body.Polygon)
	if err != nil {
		return engine.GenerateRequest{}, err
	}
	features, err := ingest.StreetFeaturesFromGeoJSON(body.StreetFeatures)
	if err != nil {
		return engine.GenerateRequest{}, err
	}

	req := engine.GenerateRequest{
		Polygon:           polygon,
		StreetFeatures:    features,
		ChunkDurationS:    body.ChunkDurationS,
		MaxGapM:           body.MaxGapM,
		SnapToleranceM:    body.SnapToleranceM,
		SmallJoinM:        body.SmallJoinM,
		OracleConcurrency: body.OracleConcurrency,
		OracleCallBudget:  body.OracleCallBudget,
	}
	if body.Profile != "" {
		req.Profile = oracle.Profile(body.Profile)
	}
	if body.StartPoint != nil {
		p := geo.Point{Lon: body.StartPoint.Lng, Lat: body.StartPoint.Lat}
		req.StartPoint = &p
	}
	return req, nil
}

func responseFromResult(result *engine.GenerateResult) GenerateResponseJSON {
	geometry := make([]LatLngJSON, len(result.Geometry))
	for i, p := range result.Geometry {
		geometry[i] = LatLngJSON{Lat: p.Lat, Lng: p.Lon}
	}
	chunks := make([]ChunkJSON, len(result.Chunks))
	for i, c := range result.Chunks {
		chunks[i] = ChunkJSON{StartIdx: c.StartIdx, EndIdx: c.EndIdx, LengthM: c.LengthM, DurationS: c.DurationS}
	}
	d := result.Diagnostics
	return GenerateResponseJSON{
		Geometry:  geometry,
		Chunks:    chunks,
		LengthM:   result.LengthM,
		DurationS: result.DurationS,
		Status:    string(result.Status),
		Diagnostics: DiagnosticsJSON{
			NodesBefore:          d.NodesBefore,
			EdgesBefore:          d.EdgesBefore,
			NodesAfter:           d.NodesAfter,
			EdgesAfter:           d.EdgesAfter,
			SCCCount:             d.SCCCount,
			ImbalancedNodes:      d.ImbalancedNodes,
			DuplicatedLengthM:    d.DuplicatedLengthM,
			DeadheadRatio:        d.DeadheadRatio,
			OracleCallsReal:      d.OracleCallsReal,
			OracleCallsSynthetic: d.OracleCallsSynthetic,
			OracleExhausted:      d.OracleExhausted,
			FeaturesSkipped:      d.FeaturesSkipped,
			Violations:           d.Violations,
			MaxGapM:              d.MaxGapM,
			ContinuityValid:      d.ContinuityValid,
		},
	}
}

func writeError(w http.ResponseWriter, status int, code, field string) {
	writeErrorKind(w, status, code, field)
}

func writeErrorKind(w http.ResponseWriter, status int, code, kind string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: code, Kind: kind})
}
