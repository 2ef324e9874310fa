package engine

import (
	"fmt"

	"github.com/streetcover/routecore/pkg/assemble"
	"github.com/streetcover/routecore/pkg/oracle"
)

const (
	minChunkDurationS = 600
	maxChunkDurationS = 7200
)

// normalizeRequest validates req and folds its optional pointer fields
// onto assemble.DefaultConfig(), overriding only the fields the caller
// set explicitly.
func normalizeRequest(req GenerateRequest) (assemble.Config, float64, oracle.Profile, error) {
	if len(req.Polygon) == 0 {
		return assemble.Config{}, 0, "", fmt.Errorf("engine: polygon must have at least one point")
	}
	if len(req.StreetFeatures) == 0 {
		return assemble.Config{}, 0, "", fmt.Errorf("engine: street_features must not be empty")
	}

	cfg := assemble.DefaultConfig()
	snapToleranceM := 1.0

	if req.ChunkDurationS != nil {
		v := float64(*req.ChunkDurationS)
		if v < minChunkDurationS || v > maxChunkDurationS {
			return assemble.Config{}, 0, "", fmt.Errorf("engine: chunk_duration_s %v out of range [%d,%d]", v, minChunkDurationS, maxChunkDurationS)
		}
		cfg.ChunkDurationS = v
	}
	if req.MaxGapM != nil {
		if *req.MaxGapM <= 0 {
			return assemble.Config{}, 0, "", fmt.Errorf("engine: max_gap_m must be positive")
		}
		cfg.MaxGapM = float64(*req.MaxGapM)
	}
	if req.SnapToleranceM != nil {
		if *req.SnapToleranceM < 0 {
			return assemble.Config{}, 0, "", fmt.Errorf("engine: snap_tolerance_m must not be negative")
		}
		snapToleranceM = *req.SnapToleranceM
	}
	if req.SmallJoinM != nil {
		if *req.SmallJoinM <= 0 || *req.SmallJoinM > cfg.MaxGapM {
			return assemble.Config{}, 0, "", fmt.Errorf("engine: small_join_m must be in (0, max_gap_m]")
		}
		cfg.SmallJoinM = *req.SmallJoinM
	}
	if req.OracleConcurrency != nil {
		if *req.OracleConcurrency <= 0 {
			return assemble.Config{}, 0, "", fmt.Errorf("engine: oracle_concurrency must be positive")
		}
		cfg.OracleConcurrency = *req.OracleConcurrency
	}
	if req.OracleCallBudget != nil {
		if *req.OracleCallBudget < 0 {
			return assemble.Config{}, 0, "", fmt.Errorf("engine: oracle_call_budget must not be negative")
		}
		cfg.OracleCallBudget = *req.OracleCallBudget
	}

	profile := req.Profile
	if profile == "" {
		profile = oracle.ProfileCar
	}

	return cfg, snapToleranceM, profile, nil
}
