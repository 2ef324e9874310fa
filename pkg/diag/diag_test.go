package diag

import "testing"

func TestClassifyCompletedWhenClean(t *testing.T) {
	d := Diagnostics{ContinuityValid: true}
	if got := Classify(d, false, false, false); got != Completed {
		t.Errorf("Classify = %v, want %v", got, Completed)
	}
}

func TestClassifyFailsOnContractViolations(t *testing.T) {
	cases := []struct {
		name                                                     string
		flowInfeasible, invalidInput, projectionUnavailable bool
	}{
		{"flow infeasible", true, false, false},
		{"invalid input", false, true, false},
		{"projection unavailable", false, false, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d := Diagnostics{ContinuityValid: true}
			if got := Classify(d, c.flowInfeasible, c.invalidInput, c.projectionUnavailable); got != Failed {
				t.Errorf("Classify = %v, want %v", got, Failed)
			}
		})
	}
}

func TestClassifyWarnsOnBoundedIssues(t *testing.T) {
	cases := []Diagnostics{
		{ContinuityValid: false},
		{ContinuityValid: true, OracleExhausted: true},
		{ContinuityValid: true, FeaturesSkipped: 1},
	}
	for _, d := range cases {
		if got := Classify(d, false, false, false); got != CompletedWithWarnings {
			t.Errorf("Classify(%+v) = %v, want %v", d, got, CompletedWithWarnings)
		}
	}
}

func TestBuildGapHistogramBucketsAndPercentiles(t *testing.T) {
	gaps := []float64{0.5, 0.9, 5, 10, 20, 40, 50}
	h := BuildGapHistogram(gaps, 30)

	if h.UpTo1M != 2 {
		t.Errorf("UpTo1M = %d, want 2", h.UpTo1M)
	}
	if h.UpTo15M != 2 {
		t.Errorf("UpTo15M = %d, want 2", h.UpTo15M)
	}
	if h.UpTo30M != 1 {
		t.Errorf("UpTo30M = %d, want 1", h.UpTo30M)
	}
	if h.Over30M != 2 {
		t.Errorf("Over30M = %d, want 2", h.Over30M)
	}
	if h.MaxM != 50 {
		t.Errorf("MaxM = %v, want 50", h.MaxM)
	}
}

func TestBuildGapHistogramEmptyInput(t *testing.T) {
	h := BuildGapHistogram(nil, 30)
	if h.MaxM != 0 || h.MeanM != 0 {
		t.Errorf("expected zero-value histogram for empty input, got %+v", h)
	}
}

func TestStageTimerRecordsDuration(t *testing.T) {
	var d Diagnostics
	timer := StartStage("graph_build")
	timer.Stop(&d)

	if len(d.Stages) != 1 {
		t.Fatalf("got %d stages, want 1", len(d.Stages))
	}
	if d.Stages[0].Name != "graph_build" {
		t.Errorf("stage name = %q, want graph_build", d.Stages[0].Name)
	}
}
