package quant

import (
	"math"
	"testing"
)

func TestPoissonHazard_Bounds(t *testing.T) {
	p := PoissonHazard(12.6, 6.0, 1)
	if p < 0 || p > 1 {
		t.Errorf("expected probability in [0,1], got %f", p)
	}
	if p < 0.999 {
		t.Errorf("expected near-certain hazard for lambda*t=75.6, got %f", p)
	}
}

func TestPoissonHazard_MonotoneInHours(t *testing.T) {
	prev := -1.0
	for h := 0.0; h <= 24; h += 0.5 {
		p := PoissonHazard(0.3, h, 1)
		if p < prev {
			t.Fatalf("hazard decreased at hours=%f: %f < %f", h, p, prev)
		}
		prev = p
	}
}

func TestPoissonHazard_HigherM(t *testing.T) {
	p1 := PoissonHazard(0.5, 4, 1)
	p3 := PoissonHazard(0.5, 4, 3)
	if p3 >= p1 {
		t.Errorf("P(>=3 events) should be below P(>=1 event): %f >= %f", p3, p1)
	}
}

func TestPPV_Monotonicity(t *testing.T) {
	if PPV(0.9, 0.1, 0.5, 0) <= PPV(0.9, 0.2, 0.5, 0) {
		t.Error("PPV should decrease as FPR rises")
	}
	if PPV(0.9, 0.1, 0.5, 0) <= PPV(0.5, 0.1, 0.5, 0) {
		t.Error("PPV should increase as TPR rises")
	}
}

func TestPPV_ZeroDenominator(t *testing.T) {
	if got := PPV(0.9, 0, 0, 0); got != 0 {
		t.Errorf("expected 0 for zero denominator, got %f", got)
	}
}

func TestSanity_MissingBaseRate(t *testing.T) {
	warnings := Sanity(map[string]interface{}{"TPR": 0.9, "FPR": 0.08})
	missing := 0
	for _, w := range warnings {
		if w.Code == "MISSING" {
			missing++
		}
	}
	if missing != 1 {
		t.Errorf("expected exactly one MISSING warning, got %d (all: %v)", missing, warnings)
	}
}

func TestSanity_RangeAndType(t *testing.T) {
	warnings := Sanity(map[string]interface{}{
		"p_conn":    1.4,
		"prob_x":    "not-a-number",
		"mu":        -2.0,
		"base_rate": 0.05,
	})

	codes := map[string]int{}
	for _, w := range warnings {
		codes[w.Code]++
	}
	if codes["RANGE"] != 2 {
		t.Errorf("expected RANGE warnings for p_conn and mu, got %v", warnings)
	}
	if codes["TYPE"] != 1 {
		t.Errorf("expected one TYPE warning, got %v", warnings)
	}
	if codes["MISSING"] != 0 {
		t.Errorf("base_rate present, no MISSING expected, got %v", warnings)
	}
}

func TestMonotonicityLinter_Shapes(t *testing.T) {
	inc := func(x float64) float64 { return 2*x + 1 }
	dec := func(x float64) float64 { return -x }
	parabola := func(x float64) float64 { return (x - 0.5) * (x - 0.5) }

	if w := MonotonicityLinter(inc, "x", 0, 1, ShapeIncreasing); w != nil {
		t.Errorf("linear increasing flagged: %v", w)
	}
	if w := MonotonicityLinter(dec, "x", 0, 1, ShapeIncreasing); w == nil {
		t.Error("decreasing function should violate increasing expectation")
	}
	if w := MonotonicityLinter(parabola, "x", 0, 1, ShapeUShaped); w != nil {
		t.Errorf("parabola flagged as non-U-shaped: %v", w)
	}
	if w := MonotonicityLinter(inc, "x", 0, 1, ShapeUShaped); w == nil {
		t.Error("monotone function should violate u_shaped expectation")
	}
	if w := MonotonicityLinter(parabola, "x", 0, 1, ShapeMonotonic); w == nil {
		t.Error("parabola should violate monotonic expectation")
	}
}

func TestSuggestPatch_WorkedExample(t *testing.T) {
	patch := SuggestPatch(map[string]interface{}{
		"mu":        120.0,
		"alpha":     0.7,
		"tau":       0.25,
		"p_conn":    0.6,
		"TPR":       0.9,
		"FPR":       0.08,
		"base_rate": 0.05,
		"p_loss":    0.35,
		"f":         1.0 / 30.0,
		"w_k":       0.02,
	}, 6.0)

	if len(patch.LatexEquations) == 0 {
		t.Fatal("expected equations in patch")
	}
	if len(patch.Examples) != 1 {
		t.Fatalf("expected one worked example, got %d", len(patch.Examples))
	}
	example := patch.Examples[0]

	wantLam := 120.0 * 0.7 * 0.25 * 0.6
	if math.Abs(example["lambda_per_hr"]-wantLam) > 1e-6 {
		t.Errorf("lambda: want %f got %f", wantLam, example["lambda_per_hr"])
	}
	if example["p_fail_T"] <= 0 || example["p_fail_T"] > 1 {
		t.Errorf("p_fail_T out of range: %f", example["p_fail_T"])
	}
	if example["reports_per_hr"] != 120.0 {
		t.Errorf("reports_per_hr: want 120 got %f", example["reports_per_hr"])
	}
	for _, w := range patch.Warnings {
		if w.Code == "MONOTONICITY" {
			t.Errorf("well-formed parameters should not trip the linter: %v", w)
		}
	}
}
