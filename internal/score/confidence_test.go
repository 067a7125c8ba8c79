package score

import (
	"math"
	"testing"

	"github.com/ppiankov/evigate/internal/model"
)

func testScorer() *Scorer {
	return NewScorer(model.DefaultConfig().Confidence)
}

func TestHeadline_Weighting(t *testing.T) {
	got := Headline(model.ConfidenceBreakdown{
		AverageStrength:      0.8,
		Coverage:             0.6,
		QuantSupport:         0.5,
		ContradictionPenalty: 1.0,
	})
	want := 0.4*0.8 + 0.3*0.6 + 0.2*0.5 + 0.1*1.0
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("headline: want %f got %f", want, got)
	}
}

func TestHeadline_ClampOrderInvariance(t *testing.T) {
	raw := model.ConfidenceBreakdown{
		AverageStrength:      1.7,
		Coverage:             -0.3,
		QuantSupport:         0.5,
		ContradictionPenalty: 2.0,
	}
	if got, want := Headline(raw), Headline(raw.Clamp()); got != want {
		t.Errorf("clamp order changed result: %f vs %f", got, want)
	}
	if got := Headline(raw); got < 0 || got > 1 {
		t.Errorf("headline out of [0,1]: %f", got)
	}
}

func TestFinalize_Bounds(t *testing.T) {
	s := testScorer()

	low := s.Finalize(Inputs{
		Breakdown:   model.ConfidenceBreakdown{},
		Regime:      model.RegimeHealthy,
		Intent:      IntentMarket,
		SourceCount: 10,
	})
	if low.Score != 0.30 {
		t.Errorf("expected lower bound 0.30, got %f", low.Score)
	}

	high := s.Finalize(Inputs{
		Breakdown: model.ConfidenceBreakdown{
			AverageStrength: 1, Coverage: 1, QuantSupport: 1, ContradictionPenalty: 1,
		},
		Regime:      model.RegimeHealthy,
		Intent:      IntentMarket,
		SourceCount: 10,
	})
	if high.Score != 0.85 {
		t.Errorf("expected upper bound 0.85, got %f", high.Score)
	}
}

func TestFinalize_TheoryCaps(t *testing.T) {
	s := testScorer()
	strong := model.ConfidenceBreakdown{
		AverageStrength: 0.9, Coverage: 0.9, QuantSupport: 0.9, ContradictionPenalty: 0.9,
	}

	capped := s.Finalize(Inputs{
		Breakdown:      strong,
		Regime:         model.RegimeHealthy,
		Intent:         IntentTheory,
		AnchorCoverage: 0.8,
		SourceCount:    10,
	})
	if capped.Score != 0.60 {
		t.Errorf("expected theory cap 0.60, got %f", capped.Score)
	}

	noAnchors := s.Finalize(Inputs{
		Breakdown:      strong,
		Regime:         model.RegimeHealthy,
		Intent:         IntentTheory,
		AnchorCoverage: 0.4,
		SourceCount:    10,
	})
	if noAnchors.Score != 0.55 {
		t.Errorf("expected anchor-absent cap 0.55, got %f", noAnchors.Score)
	}
	if noAnchors.Note == "" {
		t.Error("expected a note explaining the cap")
	}

	market := s.Finalize(Inputs{
		Breakdown:      strong,
		Regime:         model.RegimeHealthy,
		Intent:         IntentMarket,
		AnchorCoverage: 0.4,
		SourceCount:    10,
	})
	if market.Score <= 0.60 {
		t.Errorf("market intent should not trigger theory caps, got %f", market.Score)
	}
}

func TestFinalize_VendorCap(t *testing.T) {
	s := testScorer()
	got := s.Finalize(Inputs{
		Breakdown: model.ConfidenceBreakdown{
			AverageStrength: 1, Coverage: 1, QuantSupport: 1, ContradictionPenalty: 1,
		},
		Regime:      model.RegimeHealthy,
		Intent:      IntentMarket,
		SourceCount: 10,
		VendorHeavy: true,
	})
	if got.Score != 0.70 {
		t.Errorf("expected vendor cap 0.70, got %f", got.Score)
	}
}

func TestFinalize_DirectionalCapsBand(t *testing.T) {
	s := testScorer()
	got := s.Finalize(Inputs{
		Breakdown: model.ConfidenceBreakdown{
			AverageStrength: 1, Coverage: 1, QuantSupport: 1, ContradictionPenalty: 1,
		},
		Regime:      model.RegimeDirectional,
		Intent:      IntentMarket,
		SourceCount: 10,
	})
	if got.Band != "moderate" {
		t.Errorf("directional regime should cap band at moderate, got %s", got.Band)
	}
	if got.Note == "" {
		t.Error("expected evidence note for directional regime")
	}
}

func TestFinalize_FewSourcesLowBand(t *testing.T) {
	s := testScorer()
	got := s.Finalize(Inputs{
		Breakdown: model.ConfidenceBreakdown{
			AverageStrength: 0.8, Coverage: 0.8, QuantSupport: 0.8, ContradictionPenalty: 0.8,
		},
		Regime:      model.RegimeHealthy,
		Intent:      IntentMarket,
		SourceCount: 2,
	})
	if got.Band != "low" {
		t.Errorf("few sources should force low band, got %s", got.Band)
	}
}

func TestValueOfInformation(t *testing.T) {
	s := testScorer()

	tasks := s.ValueOfInformation(VOIMetrics{AnchorCoverage: 0.6, QuantFlags: 2, Confidence: 0.6}, IntentTheory)
	want := map[string]bool{
		"evidence_alignment": true, "math_guard": true,
		"adversarial_review": true, "decision_playbooks": true,
	}
	if len(tasks) != len(want) {
		t.Fatalf("expected %d tasks, got %v", len(want), tasks)
	}
	for _, task := range tasks {
		if !want[task] {
			t.Errorf("unexpected task %s", task)
		}
	}

	if tasks := s.ValueOfInformation(VOIMetrics{AnchorCoverage: 0.85, QuantFlags: 0, Confidence: 0.8}, IntentMarket); len(tasks) != 0 {
		t.Errorf("healthy market metrics should yield no tasks, got %v", tasks)
	}
}
