package score

import (
	"fmt"
	"math"

	"github.com/ppiankov/evigate/internal/model"
)

// Headline weights. The four sub-scores are clamped before weighting and the
// result is rounded to 3 decimals, so the outcome is invariant to clamping
// order and always lies in [0,1].
const (
	weightStrength      = 0.4
	weightCoverage      = 0.3
	weightQuantSupport  = 0.2
	weightContradiction = 0.1
)

// Intent routes cap selection.
const (
	IntentMarket = "market"
	IntentTheory = "theory"
)

// Headline combines a breakdown into the raw confidence score.
func Headline(b model.ConfidenceBreakdown) float64 {
	c := b.Clamp()
	score := weightStrength*c.AverageStrength +
		weightCoverage*c.Coverage +
		weightQuantSupport*c.QuantSupport +
		weightContradiction*c.ContradictionPenalty
	return math.Round(score*1e3) / 1e3
}

// Scorer applies calibration bounds, caps, and banding on top of the raw
// headline score.
type Scorer struct {
	cfg model.ConfidenceConfig
}

// NewScorer creates a confidence scorer.
func NewScorer(cfg model.ConfidenceConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Inputs carries the run context that caps and bands depend on.
type Inputs struct {
	Breakdown      model.ConfidenceBreakdown
	Regime         model.Regime
	Intent         string // market or theory
	AnchorCoverage float64
	SourceCount    int
	VendorHeavy    bool // Vendor-asserted sources dominate the set
}

// Finalize computes the calibrated confidence block. Starved regimes never
// reach this point: the pipeline aborts before scoring.
func (s *Scorer) Finalize(in Inputs) model.Confidence {
	score := Headline(in.Breakdown)
	note := ""

	// Caps, tightest last.
	if in.VendorHeavy && score > s.cfg.VendorCap {
		score = s.cfg.VendorCap
		note = "capped: vendor-asserted sources dominate"
	}
	if in.Intent == IntentTheory {
		if score > s.cfg.TheoryCap {
			score = s.cfg.TheoryCap
			note = "capped: theory intent"
		}
		if in.AnchorCoverage < s.cfg.AnchorCoverageMin && score > s.cfg.TheoryNoAnchorCap {
			score = s.cfg.TheoryNoAnchorCap
			note = "capped: theory intent without strict anchors"
		}
	}

	// Calibration bounds.
	if score < s.cfg.LowerBound {
		score = s.cfg.LowerBound
	}
	if score > s.cfg.UpperBound {
		score = s.cfg.UpperBound
	}
	score = math.Round(score*1e3) / 1e3

	band := s.band(score)
	if in.SourceCount < s.cfg.MinSourcesModerate && band != "low" {
		band = "low"
		note = appendNote(note, "few sources")
	}
	if in.Regime == model.RegimeDirectional && band == "high" {
		band = "moderate"
		note = appendNote(note, "evidence regime is directional")
	}

	return model.Confidence{
		Score:     score,
		Display:   fmt.Sprintf("%.0f%% (%s)", score*100, band),
		Band:      band,
		Breakdown: in.Breakdown.Clamp(),
		Note:      note,
	}
}

func (s *Scorer) band(score float64) string {
	switch {
	case score < s.cfg.BandLowBelow:
		return "low"
	case score < s.cfg.BandHighFrom:
		return "moderate"
	default:
		return "high"
	}
}

func appendNote(note, extra string) string {
	if note == "" {
		return extra
	}
	return note + "; " + extra
}

// VOIMetrics are the run metrics the task recommender inspects.
type VOIMetrics struct {
	AnchorCoverage float64
	QuantFlags     int
	Confidence     float64
}

// ValueOfInformation recommends follow-up audit tasks worth their cost given
// the run metrics: evidence alignment when anchors are thin, the math guard
// when quantitative flags fired, adversarial review when confidence is soft,
// and decision playbooks for theory work.
func (s *Scorer) ValueOfInformation(m VOIMetrics, intent string) []string {
	var tasks []string
	if m.AnchorCoverage < s.cfg.VOIAnchorCoverageMin {
		tasks = append(tasks, "evidence_alignment")
	}
	if m.QuantFlags > 0 {
		tasks = append(tasks, "math_guard")
	}
	if m.Confidence < s.cfg.VOIConfidenceMin {
		tasks = append(tasks, "adversarial_review")
	}
	if intent == IntentTheory {
		tasks = append(tasks, "decision_playbooks")
	}
	return tasks
}
