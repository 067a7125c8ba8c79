package model

// ConfidenceBreakdown holds the four sub-scores behind the headline
// confidence number. Each sub-score is clamped to [0,1] before weighting.
type ConfidenceBreakdown struct {
	AverageStrength      float64 `json:"average_strength"`
	Coverage             float64 `json:"coverage"`
	QuantSupport         float64 `json:"quant_support"`
	ContradictionPenalty float64 `json:"contradiction_penalty"`
}

// Clamp returns a copy with every sub-score forced into [0,1].
func (b ConfidenceBreakdown) Clamp() ConfidenceBreakdown {
	c := func(v float64) float64 {
		if v < 0 {
			return 0
		}
		if v > 1 {
			return 1
		}
		return v
	}
	return ConfidenceBreakdown{
		AverageStrength:      c(b.AverageStrength),
		Coverage:             c(b.Coverage),
		QuantSupport:         c(b.QuantSupport),
		ContradictionPenalty: c(b.ContradictionPenalty),
	}
}

// Confidence is the calibrated confidence block handed to renderers.
type Confidence struct {
	Score     float64             `json:"score"`
	Display   string              `json:"display"`
	Band      string              `json:"band"`
	Breakdown ConfidenceBreakdown `json:"breakdown"`
	Note      string              `json:"note,omitempty"`
}

// QuantWarning flags an out-of-bounds or missing quantitative parameter.
type QuantWarning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// QuantPatch carries recommended equations, one worked example, and any
// sanity warnings for a quantitative vignette.
type QuantPatch struct {
	LatexEquations []string             `json:"latex_equations"`
	Examples       []map[string]float64 `json:"examples"`
	Warnings       []QuantWarning       `json:"warnings"`
}
