package model

// SourceStats summarizes a SourceRecord set for coverage checks and the
// evidence-regime classification.
type SourceStats struct {
	Total          int            `json:"total"`
	Core           int            `json:"core"`
	UniqueDomains  int            `json:"unique_domains"`
	DomainCounts   map[string]int `json:"domain_counts"`
	DominantDomain string         `json:"dominant_domain,omitempty"`
	DominantRatio  float64        `json:"dominant_ratio"`
	DataHeavy      int            `json:"data_heavy"`
	TierCounts     map[Tier]int   `json:"tier_counts"`
	Checks         []ThresholdCheck `json:"checks"`
	ThinEvidence   bool           `json:"thin_evidence"`
}

// ThresholdCheck records one coverage criterion and whether it passed.
type ThresholdCheck struct {
	Label  string  `json:"label"`
	Actual float64 `json:"actual"`
	Target float64 `json:"target"`
	Passed bool    `json:"passed"`
}

// AllPassed reports whether every threshold check passed.
func (s SourceStats) AllPassed() bool {
	for _, c := range s.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// Regime is the evidence-sufficiency classification of a run. Starved is
// fatal: no report is produced. Directional degrades the displayed
// confidence but still produces output.
type Regime string

const (
	RegimeStarved     Regime = "starved"
	RegimeDirectional Regime = "directional"
	RegimeHealthy     Regime = "healthy"
)
