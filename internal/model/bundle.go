package model

import "time"

// Bundle is the complete pipeline output handed to renderers.
type Bundle struct {
	Topic       string         `json:"topic"`
	Window      string         `json:"window"`
	GeneratedAt time.Time      `json:"generated_at"`
	Sources     []SourceRecord `json:"sources"`
	SourceStats SourceStats    `json:"source_stats"`
	Regime      Regime         `json:"evidence_regime"`
	Signals     []Signal       `json:"signals"`          // Kept signals
	Appendix    []Signal       `json:"appendix_signals"` // Demoted signals with reasons
	Ledger      *Ledger        `json:"evidence_ledger,omitempty"`
	Confidence  Confidence     `json:"confidence"`
	Quant       *QuantBlock    `json:"quant,omitempty"`
	Violations  []string       `json:"contract_violations,omitempty"`
	VOITasks    []string       `json:"voi_tasks,omitempty"` // Follow-up audit tasks worth their cost
}

// QuantBlock is the validated quantitative payload plus guard output.
type QuantBlock struct {
	SpineHook       string                   `json:"spine_hook"`
	Anchors         []map[string]interface{} `json:"anchors"`
	MeasurementPlan []map[string]interface{} `json:"measurement_plan"`
	Coverage        float64                  `json:"coverage"`
	Patch           *QuantPatch              `json:"patch,omitempty"`
}
