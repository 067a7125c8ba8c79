package model

// Signal is a candidate claim produced by the content-generation collaborator
// and gated before it reaches a report. Signals are never discarded: a signal
// that fails a gate is demoted with a reason and kept in the same list, so the
// full input set is always accounted for.
type Signal struct {
	ID            string  `json:"id"`
	Category      string  `json:"category,omitempty"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	OperatorMove  string  `json:"operator_move,omitempty"`
	OperatorScan  string  `json:"operator_scan,omitempty"`
	SpineHook     string  `json:"spine_hook,omitempty"`
	TimeHorizon   string  `json:"time_horizon,omitempty"`
	Support       []int   `json:"support"` // Supporting source ids
	Strength      float64 `json:"strength"`
	USFit         float64 `json:"us_fit"`
	Operationality float64 `json:"operationality,omitempty"`
	OnSpine       bool    `json:"on_spine"`
	Grade         Grade   `json:"source_grade,omitempty"` // Best grade among supporters
	QuantSupport  string  `json:"quant_support,omitempty"`

	Status         SignalStatus   `json:"status"`
	DemotionReason DemotionReason `json:"demotion_reason,omitempty"`
}

// SignalStatus tracks the gate outcome for a signal.
type SignalStatus string

const (
	StatusRaw     SignalStatus = ""
	StatusKept    SignalStatus = "kept"
	StatusDemoted SignalStatus = "demoted"
)

// DemotionReason explains why a signal was moved to the appendix.
type DemotionReason string

const (
	ReasonNone               DemotionReason = ""
	ReasonInsufficientSupport DemotionReason = "insufficient_support"
	ReasonSingleDomainSupport DemotionReason = "single_domain_support"
	ReasonNoQuantSupport      DemotionReason = "no_quantitative_support"
	ReasonBelowThreshold      DemotionReason = "below_threshold"
)

// Kept filters signals with kept status, preserving order.
func Kept(signals []Signal) []Signal {
	out := make([]Signal, 0, len(signals))
	for _, s := range signals {
		if s.Status == StatusKept {
			out = append(out, s)
		}
	}
	return out
}

// Appendix filters demoted signals, preserving order.
func Appendix(signals []Signal) []Signal {
	out := make([]Signal, 0)
	for _, s := range signals {
		if s.Status == StatusDemoted {
			out = append(out, s)
		}
	}
	return out
}
