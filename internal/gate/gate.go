package gate

import (
	"sort"

	"github.com/ppiankov/evigate/internal/model"
)

// Gate evaluates candidate signals against the annotated source set.
// Every input signal comes back with a status: kept, or demoted with a
// reason. Nothing is discarded.
type Gate struct {
	cfg model.GateConfig
}

// NewGate creates a gate with the given thresholds.
func NewGate(cfg model.GateConfig) *Gate {
	return &Gate{cfg: cfg}
}

// Apply gates signals in place-order: the returned slice has the same length
// and ordering as the input, with statuses assigned.
func (g *Gate) Apply(signals []model.Signal, sources []model.SourceRecord) []model.Signal {
	byID := make(map[int]model.SourceRecord, len(sources))
	domains := make(map[string]struct{})
	for _, s := range sources {
		byID[s.ID] = s
		if s.Host != "" {
			domains[s.Host] = struct{}{}
		}
	}

	out := make([]model.Signal, len(signals))
	keptCount := 0
	for i, sig := range signals {
		sig = g.evaluate(sig, byID)
		if sig.Status == statusWouldKeep {
			if keptCount < g.cfg.MaxKept || g.cfg.MaxKept <= 0 {
				sig.Status = model.StatusKept
				keptCount++
			} else {
				sig.Status = model.StatusDemoted
				sig.DemotionReason = model.ReasonBelowThreshold
			}
		}
		out[i] = sig
	}

	g.enforceTopQuality(out, byID, len(domains))
	return out
}

// statusWouldKeep marks a signal that passed evaluation but has not yet been
// counted against the kept maximum.
const statusWouldKeep model.SignalStatus = "would_keep"

func (g *Gate) evaluate(sig model.Signal, byID map[int]model.SourceRecord) model.Signal {
	sig.Support = normalizeSupport(sig.Support, byID)

	supporters := make([]model.SourceRecord, 0, len(sig.Support))
	for _, id := range sig.Support {
		supporters = append(supporters, byID[id])
	}

	// Back-fill missing scores from the cited sources.
	if sig.Strength == 0 {
		sig.Strength = averageOr(supporters, func(s model.SourceRecord) float64 { return s.Quality }, g.cfg.FallbackStrength)
	}
	if sig.USFit == 0 {
		sig.USFit = averageOr(supporters, func(s model.SourceRecord) float64 { return s.USFit }, g.cfg.FallbackUSFit)
	}
	sig.Grade = bestGrade(supporters, g.cfg.FallbackGrade)

	if len(sig.Support) < g.cfg.MinSupportSources {
		sig.Status = model.StatusDemoted
		sig.DemotionReason = model.ReasonInsufficientSupport
		return sig
	}
	if g.cfg.RequireCoreSupport && !hasCore(supporters) {
		sig.Status = model.StatusDemoted
		sig.DemotionReason = model.ReasonInsufficientSupport
		return sig
	}

	if sig.Strength < g.cfg.StrengthFloor || sig.USFit < g.cfg.USFitFloor || !sig.OnSpine || worseThanB(sig.Grade) {
		sig.Status = model.StatusDemoted
		sig.DemotionReason = model.ReasonBelowThreshold
		return sig
	}

	sig.Status = statusWouldKeep
	sig.DemotionReason = model.ReasonNone
	return sig
}

// enforceTopQuality inspects the highest-strength kept signals and demotes
// those whose support is too narrow for a headline position.
func (g *Gate) enforceTopQuality(signals []model.Signal, byID map[int]model.SourceRecord, uniqueDomains int) {
	if g.cfg.TopQualityCount <= 0 {
		return
	}

	keptIdx := make([]int, 0, len(signals))
	for i, s := range signals {
		if s.Status == model.StatusKept {
			keptIdx = append(keptIdx, i)
		}
	}
	sort.SliceStable(keptIdx, func(a, b int) bool {
		return signals[keptIdx[a]].Strength > signals[keptIdx[b]].Strength
	})
	if len(keptIdx) > g.cfg.TopQualityCount {
		keptIdx = keptIdx[:g.cfg.TopQualityCount]
	}

	for _, i := range keptIdx {
		sig := &signals[i]

		if uniqueDomains > 1 && supportDomains(sig.Support, byID) == 1 {
			sig.Status = model.StatusDemoted
			sig.DemotionReason = model.ReasonSingleDomainSupport
			continue
		}
		if g.cfg.RequireQuantTop && !hasQuantSupport(sig.Support, byID) {
			sig.Status = model.StatusDemoted
			sig.DemotionReason = model.ReasonNoQuantSupport
		}
	}
}

// normalizeSupport dedupes source ids and drops references to sources that
// are not in the current set.
func normalizeSupport(support []int, byID map[int]model.SourceRecord) []int {
	seen := make(map[int]struct{}, len(support))
	out := make([]int, 0, len(support))
	for _, id := range support {
		if _, dup := seen[id]; dup {
			continue
		}
		if _, ok := byID[id]; !ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func averageOr(sources []model.SourceRecord, pick func(model.SourceRecord) float64, fallback float64) float64 {
	if len(sources) == 0 {
		return fallback
	}
	sum := 0.0
	for _, s := range sources {
		sum += pick(s)
	}
	return sum / float64(len(sources))
}

func bestGrade(sources []model.SourceRecord, fallback model.Grade) model.Grade {
	best := model.Grade("")
	for _, s := range sources {
		if s.Grade.Better(best) {
			best = s.Grade
		}
	}
	if best == "" {
		return fallback
	}
	return best
}

func hasCore(sources []model.SourceRecord) bool {
	for _, s := range sources {
		if s.Role == model.RoleCore {
			return true
		}
	}
	return false
}

func worseThanB(g model.Grade) bool {
	return g != model.GradeA && g != model.GradeB
}

func supportDomains(support []int, byID map[int]model.SourceRecord) int {
	domains := make(map[string]struct{})
	for _, id := range support {
		if s, ok := byID[id]; ok && s.Host != "" {
			domains[s.Host] = struct{}{}
		}
	}
	return len(domains)
}

func hasQuantSupport(support []int, byID map[int]model.SourceRecord) bool {
	for _, id := range support {
		if s, ok := byID[id]; ok && (s.Evidence.Numeric || s.Evidence.SampleSize != "") {
			return true
		}
	}
	return false
}
