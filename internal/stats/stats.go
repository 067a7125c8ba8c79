package stats

import (
	"github.com/ppiankov/evigate/internal/model"
)

// Compute summarizes a source set: counts, domain distribution, dominance,
// and the threshold check vector the regime classification reads.
func Compute(sources []model.SourceRecord, cfg model.StatsConfig) model.SourceStats {
	s := model.SourceStats{
		Total:        len(sources),
		DomainCounts: make(map[string]int),
		TierCounts:   make(map[model.Tier]int),
	}

	for _, src := range sources {
		if src.Role == model.RoleCore {
			s.Core++
		}
		host := src.Host
		if host == "" {
			host = src.URL
		}
		s.DomainCounts[host]++
		s.TierCounts[src.Tier]++
		if src.Evidence.Numeric || src.Evidence.SampleSize != "" {
			s.DataHeavy++
		}
	}

	s.UniqueDomains = len(s.DomainCounts)
	if s.Total > 0 {
		max := 0
		for host, count := range s.DomainCounts {
			if count > max {
				max = count
				s.DominantDomain = host
			}
		}
		s.DominantRatio = float64(max) / float64(s.Total)
	}

	inWindow := s.TierCounts[model.TierCore]
	background := s.TierCounts[model.TierContext]

	check := func(label string, actual, target int) model.ThresholdCheck {
		return model.ThresholdCheck{
			Label:  label,
			Actual: float64(actual),
			Target: float64(target),
			Passed: actual >= target,
		}
	}
	s.Checks = []model.ThresholdCheck{
		check("total sources", s.Total, cfg.MinTotal),
		check("core sources", s.Core, cfg.MinCore),
		check("unique domains", s.UniqueDomains, cfg.MinUniqueDomains),
		check("data-heavy sources", s.DataHeavy, cfg.MinDataHeavy),
		check("in-window sources", inWindow, cfg.MinInWindow),
		check("background sources", background, cfg.MinBackground),
		{
			Label:  "dominant domain ratio",
			Actual: s.DominantRatio,
			Target: cfg.MaxDomainRatio,
			Passed: s.DominantRatio <= cfg.MaxDomainRatio,
		},
	}

	s.ThinEvidence = s.Total < cfg.MinTotal || s.DataHeavy < cfg.MinDataHeavy
	return s
}

// Classify assigns the evidence regime for a stats snapshot. Starved means
// no report is produced; directional degrades downstream confidence display.
func Classify(s model.SourceStats, cfg model.StatsConfig) model.Regime {
	inWindow := s.TierCounts[model.TierCore]
	background := s.TierCounts[model.TierContext]

	switch {
	case s.Total == 0:
		return model.RegimeStarved
	case s.Total < cfg.HardFloorTotal:
		return model.RegimeStarved
	case inWindow == 0:
		return model.RegimeStarved
	case background == 0 && s.Total < cfg.MinTotal:
		return model.RegimeStarved
	}

	if s.Core == 0 || !s.AllPassed() {
		return model.RegimeDirectional
	}
	return model.RegimeHealthy
}
