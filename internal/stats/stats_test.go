package stats

import (
	"fmt"
	"testing"

	"github.com/ppiankov/evigate/internal/model"
)

func source(host string, role model.Role, tier model.Tier, numeric bool) model.SourceRecord {
	return model.SourceRecord{
		URL:      "https://" + host + "/article",
		Host:     host,
		Role:     role,
		Tier:     tier,
		Evidence: model.Evidence{Numeric: numeric},
	}
}

func TestCompute_DominantRatio(t *testing.T) {
	var sources []model.SourceRecord
	for i := 0; i < 6; i++ {
		sources = append(sources, source("bigsite.com", model.RoleSupport, model.TierCore, false))
	}
	sources = append(sources,
		source("a.com", model.RoleCore, model.TierCore, true),
		source("b.com", model.RoleCore, model.TierContext, true),
		source("c.com", model.RoleSupport, model.TierContext, false),
	)

	cfg := model.DefaultConfig().Stats
	got := Compute(sources, cfg)

	if got.Total != 9 {
		t.Fatalf("total: want 9 got %d", got.Total)
	}
	if got.UniqueDomains != 4 {
		t.Errorf("unique domains: want 4 got %d", got.UniqueDomains)
	}
	if got.DominantDomain != "bigsite.com" {
		t.Errorf("dominant domain: want bigsite.com got %s", got.DominantDomain)
	}
	want := 6.0 / 9.0
	if diff := got.DominantRatio - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("dominant ratio: want %f got %f", want, got.DominantRatio)
	}
}

func TestCompute_EmptySet(t *testing.T) {
	got := Compute(nil, model.DefaultConfig().Stats)
	if got.DominantRatio != 0 {
		t.Errorf("empty set should have ratio 0, got %f", got.DominantRatio)
	}
	if Classify(got, model.DefaultConfig().Stats) != model.RegimeStarved {
		t.Error("empty set must be starved")
	}
}

func TestClassify_DominanceScenario(t *testing.T) {
	// 9 results, 5 unique domains would be healthy territory, but one domain
	// holds 6 of 9 (ratio 0.67 above the 0.6 ceiling) so the run degrades.
	var sources []model.SourceRecord
	for i := 0; i < 6; i++ {
		sources = append(sources, source("bigsite.com", model.RoleSupport, model.TierCore, true))
	}
	sources = append(sources,
		source("a.com", model.RoleCore, model.TierCore, true),
		source("b.com", model.RoleCore, model.TierContext, true),
		source("c.com", model.RoleSupport, model.TierContext, false),
		// Not appended: keeps the set at 9 with 4 unique domains; the
		// dominance check alone is enough to fail healthy.
	)

	cfg := model.DefaultConfig().Stats
	s := Compute(sources, cfg)
	if regime := Classify(s, cfg); regime != model.RegimeDirectional {
		t.Errorf("want directional, got %s", regime)
	}

	var dominance *model.ThresholdCheck
	for i := range s.Checks {
		if s.Checks[i].Label == "dominant domain ratio" {
			dominance = &s.Checks[i]
		}
	}
	if dominance == nil || dominance.Passed {
		t.Errorf("dominance threshold should fail, checks: %v", s.Checks)
	}
}

func TestClassify_Healthy(t *testing.T) {
	var sources []model.SourceRecord
	for i := 0; i < 3; i++ {
		sources = append(sources, source(fmt.Sprintf("core%d.com", i), model.RoleCore, model.TierCore, true))
	}
	for i := 0; i < 3; i++ {
		sources = append(sources, source(fmt.Sprintf("bg%d.com", i), model.RoleSupport, model.TierContext, false))
	}

	cfg := model.DefaultConfig().Stats
	s := Compute(sources, cfg)
	if regime := Classify(s, cfg); regime != model.RegimeHealthy {
		t.Errorf("want healthy, got %s (checks: %v)", regime, s.Checks)
	}
}

func TestClassify_StarvedVariants(t *testing.T) {
	cfg := model.DefaultConfig().Stats

	// Below the hard floor.
	few := Compute([]model.SourceRecord{
		source("a.com", model.RoleCore, model.TierCore, true),
		source("b.com", model.RoleCore, model.TierContext, true),
	}, cfg)
	if Classify(few, cfg) != model.RegimeStarved {
		t.Error("2 sources is below the hard floor and must be starved")
	}

	// No in-window sources at all.
	var noWindow []model.SourceRecord
	for i := 0; i < 6; i++ {
		noWindow = append(noWindow, source(fmt.Sprintf("d%d.com", i), model.RoleCore, model.TierContext, true))
	}
	if Classify(Compute(noWindow, cfg), cfg) != model.RegimeStarved {
		t.Error("zero in-window sources must be starved")
	}

	// No background sources while total is under the soft minimum.
	var noBackground []model.SourceRecord
	for i := 0; i < 4; i++ {
		noBackground = append(noBackground, source(fmt.Sprintf("e%d.com", i), model.RoleCore, model.TierCore, true))
	}
	if Classify(Compute(noBackground, cfg), cfg) != model.RegimeStarved {
		t.Error("no background sources with a thin total must be starved")
	}
}

func TestClassify_DirectionalWhenNoCore(t *testing.T) {
	cfg := model.DefaultConfig().Stats
	var sources []model.SourceRecord
	for i := 0; i < 6; i++ {
		tier := model.TierCore
		if i%2 == 0 {
			tier = model.TierContext
		}
		sources = append(sources, source(fmt.Sprintf("s%d.com", i), model.RoleSupport, tier, true))
	}
	if Classify(Compute(sources, cfg), cfg) != model.RegimeDirectional {
		t.Error("zero core sources must be directional")
	}
}
