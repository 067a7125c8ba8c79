package harvest

import (
	"sort"
	"strings"

	"github.com/ppiankov/evigate/internal/model"
)

// TemplatesFor picks the axis set whose keywords match the topic, falling
// back to the generic templates.
func TemplatesFor(topic string, cfg model.HarvestConfig) []string {
	lower := strings.ToLower(topic)
	for _, set := range cfg.AxisSets {
		for _, keyword := range set.Keywords {
			if strings.Contains(lower, keyword) {
				return set.Templates
			}
		}
	}
	return cfg.DefaultTemplates
}

// RankAxes orders templates by historical hit ratio and splits off a fallback
// tier. Templates with enough history and a low ratio are demoted to the
// fallback tier, tried only when the primary tier under-delivers.
func RankAxes(templates []string, health map[string]AxisHealth, cfg model.HarvestConfig) (primary, fallback []string) {
	defaultRatio := cfg.HealthDefaultRatio
	if defaultRatio == 0 {
		defaultRatio = 0.5
	}
	minRuns := cfg.HealthMinRuns
	if minRuns == 0 {
		minRuns = 5
	}

	type ranked struct {
		template string
		ratio    float64
		pos      int
	}

	var keep, demoted []ranked
	for i, template := range templates {
		h := health[template]
		r := ranked{template: template, ratio: h.Ratio(defaultRatio), pos: i}
		if h.Runs >= minRuns && r.ratio < cfg.HealthLowRatio {
			demoted = append(demoted, r)
		} else {
			keep = append(keep, r)
		}
	}

	byRatio := func(list []ranked) func(i, j int) bool {
		return func(i, j int) bool {
			if list[i].ratio != list[j].ratio {
				return list[i].ratio > list[j].ratio
			}
			return list[i].pos < list[j].pos
		}
	}
	sort.SliceStable(keep, byRatio(keep))
	sort.SliceStable(demoted, byRatio(demoted))

	for _, r := range keep {
		primary = append(primary, r.template)
	}
	for _, r := range demoted {
		fallback = append(fallback, r.template)
	}
	return primary, fallback
}
