package harvest

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/evigate/internal/annotate"
	"github.com/ppiankov/evigate/internal/model"
	"github.com/ppiankov/evigate/internal/search"
	"github.com/ppiankov/evigate/internal/stats"
	"github.com/ppiankov/evigate/internal/worker"
)

// Searcher is the slice of the search client the harvester needs.
type Searcher interface {
	Search(ctx context.Context, req search.Request) ([]search.Result, error)
}

// Fetcher retrieves full page text when a search snippet is too short to
// score. May be nil; harvesting then scores snippets as-is.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// Result is one completed harvest.
type Result struct {
	Sources    []model.SourceRecord
	Stats      model.SourceStats
	WindowDays int // Final window after any widening
	Rescued    bool
}

// Harvester orchestrates retrieval: it fans ranked query templates ("axes")
// out against the search collaborator, ingests and annotates results,
// widens the time window when evidence is thin, and runs a diversity rescue
// pass when one domain dominates.
type Harvester struct {
	cfg       model.HarvestConfig
	statsCfg  model.StatsConfig
	annotator *annotate.Annotator
	searcher  Searcher
	fetcher   Fetcher
	health    HealthRepo
	workers   int
	now       func() time.Time
}

// NewHarvester creates a harvester. fetcher may be nil.
func NewHarvester(cfg model.HarvestConfig, statsCfg model.StatsConfig, annotator *annotate.Annotator, searcher Searcher, fetcher Fetcher, health HealthRepo, workers int) *Harvester {
	if health == nil {
		health = NewMemoryHealthRepo()
	}
	if workers <= 0 {
		workers = 1
	}
	return &Harvester{
		cfg:       cfg,
		statsCfg:  statsCfg,
		annotator: annotator,
		searcher:  searcher,
		fetcher:   fetcher,
		health:    health,
		workers:   workers,
		now:       time.Now,
	}
}

type axisOutcome struct {
	template string
	results  []search.Result
	err      error
}

// Harvest collects, annotates, and truncates sources for one topic. A failed
// axis logs and contributes zero results; only a total inability to reach
// the search collaborator surfaces as an error.
func (h *Harvester) Harvest(ctx context.Context, topic string, daysBack int) (*Result, error) {
	if daysBack <= 0 {
		daysBack = h.cfg.DefaultDaysBack
	}
	if daysBack <= 0 {
		daysBack = 7
	}

	health, err := h.health.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load axis health: %v\n", err)
		health = map[string]AxisHealth{}
	}
	primary, fallback := RankAxes(h.axisTemplates(topic), health, h.cfg)
	delta := map[string]AxisHealth{}

	now := h.now()
	scope := annotate.Scope{
		Topic:       topic,
		WindowDays:  daysBack,
		WindowStart: now.AddDate(0, 0, -daysBack),
		WindowEnd:   now,
		Now:         now,
	}

	state := &ingestState{seen: map[string]struct{}{}, max: h.cfg.MaxSources}
	finalWindow := daysBack
	for _, windowDays := range h.widenPlan(daysBack) {
		finalWindow = windowDays
		h.runAxes(ctx, topic, primary, windowDays, scope, state, delta)
		if len(state.sources) < h.cfg.SoftFloor && len(fallback) > 0 {
			h.runAxes(ctx, topic, fallback, windowDays, scope, state, delta)
		}
		if len(state.sources) >= h.cfg.SoftFloor || state.full() || ctx.Err() != nil {
			break
		}
	}

	rescued := false
	st := stats.Compute(state.sources, h.statsCfg)
	if ctx.Err() == nil && h.needsRescue(st) {
		rescued = h.rescue(ctx, topic, st.DominantDomain, windowRange(finalWindow), scope, state, delta)
	}

	sources := state.sources
	if h.cfg.MaxSources > 0 && len(sources) > h.cfg.MaxSources {
		sources = sources[:h.cfg.MaxSources]
	}
	for i := range sources {
		sources[i].ID = i + 1
	}

	if err := h.health.MergeAndSave(delta); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to persist axis health: %v\n", err)
	}

	return &Result{
		Sources:    sources,
		Stats:      stats.Compute(sources, h.statsCfg),
		WindowDays: finalWindow,
		Rescued:    rescued,
	}, nil
}

// runAxes queries one tier of templates on the worker pool and ingests the
// merged results in axis-rank order, so dedup and id assignment stay
// reproducible regardless of completion order.
func (h *Harvester) runAxes(ctx context.Context, topic string, templates []string, windowDays int, scope annotate.Scope, state *ingestState, delta map[string]AxisHealth) {
	if len(templates) == 0 || state.full() {
		return
	}

	timeRange := windowRange(windowDays)
	tasks := make([]worker.Task[axisOutcome], len(templates))
	for i, template := range templates {
		template := template
		tasks[i] = func(ctx context.Context) axisOutcome {
			results, err := h.searcher.Search(ctx, search.Request{
				Query:      renderTemplate(template, topic, ""),
				TimeRange:  timeRange,
				Categories: []string{"news"},
			})
			return axisOutcome{template: template, results: results, err: err}
		}
	}

	for _, outcome := range worker.Map(ctx, h.workers, tasks) {
		if outcome.template == "" {
			continue // cancelled before this axis ran
		}
		d := delta[outcome.template]
		d.Runs++
		if outcome.err != nil {
			fmt.Fprintf(os.Stderr, "Warning: axis %q failed: %v\n", outcome.template, outcome.err)
			delta[outcome.template] = d
			continue
		}
		accepted := h.ingest(ctx, outcome.results, windowDays, scope, state, "")
		if accepted > 0 {
			d.Hits++
		}
		delta[outcome.template] = d
	}
}

// rescue runs the diversity probes sequentially, excluding the dominant
// domain, until the probe budget runs out.
func (h *Harvester) rescue(ctx context.Context, topic, dominant, timeRange string, scope annotate.Scope, state *ingestState, delta map[string]AxisHealth) bool {
	budget := h.cfg.RescueMaxQueries
	if budget <= 0 {
		budget = 3
	}

	ran := false
	for _, probe := range h.cfg.DiversityProbes {
		if budget == 0 || state.full() || ctx.Err() != nil {
			break
		}
		budget--
		ran = true

		query := renderTemplate(probe, topic, dominant)
		results, err := h.searcher.Search(ctx, search.Request{
			Query:      query,
			TimeRange:  timeRange,
			Categories: []string{"news", "general"},
		})
		d := delta[probe]
		d.Runs++
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: diversity probe %q failed: %v\n", probe, err)
			delta[probe] = d
			continue
		}
		if h.ingest(ctx, results, 0, scope, state, dominant) > 0 {
			d.Hits++
		}
		delta[probe] = d
	}
	return ran
}

// ingest filters, fetches, and annotates results. windowDays bounds the
// acceptable publication window (0 disables the date check, used by rescue
// probes that already ran with a time_range). Returns the acceptance count.
func (h *Harvester) ingest(ctx context.Context, results []search.Result, windowDays int, scope annotate.Scope, state *ingestState, excludeHost string) int {
	accepted := 0
	now := scope.Now
	for _, r := range results {
		if state.full() {
			break
		}
		key := normalizeURL(r.URL)
		if key == "" {
			continue
		}
		if _, dup := state.seen[key]; dup {
			continue
		}
		if excludeHost != "" && hostMatches(r.URL, excludeHost) {
			continue
		}
		if windowDays > 0 && r.HasDate {
			cutoff := now.AddDate(0, 0, -windowDays)
			if r.Published.Before(cutoff) || r.Published.After(now) {
				continue
			}
		}

		content := ""
		if h.fetcher != nil && len(r.Content) < h.cfg.SnippetMinChars {
			fetched, err := h.fetcher.Fetch(ctx, r.URL)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: fetch %s failed: %v\n", r.URL, err)
			} else {
				content = fetched
			}
		}

		record := h.annotator.Annotate(annotate.Input{
			Title:     r.Title,
			URL:       r.URL,
			Snippet:   r.Content,
			Content:   content,
			Published: r.Published,
			HasDate:   r.HasDate,
		}, scope)

		state.seen[key] = struct{}{}
		state.sources = append(state.sources, record)
		accepted++
	}
	return accepted
}

// axisTemplates picks the axis set whose keywords match the topic, falling
// back to the generic templates.
func (h *Harvester) axisTemplates(topic string) []string {
	return TemplatesFor(topic, h.cfg)
}

// widenPlan returns the window tiers to try, starting at the requested
// window and widening day->week->month->year, bounded by MaxDaysBack.
func (h *Harvester) widenPlan(daysBack int) []int {
	plan := []int{daysBack}
	for _, tier := range []int{7, 31, 365} {
		if tier <= daysBack {
			continue
		}
		if h.cfg.MaxDaysBack > 0 && tier > h.cfg.MaxDaysBack {
			break
		}
		plan = append(plan, tier)
	}
	return plan
}

func (h *Harvester) needsRescue(st model.SourceStats) bool {
	if st.Total == 0 {
		return false
	}
	if st.DominantRatio > h.statsCfg.MaxDomainRatio {
		return true
	}
	return st.Core == 0 || st.DataHeavy < h.statsCfg.MinDataHeavy
}

type ingestState struct {
	sources []model.SourceRecord
	seen    map[string]struct{}
	max     int
}

func (s *ingestState) full() bool {
	return s.max > 0 && len(s.sources) >= s.max
}

func windowRange(days int) string {
	switch {
	case days <= 1:
		return "day"
	case days <= 7:
		return "week"
	case days <= 31:
		return "month"
	default:
		return "year"
	}
}

func renderTemplate(template, topic, dominant string) string {
	out := strings.ReplaceAll(template, "{query}", topic)
	return strings.ReplaceAll(out, "{dominant}", dominant)
}

func normalizeURL(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Host == "" {
		return strings.ToLower(strings.TrimSuffix(raw, "/"))
	}
	host := strings.ToLower(strings.TrimPrefix(parsed.Host, "www."))
	return host + strings.TrimSuffix(parsed.Path, "/")
}

func hostMatches(rawURL, host string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	got := strings.ToLower(strings.TrimPrefix(parsed.Hostname(), "www."))
	return got == host || strings.HasSuffix(got, "."+host)
}
