package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/evigate/internal/annotate"
	"github.com/ppiankov/evigate/internal/cache"
	"github.com/ppiankov/evigate/internal/gate"
	"github.com/ppiankov/evigate/internal/harvest"
	"github.com/ppiankov/evigate/internal/ledger"
	"github.com/ppiankov/evigate/internal/llm"
	"github.com/ppiankov/evigate/internal/model"
	"github.com/ppiankov/evigate/internal/quant"
	"github.com/ppiankov/evigate/internal/score"
	"github.com/ppiankov/evigate/internal/search"
	"github.com/ppiankov/evigate/internal/stats"
	"github.com/ppiankov/evigate/internal/validate"
)

// ErrInsufficientEvidence marks a starved-regime run. No bundle is produced.
var ErrInsufficientEvidence = errors.New("insufficient evidence")

// Request describes one pipeline run.
type Request struct {
	Topic    string
	DaysBack int
	Intent   string // score.IntentMarket or score.IntentTheory
}

// Pipeline runs one topic end to end: harvest, regime classification, signal
// gating, quantitative guard, evidence alignment, and confidence scoring.
type Pipeline struct {
	cfg       *model.Config
	provider  llm.Provider
	harvester *harvest.Harvester
	gate      *gate.Gate
	aligner   *ledger.Aligner
	scorer    *score.Scorer
}

// New wires a pipeline from configuration. A missing content-generation
// provider disables signal extraction but still produces source statistics.
func New(cfg *model.Config) (*Pipeline, error) {
	var store cache.Cache
	if cfg.Cache.Enabled {
		dir := cfg.Cache.Dir
		if dir == "" {
			home, err := os.UserHomeDir()
			if err == nil {
				dir = filepath.Join(home, ".evigate", "cache")
			}
		}
		if dir != "" {
			store = cache.NewLayeredCache(cfg.Cache.MemoryTTL, dir, cfg.Cache.DiskTTL)
		}
	}

	searcher := search.NewClient(cfg.Search, cfg.HTTP, store)
	fetcher := NewFetcher(cfg.HTTP)
	annotator := annotate.NewAnnotator(cfg.Annotate)

	var health harvest.HealthRepo
	if cfg.Harvest.HealthPath != "" {
		health = harvest.NewFileHealthRepo(cfg.Harvest.HealthPath)
	} else {
		health = harvest.NewMemoryHealthRepo()
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM, cfg.HTTP))
	if err != nil {
		return nil, fmt.Errorf("configure LLM provider: %w", err)
	}

	var biblio ledger.Biblio
	if cfg.Ledger.BiblioBaseURL != "" {
		biblio = ledger.NewCrossrefClient(cfg.Ledger.BiblioBaseURL, cfg.HTTP.Timeout)
	}

	return &Pipeline{
		cfg:       cfg,
		provider:  provider,
		harvester: harvest.NewHarvester(cfg.Harvest, cfg.Stats, annotator, searcher, fetcher, health, cfg.Concurrency.AxisWorkers),
		gate:      gate.NewGate(cfg.Gate),
		aligner:   ledger.NewAligner(cfg.Ledger, searcher, biblio, provider, cfg.Concurrency.ClaimWorkers),
		scorer:    score.NewScorer(cfg.Confidence),
	}, nil
}

// Run executes one request. A starved evidence regime returns
// ErrInsufficientEvidence; every other degradation is absorbed into the
// bundle (lower confidence, appendix signals, violation lists).
func (p *Pipeline) Run(ctx context.Context, req Request) (*model.Bundle, error) {
	if strings.TrimSpace(req.Topic) == "" {
		return nil, fmt.Errorf("topic is required")
	}
	if req.Intent == "" {
		req.Intent = score.IntentMarket
	}

	harvested, err := p.harvester.Harvest(ctx, req.Topic, req.DaysBack)
	if err != nil {
		return nil, fmt.Errorf("harvest: %w", err)
	}

	regime := stats.Classify(harvested.Stats, p.cfg.Stats)
	if regime == model.RegimeStarved {
		return nil, fmt.Errorf("%w: %d sources in a %d-day window cannot support a report",
			ErrInsufficientEvidence, harvested.Stats.Total, harvested.WindowDays)
	}

	signals := p.extractSignals(ctx, req.Topic, harvested.Sources)
	gated := p.gate.Apply(signals, harvested.Sources)
	kept := model.Kept(gated)

	quantBlock, violations := p.buildQuantBlock(ctx, req.Topic, kept, harvested.Sources)

	claims := make([]ledger.Claim, 0, len(kept))
	for _, sig := range kept {
		text := sig.Description
		if text == "" {
			text = sig.Name
		}
		claims = append(claims, ledger.Claim{ID: sig.ID, Text: text})
	}
	evidenceLedger := p.aligner.Align(ctx, claims, harvested.Sources)

	breakdown := p.breakdown(kept, harvested.Sources, evidenceLedger)
	confidence := p.scorer.Finalize(score.Inputs{
		Breakdown:      breakdown,
		Regime:         regime,
		Intent:         req.Intent,
		AnchorCoverage: evidenceLedger.AnchorCoverageStrict,
		SourceCount:    harvested.Stats.Total,
		VendorHeavy:    vendorHeavy(harvested.Sources),
	})

	quantFlags := 0
	if quantBlock != nil && quantBlock.Patch != nil {
		quantFlags = len(quantBlock.Patch.Warnings)
	}
	voi := p.scorer.ValueOfInformation(score.VOIMetrics{
		AnchorCoverage: evidenceLedger.AnchorCoverageAny,
		QuantFlags:     quantFlags,
		Confidence:     confidence.Score,
	}, req.Intent)

	return &model.Bundle{
		Topic:       req.Topic,
		Window:      fmt.Sprintf("%dd", harvested.WindowDays),
		GeneratedAt: time.Now(),
		Sources:     harvested.Sources,
		SourceStats: harvested.Stats,
		Regime:      regime,
		Signals:     kept,
		Appendix:    model.Appendix(gated),
		Ledger:      evidenceLedger,
		Confidence:  confidence,
		Quant:       quantBlock,
		Violations:  violations,
		VOITasks:    voi,
	}, nil
}

// signalsResponse is the structured shape requested for signal extraction.
type signalsResponse struct {
	Signals []model.Signal `json:"signals"`
}

// extractSignals asks the provider for candidate signals. Without a provider,
// or on any generation/parse failure, it returns an empty list; the run then
// reports sources and statistics only.
func (p *Pipeline) extractSignals(ctx context.Context, topic string, sources []model.SourceRecord) []model.Signal {
	if p.provider == nil || len(sources) == 0 {
		return nil
	}

	resp, err := p.provider.Generate(ctx, llm.GenerateRequest{
		System: "You extract evidence-backed signals from sources. Cite only the numbered sources provided. Return a single JSON object.",
		Prompt: buildSignalsPrompt(topic, sources),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: signal extraction failed: %v\n", err)
		return nil
	}

	var parsed signalsResponse
	if err := llm.DecodeJSON(resp.Text, &parsed); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: signal extraction returned no parseable JSON: %v\n", err)
		return nil
	}

	for i := range parsed.Signals {
		parsed.Signals[i].Status = model.StatusRaw
		parsed.Signals[i].DemotionReason = model.ReasonNone
		if parsed.Signals[i].ID == "" {
			parsed.Signals[i].ID = fmt.Sprintf("sig-%d", i+1)
		}
	}
	return parsed.Signals
}

func buildSignalsPrompt(topic string, sources []model.SourceRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n\nSources:\n", topic)
	for _, src := range sources {
		excerpt := src.Content
		if excerpt == "" {
			excerpt = src.Snippet
		}
		if len(excerpt) > 500 {
			excerpt = excerpt[:500]
		}
		fmt.Fprintf(&b, "[%d] %s — %s (%s, grade %s)\n%s\n\n", src.ID, src.Title, src.Publisher, src.URL, src.Grade, excerpt)
	}
	b.WriteString(`Extract up to 8 signals. Return JSON: {"signals": [{"id": "sig-1", "category": "", "name": "", "description": "", "support": [1, 2], "strength": 0.0, "us_fit": 0.0, "on_spine": true, "quant_support": "", "time_horizon": ""}]}. support lists the source numbers that directly back the signal.`)
	return b.String()
}

// buildQuantBlock asks the provider for the quantitative anchors and
// measurement plan, lints the payload, and runs the math guard over its
// parameters. Violations are reported, never repaired.
func (p *Pipeline) buildQuantBlock(ctx context.Context, topic string, kept []model.Signal, sources []model.SourceRecord) (*model.QuantBlock, []string) {
	if p.provider == nil || len(kept) == 0 {
		return nil, nil
	}

	resp, err := p.provider.Generate(ctx, llm.GenerateRequest{
		System: "You draft quantitative anchors and a measurement plan for vetted signals. Return a single JSON object.",
		Prompt: buildQuantPrompt(topic, kept, sources),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: quant block generation failed: %v\n", err)
		return nil, nil
	}

	var payload map[string]interface{}
	if err := llm.DecodeJSON(resp.Text, &payload); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: quant block returned no parseable JSON: %v\n", err)
		return nil, nil
	}

	violations := validate.LintQuantBlocks(payload)
	block := &model.QuantBlock{}
	if hook, ok := payload["spine_hook"].(string); ok {
		block.SpineHook = hook
	}
	block.Anchors = objectList(payload["anchors"])
	block.MeasurementPlan = objectList(payload["measurement_plan"])
	if coverage, ok := payload["coverage"].(float64); ok {
		block.Coverage = coverage
	}

	if params, ok := payload["params"].(map[string]interface{}); ok {
		patch := quant.SuggestPatch(params, 24)
		block.Patch = &patch
	} else if warnings := quant.Sanity(flattenAnchorParams(block.Anchors)); len(warnings) > 0 {
		block.Patch = &model.QuantPatch{Warnings: warnings}
	}

	return block, violations
}

func buildQuantPrompt(topic string, kept []model.Signal, sources []model.SourceRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n\nVetted signals:\n", topic)
	for _, sig := range kept {
		fmt.Fprintf(&b, "- %s: %s (support: %v)\n", sig.ID, sig.Name, sig.Support)
	}
	b.WriteString("\nSource ids available: ")
	for i, src := range sources {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d", src.ID)
	}
	b.WriteString(`

Return JSON with keys spine_hook (string), coverage (0..1), anchors (<=4 objects with id, headline, topic, value_low, value_high, unit, status in observed|target, band in base|stretch, owner, expression, source_ids, applies_to_signals), and measurement_plan (<=4 objects with id, metric, expression, owner, timeframe, status in plan|observed|target, why_it_matters). Human-facing text must read as plain English.`)
	return b.String()
}

func objectList(v interface{}) []map[string]interface{} {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]map[string]interface{}, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]interface{}); ok {
			out = append(out, obj)
		}
	}
	return out
}

// flattenAnchorParams pulls numeric fields out of anchors so the sanity
// checker can vet probability-like values.
func flattenAnchorParams(anchors []map[string]interface{}) map[string]interface{} {
	params := map[string]interface{}{}
	for _, anchor := range anchors {
		for key, value := range anchor {
			if _, isNum := value.(float64); !isNum {
				continue
			}
			lower := strings.ToLower(key)
			if strings.HasPrefix(lower, "p_") || strings.HasPrefix(lower, "prob") ||
				strings.HasPrefix(lower, "tpr") || strings.HasPrefix(lower, "fpr") ||
				strings.HasPrefix(lower, "base_rate") || lower == "mu" {
				params[key] = value
			}
		}
	}
	return params
}

// breakdown derives the confidence sub-scores from the gated signals, the
// source set, and the evidence ledger.
func (p *Pipeline) breakdown(kept []model.Signal, sources []model.SourceRecord, led *model.Ledger) model.ConfidenceBreakdown {
	byID := make(map[int]model.SourceRecord, len(sources))
	for _, s := range sources {
		byID[s.ID] = s
	}

	avgStrength := 0.0
	quantBacked := 0
	for _, sig := range kept {
		avgStrength += sig.Strength
		for _, id := range sig.Support {
			if s, ok := byID[id]; ok && (s.Evidence.Numeric || s.Evidence.SampleSize != "") {
				quantBacked++
				break
			}
		}
	}
	quantSupport := 0.0
	if len(kept) > 0 {
		avgStrength /= float64(len(kept))
		quantSupport = float64(quantBacked) / float64(len(kept))
	}

	// Contradiction penalty is a positive sub-score: 1 with no overreach.
	penalty := 1.0
	if led != nil && len(led.Claims) > 0 {
		overreached := 0
		for _, claim := range led.Claims {
			if claim.Overreach {
				overreached++
			}
		}
		penalty = 1 - float64(overreached)/float64(len(led.Claims))
	}

	coverage := 0.0
	if led != nil {
		coverage = led.AnchorCoverageAny
	}

	return model.ConfidenceBreakdown{
		AverageStrength:      avgStrength,
		Coverage:             coverage,
		QuantSupport:         quantSupport,
		ContradictionPenalty: penalty,
	}
}

func vendorHeavy(sources []model.SourceRecord) bool {
	if len(sources) == 0 {
		return false
	}
	vendor := 0
	for _, s := range sources {
		if s.SourceType == "vendor_asserted" {
			vendor++
		}
	}
	return float64(vendor)/float64(len(sources)) > 0.5
}

// MarshalBundle renders a bundle as indented JSON.
func MarshalBundle(b *model.Bundle) ([]byte, error) {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal bundle: %w", err)
	}
	return data, nil
}
