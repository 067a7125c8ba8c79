package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/evigate/internal/annotate"
	"github.com/ppiankov/evigate/internal/gate"
	"github.com/ppiankov/evigate/internal/harvest"
	"github.com/ppiankov/evigate/internal/ledger"
	"github.com/ppiankov/evigate/internal/llm"
	"github.com/ppiankov/evigate/internal/model"
	"github.com/ppiankov/evigate/internal/score"
	"github.com/ppiankov/evigate/internal/search"
)

type scriptedProvider struct {
	responses []string
	calls     int
}

func (p *scriptedProvider) Name() string                         { return "scripted" }
func (p *scriptedProvider) IsAvailable(ctx context.Context) bool { return true }
func (p *scriptedProvider) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	if p.calls >= len(p.responses) {
		return nil, errors.New("script exhausted")
	}
	text := p.responses[p.calls]
	p.calls++
	return &llm.GenerateResponse{Text: text, Model: "scripted"}, nil
}

type stubSearcher struct {
	results []search.Result
}

func (s *stubSearcher) Search(ctx context.Context, req search.Request) ([]search.Result, error) {
	return s.results, nil
}

func richResults() []search.Result {
	hosts := []string{"reuters.com", "ft.com", "apnews.com", "wsj.com", "bloomberg.com", "axios.com"}
	out := make([]search.Result, len(hosts))
	for i, host := range hosts {
		out[i] = search.Result{
			URL:       "https://" + host + "/story",
			Title:     "Adoption coverage from " + host,
			Content:   "In the United States, 62% of 1200 surveyed firms report adoption, n=400.",
			Published: time.Now().Add(-24 * time.Hour),
			HasDate:   true,
		}
	}
	return out
}

func testConfig() *model.Config {
	cfg := model.DefaultConfig()
	cfg.Stats.MinUniqueDomains = 4
	cfg.Gate.RequireCoreSupport = false
	cfg.Gate.RequireQuantTop = false
	return cfg
}

func newTestPipeline(cfg *model.Config, searcher harvest.Searcher, provider llm.Provider) *Pipeline {
	annotator := annotate.NewAnnotator(cfg.Annotate)
	var ledgerSearcher ledger.Searcher
	return &Pipeline{
		cfg:       cfg,
		provider:  provider,
		harvester: harvest.NewHarvester(cfg.Harvest, cfg.Stats, annotator, searcher, nil, harvest.NewMemoryHealthRepo(), 2),
		gate:      gate.NewGate(cfg.Gate),
		aligner:   ledger.NewAligner(cfg.Ledger, ledgerSearcher, nil, nil, 1),
		scorer:    score.NewScorer(cfg.Confidence),
	}
}

func TestRun_StarvedRegimeIsFatal(t *testing.T) {
	p := newTestPipeline(testConfig(), &stubSearcher{}, nil)

	_, err := p.Run(context.Background(), Request{Topic: "enterprise ai"})
	if !errors.Is(err, ErrInsufficientEvidence) {
		t.Fatalf("expected ErrInsufficientEvidence, got %v", err)
	}
}

func TestRun_WithoutProviderReportsSourcesOnly(t *testing.T) {
	p := newTestPipeline(testConfig(), &stubSearcher{results: richResults()}, nil)

	bundle, err := p.Run(context.Background(), Request{Topic: "enterprise ai"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(bundle.Sources) == 0 {
		t.Fatal("expected harvested sources")
	}
	if len(bundle.Signals) != 0 || bundle.Quant != nil {
		t.Error("no provider should mean no signals and no quant block")
	}
	if bundle.Regime == model.RegimeStarved {
		t.Error("rich source set should not be starved")
	}
}

func TestRun_EndToEnd(t *testing.T) {
	signalsJSON := `{"signals": [
		{"id": "sig-1", "name": "Adoption is accelerating", "description": "Most firms now report production use.",
		 "support": [1, 2], "strength": 0.7, "us_fit": 0.6, "on_spine": true},
		{"id": "sig-2", "name": "Weak aside", "support": [], "strength": 0.9, "on_spine": true}
	]}`
	quantJSON := `{"spine_hook": "Adoption passed the halfway mark this year.", "coverage": 0.8,
		"anchors": [{"id": "a1", "headline": "Majority adoption", "topic": "Enterprise adoption", "value_low": 55,
			"value_high": 70, "unit": "percent", "status": "observed", "band": "base", "owner": "Research",
			"expression": "Share of surveyed firms in production", "source_ids": [1, 2], "applies_to_signals": ["sig-1"]}],
		"measurement_plan": [{"id": "m1", "metric": "Adoption share", "expression": "Quarterly survey share",
			"owner": "Research", "timeframe": "Q4", "status": "plan", "why_it_matters": "Tracks the headline trend."}]}`
	provider := &scriptedProvider{responses: []string{signalsJSON, quantJSON}}

	p := newTestPipeline(testConfig(), &stubSearcher{results: richResults()}, provider)

	bundle, err := p.Run(context.Background(), Request{Topic: "enterprise ai"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(bundle.Signals)+len(bundle.Appendix) != 2 {
		t.Errorf("kept+appendix must cover all extracted signals, got %d+%d",
			len(bundle.Signals), len(bundle.Appendix))
	}
	if len(bundle.Signals) != 1 || bundle.Signals[0].ID != "sig-1" {
		t.Errorf("expected sig-1 kept, got %+v", bundle.Signals)
	}
	if len(bundle.Appendix) != 1 || bundle.Appendix[0].DemotionReason != model.ReasonInsufficientSupport {
		t.Errorf("unsupported signal should land in the appendix, got %+v", bundle.Appendix)
	}

	if bundle.Quant == nil {
		t.Fatal("expected a quant block")
	}
	if len(bundle.Violations) != 0 {
		t.Errorf("well-formed payload should pass the contract lint, got %v", bundle.Violations)
	}

	if bundle.Ledger == nil || len(bundle.Ledger.Claims) != 1 {
		t.Fatalf("expected one ledger claim per kept signal, got %+v", bundle.Ledger)
	}
	if bundle.Ledger.AnchorCoverageStrict > bundle.Ledger.AnchorCoverageAny {
		t.Error("strict coverage must not exceed any coverage")
	}

	if bundle.Confidence.Score < 0.30 || bundle.Confidence.Score > 0.85 {
		t.Errorf("confidence outside calibration bounds: %v", bundle.Confidence.Score)
	}
	if bundle.Confidence.Band == "" || bundle.Confidence.Display == "" {
		t.Error("confidence band and display must be set")
	}
}

func TestRun_MalformedQuantPayloadSurfacesViolations(t *testing.T) {
	signalsJSON := `{"signals": [{"id": "sig-1", "name": "Kept", "description": "d",
		"support": [1, 2], "strength": 0.7, "us_fit": 0.6, "on_spine": true}]}`
	quantJSON := `{"spine_hook": "uses_snake_case_leak", "coverage": 2.5, "anchors": [], "measurement_plan": []}`
	provider := &scriptedProvider{responses: []string{signalsJSON, quantJSON}}

	p := newTestPipeline(testConfig(), &stubSearcher{results: richResults()}, provider)

	bundle, err := p.Run(context.Background(), Request{Topic: "enterprise ai"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(bundle.Violations) == 0 {
		t.Error("out-of-range coverage and snake_case leak should be reported")
	}
	if bundle.Quant == nil {
		t.Error("violations are reported, not repaired; the block still ships")
	}
}

func TestRun_TheoryIntentCapsConfidence(t *testing.T) {
	signalsJSON := `{"signals": [{"id": "sig-1", "name": "Kept", "description": "d",
		"support": [1, 2], "strength": 0.95, "us_fit": 0.9, "on_spine": true}]}`
	provider := &scriptedProvider{responses: []string{signalsJSON, `{}`}}

	p := newTestPipeline(testConfig(), &stubSearcher{results: richResults()}, provider)

	bundle, err := p.Run(context.Background(), Request{Topic: "enterprise ai", Intent: score.IntentTheory})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if bundle.Confidence.Score > 0.60 {
		t.Errorf("theory intent must cap confidence at 0.60, got %v", bundle.Confidence.Score)
	}
	found := false
	for _, task := range bundle.VOITasks {
		if task == "decision_playbooks" {
			found = true
		}
	}
	if !found {
		t.Errorf("theory runs should recommend decision playbooks, got %v", bundle.VOITasks)
	}
}

func TestRenderMarkdown(t *testing.T) {
	bundle := &model.Bundle{
		Topic:  "enterprise ai",
		Window: "7d",
		Regime: model.RegimeHealthy,
		Confidence: model.Confidence{
			Score: 0.62, Display: "62% (moderate)", Band: "moderate",
		},
		SourceStats: model.SourceStats{Total: 6, Core: 2, UniqueDomains: 5},
		Signals: []model.Signal{
			{ID: "sig-1", Name: "Adoption is accelerating", Description: "desc", Strength: 0.7,
				Grade: model.GradeA, Support: []int{1, 2}, Status: model.StatusKept},
		},
		Appendix: []model.Signal{
			{ID: "sig-2", Name: "Weak aside", Status: model.StatusDemoted, DemotionReason: model.ReasonInsufficientSupport},
		},
		Sources: []model.SourceRecord{
			{ID: 1, Title: "Reuters piece", URL: "https://reuters.com/a", Publisher: "Reuters",
				Grade: model.GradeA, Role: model.RoleCore, Tier: model.TierCore},
		},
	}

	md := RenderMarkdown(bundle, false)
	for _, want := range []string{
		"# Evidence digest: enterprise ai",
		"62% (moderate)",
		"Adoption is accelerating",
		"insufficient_support",
		"[Reuters piece](https://reuters.com/a)",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("digest missing %q", want)
		}
	}
}
