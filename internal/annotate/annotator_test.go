package annotate

import (
	"testing"
	"time"

	"github.com/ppiankov/evigate/internal/model"
)

func testScope() Scope {
	now := time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC)
	return Scope{
		Topic:       "AI data center buildout",
		WindowDays:  7,
		WindowStart: now.AddDate(0, 0, -7),
		WindowEnd:   now,
		Now:         now,
	}
}

func newTestAnnotator() *Annotator {
	return NewAnnotator(model.DefaultConfig().Annotate)
}

func TestAnnotate_GradeAndRole(t *testing.T) {
	a := newTestAnnotator()
	scope := testScope()

	rec := a.Annotate(Input{
		Title:     "US data center spending hit $5000 million this quarter",
		URL:       "https://www.reuters.com/technology/datacenters",
		Snippet:   "American hyperscalers expanded capacity across Texas and California, a survey of n=400 operators shows.",
		Published: scope.Now.AddDate(0, 0, -2),
		HasDate:   true,
	}, scope)

	if rec.Grade != model.GradeA {
		t.Errorf("reuters should grade A, got %s", rec.Grade)
	}
	if rec.Role != model.RoleCore {
		t.Errorf("high-quality graded source should be core, got %s (quality %.2f, fit %.2f)", rec.Role, rec.Quality, rec.USFit)
	}
	if rec.Tier != model.TierCore {
		t.Errorf("in-window source should be tier core, got %s", rec.Tier)
	}
	if !rec.Evidence.Numeric {
		t.Error("4-digit dollar figure should mark evidence numeric")
	}
	if rec.Evidence.SampleSize != "400" {
		t.Errorf("sample size: want 400 got %q", rec.Evidence.SampleSize)
	}
	if rec.Publisher != "Reuters" {
		t.Errorf("publisher: want Reuters got %q", rec.Publisher)
	}
}

func TestAnnotate_BlocklistForcesD(t *testing.T) {
	a := newTestAnnotator()
	rec := a.Annotate(Input{
		Title:   "Great new product",
		URL:     "https://news.example.com/sponsored/widget-launch",
		Snippet: "Sponsored content about widgets",
		HasDate: false,
	}, testScope())

	if rec.Grade != model.GradeD {
		t.Errorf("blocklisted URL must grade D, got %s", rec.Grade)
	}
	if rec.SourceType != "aggregator" {
		t.Errorf("blocklisted URL must be aggregator, got %s", rec.SourceType)
	}
	if rec.Authority > 0.45 {
		t.Errorf("aggregator authority must be capped at 0.45, got %f", rec.Authority)
	}
	if rec.Role == model.RoleCore {
		t.Error("grade D source can never be core")
	}
}

func TestAnnotate_Recency(t *testing.T) {
	a := newTestAnnotator()
	scope := testScope()

	fresh := a.Annotate(Input{
		URL: "https://example.com/a", Published: scope.Now, HasDate: true,
	}, scope)
	stale := a.Annotate(Input{
		URL: "https://example.com/b", Published: scope.Now.AddDate(0, 0, -30), HasDate: true,
	}, scope)

	if fresh.Recency < 0.99 {
		t.Errorf("same-day source should have recency ~1, got %f", fresh.Recency)
	}
	if stale.Recency != 0 {
		t.Errorf("source far outside window should have recency 0, got %f", stale.Recency)
	}
	if stale.Tier != model.TierContext {
		t.Errorf("out-of-window source should be tier context, got %s", stale.Tier)
	}
}

func TestAnnotate_USFit(t *testing.T) {
	a := newTestAnnotator()
	scope := testScope()

	domestic := a.Annotate(Input{
		URL:     "https://example.com/us",
		Snippet: "Federal regulators in Washington reviewed the American rollout across California.",
	}, scope)
	foreign := a.Annotate(Input{
		URL:     "https://example.com/eu",
		Snippet: "The European Union announced rules from Brussels while Beijing responded.",
	}, scope)

	if domestic.USFit <= foreign.USFit {
		t.Errorf("domestic text should outscore foreign text: %f vs %f", domestic.USFit, foreign.USFit)
	}
	if foreign.USFit != 0 {
		t.Errorf("pure foreign text should bottom out at 0, got %f", foreign.USFit)
	}
}

func TestAnnotate_DepthSurveyFloor(t *testing.T) {
	a := newTestAnnotator()
	scope := testScope()

	plain := a.Annotate(Input{URL: "https://example.com/1", Snippet: "a qualitative look at trends"}, scope)
	if plain.Evidence.Depth != 0.45 {
		t.Errorf("plain text depth: want 0.45 got %f", plain.Evidence.Depth)
	}

	survey := a.Annotate(Input{URL: "https://example.com/2", Snippet: "our survey of operators"}, scope)
	if survey.Evidence.Depth != 0.65 {
		t.Errorf("survey text depth: want 0.65 got %f", survey.Evidence.Depth)
	}

	numeric := a.Annotate(Input{URL: "https://example.com/3", Snippet: "adoption rose 38% year over year"}, scope)
	if numeric.Evidence.Depth != 0.85 {
		t.Errorf("numeric text depth: want 0.85 got %f", numeric.Evidence.Depth)
	}
}

func TestAnnotate_QualityComposite(t *testing.T) {
	a := newTestAnnotator()
	scope := testScope()
	rec := a.Annotate(Input{
		URL:       "https://www.reuters.com/x",
		Snippet:   "US market grew 42% according to the survey",
		Published: scope.Now.AddDate(0, 0, -1),
		HasDate:   true,
	}, scope)

	want := 0.45*rec.Authority + 0.25*rec.Recency + 0.20*rec.USFit + 0.10*rec.Evidence.Depth
	if diff := rec.Quality - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("quality composite: want %f got %f", want, rec.Quality)
	}
}
