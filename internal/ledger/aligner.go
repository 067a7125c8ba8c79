package ledger

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/evigate/internal/llm"
	"github.com/ppiankov/evigate/internal/model"
	"github.com/ppiankov/evigate/internal/search"
)

// Claim is one assertion that needs supporting anchors.
type Claim struct {
	ID   string
	Text string
}

// Searcher is the slice of the search client the aligner needs.
type Searcher interface {
	Search(ctx context.Context, req search.Request) ([]search.Result, error)
}

// Biblio resolves free-text queries to bibliographic records. Failures are
// silently ignored; it only ever enriches.
type Biblio interface {
	Lookup(ctx context.Context, query string) ([]BiblioRecord, error)
}

// BiblioRecord is one bibliographic hit.
type BiblioRecord struct {
	Title string
	DOI   string
	URL   string
	Venue string
	Year  int
}

var doiPattern = regexp.MustCompile(`(?i)10\.\d{4,9}/[-._;()/:a-z0-9]+`)

// Aligner discovers and classifies evidence anchors for a set of claims.
// Every discovery step is best-effort: a failed hunt, bibliographic lookup,
// or generation call degrades to heuristic anchors, never to an error.
type Aligner struct {
	cfg      model.LedgerConfig
	searcher Searcher
	biblio   Biblio
	provider llm.Provider
	workers  int
}

// NewAligner creates an aligner. searcher, biblio, and provider may each be
// nil to disable the corresponding discovery step.
func NewAligner(cfg model.LedgerConfig, searcher Searcher, biblio Biblio, provider llm.Provider, workers int) *Aligner {
	if cfg.MaxAnchors <= 0 {
		cfg.MaxAnchors = 3
	}
	if workers <= 0 {
		workers = 1
	}
	return &Aligner{
		cfg:      cfg,
		searcher: searcher,
		biblio:   biblio,
		provider: provider,
		workers:  workers,
	}
}

// Align builds a ledger for the claims against the source set. Claims are
// processed concurrently; the returned items keep claim order.
func (a *Aligner) Align(ctx context.Context, claims []Claim, sources []model.SourceRecord) *model.Ledger {
	items := make([]model.ClaimLedgerItem, len(claims))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, claim := range claims {
		i, claim := i, claim
		g.Go(func() error {
			items[i] = a.alignClaim(gctx, claim, sources)
			return nil
		})
	}
	_ = g.Wait()

	ledger := &model.Ledger{Claims: items, Hash: claimsHash(claims)}
	if len(items) > 0 {
		anyCount, strictCount := 0, 0
		for _, item := range items {
			if len(item.Anchors) > 0 {
				anyCount++
			}
			for _, anchor := range item.Anchors {
				if anchor.Strict {
					strictCount++
					break
				}
			}
		}
		ledger.AnchorCoverageAny = float64(anyCount) / float64(len(items))
		ledger.AnchorCoverageStrict = float64(strictCount) / float64(len(items))
	}
	return ledger
}

func (a *Aligner) alignClaim(ctx context.Context, claim Claim, sources []model.SourceRecord) model.ClaimLedgerItem {
	item := model.ClaimLedgerItem{
		ClaimID:      claim.ID,
		ClaimText:    claim.Text,
		Anchors:      []model.EvidenceAnchor{},
		SupportSpans: []model.SupportSpan{},
	}

	anchors := a.heuristicAnchors(sources)
	anchors = append(anchors, a.huntAnchors(ctx, claim)...)
	anchors = append(anchors, a.biblioAnchors(ctx, claim)...)

	if a.provider != nil {
		llmAnchors, spans, overreach, err := a.generateAlignment(ctx, claim, sources)
		if err != nil {
			item.Notes = fmt.Sprintf("alignment generation unavailable: %v", err)
		} else {
			anchors = append(anchors, llmAnchors...)
			item.SupportSpans = spans
			item.Overreach = overreach
		}
	}

	item.Anchors = a.dedupAndCap(anchors)
	return item
}

// heuristicAnchors ranks the source set by domain reputation hints and keeps
// the best few as candidate anchors.
func (a *Aligner) heuristicAnchors(sources []model.SourceRecord) []model.EvidenceAnchor {
	type scored struct {
		anchor model.EvidenceAnchor
		score  float64
	}

	penalty := a.cfg.PreprintPenalty
	if penalty == 0 {
		penalty = 0.25
	}

	candidates := make([]scored, 0, len(sources))
	for _, src := range sources {
		text := strings.ToLower(src.URL + " " + src.Title)
		score := 0.0
		for _, hint := range a.cfg.JournalHints {
			if strings.Contains(text, hint) {
				score += 1.0
			}
		}
		for _, host := range a.cfg.PreprintHosts {
			if strings.Contains(text, host) {
				score -= penalty
			}
		}
		if score <= 0 {
			continue
		}
		anchor := model.EvidenceAnchor{
			Title:       src.Title,
			URL:         src.URL,
			DOI:         firstDOI(src.URL + " " + src.Snippet),
			WhyRelevant: "reputation-ranked source",
		}
		anchor.Strict = a.isStrict(anchor)
		if anchor.Strict {
			score += a.cfg.StrictBonus
		}
		candidates = append(candidates, scored{anchor: anchor, score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > a.cfg.MaxAnchors {
		candidates = candidates[:a.cfg.MaxAnchors]
	}

	anchors := make([]model.EvidenceAnchor, len(candidates))
	for i, c := range candidates {
		anchors[i] = c.anchor
	}
	return anchors
}

// huntAnchors runs a bounded search pass restricted to approved domains,
// harvesting DOI-shaped substrings from the results.
func (a *Aligner) huntAnchors(ctx context.Context, claim Claim) []model.EvidenceAnchor {
	if a.searcher == nil || a.cfg.HuntMaxCalls <= 0 {
		return nil
	}

	var anchors []model.EvidenceAnchor
	calls := 0
	for _, domain := range a.cfg.ApprovedDomains {
		if calls >= a.cfg.HuntMaxCalls {
			break
		}
		calls++
		results, err := a.searcher.Search(ctx, search.Request{
			Query:      fmt.Sprintf("site:%s %s", domain, claim.Text),
			Categories: []string{"science"},
		})
		if err != nil {
			continue
		}
		for _, r := range results {
			doi := firstDOI(r.URL + " " + r.Content)
			if doi == "" {
				continue
			}
			anchor := model.EvidenceAnchor{
				DOI:         doi,
				Title:       r.Title,
				URL:         r.URL,
				WhyRelevant: "domain-restricted hunt",
			}
			anchor.Strict = a.isStrict(anchor)
			anchors = append(anchors, anchor)
		}
	}
	return anchors
}

func (a *Aligner) biblioAnchors(ctx context.Context, claim Claim) []model.EvidenceAnchor {
	if a.biblio == nil {
		return nil
	}
	records, err := a.biblio.Lookup(ctx, claim.Text)
	if err != nil {
		return nil
	}
	anchors := make([]model.EvidenceAnchor, 0, len(records))
	for _, rec := range records {
		anchor := model.EvidenceAnchor{
			DOI:         rec.DOI,
			Title:       rec.Title,
			URL:         rec.URL,
			WhyRelevant: "bibliographic discovery",
		}
		anchor.Strict = a.isStrict(anchor)
		anchors = append(anchors, anchor)
	}
	return anchors
}

// alignmentResponse is the structured shape requested from the provider.
type alignmentResponse struct {
	SupportSpans []struct {
		SourceID string `json:"source_id"`
		Text     string `json:"text"`
	} `json:"support_spans"`
	Overreach bool `json:"overreach"`
	Anchors   []struct {
		DOI         string `json:"doi"`
		Title       string `json:"title"`
		URL         string `json:"url"`
		WhyRelevant string `json:"why_relevant"`
	} `json:"anchors"`
}

func (a *Aligner) generateAlignment(ctx context.Context, claim Claim, sources []model.SourceRecord) ([]model.EvidenceAnchor, []model.SupportSpan, bool, error) {
	prompt := buildAlignmentPrompt(claim, sources, a.cfg.SpanExcerptChars)
	resp, err := a.provider.Generate(ctx, llm.GenerateRequest{
		System: "You align claims to verbatim supporting evidence. Return a single JSON object.",
		Prompt: prompt,
	})
	if err != nil {
		return nil, nil, false, err
	}

	var parsed alignmentResponse
	if err := llm.DecodeJSON(resp.Text, &parsed); err != nil {
		return nil, nil, false, err
	}

	anchors := make([]model.EvidenceAnchor, 0, len(parsed.Anchors))
	for _, raw := range parsed.Anchors {
		anchor := model.EvidenceAnchor{
			DOI:         raw.DOI,
			Title:       raw.Title,
			URL:         raw.URL,
			WhyRelevant: raw.WhyRelevant,
		}
		anchor.Strict = a.isStrict(anchor)
		anchors = append(anchors, anchor)
	}
	spans := make([]model.SupportSpan, 0, len(parsed.SupportSpans))
	for _, raw := range parsed.SupportSpans {
		if raw.Text == "" {
			continue
		}
		spans = append(spans, model.SupportSpan{SourceID: raw.SourceID, Text: raw.Text})
	}
	return anchors, spans, parsed.Overreach, nil
}

func buildAlignmentPrompt(claim Claim, sources []model.SourceRecord, excerptChars int) string {
	if excerptChars <= 0 {
		excerptChars = 400
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Claim %s: %s\n\nSources:\n", claim.ID, claim.Text)
	for _, src := range sources {
		excerpt := src.Content
		if excerpt == "" {
			excerpt = src.Snippet
		}
		if len(excerpt) > excerptChars {
			excerpt = excerpt[:excerptChars]
		}
		fmt.Fprintf(&b, "[%d] %s (%s)\n%s\n\n", src.ID, src.Title, src.URL, excerpt)
	}
	b.WriteString(`Return JSON: {"support_spans": [{"source_id": "...", "text": "verbatim excerpt"}], "overreach": bool, "anchors": [{"doi": "", "title": "", "url": "", "why_relevant": ""}]}. Mark overreach true only when no source supports the claim's core quantity or direction.`)
	return b.String()
}

// dedupAndCap merges anchors by normalized URL, preferring strict entries,
// and truncates to the configured maximum.
func (a *Aligner) dedupAndCap(anchors []model.EvidenceAnchor) []model.EvidenceAnchor {
	seen := make(map[string]int)
	out := make([]model.EvidenceAnchor, 0, len(anchors))
	for _, anchor := range anchors {
		if anchor.URL == "" && anchor.DOI == "" {
			continue
		}
		key := normalizeURL(anchor.URL)
		if key == "" {
			key = strings.ToLower(anchor.DOI)
		}
		if idx, dup := seen[key]; dup {
			if anchor.Strict && !out[idx].Strict {
				out[idx] = anchor
			}
			continue
		}
		seen[key] = len(out)
		out = append(out, anchor)
	}

	// Strict anchors first, then discovery order.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Strict && !out[j].Strict })
	if len(out) > a.cfg.MaxAnchors {
		out = out[:a.cfg.MaxAnchors]
	}
	return out
}

// isStrict applies the strictness test: a DOI-shaped identifier on an
// approved host that is not a preprint repository.
func (a *Aligner) isStrict(anchor model.EvidenceAnchor) bool {
	if anchor.DOI == "" || !doiPattern.MatchString(anchor.DOI) {
		return false
	}
	host := hostOf(anchor.URL)
	if host == "" {
		return false
	}
	for _, preprint := range a.cfg.PreprintHosts {
		if host == preprint || strings.HasSuffix(host, "."+preprint) {
			return false
		}
	}
	for _, approved := range a.cfg.ApprovedDomains {
		if host == approved || strings.HasSuffix(host, "."+approved) {
			return true
		}
	}
	return false
}

func firstDOI(text string) string {
	match := doiPattern.FindString(text)
	return strings.TrimRight(match, ".,;")
}

func normalizeURL(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Host == "" {
		return strings.ToLower(strings.TrimSuffix(raw, "/"))
	}
	host := strings.ToLower(strings.TrimPrefix(parsed.Host, "www."))
	return host + strings.TrimSuffix(parsed.Path, "/")
}

func hostOf(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(parsed.Hostname(), "www."))
}

func claimsHash(claims []Claim) string {
	h := sha1.New()
	for _, c := range claims {
		h.Write([]byte(c.ID))
	}
	return hex.EncodeToString(h.Sum(nil))
}
