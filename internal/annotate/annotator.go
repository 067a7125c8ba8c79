package annotate

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/ppiankov/evigate/internal/model"
)

// Annotator assigns credibility, grade, fit, recency, depth, composite
// quality, role, and tier to a single retrieved document. It is a pure
// function of the input and the scope context; all heuristics are driven by
// the configuration tables.
type Annotator struct {
	cfg model.AnnotateConfig
}

// NewAnnotator creates an annotator over the given scoring tables.
func NewAnnotator(cfg model.AnnotateConfig) *Annotator {
	return &Annotator{cfg: cfg}
}

// Input is one raw retrieval result.
type Input struct {
	Title     string
	URL       string
	Snippet   string
	Content   string
	Published time.Time
	HasDate   bool
}

// Scope is the run context the scores are computed against.
type Scope struct {
	Topic       string
	WindowDays  int
	WindowStart time.Time
	WindowEnd   time.Time
	Now         time.Time
}

var (
	percentPattern    = regexp.MustCompile(`\d{2,}(\.\d+)?\s*%`)
	bigNumberPattern  = regexp.MustCompile(`\b\d{4,}\b`)
	sampleSizePattern = regexp.MustCompile(`(?i)\bn\s*=\s*(\d+)`)
)

// Annotate builds a SourceRecord from one result. The record's ID is left
// zero; the harvester assigns ids after final dedup and truncation.
func (a *Annotator) Annotate(in Input, scope Scope) model.SourceRecord {
	host := hostOf(in.URL)
	text := strings.Join([]string{in.Title, in.Snippet, in.Content}, " ")
	lower := strings.ToLower(text)

	grade, blocked := a.grade(host, in.URL)
	sourceType := a.sourceType(host, blocked)
	credibility := a.cfg.DefaultCredibility
	if score, ok := a.cfg.CredibilityScores[sourceType]; ok {
		credibility = score
	}

	authority := credibility
	if blocked && authority > a.cfg.AggregatorAuthorityCap {
		authority = a.cfg.AggregatorAuthorityCap
	}

	recency := a.recency(in, scope)
	usFit := a.usFit(lower)
	depth, numeric := a.depth(lower)

	w := a.cfg.QualityWeights
	quality := w.Authority*authority + w.Recency*recency + w.USFit*usFit + w.Depth*depth
	if quality > 1 {
		quality = 1
	}

	role := model.RoleSupport
	if quality >= a.cfg.CoreQualityMin && usFit >= a.cfg.CoreUSFitMin &&
		(grade == model.GradeA || grade == model.GradeB) {
		role = model.RoleCore
	}

	tier := model.TierContext
	if in.HasDate {
		if !in.Published.Before(scope.WindowStart) && !in.Published.After(scope.WindowEnd) {
			tier = model.TierCore
		}
	} else {
		// Undated results default to "now" for window purposes.
		tier = model.TierCore
	}

	sampleSize := ""
	if m := sampleSizePattern.FindStringSubmatch(text); m != nil {
		sampleSize = m[1]
	}

	return model.SourceRecord{
		Title:       in.Title,
		URL:         in.URL,
		Host:        host,
		Publisher:   a.publisher(host),
		Published:   in.Published,
		Snippet:     in.Snippet,
		Content:     in.Content,
		Credibility: credibility,
		Authority:   authority,
		Recency:     recency,
		USFit:       usFit,
		Quality:     quality,
		Grade:       grade,
		Role:        role,
		Tier:        tier,
		Domain:      a.topicDomain(scope.Topic, lower),
		SourceType:  sourceType,
		Evidence: model.Evidence{
			Numeric:    numeric,
			Depth:      depth,
			SampleSize: sampleSize,
		},
	}
}

// grade buckets a host into the A-D reputation tiers. Blocklisted URLs force
// D regardless of the domain tables.
func (a *Annotator) grade(host, rawURL string) (model.Grade, bool) {
	lowerURL := strings.ToLower(rawURL)
	for _, pattern := range a.cfg.BlocklistPatterns {
		if strings.Contains(lowerURL, pattern) || strings.Contains(host, pattern) {
			return model.GradeD, true
		}
	}
	if matchesDomain(host, a.cfg.GradeADomains) {
		return model.GradeA, false
	}
	if matchesDomain(host, a.cfg.GradeBDomains) {
		return model.GradeB, false
	}
	return model.GradeC, false
}

func (a *Annotator) sourceType(host string, blocked bool) string {
	switch {
	case blocked:
		return "aggregator"
	case matchesDomain(host, a.cfg.PrimaryDomains):
		return "primary"
	case matchesDomain(host, a.cfg.AcademicDomains):
		return "academic"
	case matchesDomain(host, a.cfg.VendorDomains):
		return "vendor_asserted"
	case matchesDomain(host, a.cfg.IndependentNewsDomains):
		return "independent_news"
	case matchesDomain(host, a.cfg.TradePressDomains):
		return "trade_press"
	default:
		return "unclassified"
	}
}

func (a *Annotator) recency(in Input, scope Scope) float64 {
	if !in.HasDate || scope.WindowDays <= 0 {
		return 0.5
	}
	days := scope.Now.Sub(in.Published).Hours() / 24
	r := 1 - days/float64(scope.WindowDays)
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

func (a *Annotator) usFit(lower string) float64 {
	hits := 0
	for _, hint := range a.cfg.RegionHints {
		if strings.Contains(lower, hint) {
			hits++
		}
	}
	fit := float64(hits) * 0.25
	if fit > 1 {
		fit = 1
	}
	for _, hint := range a.cfg.ForeignHints {
		if strings.Contains(lower, hint) {
			fit -= a.cfg.ForeignPenalty
		}
	}
	if containsToken(lower, "us") || strings.Contains(lower, "u.s.") {
		fit += a.cfg.USTokenBoost
	}
	if fit < 0 {
		return 0
	}
	if fit > 1 {
		return 1
	}
	return fit
}

// depth scores the quantitative texture of the text: 0.85 when it carries a
// multi-digit percentage or a 4-digit number, else 0.45, raised to at least
// 0.65 when a survey is mentioned.
func (a *Annotator) depth(lower string) (float64, bool) {
	numeric := percentPattern.MatchString(lower) || bigNumberPattern.MatchString(lower)
	depth := 0.45
	if numeric {
		depth = 0.85
	}
	if strings.Contains(lower, "survey") && depth < 0.65 {
		depth = 0.65
	}
	return depth, numeric
}

func (a *Annotator) publisher(host string) string {
	if name, ok := a.cfg.PublisherMap[host]; ok {
		return name
	}
	for domain, name := range a.cfg.PublisherMap {
		if strings.HasSuffix(host, "."+domain) {
			return name
		}
	}
	return host
}

func (a *Annotator) topicDomain(topic, lower string) string {
	haystack := strings.ToLower(topic) + " " + lower
	best := ""
	bestHits := 0
	for domain, keywords := range a.cfg.TopicTaxonomy {
		hits := 0
		for _, kw := range keywords {
			if strings.Contains(haystack, kw) {
				hits++
			}
		}
		if hits > bestHits || (hits == bestHits && hits > 0 && domain < best) {
			best = domain
			bestHits = hits
		}
	}
	return best
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return ""
	}
	host := parsed.Host
	if idx := strings.Index(host, ":"); idx > 0 {
		host = host[:idx]
	}
	return strings.TrimPrefix(host, "www.")
}

func matchesDomain(host string, domains []string) bool {
	for _, domain := range domains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

func containsToken(text, token string) bool {
	for _, field := range strings.FieldsFunc(text, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	}) {
		if field == token {
			return true
		}
	}
	return false
}
