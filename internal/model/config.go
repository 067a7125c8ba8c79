package model

import "time"

// Config holds every tunable for the pipeline. All scoring heuristics are
// expressed as data here (keyword tables, weight rows, thresholds) so the
// scorers stay control-flow free and independently testable.
type Config struct {
	Search      SearchConfig      `yaml:"search" json:"search"`
	HTTP        HTTPConfig        `yaml:"http" json:"http"`
	Cache       CacheConfig       `yaml:"cache" json:"cache"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" json:"concurrency"`
	LLM         LLMConfig         `yaml:"llm" json:"llm"`
	Harvest     HarvestConfig     `yaml:"harvest" json:"harvest"`
	Annotate    AnnotateConfig    `yaml:"annotate" json:"annotate"`
	Stats       StatsConfig       `yaml:"stats" json:"stats"`
	Gate        GateConfig        `yaml:"gate" json:"gate"`
	Ledger      LedgerConfig      `yaml:"ledger" json:"ledger"`
	Confidence  ConfidenceConfig  `yaml:"confidence" json:"confidence"`
	Output      OutputConfig      `yaml:"output" json:"output"`
}

// SearchConfig configures the retrieval collaborator client.
type SearchConfig struct {
	BaseURL        string        `yaml:"base_url" json:"base_url"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`
	MaxResults     int           `yaml:"max_results" json:"max_results"`
	RatePerSecond  float64       `yaml:"rate_per_second" json:"rate_per_second"`
	RateBurst      int           `yaml:"rate_burst" json:"rate_burst"`
	StrictDates    bool          `yaml:"strict_dates" json:"strict_dates"` // Reject undated results instead of defaulting to now
}

// HTTPConfig configures outbound content fetching.
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent    string        `yaml:"user_agent" json:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" json:"max_body_bytes"`
	HTTPProxy    string        `yaml:"http_proxy" json:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy" json:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy" json:"no_proxy"`
	RespectRobots bool         `yaml:"respect_robots" json:"respect_robots"`
}

// CacheConfig configures the layered result cache.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" json:"enabled"`
	Dir       string        `yaml:"dir" json:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" json:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" json:"disk_ttl"`
}

// ConcurrencyConfig bounds the worker pools.
type ConcurrencyConfig struct {
	AxisWorkers   int `yaml:"axis_workers" json:"axis_workers"`
	ClaimWorkers  int `yaml:"claim_workers" json:"claim_workers"`
	FetchWorkers  int `yaml:"fetch_workers" json:"fetch_workers"`
}

// LLMConfig configures the content-generation collaborator.
type LLMConfig struct {
	Provider  string `yaml:"provider" json:"provider"` // openai, anthropic, ollama, ""
	Model     string `yaml:"model" json:"model"`
	APIKey    string `yaml:"-" json:"-"`
	BaseURL   string `yaml:"base_url" json:"base_url"`
	Timeout   int    `yaml:"timeout" json:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" json:"max_tokens"`
}

// AxisSet is the ranked query-template list for one topical domain.
// Templates contain a {query} placeholder.
type AxisSet struct {
	Domain    string   `yaml:"domain" json:"domain"`
	Keywords  []string `yaml:"keywords" json:"keywords"`
	Templates []string `yaml:"templates" json:"templates"`
}

// HarvestConfig configures the retrieval orchestrator.
type HarvestConfig struct {
	DefaultDaysBack   int      `yaml:"default_days_back" json:"default_days_back"`
	MaxDaysBack       int      `yaml:"max_days_back" json:"max_days_back"`
	SoftFloor         int      `yaml:"soft_floor" json:"soft_floor"`   // Widen window below this
	MaxSources        int      `yaml:"max_sources" json:"max_sources"` // Hard truncation cap
	SnippetMinChars   int      `yaml:"snippet_min_chars" json:"snippet_min_chars"` // Fetch full content below this
	AxisSets          []AxisSet `yaml:"axis_sets" json:"axis_sets"`
	DefaultTemplates  []string `yaml:"default_templates" json:"default_templates"`
	DiversityProbes   []string `yaml:"diversity_probes" json:"diversity_probes"`
	HealthPath        string   `yaml:"health_path" json:"health_path"`
	HealthMinRuns     int      `yaml:"health_min_runs" json:"health_min_runs"`
	HealthLowRatio    float64  `yaml:"health_low_ratio" json:"health_low_ratio"`
	HealthDefaultRatio float64 `yaml:"health_default_ratio" json:"health_default_ratio"`
	RescueMaxQueries  int      `yaml:"rescue_max_queries" json:"rescue_max_queries"`
}

// AnnotateConfig holds the per-source scoring tables.
type AnnotateConfig struct {
	CredibilityScores  map[string]float64 `yaml:"credibility_scores" json:"credibility_scores"`
	DefaultCredibility float64            `yaml:"default_credibility" json:"default_credibility"`
	PublisherMap       map[string]string  `yaml:"publisher_map" json:"publisher_map"`
	GradeADomains      []string           `yaml:"grade_a_domains" json:"grade_a_domains"`
	GradeBDomains      []string           `yaml:"grade_b_domains" json:"grade_b_domains"`
	PrimaryDomains     []string           `yaml:"primary_domains" json:"primary_domains"`
	AcademicDomains    []string           `yaml:"academic_domains" json:"academic_domains"`
	VendorDomains      []string           `yaml:"vendor_domains" json:"vendor_domains"`
	TradePressDomains  []string           `yaml:"trade_press_domains" json:"trade_press_domains"`
	IndependentNewsDomains []string       `yaml:"independent_news_domains" json:"independent_news_domains"`
	BlocklistPatterns  []string           `yaml:"blocklist_patterns" json:"blocklist_patterns"`
	AggregatorAuthorityCap float64        `yaml:"aggregator_authority_cap" json:"aggregator_authority_cap"`
	RegionHints        []string           `yaml:"region_hints" json:"region_hints"`
	ForeignHints       []string           `yaml:"foreign_hints" json:"foreign_hints"`
	ForeignPenalty     float64            `yaml:"foreign_penalty" json:"foreign_penalty"`
	USTokenBoost       float64            `yaml:"us_token_boost" json:"us_token_boost"`
	QualityWeights     QualityWeights     `yaml:"quality_weights" json:"quality_weights"`
	CoreQualityMin     float64            `yaml:"core_quality_min" json:"core_quality_min"`
	CoreUSFitMin       float64            `yaml:"core_us_fit_min" json:"core_us_fit_min"`
	TopicTaxonomy      map[string][]string `yaml:"topic_taxonomy" json:"topic_taxonomy"`
}

// QualityWeights are the composite quality coefficients.
type QualityWeights struct {
	Authority float64 `yaml:"authority" json:"authority"`
	Recency   float64 `yaml:"recency" json:"recency"`
	USFit     float64 `yaml:"us_fit" json:"us_fit"`
	Depth     float64 `yaml:"depth" json:"depth"`
}

// StatsConfig holds the coverage minima behind the evidence regime.
type StatsConfig struct {
	MinTotal         int     `yaml:"min_total" json:"min_total"`
	HardFloorTotal   int     `yaml:"hard_floor_total" json:"hard_floor_total"`
	MinCore          int     `yaml:"min_core" json:"min_core"`
	MinUniqueDomains int     `yaml:"min_unique_domains" json:"min_unique_domains"`
	MinDataHeavy     int     `yaml:"min_data_heavy" json:"min_data_heavy"`
	MinInWindow      int     `yaml:"min_in_window" json:"min_in_window"`
	MinBackground    int     `yaml:"min_background" json:"min_background"`
	MaxDomainRatio   float64 `yaml:"max_domain_ratio" json:"max_domain_ratio"`
}

// GateConfig holds the signal-gate thresholds.
type GateConfig struct {
	MinSupportSources int     `yaml:"min_support_sources" json:"min_support_sources"`
	RequireCoreSupport bool   `yaml:"require_core_support" json:"require_core_support"`
	StrengthFloor     float64 `yaml:"strength_floor" json:"strength_floor"`
	USFitFloor        float64 `yaml:"us_fit_floor" json:"us_fit_floor"`
	FallbackStrength  float64 `yaml:"fallback_strength" json:"fallback_strength"`
	FallbackUSFit     float64 `yaml:"fallback_us_fit" json:"fallback_us_fit"`
	FallbackGrade     Grade   `yaml:"fallback_grade" json:"fallback_grade"`
	MaxKept           int     `yaml:"max_kept" json:"max_kept"`
	TopQualityCount   int     `yaml:"top_quality_count" json:"top_quality_count"`
	RequireQuantTop   bool    `yaml:"require_quant_top" json:"require_quant_top"`
}

// LedgerConfig configures anchor discovery.
type LedgerConfig struct {
	MaxAnchors       int      `yaml:"max_anchors" json:"max_anchors"`
	ApprovedDomains  []string `yaml:"approved_domains" json:"approved_domains"`
	PreprintHosts    []string `yaml:"preprint_hosts" json:"preprint_hosts"`
	JournalHints     []string `yaml:"journal_hints" json:"journal_hints"`
	PreprintPenalty  float64  `yaml:"preprint_penalty" json:"preprint_penalty"`
	StrictBonus      float64  `yaml:"strict_bonus" json:"strict_bonus"`
	HuntMaxCalls     int      `yaml:"hunt_max_calls" json:"hunt_max_calls"`
	BiblioBaseURL    string   `yaml:"biblio_base_url" json:"biblio_base_url"`
	SpanExcerptChars int      `yaml:"span_excerpt_chars" json:"span_excerpt_chars"`
}

// ConfidenceConfig holds the calibration bounds and caps.
type ConfidenceConfig struct {
	LowerBound          float64 `yaml:"lower_bound" json:"lower_bound"`
	UpperBound          float64 `yaml:"upper_bound" json:"upper_bound"`
	VendorCap           float64 `yaml:"vendor_cap" json:"vendor_cap"`
	TheoryCap           float64 `yaml:"theory_cap" json:"theory_cap"`
	TheoryNoAnchorCap   float64 `yaml:"theory_no_anchor_cap" json:"theory_no_anchor_cap"`
	AnchorCoverageMin   float64 `yaml:"anchor_coverage_min" json:"anchor_coverage_min"`
	MinSourcesModerate  int     `yaml:"min_sources_moderate" json:"min_sources_moderate"`
	BandLowBelow        float64 `yaml:"band_low_below" json:"band_low_below"`
	BandHighFrom        float64 `yaml:"band_high_from" json:"band_high_from"`
	VOIAnchorCoverageMin float64 `yaml:"voi_anchor_coverage_min" json:"voi_anchor_coverage_min"`
	VOIConfidenceMin    float64 `yaml:"voi_confidence_min" json:"voi_confidence_min"`
}

// OutputConfig controls rendering side effects.
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" json:"verbose"`
	IncludeFooter bool `yaml:"include_footer" json:"include_footer"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Search: SearchConfig{
			BaseURL:       "http://localhost:8080",
			Timeout:       12 * time.Second,
			MaxResults:    10,
			RatePerSecond: 2,
			RateBurst:     5,
		},
		HTTP: HTTPConfig{
			Timeout:       12 * time.Second,
			UserAgent:     "Evigate/0.2 (+https://github.com/ppiankov/evigate)",
			MaxBodyBytes:  2_000_000,
			RespectRobots: true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 15 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			AxisWorkers:  4,
			ClaimWorkers: 3,
			FetchWorkers: 6,
		},
		LLM: LLMConfig{
			Provider:  "",
			Timeout:   60,
			MaxTokens: 2000,
		},
		Harvest: HarvestConfig{
			DefaultDaysBack: 7,
			MaxDaysBack:     30,
			SoftFloor:       8,
			MaxSources:      12,
			SnippetMinChars: 240,
			AxisSets: []AxisSet{
				{
					Domain:   "AI",
					Keywords: []string{"ai", "artificial intelligence", "machine learning", "llm", "gpt"},
					Templates: []string{
						"{query} announcement",
						"{query} funding round",
						"{query} benchmark results",
						"{query} enterprise adoption",
						"{query} research paper",
					},
				},
				{
					Domain:   "Cybersecurity",
					Keywords: []string{"security", "cyber", "breach", "vulnerability"},
					Templates: []string{
						"{query} breach report",
						"{query} CVE advisory",
						"{query} incident response",
						"{query} market impact",
					},
				},
				{
					Domain:   "Cloud",
					Keywords: []string{"cloud", "aws", "azure", "gcp", "infrastructure"},
					Templates: []string{
						"{query} capacity expansion",
						"{query} pricing change",
						"{query} outage postmortem",
						"{query} enterprise migration",
					},
				},
				{
					Domain:   "Semiconductors",
					Keywords: []string{"chip", "semiconductor", "nvidia", "amd", "intel"},
					Templates: []string{
						"{query} supply chain",
						"{query} fab capacity",
						"{query} export controls",
						"{query} earnings datapoints",
					},
				},
				{
					Domain:   "Markets",
					Keywords: []string{"market", "trading", "investment", "capital", "funding"},
					Templates: []string{
						"{query} market size",
						"{query} funding announcement",
						"{query} analyst estimate",
						"{query} quarterly results",
					},
				},
			},
			DefaultTemplates: []string{
				"{query}",
				"{query} latest news",
				"{query} statistics",
				"{query} analysis",
				"{query} survey data",
			},
			DiversityProbes: []string{
				"{query} -site:{dominant} report",
				"{query} -site:{dominant} data",
				"{query} -site:{dominant} independent analysis",
			},
			HealthMinRuns:      5,
			HealthLowRatio:     0.25,
			HealthDefaultRatio: 0.5,
			RescueMaxQueries:   3,
		},
		Annotate: AnnotateConfig{
			CredibilityScores: map[string]float64{
				"independent_news": 0.8,
				"primary":          0.9,
				"trade_press":      0.7,
				"vendor_consulting": 0.5,
				"vendor_asserted":  0.4,
				"academic":         0.85,
			},
			DefaultCredibility: 0.5,
			PublisherMap: map[string]string{
				"reuters.com":        "Reuters",
				"bloomberg.com":      "Bloomberg",
				"ft.com":             "Financial Times",
				"wsj.com":            "Wall Street Journal",
				"ap.org":             "Associated Press",
				"apnews.com":         "Associated Press",
				"theinformation.com": "The Information",
				"semianalysis.com":   "SemiAnalysis",
				"techcrunch.com":     "TechCrunch",
				"arstechnica.com":    "Ars Technica",
				"wired.com":          "Wired",
				"mckinsey.com":       "McKinsey",
				"deloitte.com":       "Deloitte",
				"forbes.com":         "Forbes",
				"arxiv.org":          "arXiv",
			},
			GradeADomains: []string{
				"reuters.com", "apnews.com", "ap.org", "bloomberg.com", "ft.com",
				"wsj.com", "nature.com", "science.org", "sec.gov",
			},
			GradeBDomains: []string{
				"theinformation.com", "semianalysis.com", "techcrunch.com",
				"arstechnica.com", "wired.com", "mckinsey.com", "deloitte.com",
				"ieee.org", "acm.org", "springer.com", "arxiv.org",
			},
			PrimaryDomains: []string{"sec.gov"},
			AcademicDomains: []string{
				"arxiv.org", "ieee.org", "acm.org", "springer.com", "nature.com",
				"science.org", "dl.acm.org", "ieeexplore.ieee.org",
				"link.springer.com", "sciencedirect.com", "mitpress.mit.edu",
				"cambridge.org", "oxfordjournals.org",
			},
			VendorDomains: []string{"nebius.com", "openai.com", "anthropic.com"},
			TradePressDomains: []string{
				"techcrunch.com", "arstechnica.com", "wired.com",
				"theinformation.com", "semianalysis.com",
			},
			IndependentNewsDomains: []string{
				"reuters.com", "bloomberg.com", "ft.com", "wsj.com", "ap.org",
				"apnews.com",
			},
			BlocklistPatterns: []string{
				"partnercontent", "sponsored", "brandstudio", "message.bloomberg.com",
				"/sponsored/", "brand-content", "advertorial", "promoted",
			},
			AggregatorAuthorityCap: 0.45,
			RegionHints: []string{
				"united states", "u.s.", "us market", "american", "federal",
				"washington", "california", "new york", "texas", "silicon valley",
			},
			ForeignHints: []string{
				"european union", "brussels", "beijing", "shanghai", "tokyo",
				"london", "bundestag", "ofcom",
			},
			ForeignPenalty: 0.15,
			USTokenBoost:   0.2,
			QualityWeights: QualityWeights{
				Authority: 0.45,
				Recency:   0.25,
				USFit:     0.20,
				Depth:     0.10,
			},
			CoreQualityMin: 0.6,
			CoreUSFitMin:   0.4,
			TopicTaxonomy: map[string][]string{
				"AI":             {"ai", "artificial intelligence", "machine learning", "llm", "gpt"},
				"Cybersecurity":  {"security", "cyber", "breach", "vulnerability"},
				"Cloud":          {"cloud", "aws", "azure", "gcp", "infrastructure"},
				"Robotics":       {"robot", "automation", "autonomous"},
				"AR/VR":          {"ar", "vr", "augmented", "virtual", "metaverse"},
				"Semiconductors": {"chip", "semiconductor", "nvidia", "amd", "intel"},
				"Policy":         {"regulation", "policy", "government", "compliance"},
				"Markets":        {"market", "trading", "investment", "capital", "funding"},
			},
		},
		Stats: StatsConfig{
			MinTotal:         6,
			HardFloorTotal:   3,
			MinCore:          2,
			MinUniqueDomains: 4,
			MinDataHeavy:     2,
			MinInWindow:      1,
			MinBackground:    1,
			MaxDomainRatio:   0.6,
		},
		Gate: GateConfig{
			MinSupportSources:  2,
			RequireCoreSupport: true,
			StrengthFloor:      0.5,
			USFitFloor:         0.4,
			FallbackStrength:   0.55,
			FallbackUSFit:      0.5,
			FallbackGrade:      GradeC,
			MaxKept:            6,
			TopQualityCount:    3,
			RequireQuantTop:    true,
		},
		Ledger: LedgerConfig{
			MaxAnchors: 3,
			ApprovedDomains: []string{
				"nature.com", "science.org", "pnas.org", "ieee.org",
				"ieeexplore.ieee.org", "acm.org", "dl.acm.org", "springer.com",
				"link.springer.com", "sciencedirect.com", "cambridge.org",
				"oxfordjournals.org", "mitpress.mit.edu", "tandfonline.com",
				"wiley.com", "sagepub.com", "jstor.org",
			},
			PreprintHosts: []string{"arxiv.org", "biorxiv.org", "ssrn.com"},
			JournalHints: []string{
				"science", "nature", "pnas", "ieee", "acm", "sagepub",
				"journals", "oup", "wiley", "springer", "tandfonline",
				"aps", "aip", "jstor", ".edu", ".ac.", "arxiv.org",
			},
			PreprintPenalty:  0.25,
			StrictBonus:      2.0,
			HuntMaxCalls:     2,
			SpanExcerptChars: 280,
		},
		Confidence: ConfidenceConfig{
			LowerBound:           0.30,
			UpperBound:           0.85,
			VendorCap:            0.70,
			TheoryCap:            0.60,
			TheoryNoAnchorCap:    0.55,
			AnchorCoverageMin:    0.70,
			MinSourcesModerate:   3,
			BandLowBelow:         0.45,
			BandHighFrom:         0.70,
			VOIAnchorCoverageMin: 0.70,
			VOIConfidenceMin:     0.75,
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
	}
}
