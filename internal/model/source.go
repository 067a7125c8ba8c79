package model

import "time"

// SourceRecord represents one retrieved document after annotation.
// Records are created by the harvester at ingest time and immutable afterwards;
// IDs are assigned sequentially from 1 after final dedup and truncation.
type SourceRecord struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Publisher   string    `json:"publisher,omitempty"`   // Mapped display name
	Host        string    `json:"host,omitempty"`        // URL host, port stripped
	Published   time.Time `json:"published,omitempty"`   // Normalized publication date
	Snippet     string    `json:"snippet,omitempty"`     // Search-result excerpt
	Content     string    `json:"content,omitempty"`     // Truncated full text (when fetched)
	Credibility float64   `json:"credibility"`           // Static per-publisher weight
	Authority   float64   `json:"authority"`             // [0,1]
	Recency     float64   `json:"recency"`               // [0,1]
	USFit       float64   `json:"us_fit"`                // [0,1]
	Quality     float64   `json:"quality"`               // [0,1] composite
	Grade       Grade     `json:"source_grade"`          // Domain reputation bucket
	Role        Role      `json:"role"`                  // core or support
	Tier        Tier      `json:"tier"`                  // inside vs outside requested window
	Domain      string    `json:"domain,omitempty"`      // Topical tag
	SourceType  string    `json:"source_type,omitempty"` // e.g. independent_news, aggregator
	Evidence    Evidence  `json:"evidence"`
}

// Evidence captures the quantitative texture of a source's text.
type Evidence struct {
	Numeric    bool    `json:"numeric"`
	Depth      float64 `json:"depth"`
	SampleSize string  `json:"sample_size,omitempty"`
}

// Grade is a coarse A-D reputation bucket for a publishing domain.
// D is reserved for blocklisted or aggregator hosts.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
)

// Better reports whether g outranks other (A is best).
func (g Grade) Better(other Grade) bool {
	return g != "" && (other == "" || g < other)
}

// Role classifies whether a source can carry a signal on its own.
type Role string

const (
	RoleCore    Role = "core"
	RoleSupport Role = "support"
)

// Tier records whether the source fell inside the originally requested
// day-window (core) or only inside a widened window (context).
type Tier string

const (
	TierCore    Tier = "core"
	TierContext Tier = "context"
)
