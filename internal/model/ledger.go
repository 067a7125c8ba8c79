package model

// EvidenceAnchor is a discovered citation supporting a claim. An anchor is
// strict when its DOI is syntactically valid and its URL host belongs to the
// approved high-trust domain list; preprint hosts never qualify.
type EvidenceAnchor struct {
	DOI         string `json:"doi,omitempty"`
	Title       string `json:"title"`
	URL         string `json:"url,omitempty"`
	WhyRelevant string `json:"why_relevant,omitempty"`
	Strict      bool   `json:"strict"`
}

// SupportSpan is a verbatim excerpt from a source backing a claim.
type SupportSpan struct {
	SourceID string `json:"source_id"`
	Text     string `json:"text"`
}

// ClaimLedgerItem maps one claim to its anchors and support spans.
type ClaimLedgerItem struct {
	ClaimID      string           `json:"claim_id"`
	ClaimText    string           `json:"claim_text"`
	Anchors      []EvidenceAnchor `json:"anchors"`
	SupportSpans []SupportSpan    `json:"support_spans"`
	Overreach    bool             `json:"overreach"`
	Notes        string           `json:"notes,omitempty"`
}

// Ledger aggregates per-claim evidence alignment for downstream consumers.
// AnchorCoverageStrict is never above AnchorCoverageAny.
type Ledger struct {
	Claims              []ClaimLedgerItem `json:"claims"`
	AnchorCoverageAny   float64           `json:"anchor_coverage_any"`
	AnchorCoverageStrict float64          `json:"anchor_coverage_strict"`
	Hash                string            `json:"hash"`
}
