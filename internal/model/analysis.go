package model

import "time"

// RulesSummary is a heuristic digest of a subreddit's posting rules.
type RulesSummary struct {
	LinksAllowed             bool   `json:"links_allowed"`
	VendorDisclosureRequired bool   `json:"vendor_disclosure_required"`
	LinkLimit                *int   `json:"link_limit,omitempty"`
	Notes                    string `json:"notes,omitempty"`
}

// ConservativeRules is the fallback used whenever a subreddit's rules cannot
// be fetched: assume the strictest plausible policy.
func ConservativeRules() RulesSummary {
	limit := 1
	return RulesSummary{
		LinksAllowed:             false,
		VendorDisclosureRequired: true,
		LinkLimit:                &limit,
		Notes:                    "rules unavailable; assuming strict link and disclosure policy",
	}
}

// DraftVariant is one reply draft produced by the scoring service.
type DraftVariant struct {
	Text       string `json:"text"`
	Disclosure string `json:"disclosure,omitempty"`
}

// AgentAnalysis is the decoded output of the scoring service for one thread.
// Field presence and types are enforced by the decoder, never assumed.
type AgentAnalysis struct {
	Score        float64      `json:"score"`
	WhyFit       string       `json:"why_fit"`
	RulesSummary []string     `json:"rules_summary"`
	Risks        []string     `json:"risks"`
	VariantA     DraftVariant `json:"variant_a"`
	VariantB     DraftVariant `json:"variant_b"`
}

// ThreadAnalysis is the persisted unit: one fully processed candidate with
// validated drafts. Immutable after creation.
type ThreadAnalysis struct {
	Thread   FullThread   `json:"thread"`
	Score    float64      `json:"score"`
	WhyFit   string       `json:"why_fit"`
	Rules    RulesSummary `json:"rules"`
	Risks    []string     `json:"risks"`
	VariantA DraftVariant `json:"variant_a"`
	VariantB DraftVariant `json:"variant_b"`

	// LinkViolations records hosts stripped from the drafts during
	// validation. Repairs are silent in the text but never unreported.
	LinkViolations []string `json:"link_violations,omitempty"`
}

// SessionRecord accumulates a scan's results in memory and is written to the
// session store exactly once at termination.
type SessionRecord struct {
	SessionID string           `json:"session_id"`
	CreatedAt time.Time        `json:"created_at"`
	Request   ScanRequest      `json:"request"`
	Threads   []ThreadAnalysis `json:"threads"`
}
