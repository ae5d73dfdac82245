package model

import (
	"errors"
	"strings"
	"time"
)

const (
	MinLookback = time.Hour
	MaxLookback = 168 * time.Hour

	DefaultMaxThreads = 5
	MaxMaxThreads     = 25
)

var (
	ErrNoSubreddits = errors.New("at least one subreddit is required")
	ErrNoKeywords   = errors.New("at least one keyword is required")
)

// ScanRequest describes one scan: where to look, what to look for, and how
// deep to go. Subreddits and keywords are deduplicated on normalization.
type ScanRequest struct {
	Subreddits []string      `json:"subreddits"`
	Keywords   []string      `json:"keywords"`
	Lookback   time.Duration `json:"lookback"`
	MaxThreads int           `json:"max_threads"`

	// SessionID is optional; a snowflake-based id is generated when empty.
	SessionID string `json:"session_id,omitempty"`

	// AllowedDomains restricts outward links in drafts. Empty means
	// unrestricted.
	AllowedDomains []string `json:"allowed_domains,omitempty"`
}

// Normalize dedupes subreddits and keywords, trims whitespace, and clamps
// lookback and max-threads into their allowed ranges.
func (r *ScanRequest) Normalize() error {
	r.Subreddits = dedupe(r.Subreddits)
	r.Keywords = dedupe(r.Keywords)

	if len(r.Subreddits) == 0 {
		return ErrNoSubreddits
	}
	if len(r.Keywords) == 0 {
		return ErrNoKeywords
	}

	if r.Lookback < MinLookback {
		r.Lookback = MinLookback
	}
	if r.Lookback > MaxLookback {
		r.Lookback = MaxLookback
	}

	if r.MaxThreads <= 0 {
		r.MaxThreads = DefaultMaxThreads
	}
	if r.MaxThreads > MaxMaxThreads {
		r.MaxThreads = MaxMaxThreads
	}

	r.SessionID = strings.TrimSpace(r.SessionID)
	return nil
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
