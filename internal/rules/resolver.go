// Package rules derives a posting-policy summary per subreddit from its
// stated rules, behind a time-boxed cache. When the rules cannot be fetched
// the resolver falls back to the strictest plausible policy instead of
// failing the scan.
package rules

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/mplacona/ThreadScout/internal/model"
)

// CacheTTL bounds how long a fetched summary is reused.
const CacheTTL = 24 * time.Hour

// RuleText is one stated rule of a subreddit, as returned by the source.
type RuleText struct {
	ShortName   string
	Description string
}

// Source fetches a subreddit's stated rules. Implemented by the discovery
// client; may fail per call.
type Source interface {
	FetchSubredditRules(ctx context.Context, subreddit string) ([]RuleText, error)
}

type cacheEntry struct {
	summary   model.RulesSummary
	fetchedAt time.Time
}

// Resolver answers GetRules with a cached or freshly derived summary.
type Resolver struct {
	source Source
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
}

func NewResolver(source Source) *Resolver {
	return &Resolver{
		source: source,
		now:    time.Now,
		cache:  make(map[string]cacheEntry),
	}
}

// GetRules returns the policy summary for a subreddit. A fresh cache entry
// is returned verbatim; otherwise the source is consulted and the result
// cached. Fetch failures return conservative defaults without caching, so
// the next call retries.
func (r *Resolver) GetRules(ctx context.Context, subreddit string) model.RulesSummary {
	key := strings.ToLower(strings.TrimSpace(subreddit))

	r.mu.Lock()
	entry, ok := r.cache[key]
	r.mu.Unlock()
	if ok && r.now().Sub(entry.fetchedAt) < CacheTTL {
		return entry.summary
	}

	texts, err := r.source.FetchSubredditRules(ctx, subreddit)
	if err != nil {
		slog.WarnContext(ctx, "rules fetch failed, using conservative defaults",
			"subreddit", subreddit,
			"error", err)
		return model.ConservativeRules()
	}

	summary := Summarize(texts)

	r.mu.Lock()
	r.cache[key] = cacheEntry{summary: summary, fetchedAt: r.now()}
	r.mu.Unlock()

	return summary
}

// ClearCache invalidates the entries for the given subreddits, or every
// entry when none are given.
func (r *Resolver) ClearCache(subreddits ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(subreddits) == 0 {
		r.cache = make(map[string]cacheEntry)
		return
	}
	for _, s := range subreddits {
		delete(r.cache, strings.ToLower(strings.TrimSpace(s)))
	}
}

var (
	noLinksRegex    = regexp.MustCompile(`no (?:external )?links|links? (?:are )?(?:not allowed|forbidden|banned)|no self.?promotion|no advertising|no promo`)
	disclosureRegex = regexp.MustCompile(`disclos|affiliat|vendor|conflict of interest|self.?promotion|transparen`)
	oneLinkRegex    = regexp.MustCompile(`(?:one|1|single) link`)
)

// Summarize derives a RulesSummary from stated rule texts by keyword
// heuristics. Absent any signal, links are allowed and no disclosure is
// required.
func Summarize(texts []RuleText) model.RulesSummary {
	var combined strings.Builder
	names := make([]string, 0, len(texts))
	for _, t := range texts {
		combined.WriteString(strings.ToLower(t.ShortName))
		combined.WriteString(" ")
		combined.WriteString(strings.ToLower(t.Description))
		combined.WriteString("\n")
		if n := strings.TrimSpace(t.ShortName); n != "" {
			names = append(names, n)
		}
	}
	text := combined.String()

	summary := model.RulesSummary{
		LinksAllowed: !noLinksRegex.MatchString(text),
		Notes:        strings.Join(names, "; "),
	}
	if disclosureRegex.MatchString(text) {
		summary.VendorDisclosureRequired = true
	}
	if oneLinkRegex.MatchString(text) {
		limit := 1
		summary.LinkLimit = &limit
	}
	return summary
}
