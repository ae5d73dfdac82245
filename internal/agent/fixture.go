package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"

	"github.com/mplacona/ThreadScout/internal/model"
)

type fixtureAgent struct {
	domain string
}

// NewFixture builds the deterministic scoring double used in development and
// tests. Output depends only on the thread id, so repeated scans score
// identically.
func NewFixture(linkDomain string) ScoringService {
	if linkDomain == "" {
		linkDomain = "example.com"
	}
	return &fixtureAgent{domain: linkDomain}
}

func (f *fixtureAgent) AnalyzeThread(_ context.Context, thread *model.FullThread, rules model.RulesSummary, keywords []string) (string, error) {
	h := fnv.New32a()
	h.Write([]byte(thread.ID))
	score := 50 + int(h.Sum32()%50)

	keyword := "the topic"
	if len(keywords) > 0 {
		keyword = keywords[0]
	}

	ruleNotes := []string{"be helpful, not promotional"}
	if rules.VendorDisclosureRequired {
		ruleNotes = append(ruleNotes, "disclose vendor affiliation")
	}
	if !rules.LinksAllowed {
		ruleNotes = append(ruleNotes, "links are discouraged here")
	}

	analysis := map[string]any{
		"score":        score,
		"whyFit":       fmt.Sprintf("Author is actively asking about %s.", keyword),
		"rulesSummary": ruleNotes,
		"risks":        []string{"fixture analysis, not a real assessment"},
		"variantA": map[string]any{
			"text": fmt.Sprintf("Have you looked at how others in r/%s solved this? A common approach is to narrow the problem down first.", thread.Subreddit),
		},
		"variantB": map[string]any{
			"text":       fmt.Sprintf("A common approach is to narrow the problem down first. There's a walkthrough at https://%s/docs that covers this exact case.", f.domain),
			"disclosure": fmt.Sprintf("Disclosure: I work on %s.", f.domain),
		},
	}

	raw, err := json.Marshal(analysis)
	if err != nil {
		return "", fmt.Errorf("marshal fixture analysis: %w", err)
	}
	return string(raw), nil
}

func (f *fixtureAgent) Name() string {
	return "fixture"
}
