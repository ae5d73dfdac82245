// Package agent wraps the scoring/drafting service behind a ScoringService
// capability with two implementations: a live openai-go client and a
// deterministic fixture double. Which one runs is a configuration decision
// made at wiring time, never a runtime fallback.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mplacona/ThreadScout/internal/model"
)

// ErrUnavailable marks rate-limit and server-side failures from the scoring
// service so the session can report them distinctly instead of masking them
// with fabricated content.
var ErrUnavailable = errors.New("scoring service unavailable")

// ScoringService scores a thread and drafts two reply variants. The return
// value is the service's raw text; decoding and validation are the
// decoder's job, because the upstream output is untrusted.
type ScoringService interface {
	AnalyzeThread(ctx context.Context, thread *model.FullThread, rules model.RulesSummary, keywords []string) (string, error)
	Name() string
}

const systemPrompt = `You are ThreadScout, an assistant that evaluates discussion threads for
relevance and drafts reply suggestions a human will review before posting.

Respond with a single JSON object, no prose, with exactly these fields:
- "score": number 0-100, how well the thread matches the keywords
- "whyFit": one-line rationale
- "rulesSummary": array of strings restating the community rules that apply
- "risks": array of strings, anything that makes replying risky
- "variantA": {"text": ...} a helpful reply with no links or promotion
- "variantB": {"text": ..., "disclosure": ...} the same help plus at most one
  relevant link and an affiliation disclosure sentence

Never invent community rules. Keep both drafts under 120 words.`

func userPrompt(thread *model.FullThread, rules model.RulesSummary, keywords []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(keywords, ", "))
	fmt.Fprintf(&b, "Subreddit: r/%s\n", thread.Subreddit)
	fmt.Fprintf(&b, "Community policy: links allowed=%v, disclosure required=%v",
		rules.LinksAllowed, rules.VendorDisclosureRequired)
	if rules.LinkLimit != nil {
		fmt.Fprintf(&b, ", link limit=%d", *rules.LinkLimit)
	}
	if rules.Notes != "" {
		fmt.Fprintf(&b, " (%s)", rules.Notes)
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Title: %s\nAuthor: %s\nUpvotes: %d, replies: %d\n\n%s\n",
		thread.Title, thread.Author, thread.Upvotes, thread.NumReplies, thread.Body)

	if len(thread.TopComments) > 0 {
		b.WriteString("\nTop comments:\n")
		for _, c := range thread.TopComments {
			fmt.Fprintf(&b, "- %s (%d): %s\n", c.Author, c.Score, c.Body)
		}
	}
	return b.String()
}
