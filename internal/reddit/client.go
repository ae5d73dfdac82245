// Package reddit is the discovery client: it finds candidate threads via
// Reddit's public JSON API, deep-fetches thread content, and exposes the
// stated rules of a subreddit. All calls are paced by a shared token bucket
// since the API rate-limits unauthenticated clients aggressively.
package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mplacona/ThreadScout/internal/model"
	"github.com/mplacona/ThreadScout/internal/rules"
)

const (
	defaultBaseURL   = "https://www.reddit.com"
	defaultUserAgent = "threadscout/1.0 (thread discovery)"

	// searchLimit is the per-subreddit page size requested from the API,
	// before merging and truncation.
	searchLimit = 25
)

// ErrRateLimited marks a 429 from the API so callers can distinguish it from
// other transport failures.
var ErrRateLimited = errors.New("reddit: rate limited")

type Config struct {
	BaseURL   string
	UserAgent string

	// RequestsPerSecond feeds the shared token bucket. Zero means the
	// public-API-safe default of one request per second.
	RequestsPerSecond float64
}

// Client talks to the Reddit JSON API.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
}

func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}

	return &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		userAgent: userAgent,
		http:      &http.Client{Timeout: 30 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// SearchThreads queries each subreddit for the given keywords, keeps threads
// created inside the lookback window, ranks the merged set by engagement,
// and truncates to limit. Per-subreddit failures are logged and skipped;
// the result is best-effort.
func (c *Client) SearchThreads(ctx context.Context, subreddits, keywords []string, lookback time.Duration, limit int) ([]model.CandidateThread, error) {
	query := strings.Join(keywords, " OR ")
	cutoff := time.Now().Add(-lookback)

	var merged []model.CandidateThread
	seen := make(map[string]struct{})
	failures := 0

	for _, sub := range subreddits {
		listing, err := c.searchSubreddit(ctx, sub, query, lookback)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			slog.WarnContext(ctx, "subreddit search failed",
				"subreddit", sub,
				"error", err)
			failures++
			continue
		}

		for _, child := range listing.Data.Children {
			d := child.Data
			created := time.Unix(int64(d.CreatedUTC), 0).UTC()
			if created.Before(cutoff) {
				continue
			}
			if _, dup := seen[d.ID]; dup {
				continue
			}
			seen[d.ID] = struct{}{}
			merged = append(merged, model.CandidateThread{
				ID:         d.ID,
				Subreddit:  d.Subreddit,
				Title:      d.Title,
				Author:     d.Author,
				Permalink:  c.baseURL + d.Permalink,
				CreatedAt:  created,
				Upvotes:    d.Score,
				NumReplies: d.NumComments,
			})
		}
	}

	if failures == len(subreddits) {
		return nil, fmt.Errorf("all %d subreddit searches failed", failures)
	}

	// Engagement rank: upvotes weigh replies in, recent ties go first.
	sort.SliceStable(merged, func(i, j int) bool {
		return engagement(merged[i]) > engagement(merged[j])
	})
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

func engagement(t model.CandidateThread) int {
	return t.Upvotes + 2*t.NumReplies
}

// GetThread deep-fetches a thread by permalink: body plus top comments,
// sorted by descending score, empty or removed bodies dropped, capped at
// model.MaxTopComments.
func (c *Client) GetThread(ctx context.Context, permalink string) (*model.FullThread, error) {
	path := strings.TrimPrefix(permalink, c.baseURL)
	endpoint := fmt.Sprintf("%s%s.json?raw_json=1&sort=top&limit=%d", c.baseURL, strings.TrimSuffix(path, "/"), model.MaxTopComments*2)

	// Reddit returns [postListing, commentListing].
	var listings []listingResponse
	if err := c.getJSON(ctx, endpoint, &listings); err != nil {
		return nil, fmt.Errorf("fetching thread %s: %w", permalink, err)
	}
	if len(listings) == 0 || len(listings[0].Data.Children) == 0 {
		return nil, fmt.Errorf("thread %s: empty response", permalink)
	}

	post := listings[0].Data.Children[0].Data
	thread := &model.FullThread{
		CandidateThread: model.CandidateThread{
			ID:         post.ID,
			Subreddit:  post.Subreddit,
			Title:      post.Title,
			Author:     post.Author,
			Permalink:  c.baseURL + post.Permalink,
			CreatedAt:  time.Unix(int64(post.CreatedUTC), 0).UTC(),
			Upvotes:    post.Score,
			NumReplies: post.NumComments,
		},
		Body: post.SelfText,
	}

	if len(listings) > 1 {
		for _, child := range listings[1].Data.Children {
			if child.Kind != "t1" {
				continue
			}
			d := child.Data
			body := strings.TrimSpace(d.Body)
			if body == "" || body == "[deleted]" || body == "[removed]" {
				continue
			}
			thread.TopComments = append(thread.TopComments, model.ThreadComment{
				Author:    d.Author,
				Body:      body,
				Score:     d.Score,
				CreatedAt: time.Unix(int64(d.CreatedUTC), 0).UTC(),
			})
		}
		sort.SliceStable(thread.TopComments, func(i, j int) bool {
			return thread.TopComments[i].Score > thread.TopComments[j].Score
		})
		if len(thread.TopComments) > model.MaxTopComments {
			thread.TopComments = thread.TopComments[:model.MaxTopComments]
		}
	}

	return thread, nil
}

// FetchSubredditRules implements rules.Source.
func (c *Client) FetchSubredditRules(ctx context.Context, subreddit string) ([]rules.RuleText, error) {
	endpoint := fmt.Sprintf("%s/r/%s/about/rules.json?raw_json=1", c.baseURL, url.PathEscape(subreddit))

	var resp rulesResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("fetching rules for r/%s: %w", subreddit, err)
	}

	out := make([]rules.RuleText, 0, len(resp.Rules))
	for _, r := range resp.Rules {
		out = append(out, rules.RuleText{ShortName: r.ShortName, Description: r.Description})
	}
	return out, nil
}

func (c *Client) searchSubreddit(ctx context.Context, subreddit, query string, lookback time.Duration) (*listingResponse, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("restrict_sr", "1")
	params.Set("sort", "new")
	params.Set("t", lookbackWindow(lookback))
	params.Set("limit", fmt.Sprint(searchLimit))
	params.Set("raw_json", "1")

	endpoint := fmt.Sprintf("%s/r/%s/search.json?%s", c.baseURL, url.PathEscape(subreddit), params.Encode())

	var listing listingResponse
	if err := c.getJSON(ctx, endpoint, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

// lookbackWindow maps a duration onto the API's coarse time filter.
func lookbackWindow(d time.Duration) string {
	switch {
	case d <= time.Hour:
		return "hour"
	case d <= 24*time.Hour:
		return "day"
	default:
		return "week"
	}
}

func (c *Client) getJSON(ctx context.Context, endpoint string, dst any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, endpoint)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
