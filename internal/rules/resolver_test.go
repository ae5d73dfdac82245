package rules

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeSource struct {
	texts   []RuleText
	err     error
	fetches int
}

func (f *fakeSource) FetchSubredditRules(_ context.Context, _ string) ([]RuleText, error) {
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	return f.texts, nil
}

func TestGetRulesCachesFreshEntries(t *testing.T) {
	src := &fakeSource{texts: []RuleText{{ShortName: "Be nice", Description: "no insults"}}}
	r := NewResolver(src)
	ctx := context.Background()

	first := r.GetRules(ctx, "golang")
	second := r.GetRules(ctx, "Golang")

	if src.fetches != 1 {
		t.Errorf("fetches = %d, want 1 (case-insensitive cache hit)", src.fetches)
	}
	if first != second {
		t.Errorf("cached summary differs: %+v vs %+v", first, second)
	}
}

func TestGetRulesExpiresAfterTTL(t *testing.T) {
	src := &fakeSource{texts: []RuleText{{ShortName: "ok"}}}
	r := NewResolver(src)

	current := time.Now()
	r.now = func() time.Time { return current }

	ctx := context.Background()
	r.GetRules(ctx, "golang")
	current = current.Add(CacheTTL + time.Minute)
	r.GetRules(ctx, "golang")

	if src.fetches != 2 {
		t.Errorf("fetches = %d, want 2 after TTL expiry", src.fetches)
	}
}

func TestGetRulesFailureNotCached(t *testing.T) {
	src := &fakeSource{err: errors.New("rate limited")}
	r := NewResolver(src)
	ctx := context.Background()

	got := r.GetRules(ctx, "golang")
	if got.LinksAllowed {
		t.Error("conservative default should forbid links")
	}
	if !got.VendorDisclosureRequired {
		t.Error("conservative default should require disclosure")
	}
	if got.LinkLimit == nil || *got.LinkLimit != 1 {
		t.Error("conservative default should cap links at 1")
	}

	// Source recovers; next call must retry instead of serving the failure.
	src.err = nil
	src.texts = []RuleText{{ShortName: "anything goes"}}
	got = r.GetRules(ctx, "golang")
	if !got.LinksAllowed {
		t.Error("recovered fetch should not be masked by a cached failure")
	}
	if src.fetches != 2 {
		t.Errorf("fetches = %d, want 2", src.fetches)
	}
}

func TestClearCache(t *testing.T) {
	src := &fakeSource{texts: []RuleText{{ShortName: "ok"}}}
	r := NewResolver(src)
	ctx := context.Background()

	r.GetRules(ctx, "a")
	r.GetRules(ctx, "b")

	r.ClearCache("a")
	r.GetRules(ctx, "a")
	r.GetRules(ctx, "b")
	if src.fetches != 3 {
		t.Errorf("fetches = %d, want 3 after single-key invalidation", src.fetches)
	}

	r.ClearCache()
	r.GetRules(ctx, "a")
	r.GetRules(ctx, "b")
	if src.fetches != 5 {
		t.Errorf("fetches = %d, want 5 after full invalidation", src.fetches)
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name           string
		texts          []RuleText
		wantLinks      bool
		wantDisclosure bool
		wantLimit      *int
	}{
		{
			name:      "no signals",
			texts:     []RuleText{{ShortName: "Be civil", Description: "treat others kindly"}},
			wantLinks: true,
		},
		{
			name: "links forbidden",
			texts: []RuleText{
				{ShortName: "No self-promotion", Description: "links are not allowed"},
			},
			wantLinks:      false,
			wantDisclosure: true,
		},
		{
			name: "disclosure required",
			texts: []RuleText{
				{ShortName: "Transparency", Description: "disclose any vendor affiliation"},
			},
			wantLinks:      true,
			wantDisclosure: true,
		},
		{
			name: "one link limit",
			texts: []RuleText{
				{ShortName: "Links", Description: "at most one link per comment"},
			},
			wantLinks: true,
			wantLimit: intPtr(1),
		},
		{
			name:      "empty rules",
			texts:     nil,
			wantLinks: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.texts)
			if got.LinksAllowed != tt.wantLinks {
				t.Errorf("LinksAllowed = %v, want %v", got.LinksAllowed, tt.wantLinks)
			}
			if got.VendorDisclosureRequired != tt.wantDisclosure {
				t.Errorf("VendorDisclosureRequired = %v, want %v", got.VendorDisclosureRequired, tt.wantDisclosure)
			}
			switch {
			case tt.wantLimit == nil && got.LinkLimit != nil:
				t.Errorf("LinkLimit = %d, want nil", *got.LinkLimit)
			case tt.wantLimit != nil && (got.LinkLimit == nil || *got.LinkLimit != *tt.wantLimit):
				t.Errorf("LinkLimit = %v, want %d", got.LinkLimit, *tt.wantLimit)
			}
		})
	}
}

func intPtr(v int) *int { return &v }
