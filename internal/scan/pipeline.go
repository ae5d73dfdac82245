package scan

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/mplacona/ThreadScout/common/id"
	"github.com/mplacona/ThreadScout/common/logger"
	"github.com/mplacona/ThreadScout/internal/agent"
	"github.com/mplacona/ThreadScout/internal/decode"
	"github.com/mplacona/ThreadScout/internal/model"
	"github.com/mplacona/ThreadScout/internal/store"
	"github.com/mplacona/ThreadScout/internal/validate"
)

const defaultPacing = 2 * time.Second

// Discovery finds candidate threads and fetches their full content.
type Discovery interface {
	SearchThreads(ctx context.Context, subreddits, keywords []string, lookback time.Duration, limit int) ([]model.CandidateThread, error)
	GetThread(ctx context.Context, permalink string) (*model.FullThread, error)
}

// RulesResolver supplies a posting-policy summary per subreddit. It never
// fails; unavailable rules come back as conservative defaults.
type RulesResolver interface {
	GetRules(ctx context.Context, subreddit string) model.RulesSummary
}

// Options tune pipeline behavior; zero values get sane defaults.
type Options struct {
	// Pacing is the delay inserted before every candidate after the first.
	Pacing time.Duration

	// Disclosure overrides the generated disclosure line appended to drafts
	// when the subreddit requires one and the scoring service supplied none.
	Disclosure string
}

// Pipeline wires the collaborators of a scan and starts sessions. It holds
// no per-scan state; sessions share nothing but the registry.
type Pipeline struct {
	discovery  Discovery
	rules      RulesResolver
	scoring    agent.ScoringService
	sessions   store.SessionStore
	registry   Registry
	pacing     time.Duration
	disclosure string
}

func NewPipeline(discovery Discovery, rules RulesResolver, scoring agent.ScoringService, sessions store.SessionStore, registry Registry, opts Options) *Pipeline {
	pacing := opts.Pacing
	if pacing <= 0 {
		pacing = defaultPacing
	}
	return &Pipeline{
		discovery:  discovery,
		rules:      rules,
		scoring:    scoring,
		sessions:   sessions,
		registry:   registry,
		pacing:     pacing,
		disclosure: opts.Disclosure,
	}
}

// Start validates the request, registers a session, and runs it in the
// background. The returned handle exposes the event stream and the cancel
// trigger; the caller's context deadline does not bound the scan.
func (p *Pipeline) Start(ctx context.Context, req model.ScanRequest) (Handle, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = fmt.Sprintf("scan_%d", id.New())
	} else if err := store.ValidateKey(sessionID); err != nil {
		return nil, err
	}
	req.SessionID = sessionID

	session := newSession(sessionID)
	if err := p.registry.Register(sessionID, session); err != nil {
		return nil, err
	}

	runCtx := logger.WithLogFields(context.WithoutCancel(ctx), logger.LogFields{
		SessionID: logger.Ptr(sessionID),
		Component: "threadscout.scan.pipeline",
	})
	go p.run(runCtx, session, req)
	return session, nil
}

func (p *Pipeline) run(ctx context.Context, s *Session, req model.ScanRequest) {
	defer p.registry.Deregister(s.id)
	defer close(s.events)

	sc := logger.StartSpan(ctx, "scan.session")
	defer sc.End()
	ctx = sc.Context()

	s.setState(StateRunning)
	s.emit(model.ScanEvent{Type: model.EventStatus, Message: "discovering threads"})

	candidates, err := p.discovery.SearchThreads(ctx, req.Subreddits, req.Keywords, req.Lookback, req.MaxThreads)
	if err != nil {
		slog.ErrorContext(ctx, "thread discovery failed", "error", err)
		sc.RecordError(err)
		s.setState(StateFailed)
		s.emit(model.ScanEvent{
			Type:    model.EventError,
			Error:   "thread discovery failed",
			Details: err.Error(),
			Fatal:   true,
		})
		return
	}

	record := &model.SessionRecord{
		SessionID: s.id,
		CreatedAt: time.Now().UTC(),
		Request:   req,
	}

	total := len(candidates)
	s.emit(model.ScanEvent{
		Type:    model.EventStatus,
		Message: fmt.Sprintf("found %d candidate threads", total),
	})

	for i, candidate := range candidates {
		if s.isCancelled() {
			p.finish(ctx, s, record, true)
			return
		}
		if i > 0 && !p.pace(s) {
			p.finish(ctx, s, record, true)
			return
		}

		candCtx := logger.WithLogFields(ctx, logger.LogFields{
			Subreddit: logger.Ptr(candidate.Subreddit),
			ThreadID:  logger.Ptr(candidate.ID),
		})
		s.emit(model.ScanEvent{
			Type:    model.EventProgress,
			Current: i + 1,
			Total:   total,
			Message: fmt.Sprintf("analyzing r/%s: %s", candidate.Subreddit, logger.Truncate(candidate.Title, 80)),
		})

		analysis, err := p.processCandidate(candCtx, candidate, req)
		if err != nil {
			slog.WarnContext(candCtx, "candidate skipped", "error", err)
			s.emit(model.ScanEvent{
				Type:    model.EventError,
				Error:   fmt.Sprintf("skipped thread %s", candidate.ID),
				Details: err.Error(),
			})
			continue
		}

		record.Threads = append(record.Threads, *analysis)
		s.emit(model.ScanEvent{Type: model.EventThread, Thread: analysis})
	}

	p.finish(ctx, s, record, false)
}

// pace waits out the inter-candidate delay, returning false if the session
// was cancelled during the wait.
func (p *Pipeline) pace(s *Session) bool {
	timer := time.NewTimer(p.pacing)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-s.cancelled:
		return false
	}
}

func (p *Pipeline) processCandidate(ctx context.Context, candidate model.CandidateThread, req model.ScanRequest) (*model.ThreadAnalysis, error) {
	sc := logger.StartSpan(ctx, "scan.candidate")
	defer sc.End()
	ctx = sc.Context()

	rules := p.rules.GetRules(ctx, candidate.Subreddit)

	thread, err := p.discovery.GetThread(ctx, candidate.Permalink)
	if err != nil {
		return nil, fmt.Errorf("fetching thread content: %w", err)
	}

	raw, err := p.scoring.AnalyzeThread(ctx, thread, rules, req.Keywords)
	if err != nil {
		return nil, fmt.Errorf("scoring thread: %w", err)
	}

	decoded, err := decode.Analysis(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding analysis: %w", err)
	}

	return p.validateDrafts(thread, decoded, rules, req.AllowedDomains), nil
}

// validateDrafts rewrites both draft variants to satisfy the link and
// disclosure invariants. Variant B is the one allowed to carry a link, so
// it alone picks up a disclosure when the subreddit demands one.
func (p *Pipeline) validateDrafts(thread *model.FullThread, decoded *model.AgentAnalysis, rules model.RulesSummary, allowed []string) *model.ThreadAnalysis {
	var violations []string

	variantA := cleanVariant(decoded.VariantA, allowed, &violations)
	variantB := cleanVariant(decoded.VariantB, allowed, &violations)

	if rules.VendorDisclosureRequired && len(validate.ExtractLinks(variantB.Text)) > 0 {
		disclosure := variantB.Disclosure
		if disclosure == "" {
			disclosure = p.defaultDisclosure(allowed)
		}
		variantB.Text = validate.EnsureDisclosure(variantB.Text, disclosure)
		variantB.Disclosure = disclosure
	}

	return &model.ThreadAnalysis{
		Thread:         *thread,
		Score:          decoded.Score,
		WhyFit:         decoded.WhyFit,
		Rules:          rules,
		Risks:          decoded.Risks,
		VariantA:       variantA,
		VariantB:       variantB,
		LinkViolations: violations,
	}
}

func cleanVariant(v model.DraftVariant, allowed []string, violations *[]string) model.DraftVariant {
	one := validate.EnforceOneLink(v.Text)
	listed := validate.EnforceAllowlist(one.Cleaned, allowed)
	*violations = append(*violations, listed.Violations...)
	v.Text = listed.Cleaned
	return v
}

func (p *Pipeline) defaultDisclosure(allowed []string) string {
	if p.disclosure != "" {
		return p.disclosure
	}
	if len(allowed) > 0 {
		return fmt.Sprintf("Disclosure: I work on %s.", allowed[0])
	}
	return "Disclosure: I am affiliated with the product mentioned above."
}

// finish sorts accumulated results, persists the record, and emits the
// terminal event. Runs exactly once per session.
func (p *Pipeline) finish(ctx context.Context, s *Session, record *model.SessionRecord, cancelled bool) {
	sort.SliceStable(record.Threads, func(i, j int) bool {
		return record.Threads[i].Score > record.Threads[j].Score
	})

	if err := p.sessions.Write(ctx, s.id, record); err != nil {
		slog.ErrorContext(ctx, "persisting session record failed", "error", err)
		s.emit(model.ScanEvent{
			Type:    model.EventError,
			Error:   "persisting session record failed",
			Details: err.Error(),
		})
	}

	if cancelled {
		slog.InfoContext(ctx, "scan cancelled", "threads", len(record.Threads))
		s.setState(StateCancelled)
		s.emit(model.ScanEvent{Type: model.EventCancelled, Message: "scan cancelled"})
		return
	}

	slog.InfoContext(ctx, "scan completed", "threads", len(record.Threads))
	s.setState(StateCompleted)
	s.emit(model.ScanEvent{
		Type:         model.EventCompleted,
		Message:      "scan completed",
		TotalThreads: len(record.Threads),
	})
}
