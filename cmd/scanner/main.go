// Command scanner runs a single scan from the terminal and prints the event
// stream as it arrives. Useful for trying the pipeline without the server;
// pair with SCORING_PROVIDER=fixture for a fully offline run.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mplacona/ThreadScout/common/id"
	"github.com/mplacona/ThreadScout/common/logger"
	"github.com/mplacona/ThreadScout/core/config"
	"github.com/mplacona/ThreadScout/internal/agent"
	"github.com/mplacona/ThreadScout/internal/model"
	"github.com/mplacona/ThreadScout/internal/reddit"
	"github.com/mplacona/ThreadScout/internal/rules"
	"github.com/mplacona/ThreadScout/internal/scan"
	"github.com/mplacona/ThreadScout/internal/store"
)

func main() {
	subreddits := flag.String("subreddits", "", "comma-separated subreddits to scan (required)")
	keywords := flag.String("keywords", "", "comma-separated keywords to match (required)")
	lookback := flag.Duration("lookback", 24*time.Hour, "how far back to search")
	maxThreads := flag.Int("max-threads", 5, "maximum threads to analyze")
	domains := flag.String("allowed-domains", "", "comma-separated domains drafts may link to")
	flag.Parse()

	if *subreddits == "" || *keywords == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeScanner)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg)

	if err := id.Init(1); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize id generator: %v\n", err)
		os.Exit(1)
	}

	sessions, err := store.NewLocalSessionStore(cfg.Store.LocalDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open session store: %v\n", err)
		os.Exit(1)
	}

	var scoring agent.ScoringService
	if cfg.Scoring.Provider == "openai" {
		scoring, err = agent.NewOpenAI(agent.OpenAIConfig{
			APIKey:  cfg.Scoring.APIKey,
			BaseURL: cfg.Scoring.BaseURL,
			Model:   cfg.Scoring.Model,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create scoring service: %v\n", err)
			os.Exit(1)
		}
	} else {
		scoring = agent.NewFixture(cfg.Scoring.FixtureDomain)
	}

	redditClient := reddit.NewClient(reddit.Config{
		BaseURL:           cfg.Reddit.BaseURL,
		UserAgent:         cfg.Reddit.UserAgent,
		RequestsPerSecond: cfg.Reddit.RequestsPerSecond,
	})

	pipeline := scan.NewPipeline(
		redditClient,
		rules.NewResolver(redditClient),
		scoring,
		sessions,
		scan.NewRegistry(),
		scan.Options{
			Pacing:     time.Duration(cfg.Scan.PacingMS) * time.Millisecond,
			Disclosure: cfg.Scan.Disclosure,
		},
	)

	session, err := pipeline.Start(ctx, model.ScanRequest{
		Subreddits:     splitList(*subreddits),
		Keywords:       splitList(*keywords),
		Lookback:       *lookback,
		MaxThreads:     *maxThreads,
		AllowedDomains: splitList(*domains),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start scan: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "session: %s (scoring: %s)\n", session.ID(), scoring.Name())

	exitCode := 0
	for event := range session.Events() {
		printEvent(event)
		if event.Type == model.EventError && event.Fatal {
			exitCode = 1
		}
	}

	slog.InfoContext(ctx, "scan finished", "session_id", session.ID(), "state", session.State())
	os.Exit(exitCode)
}

func printEvent(event model.ScanEvent) {
	switch event.Type {
	case model.EventStatus:
		fmt.Printf("* %s\n", event.Message)
	case model.EventProgress:
		fmt.Printf("[%d/%d] %s\n", event.Current, event.Total, event.Message)
	case model.EventThread:
		t := event.Thread
		fmt.Printf("  score %.0f  r/%s  %s\n", t.Score, t.Thread.Subreddit, t.Thread.Title)
		fmt.Printf("    why: %s\n", t.WhyFit)
		fmt.Printf("    draft A: %s\n", logger.Truncate(t.VariantA.Text, 120))
		fmt.Printf("    draft B: %s\n", logger.Truncate(t.VariantB.Text, 120))
	case model.EventCompleted:
		fmt.Printf("done: %d threads analyzed\n", event.TotalThreads)
	case model.EventCancelled:
		fmt.Println("cancelled")
	case model.EventError:
		fmt.Fprintf(os.Stderr, "error: %s (%s)\n", event.Error, event.Details)
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
