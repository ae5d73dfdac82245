package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/mplacona/ThreadScout/common/id"
	"github.com/mplacona/ThreadScout/common/logger"
	"github.com/mplacona/ThreadScout/common/otel"
	"github.com/mplacona/ThreadScout/core/config"
	"github.com/mplacona/ThreadScout/core/db"
	"github.com/mplacona/ThreadScout/internal/agent"
	"github.com/mplacona/ThreadScout/internal/http/handler"
	"github.com/mplacona/ThreadScout/internal/http/middleware"
	httprouter "github.com/mplacona/ThreadScout/internal/http/router"
	"github.com/mplacona/ThreadScout/internal/reddit"
	"github.com/mplacona/ThreadScout/internal/rules"
	"github.com/mplacona/ThreadScout/internal/scan"
	"github.com/mplacona/ThreadScout/internal/store"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		// Can't use slog yet — OTel failed before logger setup
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "threadscout starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	sessions, cleanup, err := newSessionStore(ctx, cfg.Store)
	if err != nil {
		slog.ErrorContext(ctx, "failed to initialize session store", "error", err, "backend", cfg.Store.Backend)
		os.Exit(1)
	}
	defer cleanup()
	slog.InfoContext(ctx, "session store ready", "backend", cfg.Store.Backend)

	scoring, err := newScoringService(cfg.Scoring)
	if err != nil {
		slog.ErrorContext(ctx, "failed to initialize scoring service", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "scoring service ready", "provider", scoring.Name())

	redditClient := reddit.NewClient(reddit.Config{
		BaseURL:           cfg.Reddit.BaseURL,
		UserAgent:         cfg.Reddit.UserAgent,
		RequestsPerSecond: cfg.Reddit.RequestsPerSecond,
	})
	resolver := rules.NewResolver(redditClient)

	registry := scan.NewRegistry()
	pipeline := scan.NewPipeline(redditClient, resolver, scoring, sessions, registry, scan.Options{
		Pacing:     time.Duration(cfg.Scan.PacingMS) * time.Millisecond,
		Disclosure: cfg.Scan.Disclosure,
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, pipeline, registry, sessions)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func newSessionStore(ctx context.Context, cfg config.StoreConfig) (store.SessionStore, func(), error) {
	switch cfg.Backend {
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return store.NewRedisSessionStore(client), func() { _ = client.Close() }, nil

	case "postgres":
		database, err := db.New(ctx, cfg.DB)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		pgStore := store.NewPostgresSessionStore(database.Pool())
		if err := pgStore.EnsureSchema(ctx); err != nil {
			database.Close()
			return nil, nil, err
		}
		return pgStore, database.Close, nil

	default:
		localStore, err := store.NewLocalSessionStore(cfg.LocalDir)
		if err != nil {
			return nil, nil, err
		}
		return localStore, func() {}, nil
	}
}

func newScoringService(cfg config.ScoringConfig) (agent.ScoringService, error) {
	if cfg.Provider == "openai" {
		return agent.NewOpenAI(agent.OpenAIConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})
	}
	return agent.NewFixture(cfg.FixtureDomain), nil
}

func setupRouter(cfg config.Config, pipeline *scan.Pipeline, registry scan.Registry, sessions store.SessionStore) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	scanHandler := handler.NewScanHandler(pipeline, registry, cfg.AdminAPIKey)
	sessionHandler := handler.NewSessionHandler(sessions)
	httprouter.SetupRoutes(router, scanHandler, sessionHandler)

	return router
}

const banner = `
████████╗██╗  ██╗██████╗ ███████╗ █████╗ ██████╗ ███████╗ ██████╗ ██████╗ ██╗   ██╗████████╗
╚══██╔══╝██║  ██║██╔══██╗██╔════╝██╔══██╗██╔══██╗██╔════╝██╔════╝██╔═══██╗██║   ██║╚══██╔══╝
   ██║   ███████║██████╔╝█████╗  ███████║██║  ██║███████╗██║     ██║   ██║██║   ██║   ██║
   ██║   ██╔══██║██╔══██╗██╔══╝  ██╔══██║██║  ██║╚════██║██║     ██║   ██║██║   ██║   ██║
   ██║   ██║  ██║██║  ██║███████╗██║  ██║██████╔╝███████║╚██████╗╚██████╔╝╚██████╔╝   ██║
   ╚═╝   ╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝╚═════╝ ╚══════╝ ╚═════╝ ╚═════╝  ╚═════╝    ╚═╝
`
