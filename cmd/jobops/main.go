// Package main is the entry point for the jobops server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkochhar/jobops/internal/adapters"
	"github.com/mkochhar/jobops/internal/config"
	"github.com/mkochhar/jobops/internal/database"
	"github.com/mkochhar/jobops/internal/fetch"
	"github.com/mkochhar/jobops/internal/httpapi"
	"github.com/mkochhar/jobops/internal/ingest"
	"github.com/mkochhar/jobops/internal/jd"
	"github.com/mkochhar/jobops/internal/lifecycle"
	"github.com/mkochhar/jobops/internal/llm"
	"github.com/mkochhar/jobops/internal/locks"
	"github.com/mkochhar/jobops/internal/logging"
	"github.com/mkochhar/jobops/internal/recovery"
	"github.com/mkochhar/jobops/internal/repository"
	"github.com/mkochhar/jobops/internal/scheduler"
	"github.com/mkochhar/jobops/internal/scoring"
)

func main() {
	logger := logging.SetDefault()
	logger.Info("starting jobops")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.DatabaseURL, cfg.TursoURL, cfg.TursoAuthToken)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := database.MigrateWithLogger(db, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	repos := repository.NewRepositories(db)
	locker := locks.NewKeyedLocker()
	fetcher := fetch.NewCollyFetcher(cfg.FetchTimeout, 5)
	resolver := jd.NewResolver(fetcher)
	lc := lifecycle.New(repos.Event, cfg.ShortlistThreshold)

	ai := buildAIClient(cfg)

	pipeline := scoring.New(repos, ai, cfg)
	orchestrator := ingest.New(repos, locker, resolver, lc, pipeline, cfg, cfg.AIAvailable)
	recoveryLoop := recovery.New(repos, locker, resolver, lc, pipeline, cfg)

	keywordCache := config.NewRefreshableKeywords(cfg, func() (allow, block []string) {
		return cfg.RSSAllowKeywords, cfg.RSSBlockKeywords
	})

	var chatVerifier *adapters.ChatVerifier
	if cfg.ChatWebhookSecret != "" {
		chatVerifier, err = adapters.NewChatVerifier(cfg.ChatWebhookSecret)
		if err != nil {
			logger.Error("failed to build chat webhook verifier", "error", err)
			os.Exit(1)
		}
	}

	deps := &httpapi.Deps{
		Cfg:          cfg,
		Repos:        repos,
		Locker:       locker,
		Resolver:     resolver,
		Lifecycle:    lc,
		Scoring:      pipeline,
		Orchestrator: orchestrator,
		Recovery:     recoveryLoop,
		Fetcher:      fetcher,
		AI:           ai,
		ChatVerifier: chatVerifier,
	}

	router := httpapi.NewRouter(deps)

	ctx, cancel := context.WithCancel(context.Background())

	sched := buildScheduler(cfg, repos, orchestrator, recoveryLoop, keywordCache, fetcher)
	sched.Start(ctx)

	server := &http.Server{
		Addr:         fmtAddr(cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		<-sigChan

		logger.Info("shutting down server")
		cancel()
		sched.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	logger.Info("listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildAIClient wires the configured LLM provider, wrapping it in a circuit
// breaker so /health can report per-provider state, per SPEC_FULL.md's
// supplemented circuit-breaker feature. Anthropic is preferred; the
// OpenAI-compatible client is the fallback used only when Anthropic has no
// key configured.
func buildAIClient(cfg *config.Config) llm.Client {
	var inner llm.Client
	switch {
	case cfg.HasAnthropic():
		inner = llm.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	case cfg.HasOpenAICompatible():
		inner = llm.NewOpenAICompatibleClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	default:
		return nil
	}
	return llm.NewBreakerClient(inner)
}

// buildScheduler wires the Scheduler (C9) triggers per spec.md §4.9: an
// rss_poll trigger over the configured feed URLs, and the three Recovery
// Loop sweeps. There is no email_poll trigger — no IMAP client exists
// anywhere in the retrieval pack, and internal/adapters/email.go only
// parses already-received content, so email ingestion is driven by
// POST /ingest's email_text/email_html fields instead of a poll (see
// DESIGN.md's Open Questions).
func buildScheduler(cfg *config.Config, repos *repository.Repositories, orchestrator *ingest.Orchestrator, recoveryLoop *recovery.Loop, keywords *config.RefreshableKeywords, fetcher fetch.Fetcher) *scheduler.Scheduler {
	triggers := []scheduler.Trigger{
		{
			Name: "rss_poll",
			Run: func(ctx context.Context) error {
				allow, block := keywords.Get()
				for _, feedURL := range cfg.RSSFeedURLs {
					res, err := fetcher.Fetch(ctx, feedURL)
					if err != nil {
						continue
					}
					items := adapters.ParseRSS(res.Body, allow, block, time.Now().UTC())
					if len(items) == 0 {
						continue
					}
					if _, err := orchestrator.Ingest(ctx, items); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			Name:     "recovery_backfill",
			Schedule: "*/30 * * * *",
			Run: func(ctx context.Context) error {
				if !cfg.RecoveryEnabled {
					return nil
				}
				_, err := recoveryLoop.BackfillMissingJD(ctx, time.Now().Add(-cfg.RecoverStaleAfter), cfg.RecoverBackfillLimit, false)
				return err
			},
		},
		{
			Name:     "recovery_rescore",
			Schedule: "0 * * * *",
			Run: func(ctx context.Context) error {
				if !cfg.RecoveryEnabled {
					return nil
				}
				_, err := recoveryLoop.RescoreExisting(ctx, cfg.RecoverRescoreLimit, false)
				return err
			},
		},
		{
			Name:     "recovery_retry_fetch",
			Schedule: "*/15 * * * *",
			Run: func(ctx context.Context) error {
				if !cfg.RecoveryEnabled {
					return nil
				}
				_, err := recoveryLoop.RetryFetch(ctx, cfg.RecoverRetryLimit, false)
				return err
			},
		},
	}
	return scheduler.New(repos.Event, cfg.SchedulerInterval, triggers)
}

func fmtAddr(port int) string {
	return fmt.Sprintf(":%d", port)
}
