// Package httpapi implements the HTTP surface named in spec.md §6: huma
// route handlers over chi, the two shared-secret-header capability gates,
// and the response envelope every handler returns through. Grounded on the
// teacher's cmd/refyne-api/main.go (chi+huma wiring, middleware chain) and
// internal/http/handlers (Input/Output struct-per-route shape).
package httpapi

import (
	"github.com/mkochhar/jobops/internal/adapters"
	"github.com/mkochhar/jobops/internal/config"
	"github.com/mkochhar/jobops/internal/fetch"
	"github.com/mkochhar/jobops/internal/ingest"
	"github.com/mkochhar/jobops/internal/jd"
	"github.com/mkochhar/jobops/internal/lifecycle"
	"github.com/mkochhar/jobops/internal/llm"
	"github.com/mkochhar/jobops/internal/locks"
	"github.com/mkochhar/jobops/internal/recovery"
	"github.com/mkochhar/jobops/internal/repository"
	"github.com/mkochhar/jobops/internal/scoring"
)

// Deps bundles every collaborator a handler file needs. Built once at
// startup in cmd/jobops/main.go and passed to NewRouter.
type Deps struct {
	Cfg *config.Config

	Repos       *repository.Repositories
	Locker      *locks.KeyedLocker
	Resolver    *jd.Resolver
	Lifecycle   *lifecycle.Machine
	Scoring     *scoring.Pipeline
	Orchestrator *ingest.Orchestrator
	Recovery    *recovery.Loop

	Fetcher fetch.Fetcher
	AI      llm.Client

	// ChatVerifier is nil when CHAT_WEBHOOK_SECRET is unset; the
	// /webhooks/chat route is then not registered.
	ChatVerifier *adapters.ChatVerifier
}

// stateReporter is satisfied by llm.BreakerClient and fetch.CollyFetcher,
// both of which expose their circuit breaker's current state for /health.
type stateReporter interface {
	State() string
}
