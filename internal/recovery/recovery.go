// Package recovery implements the Recovery Loops (C8): backfill, rescore,
// and retry-fetch sweeps over jobs stuck in a transient failure state, each
// bounded by a limit and reporting a per-source summary, per spec.md §4.8.
// Grounded on the teacher's internal/worker.Worker adaptive-poll sweep shape
// (runWorker/processNextJob), adapted from "claim one pending job" to "list
// a bounded batch of stale rows and drive each back through the pipeline".
package recovery

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mkochhar/jobops/internal/config"
	"github.com/mkochhar/jobops/internal/jd"
	"github.com/mkochhar/jobops/internal/lifecycle"
	"github.com/mkochhar/jobops/internal/locks"
	"github.com/mkochhar/jobops/internal/logging"
	"github.com/mkochhar/jobops/internal/metrics"
	"github.com/mkochhar/jobops/internal/models"
	"github.com/mkochhar/jobops/internal/repository"
	"github.com/mkochhar/jobops/internal/scoring"
)

// Summary is the per-source_domain recovery result shape from spec.md §4.8.
type Summary struct {
	SourceDomain string `json:"source_domain"`
	Total        int    `json:"total"`
	Recovered    int    `json:"recovered"`
	ManualNeeded int    `json:"manual_needed"`
	NeedsAI      int    `json:"needs_ai"`
	Blocked      int    `json:"blocked"`
	LowQuality   int    `json:"low_quality"`
	LinkOnly     int    `json:"link_only"`
	Ignored      int    `json:"ignored"`
	Inserted     int    `json:"inserted"`
	Updated      int    `json:"updated"`
}

// Loop drives the three recovery sweeps. It reuses the Ingest Orchestrator's
// per-job_key lock so a recovery pass and a live ingest can never race the
// same row (spec.md §5's "Recovery Loops acquire the same per-key locks").
type Loop struct {
	Jobs      *repository.JobRepository
	Targets   *repository.TargetRepository
	Locks     *locks.KeyedLocker
	Resolver  *jd.Resolver
	Lifecycle *lifecycle.Machine
	Scoring   *scoring.Pipeline
	Cfg       *config.Config

	hostMu        sync.Mutex
	hostLastRetry map[string]time.Time
}

// New builds a Loop from its collaborators.
func New(repos *repository.Repositories, locker *locks.KeyedLocker, resolver *jd.Resolver, lc *lifecycle.Machine, pipeline *scoring.Pipeline, cfg *config.Config) *Loop {
	return &Loop{
		Jobs: repos.Job, Targets: repos.Target, Locks: locker, Resolver: resolver,
		Lifecycle: lc, Scoring: pipeline, Cfg: cfg,
		hostLastRetry: make(map[string]time.Time),
	}
}

// BackfillMissingJD re-runs JD resolution for jobs with empty/low-quality JD
// whose updated_at predates staleBefore.
func (l *Loop) BackfillMissingJD(ctx context.Context, staleBefore time.Time, limit int, force bool) ([]Summary, error) {
	jobs, err := l.Jobs.ListStaleJD(ctx, staleBefore, limit)
	if err != nil {
		return nil, err
	}
	return l.sweep(ctx, "backfill", jobs, force, l.backfillOne)
}

// RescoreExisting re-runs the Scoring Pipeline for jobs with usable JD whose
// last_scored_at predates the latest target configuration update.
func (l *Loop) RescoreExisting(ctx context.Context, limit int, force bool) ([]Summary, error) {
	targetsUpdatedAfter, err := l.Targets.LatestUpdatedAt(ctx)
	if err != nil {
		return nil, err
	}
	jobs, err := l.Jobs.ListNeedingRescore(ctx, targetsUpdatedAfter, limit)
	if err != nil {
		return nil, err
	}
	return l.sweep(ctx, "rescore", jobs, force, l.rescoreOne)
}

// RetryFetch re-fetches JD for jobs whose fetch_status is blocked/failed,
// honoring a per-host cooldown so a failing host is not hammered.
func (l *Loop) RetryFetch(ctx context.Context, limit int, force bool) ([]Summary, error) {
	jobs, err := l.Jobs.ListRetryableFetch(ctx, limit)
	if err != nil {
		return nil, err
	}
	return l.sweep(ctx, "retry_fetch", jobs, force, l.retryFetchOne)
}

type jobOutcome struct {
	recovered, manualNeeded, needsAI, blocked, lowQuality, linkOnly, ignored, inserted, updated bool
}

func (l *Loop) sweep(ctx context.Context, loopName string, jobs []*models.Job, force bool, do func(context.Context, *models.Job, bool) jobOutcome) ([]Summary, error) {
	summaries := map[string]*Summary{}
	log := logging.FromContext(ctx, slog.Default())

	for _, job := range jobs {
		release, err := l.Locks.Acquire(ctx, job.JobKey)
		if err != nil {
			log.Warn("recovery lock busy, skipping", "job_key", job.JobKey)
			continue
		}

		s, ok := summaries[job.SourceDomain]
		if !ok {
			s = &Summary{SourceDomain: job.SourceDomain}
			summaries[job.SourceDomain] = s
		}
		s.Total++

		outcome := do(ctx, job, force)
		release()

		applyOutcome(s, outcome)
		metrics.RecoveryRowsTotal.WithLabelValues(loopName, outcome.label()).Inc()
	}

	result := make([]Summary, 0, len(summaries))
	for _, s := range summaries {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SourceDomain < result[j].SourceDomain })
	return result, nil
}

// label picks the single dominant outcome for the RecoveryRowsTotal metric,
// in the same precedence applyOutcome's callers produce the outcome in.
func (o jobOutcome) label() string {
	switch {
	case o.ignored:
		return "ignored"
	case o.blocked:
		return "blocked"
	case o.lowQuality:
		return "low_quality"
	case o.needsAI:
		return "needs_ai"
	case o.manualNeeded:
		return "manual_needed"
	case o.recovered:
		return "recovered"
	default:
		return "unchanged"
	}
}

func applyOutcome(s *Summary, o jobOutcome) {
	if o.recovered {
		s.Recovered++
	}
	if o.manualNeeded {
		s.ManualNeeded++
	}
	if o.needsAI {
		s.NeedsAI++
	}
	if o.blocked {
		s.Blocked++
	}
	if o.lowQuality {
		s.LowQuality++
	}
	if o.linkOnly {
		s.LinkOnly++
	}
	if o.ignored {
		s.Ignored++
	}
	if o.inserted {
		s.Inserted++
	}
	if o.updated {
		s.Updated++
	}
}

func (l *Loop) backfillOne(ctx context.Context, job *models.Job, force bool) jobOutcome {
	resolution := l.Resolver.Resolve(ctx, job.JobURL, "", "")
	job.FetchStatus = resolution.FetchStatus
	job.JDConfidence = resolution.Confidence

	if resolution.JDTextClean == "" {
		job.JDSource = models.JDSourceNone
		if err := l.Jobs.Update(ctx, job); err != nil {
			logging.FromContext(ctx, slog.Default()).Error("backfill update failed", "job_key", job.JobKey, "error", err)
			return jobOutcome{ignored: true}
		}
		switch resolution.FetchStatus {
		case models.FetchStatusBlocked:
			return jobOutcome{blocked: true, manualNeeded: true, updated: true}
		default:
			return jobOutcome{lowQuality: true, manualNeeded: true, updated: true}
		}
	}

	job.JDTextClean = resolution.JDTextClean
	job.JDSource = resolution.JDSource
	outcome := jobOutcome{recovered: true, updated: true}

	if err := l.Jobs.Update(ctx, job); err != nil {
		logging.FromContext(ctx, slog.Default()).Error("backfill update failed", "job_key", job.JobKey, "error", err)
		return jobOutcome{ignored: true}
	}
	l.maybeScore(ctx, job, force, &outcome)
	if err := l.Jobs.Update(ctx, job); err != nil {
		logging.FromContext(ctx, slog.Default()).Error("backfill post-score update failed", "job_key", job.JobKey, "error", err)
	}
	return outcome
}

func (l *Loop) rescoreOne(ctx context.Context, job *models.Job, force bool) jobOutcome {
	outcome := jobOutcome{updated: true}
	l.maybeScore(ctx, job, force, &outcome)
	if err := l.Jobs.Update(ctx, job); err != nil {
		logging.FromContext(ctx, slog.Default()).Error("rescore update failed", "job_key", job.JobKey, "error", err)
		return jobOutcome{ignored: true}
	}
	if outcome.recovered {
		return outcome
	}
	outcome.recovered = true
	return outcome
}

func (l *Loop) retryFetchOne(ctx context.Context, job *models.Job, force bool) jobOutcome {
	if l.onCooldown(job.SourceDomain) {
		return jobOutcome{ignored: true}
	}
	l.markRetried(job.SourceDomain)
	return l.backfillOne(ctx, job, force)
}

// maybeScore runs the Scoring Pipeline when AI is configured and the job
// carries usable JD text, folding the result into job and its lifecycle
// state exactly as the Ingest Orchestrator does for a fresh envelope.
func (l *Loop) maybeScore(ctx context.Context, job *models.Job, force bool, outcome *jobOutcome) {
	if !job.HasJD() {
		outcome.manualNeeded = true
		return
	}
	if l.Cfg == nil || l.Scoring == nil || !l.Cfg.AIAvailable() {
		outcome.needsAI = true
		return
	}

	result, err := l.Scoring.Run(ctx, job, models.ScoringSourceRescore)
	if err != nil {
		logging.FromContext(ctx, slog.Default()).Error("recovery scoring failed", "job_key", job.JobKey, "error", err)
		outcome.needsAI = true
		return
	}

	switch {
	case result.Run.FinalStatus == models.ScoringFailed:
		_ = l.Lifecycle.ApplyScoringFailure(ctx, job, result.AIUnavailable)
		outcome.needsAI = result.AIUnavailable
	case result.Run.FinalStatus == models.ScoringRejectedHeuristic || result.RejectTriggered:
		_ = l.Lifecycle.ApplyScoringReject(ctx, job, result.Run.FinalStatus == models.ScoringRejectedHeuristic, force)
		job.RejectReasons = result.RejectReasons
		outcome.recovered = true
	default:
		job.ScoreMust = result.ScoreMust
		job.ScoreNice = result.ScoreNice
		job.FinalScore = result.FinalScore
		job.PrimaryTargetID = result.PrimaryTargetID
		job.ReasonTopMatches = result.ReasonTopMatches
		_ = l.Lifecycle.ApplyScoringCompletion(ctx, job, *result.FinalScore, force)
		if job.Status == models.StatusLinkOnly {
			outcome.linkOnly = true
		}
		outcome.recovered = true
	}
}

func (l *Loop) onCooldown(host string) bool {
	l.hostMu.Lock()
	defer l.hostMu.Unlock()
	last, ok := l.hostLastRetry[host]
	return ok && time.Since(last) < l.Cfg.RecoverHostCooldown
}

func (l *Loop) markRetried(host string) {
	l.hostMu.Lock()
	defer l.hostMu.Unlock()
	l.hostLastRetry[host] = time.Now()
}
