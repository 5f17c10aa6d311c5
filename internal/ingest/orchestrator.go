// Package ingest implements the Ingest Orchestrator (C4): per envelope,
// canonicalize -> lock -> probe existence -> resolve JD -> upsert -> optional
// score, returning deterministic per-row actions in submission order per
// spec.md §4.4 and §5.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mkochhar/jobops/internal/canonical"
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

// Action is a row's deterministic ingest outcome, per spec.md §4.4.
type Action string

const (
	ActionInserted Action = "inserted"
	ActionUpdated  Action = "updated"
	ActionIgnored  Action = "ignored"
	ActionLinkOnly Action = "link_only"
)

// RowResult is one envelope's outcome, part of the ingest response contract
// from spec.md §6.
type RowResult struct {
	RawURL       string               `json:"raw_url"`
	JobKey       string               `json:"job_key,omitempty"`
	JobURL       string               `json:"job_url,omitempty"`
	WasExisting  bool                 `json:"was_existing"`
	Action       Action               `json:"action"`
	Status       models.JobStatus     `json:"status,omitempty"`
	JDSource     models.JDSource      `json:"jd_source,omitempty"`
	FetchStatus  models.FetchStatus   `json:"fetch_status,omitempty"`
	SystemStatus *models.SystemStatus `json:"system_status,omitempty"`
	Error        string               `json:"error,omitempty"`
}

// Counts aggregates RowResult.Action across one batch.
type Counts struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Ignored  int `json:"ignored"`
	LinkOnly int `json:"link_only"`
}

// BatchResult is the Ingest Orchestrator's contractual response.
type BatchResult struct {
	Counts  Counts      `json:"counts"`
	Results []RowResult `json:"results"`
}

// Orchestrator drives C1 (Canonicalizer), C2 (JD Resolver), C6 (Lifecycle),
// and optionally C5 (Scoring Pipeline) for each inbound envelope.
type Orchestrator struct {
	Jobs       *repository.JobRepository
	Targets    *repository.TargetRepository
	Locks      *locks.KeyedLocker
	Resolver   *jd.Resolver
	Lifecycle  *lifecycle.Machine
	Scoring    *scoring.Pipeline
	Cfg        *config.Config
	AIAvailable func() bool
}

// New wires an Orchestrator from its concrete collaborators.
func New(repos *repository.Repositories, locker *locks.KeyedLocker, resolver *jd.Resolver, lc *lifecycle.Machine, pipeline *scoring.Pipeline, cfg *config.Config, aiAvailable func() bool) *Orchestrator {
	return &Orchestrator{
		Jobs: repos.Job, Targets: repos.Target, Locks: locker, Resolver: resolver,
		Lifecycle: lc, Scoring: pipeline, Cfg: cfg, AIAvailable: aiAvailable,
	}
}

// Ingest processes envelopes concurrently but preserves input order in the
// response, per spec.md §5's ordering guarantee.
func (o *Orchestrator) Ingest(ctx context.Context, envelopes []models.CandidateEnvelope) (*BatchResult, error) {
	results := make([]RowResult, len(envelopes))

	ctx, cancel := context.WithTimeout(ctx, o.Cfg.IngestBatchTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for i, env := range envelopes {
		i, env := i, env
		g.Go(func() error {
			results[i] = o.processOne(gctx, env)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var counts Counts
	for _, r := range results {
		metrics.IngestEnvelopesTotal.WithLabelValues(string(r.Action)).Inc()
		switch r.Action {
		case ActionInserted:
			counts.Inserted++
		case ActionUpdated:
			counts.Updated++
		case ActionIgnored:
			counts.Ignored++
		case ActionLinkOnly:
			counts.LinkOnly++
		}
	}
	return &BatchResult{Counts: counts, Results: results}, nil
}

func (o *Orchestrator) processOne(ctx context.Context, env models.CandidateEnvelope) RowResult {
	rawURL := env.RawURL
	if rawURL == "" {
		rawURL = env.CanonicalJob.JobURL
	}

	canon := canonical.Canonicalize(rawURL, nil)
	if canon.Ignored {
		return RowResult{RawURL: rawURL, Action: ActionIgnored}
	}

	release, err := o.Locks.Acquire(ctx, canon.JobKey)
	if err != nil {
		return RowResult{RawURL: rawURL, JobKey: canon.JobKey, Action: ActionIgnored, Error: "job_key_busy"}
	}
	defer release()

	log := logging.FromContext(logging.WithJobKey(ctx, canon.JobKey), slog.Default())

	existing, err := o.Jobs.GetByJobKey(ctx, canon.JobKey)
	if err != nil {
		log.Error("probe existing job failed", "error", err)
		return RowResult{RawURL: rawURL, JobKey: canon.JobKey, Action: ActionIgnored, Error: "probe_failed"}
	}
	wasExisting := existing != nil

	resolution := o.Resolver.Resolve(ctx, canon.JobURL, env.EmailText, env.EmailHTML)

	job := mergeJob(existing, canon, env, resolution)

	needsManualJD := resolution.FetchStatus == models.FetchStatusBlocked || !job.HasJD()
	aiUnavailable := !o.AIAvailable()

	if err := o.Lifecycle.ApplyIngestInsert(ctx, job, needsManualJD, aiUnavailable && !needsManualJD); err != nil {
		log.Error("lifecycle apply ingest insert failed", "error", err)
	}

	if err := o.Jobs.Upsert(ctx, job); err != nil {
		log.Error("upsert job failed", "error", err)
		return RowResult{RawURL: rawURL, JobKey: canon.JobKey, Action: ActionIgnored, Error: "upsert_failed"}
	}

	action := ActionInserted
	if wasExisting {
		action = ActionUpdated
	}
	// link_only counts rows held back by JD quality, not by AI being down:
	// an AI outage still reports inserted/updated per spec.md §4.4/§4.8.
	if needsManualJD && job.Status == models.StatusLinkOnly {
		action = ActionLinkOnly
	}

	if job.HasJD() && !aiUnavailable {
		o.score(ctx, job)
		if err := o.Jobs.Update(ctx, job); err != nil {
			log.Error("update job after scoring failed", "error", err)
		}
	}

	return RowResult{
		RawURL: rawURL, JobKey: job.JobKey, JobURL: job.JobURL, WasExisting: wasExisting,
		Action: action, Status: job.Status, JDSource: job.JDSource, FetchStatus: job.FetchStatus,
		SystemStatus: job.SystemStatus,
	}
}

// score invokes the Scoring Pipeline and folds its Result back into job,
// applying the matching Lifecycle transition.
func (o *Orchestrator) score(ctx context.Context, job *models.Job) {
	result, err := o.Scoring.Run(ctx, job, models.ScoringSourceIngest)
	if err != nil {
		logging.FromContext(ctx, slog.Default()).Error("scoring pipeline failed", "job_key", job.JobKey, "error", err)
		return
	}

	switch {
	case result.Run.FinalStatus == models.ScoringFailed:
		_ = o.Lifecycle.ApplyScoringFailure(ctx, job, result.AIUnavailable)
	case result.Run.FinalStatus == models.ScoringRejectedHeuristic || result.RejectTriggered:
		_ = o.Lifecycle.ApplyScoringReject(ctx, job, result.Run.FinalStatus == models.ScoringRejectedHeuristic, false)
		job.RejectReasons = result.RejectReasons
	default:
		job.ScoreMust = result.ScoreMust
		job.ScoreNice = result.ScoreNice
		job.FinalScore = result.FinalScore
		job.PrimaryTargetID = result.PrimaryTargetID
		job.ReasonTopMatches = result.ReasonTopMatches
		if result.Extracted != nil {
			applyExtracted(job, result.Extracted)
		}
		_ = o.Lifecycle.ApplyScoringCompletion(ctx, job, *result.FinalScore, false)
	}
}

func mergeJob(existing *models.Job, canon canonical.Result, env models.CandidateEnvelope, resolution jd.Resolution) *models.Job {
	job := existing
	if job == nil {
		job = &models.Job{JobKey: canon.JobKey, CreatedAt: time.Now()}
	}

	job.JobURL = canon.JobURL
	job.JobURLRaw = env.RawURL
	job.SourceDomain = canon.SourceDomain
	if canon.ExternalID != "" {
		id := canon.ExternalID
		job.ExternalID = &id
	}

	if job.RoleTitle == "" {
		job.RoleTitle = env.CanonicalJob.Title
	}
	if job.Company == "" {
		job.Company = env.CanonicalJob.Company
	}

	if resolution.JDTextClean != "" {
		job.JDTextClean = resolution.JDTextClean
		job.JDSource = resolution.JDSource
	} else if job.JDTextClean == "" {
		job.JDSource = models.JDSourceNone
	}
	job.FetchStatus = resolution.FetchStatus
	job.JDConfidence = resolution.Confidence

	return job
}

// applyExtracted folds the AI extract stage's fields into job, preferring
// already-present values (the stage itself is skipped once these are set).
func applyExtracted(job *models.Job, f *scoring.ExtractedFields) {
	if job.RoleTitle == "" {
		job.RoleTitle = f.RoleTitle
	}
	if job.Company == "" {
		job.Company = f.Company
	}
	if job.Location == "" {
		job.Location = f.Location
	}
	if job.Seniority == "" {
		job.Seniority = f.Seniority
	}
	if job.WorkMode == "" {
		job.WorkMode = f.WorkMode
	}
	if job.ExperienceMinYrs == nil {
		job.ExperienceMinYrs = f.ExperienceMinYears
	}
	if job.ExperienceMaxYrs == nil {
		job.ExperienceMaxYrs = f.ExperienceMaxYears
	}
	if len(job.MustHave) == 0 {
		job.MustHave = f.MustHaveKeywords
	}
	if len(job.NiceToHave) == 0 {
		job.NiceToHave = f.NiceToHaveKeywords
	}
	if len(job.Reject) == 0 {
		job.Reject = f.RejectKeywords
	}
}
