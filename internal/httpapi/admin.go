package httpapi

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/oklog/ulid/v2"

	"github.com/mkochhar/jobops/internal/apperr"
	"github.com/mkochhar/jobops/internal/canonical"
	"github.com/mkochhar/jobops/internal/models"
	"github.com/mkochhar/jobops/internal/recovery"
)

// AdminOutput wraps any admin pure-function result in the envelope.
type AdminOutput struct {
	Body envelopeData
}

func registerAdminRoutes(api huma.API, deps *Deps) {
	registerNormalizeJobRoute(api, deps)
	registerResolveJDRoute(api, deps)
	registerExtractJDRoute(api, deps)
	registerScoreJDRoute(api, deps)
	registerRecoveryRunRoute(api, deps)
}

// RecoveryRunInput is POST /admin/recovery/run's body: which sweep to run
// on demand, outside the Scheduler's own cadence.
type RecoveryRunInput struct {
	Body struct {
		Loop  string `json:"loop"` // backfill | rescore | retry_fetch
		Limit int    `json:"limit,omitempty"`
		Force bool   `json:"force,omitempty"`
	}
}

// registerRecoveryRunRoute exposes the Recovery Loops (C8) for on-demand
// operator use, supplementing spec.md §6's route table (the loops
// otherwise only run on the Scheduler's cadence).
func registerRecoveryRunRoute(api huma.API, deps *Deps) {
	huma.Post(api, "/admin/recovery/run", func(ctx context.Context, input *RecoveryRunInput) (*AdminOutput, error) {
		limit := input.Body.Limit
		if limit <= 0 || limit > 500 {
			limit = 50
		}

		var (
			summaries []recovery.Summary
			err       error
		)
		switch input.Body.Loop {
		case "backfill":
			summaries, err = deps.Recovery.BackfillMissingJD(ctx, time.Now().Add(-deps.Cfg.RecoverStaleAfter), limit, input.Body.Force)
		case "rescore":
			summaries, err = deps.Recovery.RescoreExisting(ctx, limit, input.Body.Force)
		case "retry_fetch":
			summaries, err = deps.Recovery.RetryFetch(ctx, limit, input.Body.Force)
		default:
			return nil, apperr.Validation("unknown_loop", "loop must be one of backfill, rescore, retry_fetch", nil)
		}
		if err != nil {
			return nil, err
		}
		return &AdminOutput{Body: envelopeData{OK: true, Data: summaries}}, nil
	})
}

// NormalizeJobInput is POST /normalize-job's body: a raw URL to canonicalize.
type NormalizeJobInput struct {
	Body struct {
		RawURL string `json:"raw_url"`
	}
}

// registerNormalizeJobRoute exposes the Canonicalizer (C1) directly, per
// spec.md §6's "pure-function admin endpoints" — no DB write, no lock.
func registerNormalizeJobRoute(api huma.API, deps *Deps) {
	huma.Post(api, "/normalize-job", func(ctx context.Context, input *NormalizeJobInput) (*AdminOutput, error) {
		if input.Body.RawURL == "" {
			return nil, apperr.Validation("raw_url_required", "raw_url is required", nil)
		}
		result := canonical.Canonicalize(input.Body.RawURL, nil)
		return &AdminOutput{Body: envelopeData{OK: true, Data: result}}, nil
	})
}

// ResolveJDInput is POST /resolve-jd's body.
type ResolveJDInput struct {
	Body struct {
		JobURL    string `json:"job_url,omitempty"`
		EmailText string `json:"email_text,omitempty"`
		EmailHTML string `json:"email_html,omitempty"`
	}
}

// registerResolveJDRoute exposes the JD Resolver (C2) directly, with no
// job row created or updated.
func registerResolveJDRoute(api huma.API, deps *Deps) {
	huma.Post(api, "/resolve-jd", func(ctx context.Context, input *ResolveJDInput) (*AdminOutput, error) {
		if input.Body.JobURL == "" && input.Body.EmailText == "" && input.Body.EmailHTML == "" {
			return nil, apperr.Validation("no_input", "one of job_url, email_text, email_html is required", nil)
		}
		resolution := deps.Resolver.Resolve(ctx, input.Body.JobURL, input.Body.EmailText, input.Body.EmailHTML)
		return &AdminOutput{Body: envelopeData{OK: true, Data: resolution}}, nil
	})
}

// JDScoringInput is the shared body for /extract-jd and /score-jd: raw JD
// text run through the Scoring Pipeline (C5) against every configured
// Target, without a persisted job backing it.
type JDScoringInput struct {
	Body struct {
		JDTextClean string `json:"jd_text_clean"`
	}
}

// ephemeralJob builds a throwaway Job row for the admin scoring endpoints.
// scoring_runs.job_key carries no foreign key constraint, so the
// ScoringRun this produces persists safely without a matching jobs row.
func ephemeralJob(jdText string) *models.Job {
	return &models.Job{
		JobKey:      "admin-" + ulid.Make().String(),
		JDTextClean: jdText,
		JDSource:    models.JDSourceManual,
		CreatedAt:   time.Now(),
	}
}

// registerExtractJDRoute exposes just the AI extraction stage's output of
// the Scoring Pipeline for ad-hoc JD inspection.
func registerExtractJDRoute(api huma.API, deps *Deps) {
	huma.Post(api, "/extract-jd", func(ctx context.Context, input *JDScoringInput) (*AdminOutput, error) {
		if len(input.Body.JDTextClean) < 200 {
			return nil, apperr.Validation("jd_text_too_short", "jd_text_clean must be at least 200 characters", nil)
		}
		if !deps.Cfg.AIAvailable() {
			return nil, apperr.CollaboratorUnavailable("AI", nil)
		}
		job := ephemeralJob(input.Body.JDTextClean)
		result, err := deps.Scoring.Run(ctx, job, models.ScoringSourceAdmin)
		if err != nil {
			return nil, err
		}
		return &AdminOutput{Body: envelopeData{OK: true, Data: result.Extracted}}, nil
	})
}

// registerScoreJDRoute runs the full Scoring Pipeline (heuristic gate + AI
// extraction + AI reasoning + evidence) over raw JD text and returns the
// complete Result, for rubric/tuning experiments outside the ingest path.
func registerScoreJDRoute(api huma.API, deps *Deps) {
	huma.Post(api, "/score-jd", func(ctx context.Context, input *JDScoringInput) (*AdminOutput, error) {
		if len(input.Body.JDTextClean) < 200 {
			return nil, apperr.Validation("jd_text_too_short", "jd_text_clean must be at least 200 characters", nil)
		}
		if !deps.Cfg.AIAvailable() {
			return nil, apperr.CollaboratorUnavailable("AI", nil)
		}
		job := ephemeralJob(input.Body.JDTextClean)
		result, err := deps.Scoring.Run(ctx, job, models.ScoringSourceAdmin)
		if err != nil {
			return nil, err
		}
		return &AdminOutput{Body: envelopeData{OK: true, Data: result}}, nil
	})
}
