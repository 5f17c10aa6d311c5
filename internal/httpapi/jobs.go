package httpapi

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mkochhar/jobops/internal/apperr"
	"github.com/mkochhar/jobops/internal/models"
)

// envelopeData wraps any payload in the `{ok, data}` success envelope.
type envelopeData struct {
	OK   bool `json:"ok"`
	Data any  `json:"data"`
}

// ListJobsInput is GET /jobs' query, per spec.md §6.
type ListJobsInput struct {
	Status string `query:"status"`
	Q      string `query:"q"`
	Limit  int    `query:"limit" default:"50"`
	Offset int    `query:"offset" default:"0"`
}

// ListJobsOutput is GET /jobs' response.
type ListJobsOutput struct {
	Body envelopeData
}

// JobOutput wraps a single *models.Job in the envelope.
type JobOutput struct {
	Body envelopeData
}

// JobKeyInput is the path parameter every per-job route takes.
type JobKeyInput struct {
	JobKey string `path:"job_key"`
}

func registerJobRoutes(api huma.API, deps *Deps) {
	huma.Get(api, "/jobs", func(ctx context.Context, input *ListJobsInput) (*ListJobsOutput, error) {
		limit := input.Limit
		if limit <= 0 || limit > 200 {
			limit = 50
		}
		jobs, err := deps.Repos.Job.ListByStatus(ctx, input.Status, input.Q, limit, input.Offset)
		if err != nil {
			return nil, err
		}
		return &ListJobsOutput{Body: envelopeData{OK: true, Data: jobs}}, nil
	})

	huma.Get(api, "/jobs/{job_key}", func(ctx context.Context, input *JobKeyInput) (*JobOutput, error) {
		job, err := deps.Repos.Job.MustGetByJobKey(ctx, input.JobKey)
		if err != nil {
			return nil, err
		}
		return &JobOutput{Body: envelopeData{OK: true, Data: job}}, nil
	})

	huma.Post(api, "/jobs/{job_key}/status", func(ctx context.Context, input *struct {
		JobKeyInput
		Body struct {
			Status models.JobStatus `json:"status"`
		}
	}) (*JobOutput, error) {
		job, err := deps.Repos.Job.MustGetByJobKey(ctx, input.JobKey)
		if err != nil {
			return nil, err
		}
		if input.Body.Status == "" {
			return nil, apperr.Validation("status_required", "status is required", nil)
		}
		if err := deps.Lifecycle.ApplyExplicitStatus(ctx, job, input.Body.Status); err != nil {
			return nil, err
		}
		if err := deps.Repos.Job.Update(ctx, job); err != nil {
			return nil, err
		}
		return &JobOutput{Body: envelopeData{OK: true, Data: job}}, nil
	})

	huma.Post(api, "/jobs/{job_key}/rescore", func(ctx context.Context, input *JobKeyInput) (*JobOutput, error) {
		job, err := deps.Repos.Job.MustGetByJobKey(ctx, input.JobKey)
		if err != nil {
			return nil, err
		}
		if err := runScoring(ctx, deps, job, models.ScoringSourceRescore, true); err != nil {
			return nil, err
		}
		return &JobOutput{Body: envelopeData{OK: true, Data: job}}, nil
	})

	huma.Post(api, "/jobs/{job_key}/manual-jd", func(ctx context.Context, input *struct {
		JobKeyInput
		Body struct {
			JDTextClean string `json:"jd_text_clean"`
		}
	}) (*JobOutput, error) {
		job, err := deps.Repos.Job.MustGetByJobKey(ctx, input.JobKey)
		if err != nil {
			return nil, err
		}
		if len(input.Body.JDTextClean) < 200 {
			return nil, apperr.Validation("jd_text_too_short", "jd_text_clean must be at least 200 characters", nil)
		}

		if err := deps.Lifecycle.ApplyManualJD(ctx, job, input.Body.JDTextClean); err != nil {
			return nil, err
		}

		if !deps.Cfg.AIAvailable() {
			job.JDSource = models.JDSourceManual
			job.JDTextClean = input.Body.JDTextClean
			if err := deps.Repos.Job.Update(ctx, job); err != nil {
				return nil, err
			}
			return &JobOutput{Body: envelopeData{OK: true, Data: map[string]any{
				"status":     models.StatusLinkOnly,
				"saved_only": true,
			}}}, nil
		}

		job.JDSource = models.JDSourceManual
		job.JDTextClean = input.Body.JDTextClean
		if err := deps.Repos.Job.Update(ctx, job); err != nil {
			return nil, err
		}
		if err := runScoring(ctx, deps, job, models.ScoringSourceManualJD, false); err != nil {
			return nil, err
		}
		return &JobOutput{Body: envelopeData{OK: true, Data: job}}, nil
	})
}

// runScoring executes the Scoring Pipeline for job and applies the result to
// the job's lifecycle + row, mirroring ingest.Orchestrator.score's
// Result-folding switch — shared logic since HTTP handlers trigger scoring
// out-of-band from ingest. Pipeline.Run assumes a configured AI client past
// the heuristic gate, so callers must check AIAvailable first, the same
// precondition ingest.Orchestrator enforces before ever calling Run.
func runScoring(ctx context.Context, deps *Deps, job *models.Job, source models.ScoringSource, force bool) error {
	if !deps.Cfg.AIAvailable() {
		if err := deps.Lifecycle.ApplyScoringFailure(ctx, job, true); err != nil {
			return err
		}
		return deps.Repos.Job.Update(ctx, job)
	}

	result, err := deps.Scoring.Run(ctx, job, source)
	if err != nil {
		return err
	}

	switch {
	case result.Run.FinalStatus == models.ScoringFailed:
		if err := deps.Lifecycle.ApplyScoringFailure(ctx, job, result.AIUnavailable); err != nil {
			return err
		}
	case result.Run.FinalStatus == models.ScoringRejectedHeuristic || result.RejectTriggered:
		if err := deps.Lifecycle.ApplyScoringReject(ctx, job, result.Run.FinalStatus == models.ScoringRejectedHeuristic, force); err != nil {
			return err
		}
		job.RejectReasons = result.RejectReasons
	default:
		job.ScoreMust = result.ScoreMust
		job.ScoreNice = result.ScoreNice
		job.FinalScore = result.FinalScore
		job.PrimaryTargetID = result.PrimaryTargetID
		job.ReasonTopMatches = result.ReasonTopMatches
		if err := deps.Lifecycle.ApplyScoringCompletion(ctx, job, *result.FinalScore, force); err != nil {
			return err
		}
	}
	job.RejectTriggered = result.RejectTriggered
	return deps.Repos.Job.Update(ctx, job)
}
