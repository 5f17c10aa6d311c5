package httpapi

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mkochhar/jobops/internal/adapters"
	"github.com/mkochhar/jobops/internal/models"
)

// IngestInput is POST /ingest's body, per spec.md §6.
type IngestInput struct {
	Body struct {
		RawURLs   []string `json:"raw_urls"`
		EmailText string   `json:"email_text,omitempty"`
		EmailHTML string   `json:"email_html,omitempty"`
	}
}

// IngestOutput wraps the Ingest Orchestrator's BatchResult in the envelope.
type IngestOutput struct {
	Body envelopeData
}

func registerIngestRoutes(api huma.API, deps *Deps) {
	huma.Post(api, "/ingest", func(ctx context.Context, input *IngestInput) (*IngestOutput, error) {
		now := time.Now().UTC()
		var envelopes []models.CandidateEnvelope
		envelopes = append(envelopes, adapters.Manual(input.Body.RawURLs, now)...)
		if input.Body.EmailText != "" || input.Body.EmailHTML != "" {
			envelopes = append(envelopes, adapters.Email("", "", input.Body.EmailText, input.Body.EmailHTML, now)...)
		}

		result, err := deps.Orchestrator.Ingest(ctx, envelopes)
		if err != nil {
			return nil, err
		}
		return &IngestOutput{Body: envelopeData{OK: true, Data: result}}, nil
	})
}

// ScorePendingInput is POST /score-pending's body, per spec.md §6.
type ScorePendingInput struct {
	Body struct {
		Limit  int    `json:"limit,omitempty"`
		Status string `json:"status,omitempty"`
	}
}

// ScorePendingOutput reports the batch rescore's outcome.
type ScorePendingOutput struct {
	Body envelopeData
}

// registerScorePendingRoute registers /score-pending under the "either"
// capability group, per spec.md §6's auth column for this route.
func registerScorePendingRoute(api huma.API, deps *Deps) {
	huma.Post(api, "/score-pending", func(ctx context.Context, input *ScorePendingInput) (*ScorePendingOutput, error) {
		status := input.Body.Status
		if status == "" {
			status = string(models.StatusNew)
		}
		limit := input.Body.Limit
		if limit <= 0 || limit > 500 {
			limit = 50
		}

		jobs, err := deps.Repos.Job.ListByStatus(ctx, status, "", limit, 0)
		if err != nil {
			return nil, err
		}

		scored := 0
		var errs []string
		for _, job := range jobs {
			if err := runScoring(ctx, deps, job, models.ScoringSourcePending, false); err != nil {
				errs = append(errs, job.JobKey+": "+err.Error())
				continue
			}
			scored++
		}

		out := &ScorePendingOutput{}
		out.Body.OK = true
		out.Body.Data = map[string]any{
			"scored": scored,
			"total":  len(jobs),
			"errors": errs,
		}
		return out, nil
	})
}
