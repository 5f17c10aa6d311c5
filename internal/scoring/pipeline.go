// Package scoring implements the Scoring Pipeline (C5): heuristic gate ->
// AI extract -> AI reason -> evidence upsert, producing an append-only
// ScoringRun telemetry row per attempt, per spec.md §4.5.
package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/mkochhar/jobops/internal/config"
	"github.com/mkochhar/jobops/internal/llm"
	"github.com/mkochhar/jobops/internal/logging"
	"github.com/mkochhar/jobops/internal/metrics"
	"github.com/mkochhar/jobops/internal/models"
	"github.com/mkochhar/jobops/internal/repository"
)

// TargetLister is the narrow capability the pipeline needs to read
// candidate targets, satisfied by *repository.TargetRepository.
type TargetLister interface {
	List(ctx context.Context) ([]*models.Target, error)
}

// EvidenceUpserter is the narrow capability the evidence stage needs.
type EvidenceUpserter interface {
	Upsert(ctx context.Context, e *models.JobEvidence) error
}

// ScoringRunCreator is the narrow capability the pipeline needs to persist
// a finished run, satisfied by *repository.ScoringRunRepository.
type ScoringRunCreator interface {
	Create(ctx context.Context, run *models.ScoringRun) error
}

// Pipeline runs the four-stage scoring algorithm against one job at a time.
// It never mutates job.Status/SystemStatus directly: the caller (Ingest
// Orchestrator or Lifecycle Machine) applies the Result to the lifecycle.
// Callers must only invoke Run when AI is configured (Config.AIAvailable());
// Pipeline assumes a non-nil AI client past the heuristic gate.
type Pipeline struct {
	Targets  TargetLister
	Evidence EvidenceUpserter
	Runs     ScoringRunCreator
	AI       llm.Client
	Cfg      *config.Config
}

// New builds a Pipeline wired to concrete repositories and an LLM client.
func New(repos *repository.Repositories, ai llm.Client, cfg *config.Config) *Pipeline {
	return &Pipeline{Targets: repos.Target, Evidence: repos.Evidence, Runs: repos.ScoringRun, AI: ai, Cfg: cfg}
}

// Result is what the pipeline hands back to the caller to fold into the
// Job row and the Lifecycle Machine's transition decision.
type Result struct {
	Run             *models.ScoringRun
	PrimaryTargetID *string
	ScoreMust       *float64
	ScoreNice       *float64
	FinalScore      *float64
	RejectTriggered bool
	RejectReasons   []string
	ReasonTopMatches string
	Extracted       *ExtractedFields
	AIUnavailable   bool
}

// Run executes the pipeline for one job and persists the resulting
// ScoringRun. It does not touch the jobs table; callers apply Result to the
// Job themselves before calling the repository Update/Upsert.
func (p *Pipeline) Run(ctx context.Context, job *models.Job, source models.ScoringSource) (*Result, error) {
	runID := ulid.Make().String()
	started := time.Now()
	log := logging.FromContext(ctx, slog.Default())

	targets, err := p.Targets.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}

	heuristic := runHeuristicGate(job.JDTextClean, targets, p.Cfg.MinJDChars, p.Cfg.MinTargetSignal)
	heuristicStage := stageResult(started, models.StageOK)
	if !heuristic.Passed {
		heuristicStage = stageResult(started, models.StageRejected)
		run := &models.ScoringRun{
			ID: runID, JobKey: job.JobKey, Source: source,
			FinalStatus:      models.ScoringRejectedHeuristic,
			HeuristicReasons: heuristic.Reasons,
			Heuristic:        heuristicStage,
			AIExtract:        skippedStage(),
			AIReason:         skippedStage(),
			Evidence:         skippedStage(),
			CreatedAt:        started,
		}
		run.TotalLatencyMs = time.Since(started).Milliseconds()
		if err := p.Runs.Create(ctx, run); err != nil {
			return nil, err
		}
		metrics.ScoringRunsTotal.WithLabelValues(string(source), string(run.FinalStatus)).Inc()
		log.Info("scoring rejected by heuristic gate", "job_key", job.JobKey, "reasons", heuristic.Reasons)
		return &Result{Run: run, RejectTriggered: true, RejectReasons: heuristic.Reasons}, nil
	}

	extractStage, extracted, extractErr := p.runExtractStage(ctx, job)
	recordStageMetrics("extract", extractStage)
	if extractStage.Status == models.StageFailed {
		return p.finishFailed(ctx, job, source, started, heuristicStage, extractStage, skippedStage(), extractErr)
	}

	reasonStage, reason, reasonErr := p.runReasonStage(ctx, job, targets)
	recordStageMetrics("reason", reasonStage)
	if reasonStage.Status == models.StageFailed {
		return p.finishFailed(ctx, job, source, started, heuristicStage, extractStage, reasonStage, reasonErr)
	}

	evidenceStage := p.upsertEvidence(ctx, job, targets, reason, extracted)

	run := &models.ScoringRun{
		ID: runID, JobKey: job.JobKey, Source: source,
		FinalStatus: models.ScoringCompleted,
		Heuristic:   heuristicStage, AIExtract: extractStage, AIReason: reasonStage, Evidence: evidenceStage,
		AIModel:         p.AI.Name(),
		FinalScore:      &reason.computedFinalScore,
		RejectTriggered: reason.RejectTriggered == 1,
		CreatedAt:       started,
	}
	run.TotalLatencyMs = time.Since(started).Milliseconds()
	if err := p.Runs.Create(ctx, run); err != nil {
		return nil, err
	}
	metrics.ScoringRunsTotal.WithLabelValues(string(source), string(run.FinalStatus)).Inc()

	result := &Result{
		Run:              run,
		ScoreMust:        &reason.ScoreMust,
		ScoreNice:        &reason.ScoreNice,
		FinalScore:       &reason.computedFinalScore,
		RejectTriggered:  reason.RejectTriggered == 1,
		ReasonTopMatches: reason.ReasonTopMatches,
		Extracted:        extracted,
	}
	if reason.PrimaryTargetID != "" {
		id := reason.PrimaryTargetID
		result.PrimaryTargetID = &id
	}
	if result.RejectTriggered {
		result.RejectReasons = []string{"ai_reject"}
	}
	return result, nil
}

// extractReasonResult augments reasonResult with the pipeline-computed
// final_score, since the formula is constrained (spec.md §4.5) and must not
// depend solely on the model's own arithmetic.
type extractReasonResult struct {
	reasonResult
	computedFinalScore float64
}

func (p *Pipeline) runExtractStage(ctx context.Context, job *models.Job) (models.StageMetrics, *ExtractedFields, error) {
	start := time.Now()

	if job.RoleTitle != "" && job.Company != "" && len(job.MustHave) > 0 {
		return stageResult(start, models.StageSkipped), nil, nil
	}

	res, err := llm.WithRetry(ctx, p.AI, llm.CompletionRequest{
		SystemPrompt: extractSystemPrompt,
		UserPrompt:   extractUserPrompt(job.JDTextClean),
		MaxTokens:    1024,
	}, sleepBackoff)
	if err != nil {
		return failedStage(start, err), nil, err
	}

	fields, err := parseExtractedFields(res.JSONText)
	if err != nil {
		return failedStage(start, err), nil, err
	}

	stage := stageResult(start, models.StageOK)
	stage.TokensIn, stage.TokensOut, stage.TokensTotal = res.Usage.TokensIn, res.Usage.TokensOut, res.Usage.TokensTotal
	return stage, fields, nil
}

func (p *Pipeline) runReasonStage(ctx context.Context, job *models.Job, targets []*models.Target) (models.StageMetrics, *extractReasonResult, error) {
	start := time.Now()

	res, err := llm.WithRetry(ctx, p.AI, llm.CompletionRequest{
		SystemPrompt: reasonSystemPrompt,
		UserPrompt:   reasonUserPrompt(job.JDTextClean, targets, p.Cfg.ScoreWeightMust, p.Cfg.ScoreWeightNice),
		MaxTokens:    1024,
	}, sleepBackoff)
	if err != nil {
		return failedStage(start, err), nil, err
	}

	parsed, err := parseReasonResult(res.JSONText)
	if err != nil {
		return failedStage(start, err), nil, err
	}

	rejectPenalty := 0.0
	if parsed.RejectTriggered == 1 {
		rejectPenalty = 100
	}
	final := clip(p.Cfg.ScoreWeightMust*parsed.ScoreMust+p.Cfg.ScoreWeightNice*parsed.ScoreNice-rejectPenalty, 0, 100)

	stage := stageResult(start, models.StageOK)
	stage.TokensIn, stage.TokensOut, stage.TokensTotal = res.Usage.TokensIn, res.Usage.TokensOut, res.Usage.TokensTotal
	return stage, &extractReasonResult{reasonResult: *parsed, computedFinalScore: final}, nil
}

// upsertEvidence upserts one JobEvidence row per extracted requirement,
// matching spec.md §4.5 stage 4: matched=1 when a case-insensitive
// substring of the JD text cites the requirement.
func (p *Pipeline) upsertEvidence(ctx context.Context, job *models.Job, targets []*models.Target, reason *extractReasonResult, extracted *ExtractedFields) models.StageMetrics {
	start := time.Now()

	requirements := evidenceRequirements(job, targets, reason, extracted)
	jdLower := strings.ToLower(job.JDTextClean)

	for _, req := range requirements {
		matched := strings.Contains(jdLower, strings.ToLower(req.text))
		confidence := 40
		if matched {
			confidence = 85
		}
		e := &models.JobEvidence{
			ID: uuid.NewString(), JobKey: job.JobKey,
			RequirementText: req.text, RequirementType: req.kind,
			EvidenceSource:  "ai_reason",
			ConfidenceScore: confidence,
			Matched:         matched,
		}
		if matched {
			e.EvidenceText = req.text
		}
		if err := p.Evidence.Upsert(ctx, e); err != nil {
			return failedStage(start, err)
		}
	}

	return stageResult(start, models.StageOK)
}

type evidenceRequirement struct {
	text string
	kind models.RequirementType
}

// evidenceRequirements prefers the selected primary target's keyword bags;
// falling back to the AI-extracted must/nice keywords when no target was
// selected (e.g. reject_triggered).
func evidenceRequirements(job *models.Job, targets []*models.Target, reason *extractReasonResult, extracted *ExtractedFields) []evidenceRequirement {
	var out []evidenceRequirement
	if reason != nil && reason.PrimaryTargetID != "" {
		for _, t := range targets {
			if t.ID != reason.PrimaryTargetID {
				continue
			}
			for _, kw := range t.MustKeywords {
				out = append(out, evidenceRequirement{kw, models.RequirementMust})
			}
			for _, kw := range t.NiceKeywords {
				out = append(out, evidenceRequirement{kw, models.RequirementNice})
			}
			return out
		}
	}
	if extracted != nil {
		for _, kw := range extracted.MustHaveKeywords {
			out = append(out, evidenceRequirement{kw, models.RequirementMust})
		}
		for _, kw := range extracted.NiceToHaveKeywords {
			out = append(out, evidenceRequirement{kw, models.RequirementNice})
		}
	}
	return out
}

func (p *Pipeline) finishFailed(ctx context.Context, job *models.Job, source models.ScoringSource, started time.Time, heuristicStage, extractStage, reasonStage models.StageMetrics, cause error) (*Result, error) {
	run := &models.ScoringRun{
		ID: ulid.Make().String(), JobKey: job.JobKey, Source: source,
		FinalStatus: models.ScoringFailed,
		Heuristic:   heuristicStage,
		AIExtract:   extractStage,
		AIReason:    reasonStage,
		CreatedAt:   started,
	}
	run.Evidence = skippedStage()
	run.TotalLatencyMs = time.Since(started).Milliseconds()
	if err := p.Runs.Create(ctx, run); err != nil {
		return nil, err
	}
	metrics.ScoringRunsTotal.WithLabelValues(string(source), string(run.FinalStatus)).Inc()

	if llm.IsUnavailable(cause) {
		return &Result{Run: run, AIUnavailable: true}, nil
	}
	return &Result{Run: run}, nil
}

// recordStageMetrics feeds one stage's latency and token usage into the
// Prometheus histograms/counters exposed on /metrics.
func recordStageMetrics(stage string, m models.StageMetrics) {
	metrics.ObserveStage(stage, time.Duration(m.LatencyMs)*time.Millisecond, int64(m.TokensIn), int64(m.TokensOut))
}

func clip(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func stageResult(started time.Time, status models.StageStatus) models.StageMetrics {
	finished := time.Now()
	return models.StageMetrics{Status: status, StartedAt: started, FinishedAt: finished, LatencyMs: finished.Sub(started).Milliseconds()}
}

func failedStage(started time.Time, err error) models.StageMetrics {
	s := stageResult(started, models.StageFailed)
	s.Error = err.Error()
	return s
}

func skippedStage() models.StageMetrics {
	now := time.Now()
	return models.StageMetrics{Status: models.StageSkipped, StartedAt: now, FinishedAt: now}
}

// sleepBackoff implements spec.md §4.5's 100ms in-band retry delay.
func sleepBackoff(ms int64) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

// SortTargetsForTieBreak orders targets the way the AI reason stage is
// instructed to break ties: higher final_score, then higher score_must,
// then lexicographic target id. It is exported, but nothing in this module
// calls it; the pipeline uses the AI's primary_target_id as returned.
func SortTargetsForTieBreak(targets []*models.Target, scoreOf func(id string) (final, must float64)) []*models.Target {
	sorted := append([]*models.Target{}, targets...)
	sort.SliceStable(sorted, func(i, j int) bool {
		fi, mi := scoreOf(sorted[i].ID)
		fj, mj := scoreOf(sorted[j].ID)
		if fi != fj {
			return fi > fj
		}
		if mi != mj {
			return mi > mj
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}
