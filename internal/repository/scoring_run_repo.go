package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mkochhar/jobops/internal/models"
)

// ScoringRunRepository persists the append-only ScoringRun audit trail.
// Rows are never updated once created, per spec.md §3.
type ScoringRunRepository struct {
	db *sql.DB
}

func NewScoringRunRepository(db *sql.DB) *ScoringRunRepository {
	return &ScoringRunRepository{db: db}
}

type stagesBlob struct {
	Heuristic models.StageMetrics `json:"heuristic"`
	AIExtract models.StageMetrics `json:"ai_extract"`
	AIReason  models.StageMetrics `json:"ai_reason"`
	Evidence  models.StageMetrics `json:"evidence"`
}

func (r *ScoringRunRepository) Create(ctx context.Context, run *models.ScoringRun) error {
	stages, err := json.Marshal(stagesBlob{
		Heuristic: run.Heuristic,
		AIExtract: run.AIExtract,
		AIReason:  run.AIReason,
		Evidence:  run.Evidence,
	})
	if err != nil {
		return fmt.Errorf("marshal scoring run stages: %w", err)
	}

	query := `INSERT INTO scoring_runs
		(id, job_key, source, final_status, heuristic_reasons, stages_json, ai_model, total_latency_ms, final_score, reject_triggered, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		run.ID, run.JobKey, string(run.Source), string(run.FinalStatus),
		marshalStrings(run.HeuristicReasons), string(stages), run.AIModel, run.TotalLatencyMs,
		nullFloat(run.FinalScore), boolToInt(run.RejectTriggered), run.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("create scoring run: %w", err)
	}
	return nil
}

// ListByJobKey returns a job's scoring history, newest first.
func (r *ScoringRunRepository) ListByJobKey(ctx context.Context, jobKey string, limit int) ([]*models.ScoringRun, error) {
	query := `SELECT id, job_key, source, final_status, heuristic_reasons, stages_json, ai_model, total_latency_ms, final_score, reject_triggered, created_at
		FROM scoring_runs WHERE job_key = ? ORDER BY created_at DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, jobKey, limit)
	if err != nil {
		return nil, fmt.Errorf("list scoring runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*models.ScoringRun
	for rows.Next() {
		run, err := scanScoringRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanScoringRun(rows *sql.Rows) (*models.ScoringRun, error) {
	var run models.ScoringRun
	var heuristicReasons, stagesJSON, createdAt string
	var finalScore sql.NullFloat64
	var rejectTriggered int

	err := rows.Scan(&run.ID, &run.JobKey, &run.Source, &run.FinalStatus, &heuristicReasons, &stagesJSON,
		&run.AIModel, &run.TotalLatencyMs, &finalScore, &rejectTriggered, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("scan scoring run: %w", err)
	}

	run.HeuristicReasons = unmarshalStrings(heuristicReasons)
	run.FinalScore = floatPtr(finalScore)
	run.RejectTriggered = rejectTriggered == 1
	run.CreatedAt = parseTime(createdAt)

	var stages stagesBlob
	if err := json.Unmarshal([]byte(stagesJSON), &stages); err == nil {
		run.Heuristic = stages.Heuristic
		run.AIExtract = stages.AIExtract
		run.AIReason = stages.AIReason
		run.Evidence = stages.Evidence
	}

	return &run, nil
}
