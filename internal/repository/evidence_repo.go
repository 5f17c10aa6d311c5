package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mkochhar/jobops/internal/models"
)

// EvidenceRepository persists JobEvidence rows, upserting on the
// (job_key, requirement_text, requirement_type) unique key per spec.md §4.7.
type EvidenceRepository struct {
	db *sql.DB
}

func NewEvidenceRepository(db *sql.DB) *EvidenceRepository {
	return &EvidenceRepository{db: db}
}

// Upsert inserts or refreshes one evidence row. Untouched rows for the same
// job are left alone — callers upsert per extracted requirement, they never
// delete here.
func (r *EvidenceRepository) Upsert(ctx context.Context, e *models.JobEvidence) error {
	now := time.Now()
	if e.ID == "" {
		return fmt.Errorf("upsert evidence: id required")
	}
	query := `INSERT INTO job_evidence (id, job_key, requirement_text, requirement_type, evidence_text, evidence_source, confidence_score, matched, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_key, requirement_text, requirement_type) DO UPDATE SET
			evidence_text = excluded.evidence_text,
			evidence_source = excluded.evidence_source,
			confidence_score = excluded.confidence_score,
			matched = excluded.matched,
			notes = excluded.notes,
			updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.JobKey, e.RequirementText, string(e.RequirementType),
		e.EvidenceText, e.EvidenceSource, e.ConfidenceScore, boolToInt(e.Matched), e.Notes,
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert evidence: %w", err)
	}
	return nil
}

// ListByJobKey returns a job's evidence rows. The scoring pipeline writes
// them one Upsert at a time with no enclosing transaction, so a read made
// while a run is upserting can return a mix of that run's rows and older ones.
func (r *EvidenceRepository) ListByJobKey(ctx context.Context, jobKey string) ([]*models.JobEvidence, error) {
	query := `SELECT id, job_key, requirement_text, requirement_type, evidence_text, evidence_source, confidence_score, matched, notes, created_at, updated_at
		FROM job_evidence WHERE job_key = ? ORDER BY requirement_type, requirement_text`
	rows, err := r.db.QueryContext(ctx, query, jobKey)
	if err != nil {
		return nil, fmt.Errorf("list evidence: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*models.JobEvidence
	for rows.Next() {
		var e models.JobEvidence
		var matched int
		var createdAt, updatedAt string
		if err := rows.Scan(&e.ID, &e.JobKey, &e.RequirementText, &e.RequirementType, &e.EvidenceText, &e.EvidenceSource,
			&e.ConfidenceScore, &matched, &e.Notes, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan evidence: %w", err)
		}
		e.Matched = matched == 1
		e.CreatedAt = parseTime(createdAt)
		e.UpdatedAt = parseTime(updatedAt)
		out = append(out, &e)
	}
	return out, rows.Err()
}
