package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mkochhar/jobops/internal/apperr"
	"github.com/mkochhar/jobops/internal/models"
)

const targetColumns = `id, name, primary_role, seniority, location, must_keywords, nice_keywords, reject_keywords, created_at, updated_at`

// TargetRepository persists Targets. It is not concurrency-aware, and the
// target HTTP handlers take no lock around their writes, so concurrent
// target writes are not serialized.
type TargetRepository struct {
	db *sql.DB
}

func NewTargetRepository(db *sql.DB) *TargetRepository {
	return &TargetRepository{db: db}
}

func (r *TargetRepository) Create(ctx context.Context, t *models.Target) error {
	query := `INSERT INTO targets (` + targetColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.Name, t.PrimaryRole, t.Seniority, t.Location,
		marshalStrings(t.MustKeywords), marshalStrings(t.NiceKeywords), marshalStrings(t.RejectKeywords),
		t.CreatedAt.Format(time.RFC3339), t.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("create target: %w", err)
	}
	return nil
}

func (r *TargetRepository) Update(ctx context.Context, t *models.Target) error {
	t.UpdatedAt = time.Now()
	query := `UPDATE targets SET name = ?, primary_role = ?, seniority = ?, location = ?,
		must_keywords = ?, nice_keywords = ?, reject_keywords = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query,
		t.Name, t.PrimaryRole, t.Seniority, t.Location,
		marshalStrings(t.MustKeywords), marshalStrings(t.NiceKeywords), marshalStrings(t.RejectKeywords),
		t.UpdatedAt.Format(time.RFC3339), t.ID,
	)
	if err != nil {
		return fmt.Errorf("update target: %w", err)
	}
	return nil
}

func (r *TargetRepository) GetByID(ctx context.Context, id string) (*models.Target, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+targetColumns+` FROM targets WHERE id = ?`, id)
	t, err := scanTarget(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

func (r *TargetRepository) MustGetByID(ctx context.Context, id string) (*models.Target, error) {
	t, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperr.NotFound("target_not_found", "no target with id "+id)
	}
	return t, nil
}

// List returns every configured target, used by the Scoring Pipeline's AI
// reason stage to present all candidate targets at once.
func (r *TargetRepository) List(ctx context.Context) ([]*models.Target, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+targetColumns+` FROM targets ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var targets []*models.Target
	for rows.Next() {
		t, err := scanTargetRows(rows)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// LatestUpdatedAt returns the most recent target update time, used to
// decide whether the rescore recovery loop needs to run.
func (r *TargetRepository) LatestUpdatedAt(ctx context.Context) (time.Time, error) {
	var s sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT MAX(updated_at) FROM targets`).Scan(&s)
	if err != nil {
		return time.Time{}, fmt.Errorf("latest target update: %w", err)
	}
	if !s.Valid {
		return time.Time{}, nil
	}
	return parseTime(s.String), nil
}

func scanTarget(row *sql.Row) (*models.Target, error)     { return scanTargetInto(row) }
func scanTargetRows(rows *sql.Rows) (*models.Target, error) { return scanTargetInto(rows) }

func scanTargetInto(s rowScanner) (*models.Target, error) {
	var t models.Target
	var must, nice, reject, createdAt, updatedAt string
	err := s.Scan(&t.ID, &t.Name, &t.PrimaryRole, &t.Seniority, &t.Location, &must, &nice, &reject, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	t.MustKeywords = unmarshalStrings(must)
	t.NiceKeywords = unmarshalStrings(nice)
	t.RejectKeywords = unmarshalStrings(reject)
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return &t, nil
}
