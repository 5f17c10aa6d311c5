package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mkochhar/jobops/internal/apperr"
	"github.com/mkochhar/jobops/internal/models"
)

const contactColumns = `id, name, company, email, linkedin_url, created_at, updated_at`

// ContactRepository persists deduped Contact rows and their Touchpoints,
// matching identity in the order linkedin_url -> email -> lower(name)+lower(company)
// per spec.md §4.7. It takes no lock of its own, and nothing in this module
// serializes concurrent FindOrCreate calls for the same linkedin_url or email.
type ContactRepository struct {
	db *sql.DB
}

func NewContactRepository(db *sql.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// FindOrCreate resolves an existing Contact by identity, merging in any
// non-empty fields from candidate (COALESCE semantics), or inserts a new row
// with a fresh id when no match is found.
func (r *ContactRepository) FindOrCreate(ctx context.Context, candidate *models.Contact) (*models.Contact, error) {
	existing, err := r.findByIdentity(ctx, candidate)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		candidate.ID = uuid.NewString()
		now := time.Now()
		candidate.CreatedAt = now
		candidate.UpdatedAt = now
		query := `INSERT INTO contacts (` + contactColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
		_, err := r.db.ExecContext(ctx, query,
			candidate.ID, candidate.Name, candidate.Company, nullString(candidate.Email), nullString(candidate.LinkedInURL),
			candidate.CreatedAt.Format(time.RFC3339), candidate.UpdatedAt.Format(time.RFC3339),
		)
		if err != nil {
			return nil, fmt.Errorf("create contact: %w", err)
		}
		return candidate, nil
	}

	merged := coalesceContact(existing, candidate)
	merged.UpdatedAt = time.Now()
	query := `UPDATE contacts SET name = ?, company = ?, email = ?, linkedin_url = ?, updated_at = ? WHERE id = ?`
	_, err = r.db.ExecContext(ctx, query, merged.Name, merged.Company, nullString(merged.Email), nullString(merged.LinkedInURL), merged.UpdatedAt.Format(time.RFC3339), merged.ID)
	if err != nil {
		return nil, fmt.Errorf("update contact: %w", err)
	}
	return merged, nil
}

func coalesceContact(existing, candidate *models.Contact) *models.Contact {
	merged := *existing
	if candidate.Name != "" {
		merged.Name = candidate.Name
	}
	if candidate.Company != "" {
		merged.Company = candidate.Company
	}
	if candidate.Email != "" {
		merged.Email = candidate.Email
	}
	if candidate.LinkedInURL != "" {
		merged.LinkedInURL = candidate.LinkedInURL
	}
	return &merged
}

func (r *ContactRepository) findByIdentity(ctx context.Context, candidate *models.Contact) (*models.Contact, error) {
	if candidate.LinkedInURL != "" {
		if c, err := r.queryOne(ctx, `SELECT `+contactColumns+` FROM contacts WHERE linkedin_url = ?`, candidate.LinkedInURL); err != nil || c != nil {
			return c, err
		}
	}
	if candidate.Email != "" {
		if c, err := r.queryOne(ctx, `SELECT `+contactColumns+` FROM contacts WHERE email = ?`, candidate.Email); err != nil || c != nil {
			return c, err
		}
	}
	if candidate.Name != "" && candidate.Company != "" {
		return r.queryOne(ctx, `SELECT `+contactColumns+` FROM contacts WHERE lower(name) = ? AND lower(company) = ?`,
			strings.ToLower(candidate.Name), strings.ToLower(candidate.Company))
	}
	return nil, nil
}

func (r *ContactRepository) queryOne(ctx context.Context, query string, args ...any) (*models.Contact, error) {
	row := r.db.QueryRowContext(ctx, query, args...)
	var c models.Contact
	var email, linkedin sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(&c.ID, &c.Name, &c.Company, &email, &linkedin, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query contact: %w", err)
	}
	c.Email = email.String
	c.LinkedInURL = linkedin.String
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return &c, nil
}

// UpsertTouchpoint inserts or advances a Touchpoint on (contact_id, job_key,
// channel), rejecting any transition that would move status backward.
func (r *ContactRepository) UpsertTouchpoint(ctx context.Context, tp *models.Touchpoint) error {
	existing, err := r.getTouchpoint(ctx, tp.ContactID, tp.JobKey, tp.Channel)
	if err != nil {
		return err
	}
	now := time.Now()
	if existing == nil {
		tp.ID = uuid.NewString()
		tp.CreatedAt = now
		tp.UpdatedAt = now
		query := `INSERT INTO contact_touchpoints (id, contact_id, job_key, channel, status, content, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
		_, err := r.db.ExecContext(ctx, query, tp.ID, tp.ContactID, tp.JobKey, string(tp.Channel), string(tp.Status), tp.Content,
			tp.CreatedAt.Format(time.RFC3339), tp.UpdatedAt.Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("create touchpoint: %w", err)
		}
		return nil
	}

	if tp.Status.IsBackwardFrom(existing.Status) {
		return apperr.Validation("touchpoint_status_backward",
			fmt.Sprintf("touchpoint status cannot move backward from %s to %s", existing.Status, tp.Status), nil)
	}

	query := `UPDATE contact_touchpoints SET status = ?, content = ?, updated_at = ? WHERE id = ?`
	_, err = r.db.ExecContext(ctx, query, string(tp.Status), tp.Content, now.Format(time.RFC3339), existing.ID)
	if err != nil {
		return fmt.Errorf("update touchpoint: %w", err)
	}
	return nil
}

func (r *ContactRepository) getTouchpoint(ctx context.Context, contactID, jobKey string, channel models.TouchpointChannel) (*models.Touchpoint, error) {
	query := `SELECT id, contact_id, job_key, channel, status, content, created_at, updated_at
		FROM contact_touchpoints WHERE contact_id = ? AND job_key = ? AND channel = ?`
	row := r.db.QueryRowContext(ctx, query, contactID, jobKey, string(channel))
	var tp models.Touchpoint
	var createdAt, updatedAt string
	err := row.Scan(&tp.ID, &tp.ContactID, &tp.JobKey, &tp.Channel, &tp.Status, &tp.Content, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query touchpoint: %w", err)
	}
	tp.CreatedAt = parseTime(createdAt)
	tp.UpdatedAt = parseTime(updatedAt)
	return &tp, nil
}
