package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mkochhar/jobops/internal/apperr"
	"github.com/mkochhar/jobops/internal/models"
)

const jobColumns = `job_key, job_url, job_url_raw, source_domain, external_id,
	role_title, company, location, work_mode, seniority, experience_min_years, experience_max_years,
	must_have, nice_to_have, reject,
	jd_text_clean, jd_source, fetch_status, jd_confidence,
	primary_target_id, score_must, score_nice, final_score, reject_triggered, reject_reasons, reason_top_matches,
	status, system_status,
	created_at, updated_at, last_scored_at, applied_at, rejected_at, archived_at`

// JobRepository persists Job rows, the central entity of the pipeline.
type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new job row. created_at is only ever set here, per
// spec.md §3's invariant that created_at never changes after insert.
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	query := `INSERT INTO jobs (` + jobColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, r.args(job)...)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// Upsert inserts a new row or, if one exists for job_key, overwrites it with
// job, keeping the existing created_at. It merges no fields itself: the
// merge decision is the caller's (Ingest Orchestrator); this just writes
// whatever *models.Job it is given, always refreshing updated_at.
func (r *JobRepository) Upsert(ctx context.Context, job *models.Job) error {
	existing, err := r.GetByJobKey(ctx, job.JobKey)
	if err != nil {
		return err
	}
	if existing == nil {
		return r.Create(ctx, job)
	}
	job.CreatedAt = existing.CreatedAt
	return r.Update(ctx, job)
}

func (r *JobRepository) GetByJobKey(ctx context.Context, jobKey string) (*models.Job, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE job_key = ?`, jobKey)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return job, err
}

// MustGetByJobKey wraps GetByJobKey, returning apperr.NotFound for missing
// rows so HTTP handlers can surface a 404 directly.
func (r *JobRepository) MustGetByJobKey(ctx context.Context, jobKey string) (*models.Job, error) {
	job, err := r.GetByJobKey(ctx, jobKey)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, apperr.NotFound("job_not_found", "no job with job_key "+jobKey)
	}
	return job, nil
}

func (r *JobRepository) Update(ctx context.Context, job *models.Job) error {
	job.UpdatedAt = time.Now()
	query := `UPDATE jobs SET
		job_url = ?, job_url_raw = ?, source_domain = ?, external_id = ?,
		role_title = ?, company = ?, location = ?, work_mode = ?, seniority = ?, experience_min_years = ?, experience_max_years = ?,
		must_have = ?, nice_to_have = ?, reject = ?,
		jd_text_clean = ?, jd_source = ?, fetch_status = ?, jd_confidence = ?,
		primary_target_id = ?, score_must = ?, score_nice = ?, final_score = ?, reject_triggered = ?, reject_reasons = ?, reason_top_matches = ?,
		status = ?, system_status = ?,
		updated_at = ?, last_scored_at = ?, applied_at = ?, rejected_at = ?, archived_at = ?
		WHERE job_key = ?`
	args := []any{
		job.JobURL, job.JobURLRaw, job.SourceDomain, nullStringPtr(job.ExternalID),
		job.RoleTitle, job.Company, job.Location, job.WorkMode, job.Seniority, nullInt(job.ExperienceMinYrs), nullInt(job.ExperienceMaxYrs),
		marshalStrings(job.MustHave), marshalStrings(job.NiceToHave), marshalStrings(job.Reject),
		job.JDTextClean, string(job.JDSource), string(job.FetchStatus), string(job.JDConfidence),
		nullStringPtr(job.PrimaryTargetID), nullFloat(job.ScoreMust), nullFloat(job.ScoreNice), nullFloat(job.FinalScore), boolToInt(job.RejectTriggered), marshalStrings(job.RejectReasons), job.ReasonTopMatches,
		string(job.Status), systemStatusOrNil(job.SystemStatus),
		job.UpdatedAt.Format(time.RFC3339), nullTime(job.LastScoredAt), nullTime(job.AppliedAt), nullTime(job.RejectedAt), nullTime(job.ArchivedAt),
		job.JobKey,
	}
	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// ListByStatus returns jobs filtered by status and/or a substring match on
// role_title||company||jd_text_clean, for GET /jobs per spec.md §6.
func (r *JobRepository) ListByStatus(ctx context.Context, status, q string, limit, offset int) ([]*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`
	var args []any
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	if q != "" {
		query += ` AND (role_title LIKE ? OR company LIKE ? OR jd_text_clean LIKE ?)`
		like := "%" + q + "%"
		args = append(args, like, like, like)
	}
	query += ` ORDER BY updated_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJobRows(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ListStaleJD returns jobs with empty/low-quality JD whose updated_at is
// older than `before`, for the backfill-missing recovery loop.
func (r *JobRepository) ListStaleJD(ctx context.Context, before time.Time, limit int) ([]*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs
		WHERE (jd_text_clean = '' OR fetch_status IN ('blocked', 'failed')) AND updated_at < ?
		ORDER BY updated_at ASC LIMIT ?`
	return r.queryJobs(ctx, query, before.Format(time.RFC3339), limit)
}

// ListNeedingRescore returns jobs with usable JD whose last_scored_at
// predates `targetsUpdatedAfter`, for the rescore-existing-JD recovery loop.
func (r *JobRepository) ListNeedingRescore(ctx context.Context, targetsUpdatedAfter time.Time, limit int) ([]*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs
		WHERE jd_text_clean != '' AND (last_scored_at IS NULL OR last_scored_at < ?)
		ORDER BY last_scored_at ASC LIMIT ?`
	return r.queryJobs(ctx, query, targetsUpdatedAfter.Format(time.RFC3339), limit)
}

// ListRetryableFetch returns jobs whose JD fetch was blocked/failed, for the
// retry-fetch recovery loop.
func (r *JobRepository) ListRetryableFetch(ctx context.Context, limit int) ([]*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs
		WHERE fetch_status IN ('blocked', 'failed')
		ORDER BY updated_at ASC LIMIT ?`
	return r.queryJobs(ctx, query, limit)
}

func (r *JobRepository) queryJobs(ctx context.Context, query string, args ...any) ([]*models.Job, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJobRows(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *JobRepository) args(job *models.Job) []any {
	return []any{
		job.JobKey, job.JobURL, job.JobURLRaw, job.SourceDomain, nullStringPtr(job.ExternalID),
		job.RoleTitle, job.Company, job.Location, job.WorkMode, job.Seniority, nullInt(job.ExperienceMinYrs), nullInt(job.ExperienceMaxYrs),
		marshalStrings(job.MustHave), marshalStrings(job.NiceToHave), marshalStrings(job.Reject),
		job.JDTextClean, string(job.JDSource), string(job.FetchStatus), string(job.JDConfidence),
		nullStringPtr(job.PrimaryTargetID), nullFloat(job.ScoreMust), nullFloat(job.ScoreNice), nullFloat(job.FinalScore), boolToInt(job.RejectTriggered), marshalStrings(job.RejectReasons), job.ReasonTopMatches,
		string(job.Status), systemStatusOrNil(job.SystemStatus),
		job.CreatedAt.Format(time.RFC3339), job.UpdatedAt.Format(time.RFC3339), nullTime(job.LastScoredAt), nullTime(job.AppliedAt), nullTime(job.RejectedAt), nullTime(job.ArchivedAt),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row *sql.Row) (*models.Job, error)  { return scanJobInto(row) }
func scanJobRows(rows *sql.Rows) (*models.Job, error) { return scanJobInto(rows) }

func scanJobInto(s rowScanner) (*models.Job, error) {
	var job models.Job
	var externalID, primaryTargetID, systemStatus sql.NullString
	var mustHave, niceToHave, reject, rejectReasons string
	var scoreMust, scoreNice, finalScore sql.NullFloat64
	var expMin, expMax sql.NullInt64
	var rejectTriggered int
	var createdAt, updatedAt string
	var lastScoredAt, appliedAt, rejectedAt, archivedAt sql.NullString

	err := s.Scan(
		&job.JobKey, &job.JobURL, &job.JobURLRaw, &job.SourceDomain, &externalID,
		&job.RoleTitle, &job.Company, &job.Location, &job.WorkMode, &job.Seniority, &expMin, &expMax,
		&mustHave, &niceToHave, &reject,
		&job.JDTextClean, &job.JDSource, &job.FetchStatus, &job.JDConfidence,
		&primaryTargetID, &scoreMust, &scoreNice, &finalScore, &rejectTriggered, &rejectReasons, &job.ReasonTopMatches,
		&job.Status, &systemStatus,
		&createdAt, &updatedAt, &lastScoredAt, &appliedAt, &rejectedAt, &archivedAt,
	)
	if err != nil {
		return nil, err
	}

	if externalID.Valid {
		job.ExternalID = &externalID.String
	}
	if primaryTargetID.Valid {
		job.PrimaryTargetID = &primaryTargetID.String
	}
	if systemStatus.Valid {
		ss := models.SystemStatus(systemStatus.String)
		job.SystemStatus = &ss
	}
	job.ExperienceMinYrs = intPtr(expMin)
	job.ExperienceMaxYrs = intPtr(expMax)
	job.MustHave = unmarshalStrings(mustHave)
	job.NiceToHave = unmarshalStrings(niceToHave)
	job.Reject = unmarshalStrings(reject)
	job.RejectReasons = unmarshalStrings(rejectReasons)
	job.ScoreMust = floatPtr(scoreMust)
	job.ScoreNice = floatPtr(scoreNice)
	job.FinalScore = floatPtr(finalScore)
	job.RejectTriggered = rejectTriggered == 1
	job.CreatedAt = parseTime(createdAt)
	job.UpdatedAt = parseTime(updatedAt)
	job.LastScoredAt = timePtr(lastScoredAt)
	job.AppliedAt = timePtr(appliedAt)
	job.RejectedAt = timePtr(rejectedAt)
	job.ArchivedAt = timePtr(archivedAt)

	return &job, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func systemStatusOrNil(s *models.SystemStatus) any {
	if s == nil {
		return nil
	}
	return string(*s)
}
