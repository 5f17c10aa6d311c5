package repository

import (
	"context"
	"testing"
	"time"

	"github.com/mkochhar/jobops/internal/models"
)

func testJob(jobKey string) *models.Job {
	now := time.Now()
	return &models.Job{
		JobKey:       jobKey,
		JobURL:       "https://www.linkedin.com/jobs/view/123/",
		JobURLRaw:    "https://www.linkedin.com/jobs/view/123/?utm=x",
		SourceDomain: "linkedin.com",
		Status:       models.StatusNew,
		JDSource:     models.JDSourceNone,
		FetchStatus:  models.FetchStatusOK,
		JDConfidence: models.ConfidenceLow,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestJobRepositoryCreateAndGet(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	job := testJob("key1")
	if err := repos.Job.Create(ctx, job); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repos.Job.GetByJobKey(ctx, "key1")
	if err != nil {
		t.Fatalf("GetByJobKey() error = %v", err)
	}
	if got == nil {
		t.Fatal("expected job, got nil")
	}
	if got.JobURL != job.JobURL || got.Status != models.StatusNew {
		t.Errorf("unexpected job: %+v", got)
	}
}

func TestJobRepositoryGetByJobKeyNotFound(t *testing.T) {
	repos := setupTestRepos(t)
	got, err := repos.Job.GetByJobKey(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetByJobKey() error = %v", err)
	}
	if got != nil {
		t.Fatal("expected nil for unknown job_key")
	}
}

func TestJobRepositoryMustGetByJobKeyNotFoundError(t *testing.T) {
	repos := setupTestRepos(t)
	_, err := repos.Job.MustGetByJobKey(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected apperr.NotFound")
	}
}

func TestJobRepositoryUpsertPreservesCreatedAt(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	job := testJob("key2")
	if err := repos.Job.Create(ctx, job); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	originalCreated := job.CreatedAt.Truncate(time.Second) // stored with RFC3339 (second) precision

	update := testJob("key2")
	update.Status = models.StatusScored
	update.CreatedAt = time.Now().Add(time.Hour) // should be ignored by Upsert
	if err := repos.Job.Upsert(ctx, update); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := repos.Job.GetByJobKey(ctx, "key2")
	if err != nil {
		t.Fatalf("GetByJobKey() error = %v", err)
	}
	if got.Status != models.StatusScored {
		t.Errorf("status = %s, want SCORED", got.Status)
	}
	if !got.CreatedAt.Equal(originalCreated) {
		t.Errorf("created_at changed on upsert: got %v, want %v", got.CreatedAt, originalCreated)
	}
}

func TestJobRepositoryListByStatus(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	scored := testJob("key3")
	scored.Status = models.StatusScored
	if err := repos.Job.Create(ctx, scored); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	newJob := testJob("key4")
	if err := repos.Job.Create(ctx, newJob); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	jobs, err := repos.Job.ListByStatus(ctx, "SCORED", "", 10, 0)
	if err != nil {
		t.Fatalf("ListByStatus() error = %v", err)
	}
	if len(jobs) != 1 || jobs[0].JobKey != "key3" {
		t.Fatalf("expected only key3, got %+v", jobs)
	}
}

func TestJobRepositoryRoundTripsArraysAndOptionalFields(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	job := testJob("key5")
	job.MustHave = []string{"go", "kubernetes"}
	job.NiceToHave = []string{"rust"}
	score := 82.5
	job.FinalScore = &score
	ext := "abc123"
	job.ExternalID = &ext

	if err := repos.Job.Create(ctx, job); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repos.Job.GetByJobKey(ctx, "key5")
	if err != nil {
		t.Fatalf("GetByJobKey() error = %v", err)
	}
	if len(got.MustHave) != 2 || got.MustHave[0] != "go" {
		t.Errorf("must_have = %v", got.MustHave)
	}
	if got.FinalScore == nil || *got.FinalScore != 82.5 {
		t.Errorf("final_score = %v", got.FinalScore)
	}
	if got.ExternalID == nil || *got.ExternalID != "abc123" {
		t.Errorf("external_id = %v", got.ExternalID)
	}
}
