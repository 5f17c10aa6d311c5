package repository

import (
	"context"
	"testing"

	"github.com/mkochhar/jobops/internal/models"
)

func TestContactRepositoryDedupesByLinkedInURL(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	first, err := repos.Contact.FindOrCreate(ctx, &models.Contact{Name: "Ada", LinkedInURL: "https://linkedin.com/in/ada"})
	if err != nil {
		t.Fatalf("FindOrCreate() error = %v", err)
	}

	second, err := repos.Contact.FindOrCreate(ctx, &models.Contact{Company: "Acme", LinkedInURL: "https://linkedin.com/in/ada"})
	if err != nil {
		t.Fatalf("FindOrCreate() error = %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same contact id, got %s vs %s", second.ID, first.ID)
	}
	if second.Name != "Ada" || second.Company != "Acme" {
		t.Errorf("expected merged fields, got %+v", second)
	}
}

func TestContactRepositoryTouchpointRejectsBackwardTransition(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	job := testJob("tp-key")
	if err := repos.Job.Create(ctx, job); err != nil {
		t.Fatalf("Create job error = %v", err)
	}
	contact, err := repos.Contact.FindOrCreate(ctx, &models.Contact{Email: "recruiter@example.com"})
	if err != nil {
		t.Fatalf("FindOrCreate() error = %v", err)
	}

	err = repos.Contact.UpsertTouchpoint(ctx, &models.Touchpoint{
		ContactID: contact.ID, JobKey: job.JobKey, Channel: models.ChannelEmail, Status: models.TouchpointSent,
	})
	if err != nil {
		t.Fatalf("UpsertTouchpoint(SENT) error = %v", err)
	}

	err = repos.Contact.UpsertTouchpoint(ctx, &models.Touchpoint{
		ContactID: contact.ID, JobKey: job.JobKey, Channel: models.ChannelEmail, Status: models.TouchpointDraft,
	})
	if err == nil {
		t.Fatal("expected error rejecting SENT -> DRAFT")
	}
}
