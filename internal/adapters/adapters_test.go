package adapters

import (
	"testing"
	"time"

	"github.com/mkochhar/jobops/internal/models"
)

func TestManualOneEnvelopePerURL(t *testing.T) {
	envs := Manual([]string{"https://a.example.com", "", "https://b.example.com"}, time.Now())
	if len(envs) != 2 {
		t.Fatalf("expected 2 envelopes, got %d", len(envs))
	}
}

func TestEmailExtractsURLsFromTextAndHTML(t *testing.T) {
	text := "Check this role: https://jobs.example.com/1"
	html := `<a href="https://jobs.example.com/2">apply</a>`
	envs := Email("Job alert", "noreply@boards.example.com", text, html, time.Now())
	if len(envs) != 2 {
		t.Fatalf("expected 2 envelopes, got %d", len(envs))
	}
}

func TestRSSParsesItemsAndFilters(t *testing.T) {
	feed := []byte(`<?xml version="1.0"?>
<rss><channel>
<item><title>Senior Go Engineer</title><link>https://jobs.example.com/go-1</link><description>must have rust</description></item>
<item><title>Junior PHP Dev</title><link>https://jobs.example.com/php-1</link><description>php only</description></item>
</channel></rss>`)

	envs := ParseRSS(feed, []string{"go"}, []string{"php"}, time.Now())
	if len(envs) != 1 {
		t.Fatalf("expected 1 envelope after filtering, got %d", len(envs))
	}
	if envs[0].CanonicalJob.JobURL != "https://jobs.example.com/go-1" {
		t.Fatalf("unexpected job url: %s", envs[0].CanonicalJob.JobURL)
	}
}

func TestCheckHealthStatuses(t *testing.T) {
	if h := CheckHealth(nil); h.Status != models.HealthFailing || h.Reason != "no_candidates" {
		t.Fatalf("unexpected health for empty batch: %+v", h)
	}

	degraded := CheckHealth([]models.CandidateEnvelope{
		{CanonicalJob: models.CanonicalJob{JobURL: "https://a"}},
		{},
		{},
	})
	if degraded.Status != models.HealthDegraded {
		t.Fatalf("expected degraded status, got %s", degraded.Status)
	}

	healthy := CheckHealth([]models.CandidateEnvelope{
		{CanonicalJob: models.CanonicalJob{JobURL: "https://a"}},
		{CanonicalJob: models.CanonicalJob{JobURL: "https://b"}},
	})
	if healthy.Status != models.HealthHealthy {
		t.Fatalf("expected healthy status, got %s", healthy.Status)
	}
}
