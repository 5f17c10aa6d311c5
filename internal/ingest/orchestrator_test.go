package ingest

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkochhar/jobops/internal/canonical"
	"github.com/mkochhar/jobops/internal/config"
	"github.com/mkochhar/jobops/internal/database/migrations"
	"github.com/mkochhar/jobops/internal/jd"
	"github.com/mkochhar/jobops/internal/lifecycle"
	"github.com/mkochhar/jobops/internal/llm"
	"github.com/mkochhar/jobops/internal/locks"
	"github.com/mkochhar/jobops/internal/models"
	"github.com/mkochhar/jobops/internal/repository"
	"github.com/mkochhar/jobops/internal/scoring"
)

// fakeAI never gets called in these tests unless a JD is long enough to pass
// the heuristic gate; tests that reach the AI stage script a canned reply.
type fakeAI struct {
	extract string
	reason  string
	calls   int
}

func (f *fakeAI) Name() string { return "fake" }

func (f *fakeAI) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResult, error) {
	f.calls++
	if f.calls == 1 {
		return &llm.CompletionResult{JSONText: f.extract, Usage: llm.Usage{TokensTotal: 10}}, nil
	}
	return &llm.CompletionResult{JSONText: f.reason, Usage: llm.Usage{TokensTotal: 10}}, nil
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("libsql", ":memory:")
	require.NoError(t, err)
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(db, nil))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testOrchestrator(t *testing.T, ai llm.Client, aiAvailable bool) (*Orchestrator, *repository.Repositories) {
	t.Helper()
	repos := repository.NewRepositories(setupTestDB(t))
	cfg := &config.Config{
		MinJDChars: 50, MinTargetSignal: 1,
		ScoreWeightMust: 0.7, ScoreWeightNice: 0.3, ShortlistThreshold: 75,
		IngestBatchTimeout: 5 * time.Second,
	}
	lc := lifecycle.New(repos.Event, cfg.ShortlistThreshold)
	pipeline := scoring.New(repos, ai, cfg)
	resolver := jd.NewResolver(nil)
	locker := locks.NewKeyedLocker()
	o := New(repos, locker, resolver, lc, pipeline, cfg, func() bool { return aiAvailable })
	return o, repos
}

func TestIngestIgnoresUncanonicalizableURL(t *testing.T) {
	o, _ := testOrchestrator(t, &fakeAI{}, true)
	envs := []models.CandidateEnvelope{{RawURL: "not a url at all"}}
	res, err := o.Ingest(context.Background(), envs)
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, ActionIgnored, res.Results[0].Action)
	assert.Equal(t, 1, res.Counts.Ignored)
}

func TestIngestInsertsThenUpdatesSameJobKey(t *testing.T) {
	o, _ := testOrchestrator(t, &fakeAI{}, false)
	env := models.CandidateEnvelope{
		RawURL:       "https://example.com/jobs/123",
		CanonicalJob: models.CanonicalJob{Title: "Engineer", Company: "Acme"},
	}

	first, err := o.Ingest(context.Background(), []models.CandidateEnvelope{env})
	require.NoError(t, err)
	require.Len(t, first.Results, 1)
	assert.Equal(t, ActionInserted, first.Results[0].Action)
	assert.False(t, first.Results[0].WasExisting)

	second, err := o.Ingest(context.Background(), []models.CandidateEnvelope{env})
	require.NoError(t, err)
	require.Len(t, second.Results, 1)
	assert.Equal(t, ActionUpdated, second.Results[0].Action)
	assert.True(t, second.Results[0].WasExisting)
}

func TestIngestAIUnavailableKeepsInsertedAction(t *testing.T) {
	o, _ := testOrchestrator(t, &fakeAI{}, false)
	env := models.CandidateEnvelope{
		RawURL: "https://example.com/jobs/456",
		EmailText: "We are hiring a backend engineer with distributed systems experience. " +
			"Responsibilities include building scalable services and owning the on-call rotation. " +
			"You will work closely with the platform team to improve reliability and developer " +
			"experience across the stack, and you'll be expected to mentor junior engineers too.",
	}

	res, err := o.Ingest(context.Background(), []models.CandidateEnvelope{env})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, ActionInserted, res.Results[0].Action)
	assert.Equal(t, models.StatusLinkOnly, res.Results[0].Status)
	require.NotNil(t, res.Results[0].SystemStatus)
	assert.Equal(t, models.SystemStatusAIUnavailable, *res.Results[0].SystemStatus)
}

func TestIngestNeedsManualJDReportsLinkOnly(t *testing.T) {
	o, _ := testOrchestrator(t, &fakeAI{}, true)
	env := models.CandidateEnvelope{RawURL: "https://example.com/jobs/789"}

	res, err := o.Ingest(context.Background(), []models.CandidateEnvelope{env})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, ActionLinkOnly, res.Results[0].Action)
	require.NotNil(t, res.Results[0].SystemStatus)
	assert.Equal(t, models.SystemStatusNeedsManualJD, *res.Results[0].SystemStatus)
}

func TestIngestPreservesSubmissionOrder(t *testing.T) {
	o, _ := testOrchestrator(t, &fakeAI{}, false)
	envs := make([]models.CandidateEnvelope, 10)
	for i := range envs {
		envs[i] = models.CandidateEnvelope{RawURL: "https://example.com/jobs/" + string(rune('a'+i))}
	}

	res, err := o.Ingest(context.Background(), envs)
	require.NoError(t, err)
	require.Len(t, res.Results, 10)
	for i, r := range res.Results {
		assert.Equal(t, envs[i].RawURL, r.RawURL)
	}
}

func TestIngestJobKeyBusyReportsIgnored(t *testing.T) {
	o, _ := testOrchestrator(t, &fakeAI{}, true)
	rawURL := "https://example.com/jobs/busy"
	jobKey := canonical.Canonicalize(rawURL, nil).JobKey

	release, err := o.Locks.Acquire(context.Background(), jobKey)
	if err != nil {
		t.Skipf("could not pre-acquire lock for busy scenario: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	time.Sleep(2 * time.Millisecond)

	res, err := o.Ingest(ctx, []models.CandidateEnvelope{{RawURL: rawURL}})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, ActionIgnored, res.Results[0].Action)
}
