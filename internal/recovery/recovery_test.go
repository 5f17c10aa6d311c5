package recovery

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

func testLoop(t *testing.T) (*Loop, *repository.Repositories) {
	t.Helper()
	repos := repository.NewRepositories(setupTestDB(t))
	cfg := &config.Config{
		MinJDChars: 10, MinTargetSignal: 0, ScoreWeightMust: 0.7, ScoreWeightNice: 0.3,
		ShortlistThreshold: 75, RecoverHostCooldown: time.Hour,
	}
	lc := lifecycle.New(repos.Event, cfg.ShortlistThreshold)
	pipeline := scoring.New(repos, nil, cfg)
	resolver := jd.NewResolver(nil)
	locker := locks.NewKeyedLocker()
	return New(repos, locker, resolver, lc, pipeline, cfg), repos
}

func TestBackfillMissingJDReportsManualNeededWhenNoEmailFallback(t *testing.T) {
	l, repos := testLoop(t)
	ctx := context.Background()

	job := &models.Job{
		JobKey: "k1", JobURL: "https://example.com/jobs/1", SourceDomain: "example.com",
		Status: models.StatusLinkOnly, CreatedAt: time.Now(), UpdatedAt: time.Now().Add(-48 * time.Hour),
	}
	require.NoError(t, repos.Job.Create(ctx, job))

	summaries, err := l.BackfillMissingJD(ctx, time.Now(), 10, false)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "example.com", summaries[0].SourceDomain)
	assert.Equal(t, 1, summaries[0].Total)
	assert.Equal(t, 1, summaries[0].ManualNeeded)
	assert.Equal(t, 0, summaries[0].Recovered)
}

func TestRetryFetchHonorsHostCooldown(t *testing.T) {
	l, repos := testLoop(t)
	ctx := context.Background()

	job1 := &models.Job{
		JobKey: "k2", JobURL: "https://example.com/jobs/2", SourceDomain: "example.com",
		Status: models.StatusLinkOnly, FetchStatus: models.FetchStatusFailed,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, repos.Job.Create(ctx, job1))

	first, err := l.RetryFetch(ctx, 10, false)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, first[0].Total)

	job2 := &models.Job{
		JobKey: "k3", JobURL: "https://example.com/jobs/3", SourceDomain: "example.com",
		Status: models.StatusLinkOnly, FetchStatus: models.FetchStatusFailed,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, repos.Job.Create(ctx, job2))

	second, err := l.RetryFetch(ctx, 10, false)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, second[0].Total, second[0].Ignored, "every row for a cooling-down host should be skipped")
}

func TestRescoreExistingRunsScoringPipelineWhenAIAvailable(t *testing.T) {
	repos := repository.NewRepositories(setupTestDB(t))
	cfg := &config.Config{
		MinJDChars: 10, MinTargetSignal: 0, ScoreWeightMust: 0.7, ScoreWeightNice: 0.3,
		ShortlistThreshold: 75, RecoverHostCooldown: time.Hour,
		AnthropicAPIKey: "test-key",
	}
	lc := lifecycle.New(repos.Event, cfg.ShortlistThreshold)
	ai := &scriptedAI{reasonResp: `{"primary_target_id":"t1","score_must":90,"score_nice":40,"reject_triggered":0,"reason_top_matches":"great fit"}`}
	pipeline := scoring.New(repos, ai, cfg)
	resolver := jd.NewResolver(nil)
	locker := locks.NewKeyedLocker()
	l := New(repos, locker, resolver, lc, pipeline, cfg)

	ctx := context.Background()
	jdText := "We are hiring a golang engineer to build distributed systems at scale using kubernetes daily."
	job := &models.Job{
		JobKey: "k4", JobURL: "https://example.com/jobs/4", SourceDomain: "example.com",
		JDTextClean: jdText, Status: models.StatusScored, RoleTitle: "x", Company: "y", MustHave: []string{"golang"},
		CreatedAt: time.Now(), UpdatedAt: time.Now(), LastScoredAt: timePtr(time.Now().Add(-72 * time.Hour)),
	}
	require.NoError(t, repos.Job.Create(ctx, job))
	require.NoError(t, repos.Target.Create(ctx, &models.Target{
		ID: "t1", Name: "Backend", MustKeywords: []string{"golang"},
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}))

	summaries, err := l.RescoreExisting(ctx, 10, false)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].Recovered)
}

type scriptedAI struct {
	reasonResp string
	calls      int
}

func (s *scriptedAI) Name() string { return "scripted" }

func (s *scriptedAI) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResult, error) {
	s.calls++
	return &llm.CompletionResult{JSONText: s.reasonResp, Usage: llm.Usage{TokensTotal: 5}}, nil
}

func timePtr(t time.Time) *time.Time { return &t }
