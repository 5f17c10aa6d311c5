package scoring

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkochhar/jobops/internal/config"
	"github.com/mkochhar/jobops/internal/llm"
	"github.com/mkochhar/jobops/internal/models"
)

type fakeTargetLister struct{ targets []*models.Target }

func (f *fakeTargetLister) List(ctx context.Context) ([]*models.Target, error) { return f.targets, nil }

type fakeEvidenceUpserter struct{ rows []*models.JobEvidence }

func (f *fakeEvidenceUpserter) Upsert(ctx context.Context, e *models.JobEvidence) error {
	f.rows = append(f.rows, e)
	return nil
}

type fakeRunCreator struct{ runs []*models.ScoringRun }

func (f *fakeRunCreator) Create(ctx context.Context, run *models.ScoringRun) error {
	f.runs = append(f.runs, run)
	return nil
}

type scriptedAI struct {
	responses []string
	calls     int
	err       error
}

func (s *scriptedAI) Name() string { return "scripted" }

func (s *scriptedAI) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	res := s.responses[s.calls]
	s.calls++
	return &llm.CompletionResult{JSONText: res, Usage: llm.Usage{TokensIn: 10, TokensOut: 5, TokensTotal: 15}}, nil
}

func testConfig() *config.Config {
	return &config.Config{MinJDChars: 120, MinTargetSignal: 2, ScoreWeightMust: 0.7, ScoreWeightNice: 0.3}
}

func testTargets() []*models.Target {
	return []*models.Target{{ID: "t1", Name: "Backend Go", MustKeywords: []string{"golang", "distributed systems"}, NiceKeywords: []string{"kubernetes"}}}
}

func TestHeuristicGateRejectsShortJD(t *testing.T) {
	res := runHeuristicGate("too short", testTargets(), 120, 8)
	assert.False(t, res.Passed)
	assert.Contains(t, res.Reasons[0], "jd_too_short")
}

func TestHeuristicGateRejectsBlockedKeyword(t *testing.T) {
	targets := testTargets()
	targets[0].RejectKeywords = []string{"visa sponsorship required"}
	jd := "We need a golang engineer. visa sponsorship required for this distributed systems role. " +
		"Extra padding text to satisfy the minimum character threshold for a job description field here."
	res := runHeuristicGate(jd, targets, 10, 1)
	assert.False(t, res.Passed)
	found := false
	for _, r := range res.Reasons {
		if r == "blocked_keyword:visa sponsorship required" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestPipelineRejectsAtHeuristicGateWithoutAICall(t *testing.T) {
	ai := &scriptedAI{}
	p := &Pipeline{
		Targets:  &fakeTargetLister{targets: testTargets()},
		Evidence: &fakeEvidenceUpserter{},
		Runs:     &fakeRunCreator{},
		AI:       ai,
		Cfg:      testConfig(),
	}

	job := &models.Job{JobKey: "k1", JDTextClean: "We use only JavaScript and Python for our stack."}
	result, err := p.Run(context.Background(), job, models.ScoringSourceIngest)
	require.NoError(t, err)
	assert.True(t, result.RejectTriggered)
	assert.Equal(t, models.ScoringRejectedHeuristic, result.Run.FinalStatus)
	assert.Equal(t, models.StageSkipped, result.Run.AIReason.Status)
	assert.Equal(t, 0, ai.calls)
}

func TestPipelineCompletesAndComputesFinalScore(t *testing.T) {
	extractResp, _ := json.Marshal(ExtractedFields{RoleTitle: "Backend Engineer", Company: "Acme", MustHaveKeywords: []string{"golang"}})
	reasonResp, _ := json.Marshal(reasonResult{PrimaryTargetID: "t1", ScoreMust: 80, ScoreNice: 50, RejectTriggered: 0, ReasonTopMatches: "strong golang match"})

	ai := &scriptedAI{responses: []string{string(extractResp), string(reasonResp)}}
	runs := &fakeRunCreator{}
	p := &Pipeline{
		Targets:  &fakeTargetLister{targets: testTargets()},
		Evidence: &fakeEvidenceUpserter{},
		Runs:     runs,
		AI:       ai,
		Cfg:      testConfig(),
	}

	jd := "We are hiring a golang engineer to build distributed systems at scale using kubernetes every day here. " +
		"Our team ships reliable backend services for customers."
	job := &models.Job{JobKey: "k2", JDTextClean: jd}

	result, err := p.Run(context.Background(), job, models.ScoringSourceIngest)
	require.NoError(t, err)
	require.NotNil(t, result.FinalScore)
	assert.InDelta(t, 0.7*80+0.3*50, *result.FinalScore, 0.001)
	assert.Equal(t, "t1", *result.PrimaryTargetID)
	require.Len(t, runs.runs, 1)
	assert.Equal(t, models.ScoringCompleted, runs.runs[0].FinalStatus)
}

func TestPipelineRecordsFailedRunOnAIError(t *testing.T) {
	ai := &scriptedAI{err: &llm.LLMError{Err: llm.ErrProviderUnavailable, Provider: "scripted", UserMessage: "down", Retryable: true}}
	runs := &fakeRunCreator{}
	p := &Pipeline{
		Targets:  &fakeTargetLister{targets: testTargets()},
		Evidence: &fakeEvidenceUpserter{},
		Runs:     runs,
		AI:       ai,
		Cfg:      testConfig(),
	}

	jd := "We are hiring a golang engineer to build distributed systems at scale using kubernetes every day here. " +
		"Our team ships reliable backend services for customers."
	job := &models.Job{JobKey: "k3", JDTextClean: jd}

	result, err := p.Run(context.Background(), job, models.ScoringSourceIngest)
	require.NoError(t, err)
	assert.True(t, result.AIUnavailable)
	require.Len(t, runs.runs, 1)
	assert.Equal(t, models.ScoringFailed, runs.runs[0].FinalStatus)
	assert.Equal(t, models.StageFailed, runs.runs[0].AIExtract.Status)
}

func TestSleepBackoffDuration(t *testing.T) {
	start := time.Now()
	sleepBackoff(5)
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}
