package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkochhar/jobops/internal/models"
)

type fakeEvents struct {
	events []string
}

func (f *fakeEvents) Emit(ctx context.Context, eventType, jobKey, payloadJSON string) error {
	f.events = append(f.events, eventType)
	return nil
}

func TestApplyIngestInsertSetsLinkOnlyOnManualJDNeeded(t *testing.T) {
	events := &fakeEvents{}
	m := New(events, 75)
	job := &models.Job{JobKey: "k1"}

	err := m.ApplyIngestInsert(context.Background(), job, true, false)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLinkOnly, job.Status)
	require.NotNil(t, job.SystemStatus)
	assert.Equal(t, models.SystemStatusNeedsManualJD, *job.SystemStatus)
}

func TestApplyScoringCompletionShortlistsAboveThreshold(t *testing.T) {
	events := &fakeEvents{}
	m := New(events, 75)
	job := &models.Job{JobKey: "k2", Status: models.StatusNew}

	err := m.ApplyScoringCompletion(context.Background(), job, 80, false)
	require.NoError(t, err)
	assert.Equal(t, models.StatusShortlisted, job.Status)
	require.NotNil(t, job.LastScoredAt)
}

func TestApplyScoringCompletionSkipsTerminalWithoutForce(t *testing.T) {
	events := &fakeEvents{}
	m := New(events, 75)
	job := &models.Job{JobKey: "k3", Status: models.StatusApplied}

	err := m.ApplyScoringCompletion(context.Background(), job, 90, false)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApplied, job.Status)
	assert.Equal(t, []string{"SCORING_SKIPPED_TERMINAL"}, events.events)
}

func TestApplyScoringRejectSetsHeuristicSystemStatus(t *testing.T) {
	events := &fakeEvents{}
	m := New(events, 75)
	job := &models.Job{JobKey: "k4", Status: models.StatusShortlisted}

	err := m.ApplyScoringReject(context.Background(), job, true, false)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, job.Status)
	require.NotNil(t, job.RejectedAt)
	require.NotNil(t, job.SystemStatus)
	assert.Equal(t, models.SystemStatusRejectedHeuristic, *job.SystemStatus)
}

func TestApplyManualJDClearsSystemStatus(t *testing.T) {
	events := &fakeEvents{}
	m := New(events, 75)
	ss := models.SystemStatusNeedsManualJD
	job := &models.Job{JobKey: "k5", Status: models.StatusLinkOnly, SystemStatus: &ss}

	err := m.ApplyManualJD(context.Background(), job, "a long enough manual job description text right here")
	require.NoError(t, err)
	assert.Nil(t, job.SystemStatus)
	assert.Equal(t, models.JDSourceManual, job.JDSource)
}

func TestApplyExplicitStatusSetsAppliedAt(t *testing.T) {
	events := &fakeEvents{}
	m := New(events, 75)
	job := &models.Job{JobKey: "k6", Status: models.StatusShortlisted}

	err := m.ApplyExplicitStatus(context.Background(), job, models.StatusApplied)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApplied, job.Status)
	require.NotNil(t, job.AppliedAt)
}
