// Package lifecycle implements the Lifecycle Machine (C6): applying
// status/system_status transitions to a Job with the timestamp and event
// invariants from spec.md §4.6. Every transition is applied by a single
// helper that sets timestamps, refreshes updated_at, and emits an Event row,
// mirroring the teacher's JobStartedEvent/JobCompletedEvent/JobFailedEvent
// emission pattern in its job executor.
package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mkochhar/jobops/internal/models"
)

// EventEmitter is the narrow capability the machine needs to record a
// transition, satisfied by *repository.EventRepository.
type EventEmitter interface {
	Emit(ctx context.Context, eventType, jobKey, payloadJSON string) error
}

// Machine applies transitions and emits the corresponding Event.
type Machine struct {
	Events             EventEmitter
	ShortlistThreshold float64
}

// New builds a Machine around an EventEmitter and the configured shortlist
// threshold (spec.md §4.6 default 75).
func New(events EventEmitter, shortlistThreshold float64) *Machine {
	return &Machine{Events: events, ShortlistThreshold: shortlistThreshold}
}

// terminalStatuses are not auto-overwritten by scoring unless the caller
// passes force=true, per spec.md §4.6.
var terminalStatuses = map[models.JobStatus]bool{
	models.StatusApplied:  true,
	models.StatusRejected: true,
	models.StatusArchived: true,
}

// IsTerminal reports whether status is one of the three terminal states.
func IsTerminal(status models.JobStatus) bool {
	return terminalStatuses[status]
}

// ApplyIngestInsert sets the initial lifecycle state for a newly inserted
// row: NEW when a JD is usable and AI is available, LINK_ONLY otherwise.
func (m *Machine) ApplyIngestInsert(ctx context.Context, job *models.Job, needsManualJD, aiUnavailable bool) error {
	switch {
	case needsManualJD:
		job.Status = models.StatusLinkOnly
		ss := models.SystemStatusNeedsManualJD
		job.SystemStatus = &ss
	case aiUnavailable:
		job.Status = models.StatusLinkOnly
		ss := models.SystemStatusAIUnavailable
		job.SystemStatus = &ss
	default:
		job.Status = models.StatusNew
		job.SystemStatus = nil
	}
	return m.emit(ctx, "JOB_INGESTED", job, map[string]any{"status": job.Status, "system_status": job.SystemStatus})
}

// ApplyScoringCompletion folds a non-reject scoring Result into the job,
// transitioning {NEW, SCORED, LINK_ONLY} -> SCORED, and further to
// SHORTLISTED when final_score clears the configured threshold.
func (m *Machine) ApplyScoringCompletion(ctx context.Context, job *models.Job, finalScore float64, force bool) error {
	if IsTerminal(job.Status) && !force {
		return m.emit(ctx, "SCORING_SKIPPED_TERMINAL", job, map[string]any{"status": job.Status})
	}

	job.Status = models.StatusScored
	now := time.Now()
	job.LastScoredAt = &now
	if finalScore >= m.ShortlistThreshold {
		job.Status = models.StatusShortlisted
	}
	return m.emit(ctx, "JOB_SCORED", job, map[string]any{"status": job.Status, "final_score": finalScore})
}

// ApplyScoringReject transitions a job to REJECTED, setting rejected_at and,
// when the reject came from the heuristic gate, system_status.
func (m *Machine) ApplyScoringReject(ctx context.Context, job *models.Job, fromHeuristic bool, force bool) error {
	if IsTerminal(job.Status) && !force {
		return m.emit(ctx, "SCORING_SKIPPED_TERMINAL", job, map[string]any{"status": job.Status})
	}

	job.Status = models.StatusRejected
	now := time.Now()
	job.RejectedAt = &now
	if fromHeuristic {
		ss := models.SystemStatusRejectedHeuristic
		job.SystemStatus = &ss
	}
	return m.emit(ctx, "JOB_REJECTED", job, map[string]any{"status": job.Status, "from_heuristic": fromHeuristic})
}

// ApplyScoringFailure sets system_status=AI_UNAVAILABLE when the failure
// indicates the AI collaborator is down; status is left unchanged.
func (m *Machine) ApplyScoringFailure(ctx context.Context, job *models.Job, aiUnavailable bool) error {
	if aiUnavailable {
		ss := models.SystemStatusAIUnavailable
		job.SystemStatus = &ss
	}
	job.UpdatedAt = time.Now()
	return m.emit(ctx, "SCORING_FAILED", job, map[string]any{"ai_unavailable": aiUnavailable})
}

// ApplyManualJD clears system_status and marks the job ready to rescore,
// per spec.md §4.6's manual-JD-submit rule.
func (m *Machine) ApplyManualJD(ctx context.Context, job *models.Job, jdText string) error {
	job.JDTextClean = jdText
	job.JDSource = models.JDSourceManual
	job.SystemStatus = nil
	return m.emit(ctx, "MANUAL_JD_SUBMITTED", job, map[string]any{"jd_length": len(jdText)})
}

// ApplyExplicitStatus applies a user-directed status change, writing the
// matching timestamp column. system_status is left untouched since it is
// orthogonal to the user-visible status per spec.md §4.6.
func (m *Machine) ApplyExplicitStatus(ctx context.Context, job *models.Job, newStatus models.JobStatus) error {
	now := time.Now()
	switch newStatus {
	case models.StatusApplied:
		job.AppliedAt = &now
	case models.StatusRejected:
		job.RejectedAt = &now
	case models.StatusArchived:
		job.ArchivedAt = &now
	case models.StatusShortlisted:
		// no dedicated timestamp column; last_scored_at/updated_at already track recency.
	default:
		return fmt.Errorf("explicit status transition to %s is not supported", newStatus)
	}

	job.Status = newStatus
	return m.emit(ctx, "JOB_STATUS_CHANGED", job, map[string]any{"status": newStatus})
}

func (m *Machine) emit(ctx context.Context, eventType string, job *models.Job, payload map[string]any) error {
	job.UpdatedAt = time.Now()
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	return m.Events.Emit(ctx, eventType, job.JobKey, string(b))
}
