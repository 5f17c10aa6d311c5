// Package models defines the domain entities shared across JobOps components.
package models

import "time"

// JobStatus is the user-visible lifecycle state of a Job.
type JobStatus string

const (
	StatusNew         JobStatus = "NEW"
	StatusScored      JobStatus = "SCORED"
	StatusShortlisted JobStatus = "SHORTLISTED"
	StatusApplied     JobStatus = "APPLIED"
	StatusRejected    JobStatus = "REJECTED"
	StatusArchived    JobStatus = "ARCHIVED"
	StatusLinkOnly    JobStatus = "LINK_ONLY"
)

// SystemStatus is the internal, orthogonal marker set on a Job.
type SystemStatus string

const (
	SystemStatusNeedsManualJD      SystemStatus = "NEEDS_MANUAL_JD"
	SystemStatusAIUnavailable      SystemStatus = "AI_UNAVAILABLE"
	SystemStatusRejectedHeuristic  SystemStatus = "REJECTED_HEURISTIC"
)

// JDSource records where a job's cleaned JD text came from.
type JDSource string

const (
	JDSourceFetched JDSource = "fetched"
	JDSourceEmail   JDSource = "email"
	JDSourceManual  JDSource = "manual"
	JDSourceNone    JDSource = "none"
)

// FetchStatus records the outcome of the JD Resolver's fetch attempt.
type FetchStatus string

const (
	FetchStatusOK           FetchStatus = "ok"
	FetchStatusBlocked      FetchStatus = "blocked"
	FetchStatusFailed       FetchStatus = "failed"
	FetchStatusAIUnavailable FetchStatus = "ai_unavailable"
)

// JDConfidence is the JD Resolver's confidence in the extracted text.
type JDConfidence string

const (
	ConfidenceLow    JDConfidence = "low"
	ConfidenceMedium JDConfidence = "medium"
	ConfidenceHigh   JDConfidence = "high"
)

// Job is the central entity: one row per canonical URL.
type Job struct {
	JobKey     string  `json:"job_key"`
	JobURL     string  `json:"job_url"`
	JobURLRaw  string  `json:"job_url_raw"`
	SourceDomain string `json:"source_domain"`
	ExternalID *string `json:"external_id,omitempty"`

	RoleTitle        string   `json:"role_title,omitempty"`
	Company          string   `json:"company,omitempty"`
	Location         string   `json:"location,omitempty"`
	WorkMode         string   `json:"work_mode,omitempty"`
	Seniority        string   `json:"seniority,omitempty"`
	ExperienceMinYrs *int     `json:"experience_min_years,omitempty"`
	ExperienceMaxYrs *int     `json:"experience_max_years,omitempty"`
	MustHave         []string `json:"must_have,omitempty"`
	NiceToHave       []string `json:"nice_to_have,omitempty"`
	Reject           []string `json:"reject,omitempty"`

	JDTextClean string       `json:"jd_text_clean,omitempty"`
	JDSource    JDSource     `json:"jd_source"`
	FetchStatus FetchStatus  `json:"fetch_status"`
	JDConfidence JDConfidence `json:"jd_confidence"`

	PrimaryTargetID  *string  `json:"primary_target_id,omitempty"`
	ScoreMust        *float64 `json:"score_must,omitempty"`
	ScoreNice        *float64 `json:"score_nice,omitempty"`
	FinalScore       *float64 `json:"final_score,omitempty"`
	RejectTriggered  bool     `json:"reject_triggered"`
	RejectReasons    []string `json:"reject_reasons,omitempty"`
	ReasonTopMatches string   `json:"reason_top_matches,omitempty"`

	Status       JobStatus     `json:"status"`
	SystemStatus *SystemStatus `json:"system_status,omitempty"`

	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastScoredAt  *time.Time `json:"last_scored_at,omitempty"`
	AppliedAt     *time.Time `json:"applied_at,omitempty"`
	RejectedAt    *time.Time `json:"rejected_at,omitempty"`
	ArchivedAt    *time.Time `json:"archived_at,omitempty"`
}

// HasJD reports whether the job carries usable JD text.
func (j *Job) HasJD() bool {
	return j != nil && j.JDTextClean != ""
}

// Target is a user-configured scoring rubric.
type Target struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	PrimaryRole   string    `json:"primary_role"`
	Seniority     string    `json:"seniority,omitempty"`
	Location      string    `json:"location,omitempty"`
	MustKeywords  []string  `json:"must"`
	NiceKeywords  []string  `json:"nice"`
	RejectKeywords []string `json:"reject"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ScoringSource identifies what triggered a scoring attempt.
type ScoringSource string

const (
	ScoringSourcePending  ScoringSource = "score_pending"
	ScoringSourceRescore  ScoringSource = "rescore"
	ScoringSourceManualJD ScoringSource = "manual_jd"
	ScoringSourceIngest   ScoringSource = "ingest"
	ScoringSourceAdmin    ScoringSource = "admin"
)

// ScoringFinalStatus is the terminal outcome of one scoring run.
type ScoringFinalStatus string

const (
	ScoringCompleted         ScoringFinalStatus = "COMPLETED"
	ScoringRejectedHeuristic ScoringFinalStatus = "REJECTED_HEURISTIC"
	ScoringFailed            ScoringFinalStatus = "FAILED"
)

// StageStatus is the outcome of a single scoring pipeline stage.
type StageStatus string

const (
	StageOK       StageStatus = "ok"
	StageRejected StageStatus = "rejected"
	StageFailed   StageStatus = "failed"
	StageSkipped  StageStatus = "skipped"
)

// StageMetrics records one scoring-pipeline stage's timing, tokens, and outcome.
type StageMetrics struct {
	Status      StageStatus `json:"status"`
	StartedAt   time.Time   `json:"started_at"`
	FinishedAt  time.Time   `json:"finished_at"`
	LatencyMs   int64       `json:"latency_ms"`
	TokensIn    int         `json:"tokens_in"`
	TokensOut   int         `json:"tokens_out"`
	TokensTotal int         `json:"tokens_total"`
	Error       string      `json:"error,omitempty"`
}

// ScoringRun is an append-only telemetry row for one scoring attempt.
type ScoringRun struct {
	ID              string             `json:"id"`
	JobKey          string             `json:"job_key"`
	Source          ScoringSource      `json:"source"`
	FinalStatus     ScoringFinalStatus `json:"final_status"`
	HeuristicReasons []string          `json:"heuristic_reasons,omitempty"`
	Heuristic       StageMetrics       `json:"heuristic"`
	AIExtract       StageMetrics       `json:"ai_extract"`
	AIReason        StageMetrics       `json:"ai_reason"`
	Evidence        StageMetrics       `json:"evidence"`
	AIModel         string             `json:"ai_model,omitempty"`
	TotalLatencyMs  int64              `json:"total_latency_ms"`
	FinalScore      *float64           `json:"final_score,omitempty"`
	RejectTriggered bool               `json:"reject_triggered"`
	CreatedAt       time.Time          `json:"created_at"`
}

// RequirementType classifies a JobEvidence row.
type RequirementType string

const (
	RequirementMust RequirementType = "must"
	RequirementNice RequirementType = "nice"
)

// JobEvidence is a per-requirement evidence row, unique on (job_key, requirement_text, requirement_type).
type JobEvidence struct {
	ID               string          `json:"id"`
	JobKey           string          `json:"job_key"`
	RequirementText  string          `json:"requirement_text"`
	RequirementType  RequirementType `json:"requirement_type"`
	EvidenceText     string          `json:"evidence_text,omitempty"`
	EvidenceSource   string          `json:"evidence_source,omitempty"`
	ConfidenceScore  int             `json:"confidence_score"`
	Matched          bool            `json:"matched"`
	Notes            string          `json:"notes,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// TouchpointChannel is the outreach channel of a Touchpoint.
type TouchpointChannel string

const (
	ChannelLinkedIn TouchpointChannel = "LINKEDIN"
	ChannelEmail    TouchpointChannel = "EMAIL"
	ChannelOther    TouchpointChannel = "OTHER"
)

// TouchpointStatus is the outreach progress of a Touchpoint.
type TouchpointStatus string

const (
	TouchpointDraft    TouchpointStatus = "DRAFT"
	TouchpointSent     TouchpointStatus = "SENT"
	TouchpointReplied  TouchpointStatus = "REPLIED"
)

// touchpointRank gives a total order to detect backward transitions.
var touchpointRank = map[TouchpointStatus]int{
	TouchpointDraft:   0,
	TouchpointSent:    1,
	TouchpointReplied: 2,
}

// IsBackwardFrom reports whether transitioning from `from` to `to` would move the
// touchpoint status backward.
func (to TouchpointStatus) IsBackwardFrom(from TouchpointStatus) bool {
	return touchpointRank[to] < touchpointRank[from]
}

// Contact is a deduped recruiter record.
type Contact struct {
	ID          string    `json:"id"`
	Name        string    `json:"name,omitempty"`
	Company     string    `json:"company,omitempty"`
	Email       string    `json:"email,omitempty"`
	LinkedInURL string    `json:"linkedin_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Touchpoint is a recorded outreach attempt for a contact on a specific job+channel.
type Touchpoint struct {
	ID        string            `json:"id"`
	ContactID string            `json:"contact_id"`
	JobKey    string            `json:"job_key"`
	Channel   TouchpointChannel `json:"channel"`
	Status    TouchpointStatus  `json:"status"`
	Content   string            `json:"content,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Event is an append-only audit row.
type Event struct {
	ID        string    `json:"id"`
	EventType string    `json:"event_type"`
	JobKey    string    `json:"job_key,omitempty"`
	PayloadJSON string  `json:"payload_json,omitempty"`
	Ts        time.Time `json:"ts"`
}

// EnvelopeSource identifies which adapter produced a CandidateEnvelope.
type EnvelopeSource string

const (
	SourceManual EnvelopeSource = "MANUAL"
	SourceEmail  EnvelopeSource = "EMAIL"
	SourceRSS    EnvelopeSource = "RSS"
	SourceChat   EnvelopeSource = "CHAT"
)

// CanonicalJob is the adapter-normalized slice of fields the Ingest Orchestrator needs.
type CanonicalJob struct {
	Title       string
	Company     string
	Description string
	ExternalID  string
	JobURL      string
	SourceDomain string
}

// CandidateEnvelope is the tagged variant every source adapter produces.
type CandidateEnvelope struct {
	Source          EnvelopeSource
	RawURL          string
	RawPayload      any
	CanonicalJob    CanonicalJob
	EmailSubject    string
	EmailFrom       string
	EmailText       string
	EmailHTML       string
	MediaMimeType   string
	MediaCaption    string
	IngestTimestamp time.Time
}

// SourceHealthStatus classifies one batch's adapter health.
type SourceHealthStatus string

const (
	HealthHealthy  SourceHealthStatus = "healthy"
	HealthDegraded SourceHealthStatus = "degraded"
	HealthFailing  SourceHealthStatus = "failing"
)

// SourceHealth is the per-batch health check result computed by
// adapters.CheckHealth. Nothing in this module emits it as an Event.
type SourceHealth struct {
	Status          SourceHealthStatus `json:"status"`
	Reason          string             `json:"reason,omitempty"`
	TotalEnvelopes  int                `json:"total_envelopes"`
	ValidEnvelopes  int                `json:"valid_envelopes"`
}
