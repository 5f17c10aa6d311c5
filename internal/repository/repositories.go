package repository

import "database/sql"

// Repositories bundles every repository behind a single handle, handed to
// the service layer at wiring time.
type Repositories struct {
	Job        *JobRepository
	Target     *TargetRepository
	Evidence   *EvidenceRepository
	ScoringRun *ScoringRunRepository
	Contact    *ContactRepository
	Event      *EventRepository
}

// NewRepositories constructs every repository over a shared *sql.DB.
func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Job:        NewJobRepository(db),
		Target:     NewTargetRepository(db),
		Evidence:   NewEvidenceRepository(db),
		ScoringRun: NewScoringRunRepository(db),
		Contact:    NewContactRepository(db),
		Event:      NewEventRepository(db),
	}
}
