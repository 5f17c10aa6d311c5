package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkochhar/jobops/internal/models"
)

// EventRepository persists the append-only Event audit trail emitted by
// lifecycle transitions (including those recovery loops drive) and scheduler
// admission control. Source-adapter health results are not written here.
type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Emit writes one event row, assigning a fresh id and timestamp.
func (r *EventRepository) Emit(ctx context.Context, eventType, jobKey, payloadJSON string) error {
	e := models.Event{
		ID:          uuid.NewString(),
		EventType:   eventType,
		JobKey:      jobKey,
		PayloadJSON: payloadJSON,
		Ts:          time.Now(),
	}
	if e.PayloadJSON == "" {
		e.PayloadJSON = "{}"
	}
	query := `INSERT INTO events (id, event_type, job_key, payload_json, ts) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, e.ID, e.EventType, nullString(e.JobKey), e.PayloadJSON, e.Ts.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("emit event: %w", err)
	}
	return nil
}

// ListRecent returns the most recent events, optionally filtered to one
// job_key, for GET /events.
func (r *EventRepository) ListRecent(ctx context.Context, jobKey string, limit int) ([]*models.Event, error) {
	query := `SELECT id, event_type, job_key, payload_json, ts FROM events WHERE 1=1`
	var args []any
	if jobKey != "" {
		query += ` AND job_key = ?`
		args = append(args, jobKey)
	}
	query += ` ORDER BY ts DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []*models.Event
	for rows.Next() {
		var e models.Event
		var jk sql.NullString
		var ts string
		if err := rows.Scan(&e.ID, &e.EventType, &jk, &e.PayloadJSON, &ts); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.JobKey = jk.String
		e.Ts = parseTime(ts)
		events = append(events, &e)
	}
	return events, rows.Err()
}
