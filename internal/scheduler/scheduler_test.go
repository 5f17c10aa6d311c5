package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkochhar/jobops/internal/repository"
)

func TestSchedulerSkipsOverlappingRunAndEmitsEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO events").
		WithArgs(sqlmock.AnyArg(), "CRON_SKIPPED_OVERLAP", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	events := repository.NewEventRepository(db)

	release := make(chan struct{})
	started := make(chan struct{})
	var runs int
	var mu sync.Mutex

	triggers := []Trigger{{
		Name: "recovery_backfill",
		Run: func(ctx context.Context) error {
			mu.Lock()
			runs++
			mu.Unlock()
			close(started)
			<-release
			return nil
		},
	}}

	s := New(events, time.Hour, triggers)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.pollOnce(ctx, time.Now().UTC())
	<-started

	s.pollOnce(ctx, time.Now().UTC())

	close(release)
	s.wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, runs, "overlapping second firing must not re-run the trigger")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchedulerRunsNamedTriggerOnDemand(t *testing.T) {
	var ran bool
	triggers := []Trigger{{
		Name: "rss_poll",
		Run: func(ctx context.Context) error {
			ran = true
			return nil
		},
	}}

	s := New(nil, time.Hour, triggers)
	s.pollOnce(context.Background(), time.Now().UTC())
	s.wg.Wait()

	assert.True(t, ran)
}

func TestSchedulerCronScheduleGatesFiring(t *testing.T) {
	var runs int
	triggers := []Trigger{{
		Name:     "rescore",
		Schedule: "0 0 1 1 *", // once a year, Jan 1st
		Run: func(ctx context.Context) error {
			runs++
			return nil
		},
	}}

	s := New(nil, time.Hour, triggers)
	s.lastRun.store("rescore", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	s.pollOnce(context.Background(), time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	s.wg.Wait()

	assert.Equal(t, 0, runs, "next Jan 1 trigger has not arrived yet")
}
