package locks

import (
	"context"
	"testing"
	"time"
)

func TestKeyedLockerExclusion(t *testing.T) {
	l := NewKeyedLocker()
	ctx := context.Background()

	release, err := l.Acquire(ctx, "job-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		r2, err := l.Acquire(ctx, "job-1")
		if err != nil {
			t.Errorf("unexpected error: %v", err)
			return
		}
		close(acquired)
		r2()
	}()

	select {
	case <-acquired:
		t.Fatalf("second acquire should not have succeeded while first is held")
	case <-time.After(50 * time.Millisecond):
	}

	release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatalf("second acquire should have succeeded after release")
	}
}

func TestKeyedLockerTimeout(t *testing.T) {
	l := NewKeyedLocker()
	release, err := l.Acquire(context.Background(), "job-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = l.Acquire(ctx, "job-2")
	if err == nil {
		t.Fatalf("expected timeout error")
	}
}
