package retryq

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestRedisQueueScheduleUpserts(t *testing.T) {
	mr := miniredis.RunT(t)
	q, err := NewRedisQueue(mr.Addr(), "", 0)
	if err != nil {
		t.Fatalf("new redis queue: %v", err)
	}
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	entry, err := q.Schedule(ctx, "red-1", base.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if entry.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", entry.Attempts)
	}

	entry, err = q.Schedule(ctx, "red-1", base.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if entry.Attempts != 2 {
		t.Fatalf("attempts = %d, want 2", entry.Attempts)
	}

	due, err := q.Due(ctx, base.Add(time.Hour), 5)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(due) != 1 || due[0].RedemptionID != "red-1" || due[0].Attempts != 2 {
		t.Fatalf("due = %+v, want single red-1 entry with two attempts", due)
	}
}

func TestRedisQueueDueAndPrune(t *testing.T) {
	mr := miniredis.RunT(t)
	q, err := NewRedisQueue(mr.Addr(), "", 0)
	if err != nil {
		t.Fatalf("new redis queue: %v", err)
	}
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	q.Schedule(ctx, "ready", base.Add(-time.Minute))
	q.Schedule(ctx, "future", base.Add(time.Minute))
	for i := 0; i < 5; i++ {
		q.Schedule(ctx, "capped", base.Add(-time.Minute))
	}

	due, err := q.Due(ctx, base, 5)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(due) != 1 || due[0].RedemptionID != "ready" {
		t.Fatalf("due = %+v, want only the ready entry", due)
	}

	pruned, err := q.Prune(ctx, base, 5)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("pruned = %d, want 1", pruned)
	}

	// The capped entry is gone entirely; ready and future remain.
	due, err = q.Due(ctx, base.Add(2*time.Minute), 5)
	if err != nil {
		t.Fatalf("due after prune: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("len(due) = %d after prune, want 2", len(due))
	}
}
