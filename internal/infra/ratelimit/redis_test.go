package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestRedisStoreTake(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := NewRedisStore(mr.Addr(), "", 0, nil)
	if err != nil {
		t.Fatalf("new redis store: %v", err)
	}
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		rec, err := store.Take(ctx, "student-1", time.Minute)
		if err != nil {
			t.Fatalf("take %d: %v", i, err)
		}
		if rec.Count != i {
			t.Fatalf("take %d: count = %d, want %d", i, rec.Count, i)
		}
	}

	rec, err := store.Take(ctx, "student-2", time.Minute)
	if err != nil {
		t.Fatalf("take student-2: %v", err)
	}
	if rec.Count != 1 {
		t.Fatalf("student-2 count = %d, want 1", rec.Count)
	}
}

func TestRedisStoreWindowExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := NewRedisStore(mr.Addr(), "", 0, nil)
	if err != nil {
		t.Fatalf("new redis store: %v", err)
	}
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := store.Take(ctx, "student-1", time.Minute); err != nil {
			t.Fatalf("take: %v", err)
		}
	}

	mr.FastForward(61 * time.Second)

	rec, err := store.Take(ctx, "student-1", time.Minute)
	if err != nil {
		t.Fatalf("take after expiry: %v", err)
	}
	if rec.Count != 1 {
		t.Fatalf("count after expiry = %d, want 1", rec.Count)
	}
}

func TestRedisStoreRequiresAddr(t *testing.T) {
	if _, err := NewRedisStore("", "", 0, nil); err == nil {
		t.Fatal("expected error for missing addr")
	}
}
