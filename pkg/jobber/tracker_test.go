package jobber

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("starting miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewTracker(rdb)
}

func TestTrackerTrackAndPendingOlderThan(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	if err := tr.Track(ctx, "job-1", "sess-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stale, err := tr.PendingOlderThan(ctx, -time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stale) != 1 || stale[0].JobID != "job-1" || stale[0].SessionID != "sess-1" {
		t.Fatalf("unexpected stale jobs: %+v", stale)
	}
}

func TestTrackerPendingOlderThanExcludesFreshJobs(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	if err := tr.Track(ctx, "job-1", "sess-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stale, err := tr.PendingOlderThan(ctx, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stale) != 0 {
		t.Fatalf("expected no stale jobs, got %+v", stale)
	}
}

func TestTrackerUntrackRemovesJob(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	if err := tr.Track(ctx, "job-1", "sess-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tr.Untrack(ctx, "job-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stale, err := tr.PendingOlderThan(ctx, -time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stale) != 0 {
		t.Fatalf("expected no tracked jobs after untrack, got %+v", stale)
	}
}

func TestTrackerTrackIgnoresEmptyJobID(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	if err := tr.Track(ctx, "", "sess-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stale, err := tr.PendingOlderThan(ctx, -time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stale) != 0 {
		t.Fatalf("expected no tracked jobs, got %+v", stale)
	}
}

func TestTrackerNilIsSafe(t *testing.T) {
	var tr *Tracker
	ctx := context.Background()

	if err := tr.Track(ctx, "job-1", "sess-1"); err != nil {
		t.Fatalf("unexpected error from nil tracker: %v", err)
	}
	if err := tr.Untrack(ctx, "job-1"); err != nil {
		t.Fatalf("unexpected error from nil tracker: %v", err)
	}
}
