package jobber

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const trackedJobsKey = "jobber:tracked"

// TrackedJob is a submission the Jobber accepted but hasn't reported
// terminal for yet.
type TrackedJob struct {
	JobID       string    `json:"job_id"`
	SessionID   string    `json:"session_id"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Tracker records still-pending jobs in Redis so the reconciliation loop
// (internal/app's worker mode) can notice a dropped callback and poll
// for status directly, grounded on pkg/escalation.Engine's
// ticker-plus-pending-state-sweep shape — this package has no database
// table of its own, so a Redis hash plays that role here.
type Tracker struct {
	rdb *redis.Client
}

func NewTracker(rdb *redis.Client) *Tracker {
	return &Tracker{rdb: rdb}
}

// Track records a newly submitted job that is still pending. A no-op if
// jobID is empty (synchronous completions never need tracking).
func (t *Tracker) Track(ctx context.Context, jobID, sessionID string) error {
	if t == nil || jobID == "" {
		return nil
	}
	data, err := json.Marshal(TrackedJob{JobID: jobID, SessionID: sessionID, SubmittedAt: time.Now()})
	if err != nil {
		return err
	}
	return t.rdb.HSet(ctx, trackedJobsKey, jobID, data).Err()
}

// Untrack removes a job once it reaches a terminal status, whether
// reported by callback or discovered by reconciliation.
func (t *Tracker) Untrack(ctx context.Context, jobID string) error {
	if t == nil || jobID == "" {
		return nil
	}
	return t.rdb.HDel(ctx, trackedJobsKey, jobID).Err()
}

// PendingOlderThan returns every tracked job submitted before the grace
// cutoff — candidates for the reconciliation loop to poll directly in
// case their callback was dropped.
func (t *Tracker) PendingOlderThan(ctx context.Context, grace time.Duration) ([]TrackedJob, error) {
	raw, err := t.rdb.HGetAll(ctx, trackedJobsKey).Result()
	if err != nil {
		return nil, err
	}
	cutoff := time.Now().Add(-grace)
	var stale []TrackedJob
	for _, v := range raw {
		var tj TrackedJob
		if err := json.Unmarshal([]byte(v), &tj); err != nil {
			continue
		}
		if tj.SubmittedAt.Before(cutoff) {
			stale = append(stale, tj)
		}
	}
	return stale, nil
}
