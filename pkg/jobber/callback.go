package jobber

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/kabsikabs/integration-core/internal/httpserver"
)

// Sink delivers a completed or in-progress job's payload to whatever is
// listening for it — in practice pkg/stream's websocket publisher,
// addressed by session id. Kept narrow so Router can be tested without a
// live streaming transport.
type Sink interface {
	SendJobUpdate(sessionID string, payload CallbackPayload) error
}

// SinkResolver looks up the Sink for a session id. A session with no
// active stream (frontend disconnected, or the job was submitted without
// one) resolves false, and the callback is still acknowledged — the
// Jobber must not retry forever just because nobody is listening.
type SinkResolver interface {
	Sink(sessionID string) (Sink, bool)
}

// Router handles the Jobber's POST to /hr/callback, dispatching each
// payload onto the caller's streaming sink by session id. This is the
// HTTP side of the "Jobber HR → /hr/callback → WebSocket → Frontend"
// path the original's architecture comment names; internal/app mounts
// it directly since httpserver.NewServer deliberately leaves
// connector-specific routes to the caller.
type Router struct {
	sinks   SinkResolver
	tracker *Tracker
	logger  *slog.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewRouter wires a Router. tracker may be nil (no reconciliation
// bookkeeping to clear on terminal delivery).
func NewRouter(sinks SinkResolver, tracker *Tracker, logger *slog.Logger) *Router {
	return &Router{sinks: sinks, tracker: tracker, logger: logger, seen: make(map[string]struct{})}
}

// ServeHTTP implements http.Handler so internal/app can mount it with
// router.Post("/hr/callback", jobberRouter.ServeHTTP).
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var payload CallbackPayload
	if !httpserver.DecodeAndValidate(w, req, &payload) {
		return
	}

	if payload.Status != JobPending {
		if err := r.tracker.Untrack(req.Context(), payload.JobID); err != nil {
			r.logger.Warn("untracking completed job", "job_id", payload.JobID, "error", err)
		}
	}

	if r.alreadyDelivered(payload.JobID, payload.Status) {
		w.WriteHeader(http.StatusOK)
		return
	}

	if payload.SessionID == "" {
		r.logger.Warn("jobber callback without session id", "job_id", payload.JobID, "job_type", payload.JobType)
		w.WriteHeader(http.StatusOK)
		return
	}

	sink, ok := r.sinks.Sink(payload.SessionID)
	if !ok {
		r.logger.Info("jobber callback for session with no active stream",
			"job_id", payload.JobID, "session_id", payload.SessionID)
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := sink.SendJobUpdate(payload.SessionID, payload); err != nil {
		r.logger.Error("delivering jobber callback to stream", "error", err,
			"job_id", payload.JobID, "session_id", payload.SessionID)
		http.Error(w, "delivering callback", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// alreadyDelivered guards against the Jobber's retry-on-slow-ack
// behavior: a terminal status (completed/failed) for a job id already
// marked delivered is deduplicated so the frontend never sees the same
// completion twice. Progress callbacks (status still pending) are never
// deduplicated since each one carries new progress data.
func (r *Router) alreadyDelivered(jobID string, status JobStatus) bool {
	if status == JobPending {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[jobID]; ok {
		return true
	}
	r.seen[jobID] = struct{}{}
	return false
}
