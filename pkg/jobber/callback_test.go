package jobber

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

var errBoom = errors.New("boom")

type fakeSink struct {
	delivered []CallbackPayload
	err       error
}

func (f *fakeSink) SendJobUpdate(sessionID string, payload CallbackPayload) error {
	if f.err != nil {
		return f.err
	}
	f.delivered = append(f.delivered, payload)
	return nil
}

type fakeResolver struct {
	sinks map[string]Sink
}

func (f *fakeResolver) Sink(sessionID string) (Sink, bool) {
	s, ok := f.sinks[sessionID]
	return s, ok
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func postCallback(t *testing.T, r *Router, payload CallbackPayload) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/hr/callback", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouterRejectsMissingJobID(t *testing.T) {
	r := NewRouter(&fakeResolver{sinks: map[string]Sink{}}, nil, discardLogger())
	w := postCallback(t, r, CallbackPayload{SessionID: "s1", Status: JobCompleted})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 from struct-tag validation, got %d", w.Code)
	}
}

func TestRouterDeliversToResolvedSink(t *testing.T) {
	sink := &fakeSink{}
	r := NewRouter(&fakeResolver{sinks: map[string]Sink{"s1": sink}}, nil, discardLogger())
	w := postCallback(t, r, CallbackPayload{JobID: "payroll_abc", SessionID: "s1", Status: JobCompleted})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(sink.delivered) != 1 || sink.delivered[0].JobID != "payroll_abc" {
		t.Fatalf("expected delivery, got %+v", sink.delivered)
	}
}

func TestRouterAcksWhenNoSinkForSession(t *testing.T) {
	r := NewRouter(&fakeResolver{sinks: map[string]Sink{}}, nil, discardLogger())
	w := postCallback(t, r, CallbackPayload{JobID: "payroll_abc", SessionID: "unknown", Status: JobCompleted})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 ack even without a listener, got %d", w.Code)
	}
}

func TestRouterAcksWithoutSessionID(t *testing.T) {
	r := NewRouter(&fakeResolver{sinks: map[string]Sink{}}, nil, discardLogger())
	w := postCallback(t, r, CallbackPayload{JobID: "payroll_abc", Status: JobCompleted})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRouterDeduplicatesTerminalDelivery(t *testing.T) {
	sink := &fakeSink{}
	r := NewRouter(&fakeResolver{sinks: map[string]Sink{"s1": sink}}, nil, discardLogger())
	payload := CallbackPayload{JobID: "payroll_abc", SessionID: "s1", Status: JobCompleted}

	postCallback(t, r, payload)
	postCallback(t, r, payload)

	if len(sink.delivered) != 1 {
		t.Fatalf("expected exactly one delivery, got %d", len(sink.delivered))
	}
}

func TestRouterDoesNotDeduplicatePendingProgress(t *testing.T) {
	sink := &fakeSink{}
	r := NewRouter(&fakeResolver{sinks: map[string]Sink{"s1": sink}}, nil, discardLogger())
	payload := CallbackPayload{JobID: "payroll_abc", SessionID: "s1", Status: JobPending}

	postCallback(t, r, payload)
	postCallback(t, r, payload)

	if len(sink.delivered) != 2 {
		t.Fatalf("expected two progress deliveries, got %d", len(sink.delivered))
	}
}

func TestRouterReturns500WhenSinkFails(t *testing.T) {
	sink := &fakeSink{err: errBoom}
	r := NewRouter(&fakeResolver{sinks: map[string]Sink{"s1": sink}}, nil, discardLogger())
	w := postCallback(t, r, CallbackPayload{JobID: "payroll_abc", SessionID: "s1", Status: JobCompleted})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
