package llm

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/kabsikabs/integration-core/internal/rpc"
)

type fakeSinkResolver struct {
	sinks map[string]Sink
}

func (f *fakeSinkResolver) Sink(sessionID string) (Sink, bool) {
	s, ok := f.sinks[sessionID]
	return s, ok
}

func assertBadRequest(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	rpcErr, ok := err.(*rpc.Error)
	if !ok {
		t.Fatalf("expected *rpc.Error, got %T", err)
	}
	if rpcErr.Kind != rpc.ErrBadRequest {
		t.Fatalf("expected ErrBadRequest, got %v", rpcErr.Kind)
	}
}

func TestHandleInitializeSessionRequiresCompanyID(t *testing.T) {
	h := &Handler{sessions: NewSessionStore()}
	if _, err := h.handleInitializeSession(context.Background(), json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected validation error")
	} else {
		assertBadRequest(t, err)
	}
}

func TestHandleInitializeSessionCreatesSession(t *testing.T) {
	h := &Handler{sessions: NewSessionStore()}
	res, err := h.handleInitializeSession(context.Background(), json.RawMessage(`{"company_id":"c1"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sess, ok := res.(*Session)
	if !ok || sess.CompanyID != "c1" {
		t.Fatalf("unexpected session result: %+v", res)
	}
}

func TestHandleSendMessageRequiresFields(t *testing.T) {
	h := &Handler{sessions: NewSessionStore()}
	if _, err := h.handleSendMessage(context.Background(), json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected validation error")
	} else {
		assertBadRequest(t, err)
	}
}

func TestHandleSendMessageUnknownSession(t *testing.T) {
	h := &Handler{sessions: NewSessionStore(), sinks: &fakeSinkResolver{sinks: map[string]Sink{}}}
	raw := json.RawMessage(`{"session_id":"nonexistent","message":"hi"}`)
	if _, err := h.handleSendMessage(context.Background(), raw); err == nil {
		t.Fatal("expected not-found error")
	} else if rpcErr, ok := err.(*rpc.Error); !ok || rpcErr.Kind != rpc.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHandleSendMessageRequiresStream(t *testing.T) {
	sessions := NewSessionStore()
	sess := sessions.Create("user-1", "c1")
	h := &Handler{sessions: sessions, sinks: &fakeSinkResolver{sinks: map[string]Sink{}}}

	raw, _ := json.Marshal(sendMessageParams{SessionID: sess.ID, Message: "hi"})
	if _, err := h.handleSendMessage(context.Background(), raw); err == nil {
		t.Fatal("expected error for missing stream")
	} else {
		assertBadRequest(t, err)
	}
}

func TestHandleUpdateCompanyContextRequiresSessionID(t *testing.T) {
	h := &Handler{sessions: NewSessionStore()}
	if _, err := h.handleUpdateCompanyContext(context.Background(), json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected validation error")
	} else {
		assertBadRequest(t, err)
	}
}

func TestHandleUpdateCompanyContextUnknownSession(t *testing.T) {
	h := &Handler{sessions: NewSessionStore()}
	raw := json.RawMessage(`{"session_id":"nonexistent","company_context":{}}`)
	if _, err := h.handleUpdateCompanyContext(context.Background(), raw); err == nil {
		t.Fatal("expected not-found error")
	} else if rpcErr, ok := err.(*rpc.Error); !ok || rpcErr.Kind != rpc.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
