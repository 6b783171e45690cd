package llm

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/kabsikabs/integration-core/internal/auth"
	"github.com/kabsikabs/integration-core/internal/rpc"
)

// Handler implements the LLM.* RPC namespace. It owns session
// bookkeeping only; the actual completion is delegated to a Completer
// supplied by whatever vendor wrapper the deployment wires in.
type Handler struct {
	sessions  *SessionStore
	completer Completer
	sinks     SinkResolver
	logger    *slog.Logger
}

// SinkResolver looks up the streaming Sink for a session, implemented by
// pkg/stream's session registry (4.I). send_message fails with a
// BadRequest if no stream is attached — a completion has nowhere to go
// without one.
type SinkResolver interface {
	Sink(sessionID string) (Sink, bool)
}

func NewHandler(sessions *SessionStore, completer Completer, sinks SinkResolver, logger *slog.Logger) *Handler {
	return &Handler{sessions: sessions, completer: completer, sinks: sinks, logger: logger}
}

// Register binds every LLM.* method onto router.
func (h *Handler) Register(router *rpc.Router) {
	ns := router.Namespace("LLM")
	ns.Method("initialize_session", h.handleInitializeSession)
	ns.Method("send_message", h.handleSendMessage)
	ns.Method("update_company_context", h.handleUpdateCompanyContext)
}

func callerID(ctx context.Context) string {
	id := auth.FromContext(ctx)
	if id == nil {
		return ""
	}
	if id.UserID != "" {
		return id.UserID
	}
	return id.Subject
}

func decodeParams[T any](raw json.RawMessage) (T, error) {
	var p T
	if len(raw) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, rpc.BadRequestf("decoding params: %v", err)
	}
	return p, nil
}

type initializeSessionParams struct {
	CompanyID string `json:"company_id"`
}

func (h *Handler) handleInitializeSession(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[initializeSessionParams](raw)
	if err != nil {
		return nil, err
	}
	if p.CompanyID == "" {
		return nil, rpc.BadRequestf("company_id is required")
	}
	sess := h.sessions.Create(callerID(ctx), p.CompanyID)
	return sess, nil
}

type sendMessageParams struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// handleSendMessage forwards message to the Completer and streams its
// chunks to the session's attached Sink. The RPC call itself returns as
// soon as the completion is accepted; chunks arrive over the streaming
// transport, not in this response (spec.md §4.I).
func (h *Handler) handleSendMessage(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[sendMessageParams](raw)
	if err != nil {
		return nil, err
	}
	if p.SessionID == "" || p.Message == "" {
		return nil, rpc.BadRequestf("session_id and message are required")
	}

	sess, ok := h.sessions.Get(p.SessionID)
	if !ok {
		return nil, rpc.NotFoundf("session %q not found", p.SessionID)
	}

	sink, ok := h.sinks.Sink(p.SessionID)
	if !ok {
		return nil, rpc.BadRequestf("no stream attached to session %q", p.SessionID)
	}

	// The RPC response returns before the completion does, so the streaming
	// goroutine must not inherit the request's context: net/http cancels it
	// the moment ServeHTTP returns, which happens right after this call.
	streamCtx := context.WithoutCancel(ctx)
	go func() {
		if err := h.completer.Complete(streamCtx, *sess, p.Message, sink); err != nil {
			h.logger.Error("llm completion failed", "session_id", p.SessionID, "error", err)
			_ = sink.Send(streamCtx, Chunk{Type: ChunkError, Content: err.Error(), IsFinal: true})
		}
	}()

	return map[string]any{"session_id": p.SessionID, "status": "streaming"}, nil
}

type updateCompanyContextParams struct {
	SessionID      string         `json:"session_id"`
	CompanyContext map[string]any `json:"company_context"`
}

func (h *Handler) handleUpdateCompanyContext(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[updateCompanyContextParams](raw)
	if err != nil {
		return nil, err
	}
	if p.SessionID == "" {
		return nil, rpc.BadRequestf("session_id is required")
	}
	if !h.sessions.UpdateCompanyContext(p.SessionID, p.CompanyContext) {
		return nil, rpc.NotFoundf("session %q not found", p.SessionID)
	}
	return map[string]any{"success": true}, nil
}
