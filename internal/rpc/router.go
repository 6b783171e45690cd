// Package rpc implements the single-endpoint JSON-RPC dispatcher every
// connector namespace (HR, Drive, ERP, Vector, LLM, Jobber) registers
// methods against. Requests are { method: "NAMESPACE.Name", params, id };
// responses are either { id, result } or { id, error: { kind, message,
// details? } }.
package rpc

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/kabsikabs/integration-core/internal/telemetry"
)

// Handler is one registered RPC method. ctx carries the caller's
// identity (see internal/auth); params is the raw, still-unmarshaled
// request payload. Handlers unmarshal params into their own request type
// and never trust a user_id embedded in it — the caller identity always
// comes from ctx.
type Handler func(ctx context.Context, params json.RawMessage) (any, error)

// Request is the wire request envelope.
type Request struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	ID     json.RawMessage `json:"id"`
}

// Response is the wire response envelope. Exactly one of Result/Error is set.
type Response struct {
	ID     json.RawMessage `json:"id"`
	Result any             `json:"result,omitempty"`
	Error  *WireError      `json:"error,omitempty"`
}

// WireError is the error shape that reaches the wire — never a raw Go
// error or a backend-specific exception type.
type WireError struct {
	Kind    ErrKind `json:"kind"`
	Message string  `json:"message"`
	Details any     `json:"details,omitempty"`
}

// Router dispatches NAMESPACE.Method requests to registered handlers.
// Dispatch does not serialize: multiple requests execute concurrently.
type Router struct {
	log      *slog.Logger
	handlers map[string]Handler
}

// New creates an empty Router.
func New(log *slog.Logger) *Router {
	return &Router{
		log:      log,
		handlers: make(map[string]Handler),
	}
}

// Register binds "NAMESPACE.Method" to a handler. Panics on duplicate
// registration — that's a wiring bug, not a runtime condition.
func (r *Router) Register(method string, h Handler) {
	if _, exists := r.handlers[method]; exists {
		panic("rpc: duplicate handler registration for " + method)
	}
	r.handlers[method] = h
}

// Namespace groups a set of methods under a common "NAMESPACE." prefix,
// mirroring how the handler layer organizes itself by data family.
func (r *Router) Namespace(name string) *NamespaceBinder {
	return &NamespaceBinder{router: r, prefix: name + "."}
}

// NamespaceBinder is sugar over repeated Register calls sharing a prefix.
type NamespaceBinder struct {
	router *Router
	prefix string
}

// Method registers name under this namespace's prefix.
func (b *NamespaceBinder) Method(name string, h Handler) {
	b.router.Register(b.prefix+name, h)
}

// Dispatch looks up "NAMESPACE.Method", invokes its handler, and always
// returns a well-formed Response — handler panics and returned errors are
// both translated into the wire error envelope, never propagated raw.
func (r *Router) Dispatch(ctx context.Context, req Request) (resp Response) {
	resp.ID = req.ID
	start := time.Now()

	namespace, method := splitMethod(req.Method)
	outcome := "ok"
	defer func() {
		telemetry.RPCRequestsTotal.WithLabelValues(namespace, method, outcome).Inc()
	}()

	handler, ok := r.handlers[req.Method]
	if !ok {
		outcome = "not_found"
		resp.Error = toWireError(BadRequestf("unknown method %q", req.Method))
		return resp
	}

	defer func() {
		if rec := recover(); rec != nil {
			outcome = "panic"
			r.log.Error("rpc handler panicked", "method", req.Method, "panic", rec)
			resp.Result = nil
			resp.Error = toWireError(Internalf("internal error handling %s", req.Method))
		}
	}()

	result, err := handler(ctx, req.Params)
	if err != nil {
		rpcErr := AsError(err)
		r.log.Error("rpc handler error", "method", req.Method, "kind", rpcErr.Kind, "error", rpcErr.Message)
		outcome = string(rpcErr.Kind)
		resp.Error = toWireError(rpcErr)
		return resp
	}

	resp.Result = result
	r.log.Debug("rpc handler ok", "method", req.Method, "duration", time.Since(start))
	return resp
}

func toWireError(e *Error) *WireError {
	return &WireError{Kind: e.Kind, Message: e.Message, Details: e.Details}
}

func splitMethod(method string) (namespace, name string) {
	idx := strings.IndexByte(method, '.')
	if idx < 0 {
		return method, ""
	}
	return method[:idx], method[idx+1:]
}
