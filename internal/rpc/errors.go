package rpc

import "fmt"

// ErrKind is the exhaustive error taxonomy exposed at the wire boundary
// (spec §7). Handlers translate backend-specific failures into one of
// these; the router never leaks transport-specific error types.
type ErrKind string

const (
	ErrNotConfigured        ErrKind = "NotConfigured"
	ErrNotFound             ErrKind = "NotFound"
	ErrPermissionDenied     ErrKind = "PermissionDenied"
	ErrOAuthReauthRequired  ErrKind = "OAuthReauthRequired"
	ErrIncompleteCredentials ErrKind = "IncompleteCredentials"
	ErrTransport            ErrKind = "Transport"
	ErrTimeout              ErrKind = "Timeout"
	ErrConflict             ErrKind = "Conflict"
	ErrBadRequest           ErrKind = "BadRequest"
	ErrInternal             ErrKind = "Internal"
)

// Error is the Go sum type standing in for the original's
// exception-driven control flow: every handler failure carries a Kind
// from the taxonomy above, a human message, and optional structured
// Details (e.g. the missing field names for IncompleteCredentials).
type Error struct {
	Kind    ErrKind
	Message string
	Details any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New builds an *Error of the given kind.
func New(kind ErrKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WithDetails attaches structured details and returns the same *Error for
// chaining at the call site.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// NotFoundf and friends are the common-case constructors handlers reach
// for most often.
func NotFoundf(format string, args ...any) *Error {
	return New(ErrNotFound, fmt.Sprintf(format, args...))
}

func BadRequestf(format string, args ...any) *Error {
	return New(ErrBadRequest, fmt.Sprintf(format, args...))
}

func Internalf(format string, args ...any) *Error {
	return New(ErrInternal, fmt.Sprintf(format, args...))
}

// OAuthReauth builds the OAuthReauthRequired error the frontend uses to
// trigger a re-consent prompt.
func OAuthReauth(message string) *Error {
	return New(ErrOAuthReauthRequired, message)
}

// AsError unwraps err into an *Error if possible, otherwise wraps it as
// an opaque Internal error — the fallback for anything a handler didn't
// translate itself.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	if rpcErr, ok := err.(*Error); ok {
		return rpcErr
	}
	return &Error{Kind: ErrInternal, Message: err.Error()}
}
