// Package auth authenticates RPC callers (frontend OIDC ID tokens and
// service-account PATs) and carries the resolved identity through the
// request context, so handlers never trust a user_id embedded in params.
package auth

import "context"

// Method describes how the caller was authenticated.
const (
	MethodOIDC = "oidc"
	MethodPAT  = "pat"
)

// Identity represents the authenticated caller for the current request.
type Identity struct {
	Subject  string // OIDC sub, or the PAT's subject
	Email    string // empty for PATs
	UserID   string // Firebase UID / service account id injected into handler params
	TenantID string // resolved from the token when present; otherwise supplied per-call
	Method   string
}

type ctxKey string

const identityKey ctxKey = "auth_identity"

// NewContext stores the identity in the context.
func NewContext(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext extracts the identity from the context. Returns nil if none set.
func FromContext(ctx context.Context) *Identity {
	v, _ := ctx.Value(identityKey).(*Identity)
	return v
}
