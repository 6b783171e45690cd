// Package identity resolves a caller's (user, tenant) pair into the
// mandate path and downstream credentials that scope every ERP, Drive,
// and HR request made on their behalf.
package identity

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/firestore"
)

// Mandate identifies the tenant a caller is acting within.
type Mandate struct {
	// UserID and TenantID are the caller identity the request arrived with.
	UserID   string
	TenantID string

	// ClientID is the resolved Firestore client identifier, sourced from
	// either the contact-space mapping or the legacy per-user document.
	ClientID string

	// Path is the mandate path downstream credential documents hang off
	// of: mandates/{Path}/erp/{kind}, mandates/{Path}/drive/oauth.
	Path string
}

// ErrMandateNotFound indicates no contact-space or legacy mapping resolved
// the given user/tenant pair.
type ErrMandateNotFound struct {
	UserID   string
	TenantID string
}

func (e *ErrMandateNotFound) Error() string {
	return fmt.Sprintf("no mandate found for user %q tenant %q", e.UserID, e.TenantID)
}

// Credentials is the opaque downstream credential document for one
// connector kind (erp/<kind> or drive/oauth), returned as a generic map
// since each kind's schema is owned by the connector, not this resolver.
type Credentials map[string]any

// Resolver resolves mandates and credential documents from Firestore,
// backed by a best-effort shortcut cache. The cache is never authoritative:
// every miss, and every explicit Invalidate, re-derives from Firestore.
type Resolver struct {
	fs *firestore.Client

	mandates sync.Map // key: userID+"\x00"+tenantID -> Mandate
}

// New wraps an already-constructed Firestore client. The caller owns the
// client's lifecycle (Close).
func New(fs *firestore.Client) *Resolver {
	return &Resolver{fs: fs}
}

func cacheKey(userID, tenantID string) string {
	return userID + "\x00" + tenantID
}

// Resolve returns the Mandate for (userID, tenantID), consulting the
// shortcut cache first and falling back to Firestore's contact-space
// mapping, then the legacy per-user root document.
func (r *Resolver) Resolve(ctx context.Context, userID, tenantID string) (Mandate, error) {
	if v, ok := r.mandates.Load(cacheKey(userID, tenantID)); ok {
		return v.(Mandate), nil
	}

	m, err := r.resolveFromFirestore(ctx, userID, tenantID)
	if err != nil {
		return Mandate{}, err
	}

	r.mandates.Store(cacheKey(userID, tenantID), m)
	return m, nil
}

func (r *Resolver) resolveFromFirestore(ctx context.Context, userID, tenantID string) (Mandate, error) {
	if tenantID != "" {
		doc, err := r.fs.Collection("contact_spaces").Doc(tenantID).Get(ctx)
		if err == nil && doc.Exists() {
			clientID, _ := doc.DataAt("client_id")
			path, _ := doc.DataAt("mandate_path")
			return Mandate{
				UserID:   userID,
				TenantID: tenantID,
				ClientID: fmt.Sprintf("%v", clientID),
				Path:     mandatePathOrDefault(path, tenantID),
			}, nil
		}
	}

	// Legacy root document: users predating the contact-space mapping keep
	// their default client under users/{user_id}.
	doc, err := r.fs.Collection("users").Doc(userID).Get(ctx)
	if err != nil || !doc.Exists() {
		return Mandate{}, &ErrMandateNotFound{UserID: userID, TenantID: tenantID}
	}

	clientID, _ := doc.DataAt("client_id")
	path, _ := doc.DataAt("mandate_path")
	return Mandate{
		UserID:   userID,
		TenantID: tenantID,
		ClientID: fmt.Sprintf("%v", clientID),
		Path:     mandatePathOrDefault(path, userID),
	}, nil
}

func mandatePathOrDefault(path any, fallback string) string {
	if s, ok := path.(string); ok && s != "" {
		return s
	}
	return fallback
}

// Invalidate drops the shortcut cache entry for (userID, tenantID),
// forcing the next Resolve to re-derive from Firestore.
func (r *Resolver) Invalidate(userID, tenantID string) {
	r.mandates.Delete(cacheKey(userID, tenantID))
}

// GetCredentials fetches the credential document for a connector kind
// ("erp/odoo", "drive/oauth", ...) under the mandate's path. Always reads
// through to Firestore; credential documents are never cached here since
// the connection cache (internal/connpool) is the layer responsible for
// amortizing their use.
func (r *Resolver) GetCredentials(ctx context.Context, mandate Mandate, kind string) (Credentials, error) {
	ref := r.fs.Collection("mandates").Doc(mandate.Path).Collection(kindCollection(kind)).Doc(kindDoc(kind))
	doc, err := ref.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching credentials %s for mandate %s: %w", kind, mandate.Path, err)
	}
	if !doc.Exists() {
		return nil, fmt.Errorf("no credential document %s for mandate %s", kind, mandate.Path)
	}
	return doc.Data(), nil
}

// kindCollection/kindDoc split a "erp/odoo" style kind into the Firestore
// collection ("erp") and document ("odoo") it maps to under a mandate.
// "drive/oauth" is the one fixed non-ERP shape.
func kindCollection(kind string) string {
	for i := 0; i < len(kind); i++ {
		if kind[i] == '/' {
			return kind[:i]
		}
	}
	return kind
}

func kindDoc(kind string) string {
	for i := 0; i < len(kind); i++ {
		if kind[i] == '/' {
			return kind[i+1:]
		}
	}
	return "default"
}
