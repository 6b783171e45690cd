package llm

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Completer is the one seam this package has onto an actual LLM vendor.
// Implementations own prompt construction, conversation history, tool
// execution, and the vendor SDK call — all of it out of scope here.
// Completer streams chunks to sink as they arrive and returns once the
// final chunk has been sent (or ctx is canceled, the cooperative
// cancellation point spec.md §4.I requires for client disconnection).
type Completer interface {
	Complete(ctx context.Context, sess Session, message string, sink Sink) error
}

// Sink receives chunks in order as a completion streams. Implemented by
// pkg/stream's per-session publisher; defined here so this package has
// no import dependency on the transport.
type Sink interface {
	Send(ctx context.Context, chunk Chunk) error
}

// SessionStore is an in-process registry of live LLM sessions, keyed by
// session id. Sessions are mediation state only (see Session) and are
// never persisted past process lifetime.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

// Create mints a new session scoped to (userID, companyID).
func (s *SessionStore) Create(userID, companyID string) *Session {
	now := time.Now()
	sess := &Session{
		ID:        uuid.NewString(),
		CompanyID: companyID,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// Get returns the session for id, or (nil, false) if it doesn't exist.
func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// UpdateCompanyContext replaces the company-context blob for a live
// session. Returns false if the session doesn't exist.
func (s *SessionStore) UpdateCompanyContext(id string, ctx map[string]any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return false
	}
	sess.CompanyContext = ctx
	sess.UpdatedAt = time.Now()
	return true
}
