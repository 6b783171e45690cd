// Package connpool caches authenticated ERP and Drive clients per
// (user, tenant, kind), amortizing the OAuth/credential round trip across
// requests while staying safe under concurrent access.
package connpool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ProbeErrorClass tells the caller how to react to a failed connectivity
// probe: retry silently, prompt for re-consent, or surface a hard error.
type ProbeErrorClass int

const (
	// ProbeErrorTransport is a network/timeout failure; safe to retry.
	ProbeErrorTransport ProbeErrorClass = iota
	// ProbeErrorOAuthRecoverable means the token is expired/revoked and a
	// refresh or re-consent flow can recover it.
	ProbeErrorOAuthRecoverable
	// ProbeErrorPermission means the credential is valid but lacks the
	// grant needed; no retry will help without an admin/user action.
	ProbeErrorPermission
)

func (c ProbeErrorClass) String() string {
	switch c {
	case ProbeErrorOAuthRecoverable:
		return "oauth_recoverable"
	case ProbeErrorPermission:
		return "permission"
	default:
		return "transport"
	}
}

// ProbeError wraps a connectivity probe failure with its classification.
type ProbeError struct {
	Class ProbeErrorClass
	Err   error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("connectivity probe failed (%s): %v", e.Class, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// Client is any constructed connector client this pool manages. Close is
// called on eviction/invalidation.
type Client interface {
	Close() error
}

// Builder constructs a new client for (userID, tenantID, kind) and runs
// the kind-specific connectivity probe before returning. A probe failure
// must be returned as a *ProbeError so the caller can classify it.
type Builder func(ctx context.Context, userID, tenantID, kind string) (Client, error)

type entry struct {
	client    Client
	createdAt time.Time
}

// FailureObserver is notified every time a build fails, with the number
// of consecutive failures seen for that (tenantID, kind) pair. A
// successful build resets the count to zero.
type FailureObserver func(tenantID, kind string, consecutive int, err error)

// Pool is the shared connection cache for ERP/Drive clients.
type Pool struct {
	ttl    time.Duration
	build  Builder
	onFail FailureObserver
	flight singleflight.Group

	mu       sync.RWMutex
	entries  map[string]entry
	failures map[string]int
}

// New creates a Pool with the given TTL (entries older than this are
// swept on each Get) and Builder used to construct clients on miss.
func New(ttl time.Duration, build Builder) *Pool {
	return &Pool{
		ttl:      ttl,
		build:    build,
		entries:  make(map[string]entry),
		failures: make(map[string]int),
	}
}

// WithFailureObserver sets the hook invoked on every build failure,
// tracking consecutive failures per (tenantID, kind) — used by
// internal/alerting to page on a connector that can't recover.
func (p *Pool) WithFailureObserver(observer FailureObserver) *Pool {
	p.onFail = observer
	return p
}

func key(userID, tenantID, kind string) string {
	return userID + "\x00" + tenantID + "\x00" + kind
}

// Get returns a live client for (userID, tenantID, kind), building and
// caching one on miss. Concurrent Gets for the same key serialize
// construction via single-flight; losers receive the winner's client (or
// its error). The eviction sweep runs after the lookup completes, never
// holding the lock across client construction.
func (p *Pool) Get(ctx context.Context, userID, tenantID, kind string) (Client, error) {
	k := key(userID, tenantID, kind)

	p.mu.RLock()
	if e, ok := p.entries[k]; ok {
		p.mu.RUnlock()
		defer p.sweep()
		return e.client, nil
	}
	p.mu.RUnlock()

	v, err, _ := p.flight.Do(k, func() (any, error) {
		// Re-check under the flight guard: another goroutine may have
		// populated the entry while we waited to enter Do.
		p.mu.RLock()
		if e, ok := p.entries[k]; ok {
			p.mu.RUnlock()
			return e.client, nil
		}
		p.mu.RUnlock()

		client, err := p.build(ctx, userID, tenantID, kind)
		if err != nil {
			p.recordFailure(tenantID, kind, err)
			return nil, err
		}

		p.mu.Lock()
		p.entries[k] = entry{client: client, createdAt: time.Now()}
		p.failures[key("", tenantID, kind)] = 0
		p.mu.Unlock()

		return client, nil
	})

	defer p.sweep()

	if err != nil {
		return nil, err
	}
	return v.(Client), nil
}

// recordFailure increments the consecutive-failure count for
// (tenantID, kind) and notifies the observer, if one is set.
func (p *Pool) recordFailure(tenantID, kind string, err error) {
	k := key("", tenantID, kind)
	p.mu.Lock()
	p.failures[k]++
	count := p.failures[k]
	p.mu.Unlock()

	if p.onFail != nil {
		p.onFail(tenantID, kind, count, err)
	}
}

// sweep evicts entries older than the TTL. Runs after Get responds, per
// spec, and never under the same lock acquisition as a builder call.
func (p *Pool) sweep() {
	cutoff := time.Now().Add(-p.ttl)

	p.mu.Lock()
	var stale []entry
	for k, e := range p.entries {
		if e.createdAt.Before(cutoff) {
			stale = append(stale, e)
			delete(p.entries, k)
		}
	}
	p.mu.Unlock()

	for _, e := range stale {
		_ = e.client.Close()
	}
}

// Invalidate removes and closes the cached client for (userID, tenantID, kind).
func (p *Pool) Invalidate(userID, tenantID, kind string) {
	k := key(userID, tenantID, kind)

	p.mu.Lock()
	e, ok := p.entries[k]
	delete(p.entries, k)
	p.mu.Unlock()

	if ok {
		_ = e.client.Close()
	}
}

// ClearAll removes and closes every cached client.
func (p *Pool) ClearAll() {
	p.mu.Lock()
	all := p.entries
	p.entries = make(map[string]entry)
	p.mu.Unlock()

	for _, e := range all {
		_ = e.client.Close()
	}
}

// Len reports the number of cached clients, for tests and diagnostics.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}
