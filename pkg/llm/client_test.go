package llm

import "testing"

func TestSessionStoreCreateAndGet(t *testing.T) {
	store := NewSessionStore()
	sess := store.Create("user-1", "company-1")
	if sess.ID == "" {
		t.Fatal("expected a non-empty session id")
	}
	got, ok := store.Get(sess.ID)
	if !ok {
		t.Fatal("expected session to be found")
	}
	if got.UserID != "user-1" || got.CompanyID != "company-1" {
		t.Fatalf("unexpected session: %+v", got)
	}
}

func TestSessionStoreGetMissing(t *testing.T) {
	store := NewSessionStore()
	if _, ok := store.Get("nonexistent"); ok {
		t.Fatal("expected miss for unknown session id")
	}
}

func TestSessionStoreUpdateCompanyContext(t *testing.T) {
	store := NewSessionStore()
	sess := store.Create("user-1", "company-1")

	ctx := map[string]any{"fiscal_year": 2026}
	if !store.UpdateCompanyContext(sess.ID, ctx) {
		t.Fatal("expected update to succeed")
	}

	got, _ := store.Get(sess.ID)
	if got.CompanyContext["fiscal_year"] != 2026 {
		t.Fatalf("unexpected company context: %+v", got.CompanyContext)
	}
}

func TestSessionStoreUpdateCompanyContextMissingSession(t *testing.T) {
	store := NewSessionStore()
	if store.UpdateCompanyContext("nonexistent", map[string]any{}) {
		t.Fatal("expected update to fail for unknown session")
	}
}
