package identity

import "testing"

func TestKindCollectionAndDoc(t *testing.T) {
	tests := []struct {
		kind       string
		collection string
		doc        string
	}{
		{"erp/odoo", "erp", "odoo"},
		{"drive/oauth", "drive", "oauth"},
		{"flat", "flat", "default"},
	}

	for _, tt := range tests {
		if got := kindCollection(tt.kind); got != tt.collection {
			t.Errorf("kindCollection(%q) = %q, want %q", tt.kind, got, tt.collection)
		}
		if got := kindDoc(tt.kind); got != tt.doc {
			t.Errorf("kindDoc(%q) = %q, want %q", tt.kind, got, tt.doc)
		}
	}
}

func TestMandatePathOrDefault(t *testing.T) {
	if got := mandatePathOrDefault("mandates/abc", "fallback"); got != "mandates/abc" {
		t.Errorf("got %q, want mandates/abc", got)
	}
	if got := mandatePathOrDefault(nil, "fallback"); got != "fallback" {
		t.Errorf("got %q, want fallback", got)
	}
	if got := mandatePathOrDefault("", "fallback"); got != "fallback" {
		t.Errorf("got %q, want fallback", got)
	}
}

func TestResolverCacheInvalidate(t *testing.T) {
	r := &Resolver{}
	m := Mandate{UserID: "u1", TenantID: "t1", ClientID: "c1", Path: "mandates/m1"}
	r.mandates.Store(cacheKey("u1", "t1"), m)

	v, ok := r.mandates.Load(cacheKey("u1", "t1"))
	if !ok || v.(Mandate) != m {
		t.Fatalf("expected cached mandate to round-trip")
	}

	r.Invalidate("u1", "t1")

	if _, ok := r.mandates.Load(cacheKey("u1", "t1")); ok {
		t.Fatal("expected cache entry to be gone after Invalidate")
	}
}
