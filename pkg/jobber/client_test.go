package jobber

import (
	"strings"
	"testing"
)

func TestGenerateJobIDHasPrefixAndLength(t *testing.T) {
	id := generateJobID("payroll")
	if !strings.HasPrefix(id, "payroll_") {
		t.Fatalf("expected payroll_ prefix, got %q", id)
	}
	suffix := strings.TrimPrefix(id, "payroll_")
	if len(suffix) != 12 {
		t.Fatalf("expected 12-char suffix, got %q (%d)", suffix, len(suffix))
	}
}

func TestGenerateJobIDIsUnique(t *testing.T) {
	a := generateJobID("batch")
	b := generateJobID("batch")
	if a == b {
		t.Fatalf("expected distinct job ids, got %q twice", a)
	}
}

func TestOrEmptyReturnsEmptyMapForNil(t *testing.T) {
	got := orEmpty(nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil map, got %#v", got)
	}
}

func TestOrEmptyPassesThroughNonNil(t *testing.T) {
	in := map[string]any{"a": 1}
	got := orEmpty(in)
	if len(got) != 1 || got["a"] != 1 {
		t.Fatalf("expected passthrough, got %#v", got)
	}
}

func TestCallbackURLTrimsTrailingSlash(t *testing.T) {
	c := NewClient(Config{CallbackBaseURL: "https://listener.example.com/"})
	if got := c.callbackURL(); got != "https://listener.example.com/hr/callback" {
		t.Fatalf("unexpected callback url: %q", got)
	}
}

func TestNewClientDefaultsTimeout(t *testing.T) {
	c := NewClient(Config{})
	if c.httpClient.Timeout.Seconds() != 30 {
		t.Fatalf("expected 30s default timeout, got %v", c.httpClient.Timeout)
	}
}
