package hr

import (
	"context"
	"testing"
)

func TestDateRoundTrip(t *testing.T) {
	cases := []string{"2026-01-15", "1999-12-31", "2000-02-29"}
	for _, in := range cases {
		d, err := parseDate(in)
		if err != nil {
			t.Fatalf("parseDate(%q): %v", in, err)
		}
		out := formatDate(d)
		if out != in {
			t.Errorf("round trip %q -> %q", in, out)
		}
	}
}

func TestParseDateRejectsMalformed(t *testing.T) {
	if _, err := parseDate("15/01/2026"); err == nil {
		t.Fatal("expected error for non-ISO date")
	}
}

func TestParseDateEmptyIsZero(t *testing.T) {
	d, err := parseDate("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.IsZero() {
		t.Fatal("expected zero time for empty input")
	}
}

func TestUpdateEmployeeNoRecognizedFieldsIsNoop(t *testing.T) {
	s := NewStore(nil) // no DB call is reached: no field is recognized
	updated, err := s.UpdateEmployee(context.Background(), "company-1", "emp-1", map[string]any{
		"unknown_field": "x",
		"company_id":    "nope", // not in the whitelist: must not be settable
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated {
		t.Fatal("expected no-op for unrecognized fields")
	}
}

func TestUpdateEmployeeEmptyFieldsIsNoop(t *testing.T) {
	s := NewStore(nil)
	updated, err := s.UpdateEmployee(context.Background(), "company-1", "emp-1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated {
		t.Fatal("expected no-op for empty fields")
	}
}

func TestUpdateEmployeeRejectsMalformedDate(t *testing.T) {
	s := NewStore(nil)
	_, err := s.UpdateEmployee(context.Background(), "company-1", "emp-1", map[string]any{
		"birth_date": "not-a-date",
	})
	if err == nil {
		t.Fatal("expected error for malformed date in a whitelisted field")
	}
}
