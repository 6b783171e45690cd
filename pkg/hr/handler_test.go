package hr

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/kabsikabs/integration-core/internal/auth"
	"github.com/kabsikabs/integration-core/internal/rpc"
)

// These tests exercise only the validation guards every handler checks
// before touching Service/cache — so a zero-value Handler (nil store,
// nil cache) is safe to call. Exercising the cache-through/backend paths
// needs a live Postgres + Redis, which isn't available to this suite;
// that coverage lives in the SQL and cache packages' own tests (store
// pure-function tests, internal/cache's miniredis-backed suite).
func zeroHandler() *Handler {
	return &Handler{}
}

func assertBadRequest(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	rpcErr, ok := err.(*rpc.Error)
	if !ok {
		t.Fatalf("expected *rpc.Error, got %T", err)
	}
	if rpcErr.Kind != rpc.ErrBadRequest {
		t.Fatalf("expected ErrBadRequest, got %s", rpcErr.Kind)
	}
}

func TestHandleListEmployeesRequiresCompanyID(t *testing.T) {
	h := zeroHandler()
	_, err := h.handleListEmployees(context.Background(), json.RawMessage(`{}`))
	assertBadRequest(t, err)
}

func TestHandleGetEmployeeRequiresIDs(t *testing.T) {
	h := zeroHandler()
	_, err := h.handleGetEmployee(context.Background(), json.RawMessage(`{"company_id":"c1"}`))
	assertBadRequest(t, err)
}

func TestHandleCreateEmployeeRequiresIdentifier(t *testing.T) {
	h := zeroHandler()
	_, err := h.handleCreateEmployee(context.Background(), json.RawMessage(`{"company_id":"c1"}`))
	assertBadRequest(t, err)
}

func TestHandleCreateContractRequiresFields(t *testing.T) {
	h := zeroHandler()
	_, err := h.handleCreateContract(context.Background(), json.RawMessage(`{"company_id":"c1"}`))
	assertBadRequest(t, err)
}

func TestDecodeParamsRejectsMalformedJSON(t *testing.T) {
	_, err := decodeParams[listEmployeesParams](json.RawMessage(`not json`))
	assertBadRequest(t, err)
}

func TestDecodeParamsAllowsEmptyPayload(t *testing.T) {
	p, err := decodeParams[listEmployeesParams](json.RawMessage(``))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.CompanyID != "" {
		t.Fatalf("expected zero value, got %+v", p)
	}
}

func TestCallerIDPrefersUserIDOverSubject(t *testing.T) {
	ctx := auth.NewContext(context.Background(), &auth.Identity{Subject: "sub-1", UserID: "user-1"})
	if got := callerID(ctx); got != "user-1" {
		t.Fatalf("expected user-1, got %q", got)
	}
}

func TestCallerIDFallsBackToSubject(t *testing.T) {
	ctx := auth.NewContext(context.Background(), &auth.Identity{Subject: "sub-1"})
	if got := callerID(ctx); got != "sub-1" {
		t.Fatalf("expected sub-1, got %q", got)
	}
}

func TestCallerIDEmptyWithoutIdentity(t *testing.T) {
	if got := callerID(context.Background()); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}
