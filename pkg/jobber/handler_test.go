package jobber

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/kabsikabs/integration-core/internal/rpc"
)

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
		t.Fatalf("expected ErrBadRequest, got %v", rpcErr.Kind)
	}
}

func TestHandleSubmitPayrollCalculateRequiresFields(t *testing.T) {
	h := &Handler{client: NewClient(Config{})}
	if _, err := h.handleSubmitPayrollCalculate(context.Background(), json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected validation error")
	} else {
		assertBadRequest(t, err)
	}
}

func TestHandleSubmitPayrollBatchRequiresFields(t *testing.T) {
	h := &Handler{client: NewClient(Config{})}
	if _, err := h.handleSubmitPayrollBatch(context.Background(), json.RawMessage(`{"company_id":"c1"}`)); err == nil {
		t.Fatal("expected validation error")
	} else {
		assertBadRequest(t, err)
	}
}

func TestHandleSubmitPDFGenerateRequiresFields(t *testing.T) {
	h := &Handler{client: NewClient(Config{})}
	if _, err := h.handleSubmitPDFGenerate(context.Background(), json.RawMessage(`{"company_id":"c1","employee_id":"e1"}`)); err == nil {
		t.Fatal("expected validation error")
	} else {
		assertBadRequest(t, err)
	}
}

func TestHandleGetJobStatusRequiresJobID(t *testing.T) {
	h := &Handler{client: NewClient(Config{})}
	if _, err := h.handleGetJobStatus(context.Background(), json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected validation error")
	} else {
		assertBadRequest(t, err)
	}
}

func TestHandleGetAllReferencesRequiresCompanyID(t *testing.T) {
	h := &Handler{client: NewClient(Config{})}
	if _, err := h.handleGetAllReferences(context.Background(), json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected validation error")
	} else {
		assertBadRequest(t, err)
	}
}

func TestHandleGetReferenceRequiresCompanyIDAndTable(t *testing.T) {
	h := &Handler{client: NewClient(Config{})}
	if _, err := h.handleGetReference(context.Background(), json.RawMessage(`{"company_id":"c1"}`)); err == nil {
		t.Fatal("expected validation error for missing table")
	} else {
		assertBadRequest(t, err)
	}
	if _, err := h.handleGetReference(context.Background(), json.RawMessage(`{"table":"contract-types"}`)); err == nil {
		t.Fatal("expected validation error for missing company_id")
	} else {
		assertBadRequest(t, err)
	}
}

func TestHandleGetContractTypesRequiresCompanyID(t *testing.T) {
	h := &Handler{client: NewClient(Config{})}
	if _, err := h.handleGetContractTypes(context.Background(), json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected validation error")
	} else {
		assertBadRequest(t, err)
	}
}

func TestHandleGetPayrollItemsRequiresCountryCode(t *testing.T) {
	h := &Handler{client: NewClient(Config{})}
	if _, err := h.handleGetPayrollItems(context.Background(), json.RawMessage(`{"company_id":"c1"}`)); err == nil {
		t.Fatal("expected validation error for missing country_code")
	} else {
		assertBadRequest(t, err)
	}
}

func TestGetAllReferencesParamsDecodeCompanyID(t *testing.T) {
	p, err := decodeParams[getAllReferencesParams](json.RawMessage(`{"company_id":"c1"}`))
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if p.CompanyID != "c1" {
		t.Fatalf("unexpected company id: %q", p.CompanyID)
	}
}

func TestDecodeParamsAllowsEmptyPayload(t *testing.T) {
	p, err := decodeParams[submitPayrollCalculateParams](json.RawMessage(``))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.CompanyID != "" {
		t.Fatalf("expected zero value, got %+v", p)
	}
}

func TestDecodeParamsRejectsMalformedJSON(t *testing.T) {
	_, err := decodeParams[submitPayrollCalculateParams](json.RawMessage(`{not json`))
	if err == nil {
		t.Fatal("expected decode error")
	}
	assertBadRequest(t, err)
}
