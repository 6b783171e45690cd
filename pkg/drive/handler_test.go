package drive

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/kabsikabs/integration-core/internal/auth"
)

func TestDecodeDriveParamsRequiresFields(t *testing.T) {
	if _, err := decodeDriveParams(json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected error for missing company_id/input_drive_id")
	}
}

func TestDecodeDriveParamsOK(t *testing.T) {
	p, err := decodeDriveParams(json.RawMessage(`{"company_id":"c1","input_drive_id":"f1"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.CompanyID != "c1" || p.InputDriveID != "f1" {
		t.Fatalf("unexpected params: %+v", p)
	}
}

func TestHandleGetDocumentsValidatesParams(t *testing.T) {
	h := &Handler{}
	if _, err := h.handleGetDocuments(context.Background(), json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestCallerIDFromContext(t *testing.T) {
	ctx := auth.NewContext(context.Background(), &auth.Identity{Subject: "sub", UserID: "uid"})
	if got := callerID(ctx); got != "uid" {
		t.Fatalf("expected uid, got %q", got)
	}
}
