package drive

import (
	"errors"
	"testing"
)

func TestClassifyDriveResponseNilIsOAuthError(t *testing.T) {
	out := classifyDriveResponse(nil, nil)
	if out.Kind != OutcomeOAuthError {
		t.Fatalf("expected OutcomeOAuthError, got %v", out.Kind)
	}
}

func TestClassifyDriveResponseErrorDictOAuth(t *testing.T) {
	raw := map[string]any{"erreur": "Invalid_Grant: token has been expired"}
	out := classifyDriveResponse(raw, nil)
	if out.Kind != OutcomeOAuthError {
		t.Fatalf("expected OutcomeOAuthError, got %v", out.Kind)
	}
}

func TestClassifyDriveResponseErrorDictNonOAuth(t *testing.T) {
	raw := map[string]any{"erreur": "folder not found"}
	out := classifyDriveResponse(raw, nil)
	if out.Kind != OutcomeError {
		t.Fatalf("expected OutcomeError, got %v", out.Kind)
	}
}

func TestClassifyDriveResponseSuccess(t *testing.T) {
	docs := []Document{{ID: "1", Status: "in_process"}}
	out := classifyDriveResponse(docs, nil)
	if out.Kind != OutcomeOK {
		t.Fatalf("expected OutcomeOK, got %v", out.Kind)
	}
	if len(out.Documents) != 1 {
		t.Fatalf("expected 1 document, got %d", len(out.Documents))
	}
}

func TestClassifyDriveResponseUnexpectedFormat(t *testing.T) {
	out := classifyDriveResponse(42, nil)
	if out.Kind != OutcomeError {
		t.Fatalf("expected OutcomeError for unexpected type, got %v", out.Kind)
	}
}

func TestClassifyDriveResponseTransportErrorOAuth(t *testing.T) {
	out := classifyDriveResponse(nil, errors.New("oauth2: token has been revoked"))
	if out.Kind != OutcomeOAuthError {
		t.Fatalf("expected OutcomeOAuthError, got %v", out.Kind)
	}
}

func TestClassifyDriveResponseTransportErrorPlain(t *testing.T) {
	out := classifyDriveResponse(nil, errors.New("connection reset by peer"))
	if out.Kind != OutcomeError {
		t.Fatalf("expected OutcomeError, got %v", out.Kind)
	}
}

func TestOrganizeByStatusDefaultsUnknownToToProcess(t *testing.T) {
	docs := []Document{
		{ID: "1", Status: "processed"},
		{ID: "2", Status: "in_process"},
		{ID: "3", Status: "weird"},
		{ID: "4"},
	}
	out := organizeByStatus(docs)
	if len(out.Processed) != 1 || len(out.InProcess) != 1 || len(out.ToProcess) != 2 {
		t.Fatalf("unexpected bucketing: %+v", out)
	}
}
