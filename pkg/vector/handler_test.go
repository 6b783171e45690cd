package vector

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/kabsikabs/integration-core/internal/auth"
	"github.com/kabsikabs/integration-core/internal/rpc"
)

type fakeStore struct {
	info     CollectionInfo
	infoErr  error
	addRes   AddDocumentsResult
	addErr   error
	queryRes QueryDocumentsResult
	queryErr error
	analysis CollectionAnalysis
	analysisErr error
}

func (f *fakeStore) CollectionInfo(ctx context.Context, name string) (CollectionInfo, error) {
	return f.info, f.infoErr
}

func (f *fakeStore) AddDocuments(ctx context.Context, p AddDocumentsParams) (AddDocumentsResult, error) {
	return f.addRes, f.addErr
}

func (f *fakeStore) QueryDocuments(ctx context.Context, p QueryDocumentsParams) (QueryDocumentsResult, error) {
	return f.queryRes, f.queryErr
}

func (f *fakeStore) AnalyzeCollection(ctx context.Context, name string) (CollectionAnalysis, error) {
	return f.analysis, f.analysisErr
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
		t.Fatalf("expected ErrBadRequest, got %v", rpcErr.Kind)
	}
}

func TestHandleGetCollectionInfoRequiresName(t *testing.T) {
	h := &Handler{store: &fakeStore{}}
	if _, err := h.handleGetCollectionInfo(context.Background(), json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected validation error")
	} else {
		assertBadRequest(t, err)
	}
}

func TestHandleAddDocumentsRequiresDocuments(t *testing.T) {
	h := &Handler{store: &fakeStore{}}
	raw := json.RawMessage(`{"collection_name":"c1","documents":[]}`)
	if _, err := h.handleAddDocuments(context.Background(), raw); err == nil {
		t.Fatal("expected validation error")
	} else {
		assertBadRequest(t, err)
	}
}

func TestHandleQueryDocumentsRequiresQueryTexts(t *testing.T) {
	h := &Handler{store: &fakeStore{}}
	raw := json.RawMessage(`{"collection_name":"c1","query_texts":[]}`)
	if _, err := h.handleQueryDocuments(context.Background(), raw); err == nil {
		t.Fatal("expected validation error")
	} else {
		assertBadRequest(t, err)
	}
}

func TestHandleAnalyzeCollectionRequiresName(t *testing.T) {
	h := &Handler{store: &fakeStore{}}
	if _, err := h.handleAnalyzeCollection(context.Background(), json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected validation error")
	} else {
		assertBadRequest(t, err)
	}
}

func TestCallerIDPrefersUserIDOverSubject(t *testing.T) {
	ctx := auth.NewContext(context.Background(), &auth.Identity{Subject: "sub", UserID: "uid"})
	if got := callerID(ctx); got != "uid" {
		t.Fatalf("expected uid, got %q", got)
	}
}
