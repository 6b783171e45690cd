package vector

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/kabsikabs/integration-core/internal/auth"
	"github.com/kabsikabs/integration-core/internal/cache"
	"github.com/kabsikabs/integration-core/internal/rpc"
)

const family = "vector"

// Handler implements the VECTOR.* RPC namespace.
type Handler struct {
	store  Store
	cache  *cache.Manager
	logger *slog.Logger
}

func NewHandler(store Store, cm *cache.Manager, logger *slog.Logger) *Handler {
	return &Handler{store: store, cache: cm, logger: logger}
}

// Register binds every VECTOR.* method onto router.
func (h *Handler) Register(router *rpc.Router) {
	ns := router.Namespace("VECTOR")
	ns.Method("get_collection_info", h.handleGetCollectionInfo)
	ns.Method("add_documents", h.handleAddDocuments)
	ns.Method("query_documents", h.handleQueryDocuments)
	ns.Method("analyze_collection", h.handleAnalyzeCollection)
}

func callerID(ctx context.Context) string {
	id := auth.FromContext(ctx)
	if id == nil {
		return ""
	}
	if id.UserID != "" {
		return id.UserID
	}
	return id.Subject
}

func decodeParams[T any](raw json.RawMessage) (T, error) {
	var p T
	if len(raw) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, rpc.BadRequestf("decoding params: %v", err)
	}
	return p, nil
}

type collectionNameParams struct {
	CompanyID      string `json:"company_id"`
	CollectionName string `json:"collection_name"`
}

// handleGetCollectionInfo is a read-through handler: collection
// existence/count rarely changes within a session, so it's worth
// caching under the tenant-scoped vector family TTL.
func (h *Handler) handleGetCollectionInfo(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[collectionNameParams](raw)
	if err != nil {
		return nil, err
	}
	if p.CollectionName == "" {
		return nil, rpc.BadRequestf("collection_name is required")
	}

	user := callerID(ctx)
	subkey := "collection_info:" + p.CollectionName
	if env, ok := h.cache.Get(ctx, user, p.CompanyID, family, subkey); ok {
		return map[string]any{"data": env.Data, "source": "cache"}, nil
	}

	info, err := h.store.CollectionInfo(ctx, p.CollectionName)
	if err != nil {
		return nil, rpc.Internalf("reading collection info: %v", err)
	}
	h.cache.Set(ctx, user, p.CompanyID, family, subkey, info, cache.FamilyTTL(family, subkey))
	return map[string]any{"data": info, "source": "chroma"}, nil
}

type addDocumentsParams struct {
	CompanyID      string           `json:"company_id"`
	CollectionName string           `json:"collection_name"`
	Documents      []string         `json:"documents"`
	Metadatas      []map[string]any `json:"metadatas,omitempty"`
	IDs            []string         `json:"ids,omitempty"`
}

// handleAddDocuments is a write: it invalidates the collection_info and
// analysis subkeys for this collection after a confirmed write, since
// both depend on the document count.
func (h *Handler) handleAddDocuments(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[addDocumentsParams](raw)
	if err != nil {
		return nil, err
	}
	if p.CollectionName == "" || len(p.Documents) == 0 {
		return nil, rpc.BadRequestf("collection_name and documents are required")
	}

	result, err := h.store.AddDocuments(ctx, AddDocumentsParams{
		CollectionName: p.CollectionName,
		Documents:      p.Documents,
		Metadatas:      p.Metadatas,
		IDs:            p.IDs,
	})
	if err != nil {
		return nil, rpc.Internalf("adding documents: %v", err)
	}

	user := callerID(ctx)
	h.cache.Invalidate(ctx, user, p.CompanyID, family, "collection_info:"+p.CollectionName)
	h.cache.Invalidate(ctx, user, p.CompanyID, family, "analysis:"+p.CollectionName)

	return result, nil
}

type queryDocumentsParams struct {
	CompanyID      string   `json:"company_id"`
	CollectionName string   `json:"collection_name"`
	QueryTexts     []string `json:"query_texts"`
	NResults       int      `json:"n_results"`
}

// handleQueryDocuments is never cached: semantic search results are a
// function of the query text, not a stable per-subkey resource.
func (h *Handler) handleQueryDocuments(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[queryDocumentsParams](raw)
	if err != nil {
		return nil, err
	}
	if p.CollectionName == "" || len(p.QueryTexts) == 0 {
		return nil, rpc.BadRequestf("collection_name and query_texts are required")
	}

	result, err := h.store.QueryDocuments(ctx, QueryDocumentsParams{
		CollectionName: p.CollectionName,
		QueryTexts:     p.QueryTexts,
		NResults:       p.NResults,
	})
	if err != nil {
		return nil, rpc.Internalf("querying documents: %v", err)
	}
	return result, nil
}

func (h *Handler) handleAnalyzeCollection(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[collectionNameParams](raw)
	if err != nil {
		return nil, err
	}
	if p.CollectionName == "" {
		return nil, rpc.BadRequestf("collection_name is required")
	}

	user := callerID(ctx)
	subkey := "analysis:" + p.CollectionName
	if env, ok := h.cache.Get(ctx, user, p.CompanyID, family, subkey); ok {
		return map[string]any{"data": env.Data, "source": "cache"}, nil
	}

	analysis, err := h.store.AnalyzeCollection(ctx, p.CollectionName)
	if err != nil {
		return nil, rpc.Internalf("analyzing collection: %v", err)
	}
	h.cache.Set(ctx, user, p.CompanyID, family, subkey, analysis, cache.FamilyTTL(family, subkey))
	return map[string]any{"data": analysis, "source": "chroma"}, nil
}
