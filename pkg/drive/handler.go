package drive

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/kabsikabs/integration-core/internal/auth"
	"github.com/kabsikabs/integration-core/internal/cache"
	"github.com/kabsikabs/integration-core/internal/connpool"
	"github.com/kabsikabs/integration-core/internal/rpc"
)

// callerID extracts the authenticated caller's id from ctx — never from
// the request body (spec.md §4.E), mirroring pkg/hr.
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

const (
	family = "drive"
	subkey = "documents"
)

// Handler implements the DRIVE_CACHE.* RPC namespace.
type Handler struct {
	pool   *connpool.Pool
	cache  *cache.Manager
	logger *slog.Logger
}

// NewHandler creates a Handler. pool must be built with a Builder that
// produces clients implementing Fetcher for kind "drive".
func NewHandler(pool *connpool.Pool, cm *cache.Manager, logger *slog.Logger) *Handler {
	return &Handler{pool: pool, cache: cm, logger: logger}
}

// Register binds every DRIVE_CACHE.* method onto router.
func (h *Handler) Register(router *rpc.Router) {
	ns := router.Namespace("DRIVE_CACHE")
	ns.Method("get_documents", h.handleGetDocuments)
	ns.Method("refresh_documents", h.handleRefreshDocuments)
	ns.Method("invalidate_cache", h.handleInvalidateCache)
}

type documentsParams struct {
	CompanyID    string `json:"company_id"`
	InputDriveID string `json:"input_drive_id"`
}

// documentsResponse is the exact envelope shape spec.md §4.F's S3
// scenario names: data/source/oauth_error, plus error_message whenever
// the listing failed, whether oauth_error is true or false.
type documentsResponse struct {
	Data         any    `json:"data"`
	Source       string `json:"source"`
	OAuthError   bool   `json:"oauth_error"`
	ErrorMessage string `json:"error_message,omitempty"`
}

func (h *Handler) handleGetDocuments(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeDriveParams(raw)
	if err != nil {
		return nil, err
	}

	user := callerID(ctx)
	if env, ok := h.cache.Get(ctx, user, p.CompanyID, family, subkey); ok {
		return documentsResponse{Data: env.Data, Source: "cache"}, nil
	}

	return h.fetchAndCache(ctx, user, p)
}

func (h *Handler) handleRefreshDocuments(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeDriveParams(raw)
	if err != nil {
		return nil, err
	}

	user := callerID(ctx)
	h.cache.Invalidate(ctx, user, p.CompanyID, family, subkey)
	return h.fetchAndCache(ctx, user, p)
}

func (h *Handler) fetchAndCache(ctx context.Context, user string, p documentsParams) (any, error) {
	client, err := h.pool.Get(ctx, user, p.CompanyID, "drive")
	if err != nil {
		h.logger.Error("acquiring drive client", "error", err, "user_id", user, "company_id", p.CompanyID)
		return documentsResponse{Source: "drive", OAuthError: true, ErrorMessage: err.Error()}, nil
	}

	fetcher, ok := client.(Fetcher)
	if !ok {
		return nil, rpc.Internalf("drive connection for %s does not implement Fetcher", user)
	}

	outcome, err := fetcher.ListFilesInDocToDo(ctx, p.InputDriveID)
	if err != nil {
		return nil, rpc.Internalf("listing drive documents: %v", err)
	}

	switch outcome.Kind {
	case OutcomeOAuthError:
		h.logger.Warn("drive oauth error", "user_id", user, "company_id", p.CompanyID, "message", outcome.ErrorMessage)
		return documentsResponse{Source: "drive", OAuthError: true, ErrorMessage: outcome.ErrorMessage}, nil
	case OutcomeError:
		return documentsResponse{Source: "drive", OAuthError: false, ErrorMessage: outcome.ErrorMessage}, nil
	}

	organized := organizeByStatus(outcome.Documents)
	h.cache.Set(ctx, user, p.CompanyID, family, subkey, organized, cache.TTLDriveDocuments)

	return documentsResponse{Data: organized, Source: "drive", OAuthError: false}, nil
}

type invalidateCacheParams struct {
	CompanyID string `json:"company_id"`
}

func (h *Handler) handleInvalidateCache(ctx context.Context, raw json.RawMessage) (any, error) {
	var p invalidateCacheParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, rpc.BadRequestf("decoding params: %v", err)
		}
	}
	user := callerID(ctx)
	success := h.cache.Invalidate(ctx, user, p.CompanyID, family, subkey)
	return map[string]any{"success": success}, nil
}

func decodeDriveParams(raw json.RawMessage) (documentsParams, error) {
	var p documentsParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return p, rpc.BadRequestf("decoding params: %v", err)
		}
	}
	if p.CompanyID == "" || p.InputDriveID == "" {
		return p, rpc.BadRequestf("company_id and input_drive_id are required")
	}
	return p, nil
}
