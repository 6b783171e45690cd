package drive

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"golang.org/x/oauth2"
)

// oauthErrorPattern mirrors the original's string match on the vendor
// error message. Per the design notes on exception-driven control flow:
// this stringly-typed match belongs only at this boundary adapter —
// everything above Fetcher sees the OutcomeKind enum, never raw text.
var oauthErrorPattern = regexp.MustCompile(`invalid_grant|unauthorized|token has been (expired|revoked)`)

// OutcomeKind classifies the result of a Drive listing call. Three kinds
// carry the four outcomes classifyDriveResponse tells apart: a listing
// (OutcomeOK), an OAuth failure including a nil response
// (OutcomeOAuthError), and both a plain error and an unexpected data
// format (OutcomeError).
type OutcomeKind int

const (
	OutcomeOK OutcomeKind = iota
	OutcomeOAuthError
	OutcomeError
)

// Outcome is the sum type Fetcher.ListFilesInDocToDo returns. Exactly
// one of Documents (OutcomeOK) or ErrorMessage (OutcomeOAuthError /
// OutcomeError) is meaningful.
type Outcome struct {
	Kind         OutcomeKind
	Documents    []Document
	ErrorMessage string
}

// Fetcher lists the documents awaiting processing for a Drive folder.
// Implementations hold per-user OAuth credentials and are cached behind
// internal/connpool.
type Fetcher interface {
	ListFilesInDocToDo(ctx context.Context, folderID string) (Outcome, error)
}

// Client is a Fetcher backed by the real Google Drive API.
type Client struct {
	svc *drivev3.Service
}

// NewClient builds a Client scoped to a single user's OAuth token
// source. Held by internal/connpool so one Client is built per
// (user, tenant), not per-call.
func NewClient(ctx context.Context, tokenSource oauth2.TokenSource) (*Client, error) {
	svc, err := drivev3.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("building drive client: %w", err)
	}
	return &Client{svc: svc}, nil
}

// Close satisfies internal/connpool.Client. The Drive SDK holds no
// explicit connection to release; this is a no-op hook for symmetry
// with connectors that do (ERP's XML-RPC client).
func (c *Client) Close() error { return nil }

// ListFilesInDocToDo lists files under folderID and classifies the
// result per the boundary-adapter rule: a transport error is inspected
// for the OAuth string patterns above, a nil response is never produced
// by this SDK path (see DESIGN.md) but classifyDriveResponse still handles it
// for parity with the original's silent-None case, and a successful
// listing is organized into Documents.
func (c *Client) ListFilesInDocToDo(ctx context.Context, folderID string) (Outcome, error) {
	call := c.svc.Files.List().
		Q(fmt.Sprintf("'%s' in parents and trashed = false", folderID)).
		Fields("files(id, name, mimeType, modifiedTime, properties)").
		Context(ctx)

	res, err := call.Do()
	if err != nil {
		return classifyDriveResponse(nil, err), nil
	}

	docs := make([]Document, 0, len(res.Files))
	for _, f := range res.Files {
		status := "to_process"
		if f.Properties != nil {
			if s, ok := f.Properties["status"]; ok && s != "" {
				status = s
			}
		}
		docs = append(docs, Document{
			ID:           f.Id,
			Name:         f.Name,
			MimeType:     f.MimeType,
			ModifiedTime: f.ModifiedTime,
			Status:       status,
		})
	}
	return classifyDriveResponse(docs, nil), nil
}

// classifyDriveResponse implements the four-way outcome split from
// spec.md §4.F: (1) nil raw -> silent OAuth failure; (2) an error whose
// message matches oauthErrorPattern -> OAuth error, otherwise a plain
// error; (3) a []Document -> success; (4) anything else -> unexpected
// format, surfaced as a plain error.
func classifyDriveResponse(raw any, err error) Outcome {
	if err != nil {
		if oauthErrorPattern.MatchString(strings.ToLower(err.Error())) {
			return Outcome{Kind: OutcomeOAuthError, ErrorMessage: err.Error()}
		}
		return Outcome{Kind: OutcomeError, ErrorMessage: err.Error()}
	}

	if raw == nil {
		return Outcome{Kind: OutcomeOAuthError, ErrorMessage: "OAuth authentication required"}
	}

	switch v := raw.(type) {
	case []Document:
		return Outcome{Kind: OutcomeOK, Documents: v}
	case map[string]any:
		msg := "Drive API error"
		if errVal, ok := v["erreur"]; ok {
			msg = fmt.Sprint(errVal)
		}
		if oauthErrorPattern.MatchString(strings.ToLower(msg)) {
			return Outcome{Kind: OutcomeOAuthError, ErrorMessage: msg}
		}
		return Outcome{Kind: OutcomeError, ErrorMessage: msg}
	default:
		return Outcome{Kind: OutcomeError, ErrorMessage: "unexpected data format from Drive API"}
	}
}
