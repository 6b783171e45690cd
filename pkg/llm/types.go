// Package llm implements the LLM.* RPC namespace as a thin mediation
// layer: session bookkeeping and streaming hookup only. Vendor prompt
// content and chat plumbing are explicitly out of scope (spec.md §1);
// this package forwards a message to a narrow Completer and relays
// whatever chunks it yields, never constructing a prompt itself.
package llm

import "time"

// ChunkType enumerates the stream chunk kinds spec.md §4.I names.
type ChunkType string

const (
	ChunkText       ChunkType = "text"
	ChunkToolUse    ChunkType = "tool_use"
	ChunkToolResult ChunkType = "tool_result"
	ChunkStatus     ChunkType = "status"
	ChunkError      ChunkType = "error"
	ChunkFinal      ChunkType = "final"
)

// Chunk is one unit of a streamed completion. The transport (pkg/stream)
// guarantees exactly one chunk with IsFinal=true terminates a session's
// stream.
type Chunk struct {
	Type    ChunkType `json:"type"`
	Content string    `json:"content,omitempty"`
	IsFinal bool      `json:"is_final"`
	Model   string    `json:"model,omitempty"`
}

// Session is the bookkeeping state this package owns for one LLM
// conversation: which mandate/company it's scoped to, and the rolling
// company-context blob the frontend can update mid-conversation. The
// conversation history and prompt construction themselves live with the
// vendor wrapper (out of scope).
type Session struct {
	ID             string         `json:"id"`
	CompanyID      string         `json:"company_id"`
	UserID         string         `json:"user_id"`
	CompanyContext map[string]any `json:"company_context,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
