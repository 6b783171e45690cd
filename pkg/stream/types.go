// Package stream implements the WebSocket transport that multiplexes
// pkg/llm's token stream and pkg/jobber's completion callbacks onto a
// single per-session connection. The hub/client pump shape is grounded
// on arkeep-io-arkeep/server/internal/websocket (hub.go's single-writer
// event loop, client.go's read/write pump split), translated from zap
// to this module's slog convention and from arbitrary job/agent topics
// to one topic per session.
package stream

// MessageType identifies what kind of event a Message carries so the
// frontend can route it to the right UI surface without inspecting
// Payload's shape.
type MessageType string

const (
	// MsgLLMChunk carries an llm.Chunk as it streams from Completer.Complete.
	MsgLLMChunk MessageType = "llm.chunk"

	// MsgJobUpdate carries a jobber.CallbackPayload — either a progress
	// update (status "pending") or a terminal completion/failure.
	MsgJobUpdate MessageType = "job.update"

	// MsgPing carries no payload. The periodic liveness check uses
	// WebSocket ping control frames (Client.writePump), not this type.
	MsgPing MessageType = "ping"
)

// Message is the envelope written to every WebSocket frame.
type Message struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Payload   any         `json:"payload,omitempty"`
}
