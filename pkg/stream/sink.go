package stream

import (
	"context"

	"github.com/kabsikabs/integration-core/pkg/jobber"
	"github.com/kabsikabs/integration-core/pkg/llm"
)

// sessionSink adapts one Hub + session id pair into both pkg/llm's Sink
// and pkg/jobber's Sink, so a single websocket connection carries both
// the LLM token stream and Jobber progress/completion events without
// either package depending on this one.
type sessionSink struct {
	hub       *Hub
	sessionID string
}

// Send implements llm.Sink.
func (s sessionSink) Send(ctx context.Context, chunk llm.Chunk) error {
	s.hub.Publish(s.sessionID, Message{Type: MsgLLMChunk, SessionID: s.sessionID, Payload: chunk})
	return nil
}

// SendJobUpdate implements jobber.Sink.
func (s sessionSink) SendJobUpdate(sessionID string, payload jobber.CallbackPayload) error {
	s.hub.Publish(sessionID, Message{Type: MsgJobUpdate, SessionID: sessionID, Payload: payload})
	return nil
}

// LLMSinkResolver adapts a Hub into llm.SinkResolver.
type LLMSinkResolver struct {
	Hub *Hub
}

func (r *LLMSinkResolver) Sink(sessionID string) (llm.Sink, bool) {
	if !r.Hub.HasSubscriber(sessionID) {
		return nil, false
	}
	return sessionSink{hub: r.Hub, sessionID: sessionID}, true
}

// JobberSinkResolver adapts a Hub into jobber.SinkResolver.
type JobberSinkResolver struct {
	Hub *Hub
}

func (r *JobberSinkResolver) Sink(sessionID string) (jobber.Sink, bool) {
	if !r.Hub.HasSubscriber(sessionID) {
		return nil, false
	}
	return sessionSink{hub: r.Hub, sessionID: sessionID}, true
}
