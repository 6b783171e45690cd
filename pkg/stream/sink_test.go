package stream

import (
	"context"
	"testing"
	"time"

	"github.com/kabsikabs/integration-core/pkg/jobber"
	"github.com/kabsikabs/integration-core/pkg/llm"
)

func TestLLMSinkResolverNoSubscriber(t *testing.T) {
	hub, cancel := runHub(t)
	defer cancel()

	r := &LLMSinkResolver{Hub: hub}
	if _, ok := r.Sink("missing"); ok {
		t.Fatal("expected no sink without a subscriber")
	}
}

func TestLLMSinkResolverDeliversChunk(t *testing.T) {
	hub, cancel := runHub(t)
	defer cancel()

	c := newTestClient(hub, "s1")
	hub.subscribe(c)
	for !hub.HasSubscriber("s1") {
		time.Sleep(time.Millisecond)
	}

	r := &LLMSinkResolver{Hub: hub}
	sink, ok := r.Sink("s1")
	if !ok {
		t.Fatal("expected a sink")
	}
	if err := sink.Send(context.Background(), llm.Chunk{Type: llm.ChunkText, Content: "hi"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case msg := <-c.send:
		if msg.Type != MsgLLMChunk {
			t.Fatalf("unexpected message type: %v", msg.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

func TestJobberSinkResolverNoSubscriber(t *testing.T) {
	hub, cancel := runHub(t)
	defer cancel()

	r := &JobberSinkResolver{Hub: hub}
	if _, ok := r.Sink("missing"); ok {
		t.Fatal("expected no sink without a subscriber")
	}
}

func TestJobberSinkResolverDeliversUpdate(t *testing.T) {
	hub, cancel := runHub(t)
	defer cancel()

	c := newTestClient(hub, "s1")
	hub.subscribe(c)
	for !hub.HasSubscriber("s1") {
		time.Sleep(time.Millisecond)
	}

	r := &JobberSinkResolver{Hub: hub}
	sink, ok := r.Sink("s1")
	if !ok {
		t.Fatal("expected a sink")
	}
	if err := sink.SendJobUpdate("s1", jobber.CallbackPayload{JobID: "j1", Status: jobber.JobCompleted}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case msg := <-c.send:
		if msg.Type != MsgJobUpdate {
			t.Fatalf("unexpected message type: %v", msg.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}
