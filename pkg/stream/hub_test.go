package stream

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(hub *Hub, sessionID string) *Client {
	return newClient(hub, nil, sessionID, discardLogger())
}

func runHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	return hub, cancel
}

func TestHubSubscribeThenHasSubscriber(t *testing.T) {
	hub, cancel := runHub(t)
	defer cancel()

	c := newTestClient(hub, "s1")
	hub.subscribe(c)

	deadline := time.After(time.Second)
	for !hub.HasSubscriber("s1") {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for subscription to register")
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func TestHubPublishDeliversToSubscriber(t *testing.T) {
	hub, cancel := runHub(t)
	defer cancel()

	c := newTestClient(hub, "s1")
	hub.subscribe(c)
	for !hub.HasSubscriber("s1") {
		time.Sleep(time.Millisecond)
	}

	hub.Publish("s1", Message{Type: MsgPing, SessionID: "s1"})

	select {
	case msg := <-c.send:
		if msg.Type != MsgPing {
			t.Fatalf("unexpected message type: %v", msg.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

func TestHubPublishIgnoresUnrelatedSession(t *testing.T) {
	hub, cancel := runHub(t)
	defer cancel()

	c := newTestClient(hub, "s1")
	hub.subscribe(c)
	for !hub.HasSubscriber("s1") {
		time.Sleep(time.Millisecond)
	}

	hub.Publish("s2", Message{Type: MsgPing, SessionID: "s2"})

	select {
	case <-c.send:
		t.Fatal("unexpected delivery for unrelated session")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHubUnsubscribeRemovesTopic(t *testing.T) {
	hub, cancel := runHub(t)
	defer cancel()

	c := newTestClient(hub, "s1")
	hub.subscribe(c)
	for !hub.HasSubscriber("s1") {
		time.Sleep(time.Millisecond)
	}

	hub.unsubscribe(c)

	deadline := time.After(time.Second)
	for hub.HasSubscriber("s1") {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for unsubscribe")
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func TestHubHasSubscriberFalseForUnknownSession(t *testing.T) {
	hub, cancel := runHub(t)
	defer cancel()

	if hub.HasSubscriber("missing") {
		t.Fatal("expected no subscriber for unknown session")
	}
}
