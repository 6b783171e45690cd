package stream

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("starting miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestBridgeRelaysPublishedMessageToLocalHub(t *testing.T) {
	hub, cancelHub := runHub(t)
	defer cancelHub()

	rdb := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bridge := NewBridge(hub, rdb, discardLogger())
	go bridge.Run(ctx)

	c := newTestClient(hub, "s1")
	hub.subscribe(c)
	for !hub.HasSubscriber("s1") {
		time.Sleep(time.Millisecond)
	}

	// Give the bridge's Subscribe call a moment to register with miniredis.
	time.Sleep(10 * time.Millisecond)

	if err := PublishRemote(ctx, rdb, Message{Type: MsgJobUpdate, SessionID: "s1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case msg := <-c.send:
		if msg.Type != MsgJobUpdate {
			t.Fatalf("unexpected message type: %v", msg.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for relayed delivery")
	}
}

func TestBridgeIgnoresMessagesForOtherSessions(t *testing.T) {
	hub, cancelHub := runHub(t)
	defer cancelHub()

	rdb := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bridge := NewBridge(hub, rdb, discardLogger())
	go bridge.Run(ctx)

	c := newTestClient(hub, "s1")
	hub.subscribe(c)
	for !hub.HasSubscriber("s1") {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(10 * time.Millisecond)

	if err := PublishRemote(ctx, rdb, Message{Type: MsgJobUpdate, SessionID: "s2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-c.send:
		t.Fatal("unexpected delivery for unrelated session")
	case <-time.After(100 * time.Millisecond):
	}
}
