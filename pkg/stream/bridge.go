package stream

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// fanoutChannel is the Redis pub/sub channel a process with no local Hub
// (internal/app's worker mode) uses to deliver a Message to whichever
// API process actually holds the websocket connection for its session,
// grounded on pkg/escalation.Engine's own rdb.Publish/Subscribe pattern
// for cross-process event delivery.
const fanoutChannel = "core:stream:fanout"

// PublishRemote publishes a Message for delivery by whichever API
// process is running a Bridge — used by internal/app's worker mode,
// which has no local Hub of its own.
func PublishRemote(ctx context.Context, rdb *redis.Client, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return rdb.Publish(ctx, fanoutChannel, data).Err()
}

// Bridge subscribes to the fanout channel and republishes every message
// onto the local Hub, so a Message published by another process (the
// worker's reconciliation loop) reaches a websocket client connected to
// this process.
type Bridge struct {
	hub    *Hub
	rdb    *redis.Client
	logger *slog.Logger
}

func NewBridge(hub *Hub, rdb *redis.Client, logger *slog.Logger) *Bridge {
	return &Bridge{hub: hub, rdb: rdb, logger: logger}
}

// Run blocks, relaying fanout messages to the local Hub until ctx is
// cancelled.
func (b *Bridge) Run(ctx context.Context) {
	pubsub := b.rdb.Subscribe(ctx, fanoutChannel)
	defer func() { _ = pubsub.Close() }()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			var msg Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				b.logger.Warn("decoding fanout message", "error", err)
				continue
			}
			b.hub.Publish(msg.SessionID, msg)
		}
	}
}
