package stream

import (
	"context"
	"sync"
)

// Hub is the central broker for WebSocket clients, one topic per live
// session ("session:<id>"). Registry mutations are serialized through
// Run's single event loop, which takes the write lock for each one;
// Publish and HasSubscriber take a short read-lock to snapshot the topic
// set, then act outside the lock so a slow client can never stall the
// loop.
type Hub struct {
	clients map[*Client]struct{}
	topics  map[string]map[*Client]struct{}

	mu sync.RWMutex

	register   chan *Client
	unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		topics:     make(map[string]map[*Client]struct{}),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
	}
}

func sessionTopic(sessionID string) string {
	return "session:" + sessionID
}

// Run starts the hub's event loop. Call it exactly once, in its own
// goroutine; it exits when ctx is canceled, closing every connected
// client so their writePumps drain and return.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			topic := sessionTopic(client.sessionID)
			if h.topics[topic] == nil {
				h.topics[topic] = make(map[*Client]struct{})
			}
			h.topics[topic][client] = struct{}{}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				topic := sessionTopic(client.sessionID)
				delete(h.topics[topic], client)
				if len(h.topics[topic]) == 0 {
					delete(h.topics, topic)
				}
				close(client.send)
			}
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
			}
			h.clients = make(map[*Client]struct{})
			h.topics = make(map[string]map[*Client]struct{})
			h.mu.Unlock()
			return
		}
	}
}

// Publish sends msg to every client currently subscribed to sessionID's
// topic. Safe to call from any goroutine. A client whose send buffer is
// full is dropped rather than allowed to stall delivery to the others —
// in practice there is at most one client per session, but the same
// session id can have a stale connection mid-handoff to a new tab.
func (h *Hub) Publish(sessionID string, msg Message) {
	h.mu.RLock()
	targets := h.topics[sessionTopic(sessionID)]
	clients := make([]*Client, 0, len(targets))
	for c := range targets {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			h.unregister <- c
		}
	}
}

// HasSubscriber reports whether any client currently holds sessionID's
// topic open. Used by SinkResolver implementations to decide whether a
// sink exists for a session before the caller tries to send to it.
func (h *Hub) HasSubscriber(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[sessionTopic(sessionID)]) > 0
}

func (h *Hub) subscribe(c *Client) {
	h.register <- c
}

func (h *Hub) unsubscribe(c *Client) {
	h.unregister <- c
}

// ConnectedCount returns the number of currently connected clients, for
// /status and metrics.
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
