package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukerupert/potluck/internal/metrics"
)

// Streams a client can subscribe to.
const (
	StreamNotifications = "notifications"
	StreamGroceryList   = "grocery_list"
)

var knownStreams = map[string]bool{
	StreamNotifications: true,
	StreamGroceryList:   true,
}

// KnownStream reports whether name is a stream the hub publishes on.
func KnownStream(name string) bool {
	return knownStreams[name]
}

// Message is one event delivered to subscribers of a stream.
type Message struct {
	Stream  string `json:"stream"`
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func NewMessage(stream, typ string, payload any) Message {
	return Message{Stream: stream, Type: typ, Payload: payload}
}

// Hub maintains the set of active WebSocket clients and broadcasts messages.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewHub creates a new Hub. m may be nil.
func NewHub(logger *slog.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
		metrics: m,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.metrics.SetSubscribers(n)
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.metrics.SetSubscribers(n)
}

// Broadcast queues msg for every client subscribed to its stream and
// returns how many clients it was queued for. Clients whose buffer is full
// miss the message.
func (h *Hub) Broadcast(msg Message) (int, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.metrics.IncBroadcast(msg.Stream, false)
		return 0, fmt.Errorf("marshal %s message: %w", msg.Stream, err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.clients {
		if !c.subscribed(msg.Stream) {
			continue
		}
		select {
		case c.send <- data:
			delivered++
		default:
			h.logger.Debug("subscriber buffer full, dropping message", "stream", msg.Stream, "type", msg.Type)
		}
	}
	h.metrics.IncBroadcast(msg.Stream, true)
	return delivered, nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
