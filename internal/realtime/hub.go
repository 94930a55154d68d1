// Package realtime pushes events to connected users over WebSockets.
// Delivery is at most once: no acknowledgement, no replay on reconnect.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
)

// Message is the frame written to a subscriber.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Publisher sends a message to everyone listening on a channel. Channels are
// named by user id.
type Publisher interface {
	Publish(ctx context.Context, channelID string, msg Message) error
}

// Client is one WebSocket connection of a user.
type Client struct {
	UserID string
	Send   chan []byte
}

// NewClient returns a client with a buffered outbound queue.
func NewClient(userID string) *Client {
	return &Client{UserID: userID, Send: make(chan []byte, 64)}
}

// Hub tracks the connections of each user in process memory.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*Client]struct{})}
}

// Register adds the client to its user's channel.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.UserID] == nil {
		h.clients[client.UserID] = make(map[*Client]struct{})
	}
	h.clients[client.UserID][client] = struct{}{}
}

// Unregister removes the client and closes its Send channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subscribers, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := subscribers[client]; !ok {
		return
	}
	delete(subscribers, client)
	if len(subscribers) == 0 {
		delete(h.clients, client.UserID)
	}
	close(client.Send)
}

// Publish delivers msg to the local connections of channelID.
func (h *Hub) Publish(_ context.Context, channelID string, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	h.deliver(channelID, data)
	return nil
}

func (h *Hub) deliver(channelID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[channelID] {
		select {
		case client.Send <- data:
		default:
			// Slow client, drop the frame.
		}
	}
}

// ConnectionCount returns the number of open connections of a user.
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
