// Package realtime bridges the store's change feed to connected client
// streams over WebSocket and Server-Sent Events.
package realtime

import (
	"context"

	"journal/internal/storage"
)

// Message is one event delivered to a client stream: the channel name and
// the verbatim payload string.
type Message struct {
	Event string `json:"event"`
	Data  string `json:"data"`
}

// Hub maintains the set of active client streams and fans each notification
// out to all of them. There is no history: a client connected after a
// notification was broadcast never sees it.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan storage.Notification
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan storage.Notification),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run owns the client set until ctx is cancelled. All map access happens on
// this goroutine. On exit the done channel is closed so that senders blocked
// on the hub (relay broadcasts, stream handlers registering or leaving) are
// released instead of hanging shutdown.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			return

		case client := <-h.register:
			h.clients[client] = true

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}

		case n := <-h.broadcast:
			msg := Message{Event: n.Channel, Data: n.Payload}
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					// Client buffer full: skip this message for that
					// client rather than stall everyone else.
				}
			}
		}
	}
}

// Broadcast delivers a notification to every currently connected client.
// After the hub has shut down the notification is dropped.
func (h *Hub) Broadcast(n storage.Notification) {
	select {
	case h.broadcast <- n:
	case <-h.done:
	}
}

// add registers a client stream. A no-op once the hub has shut down.
func (h *Hub) add(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// remove detaches a client stream. A no-op once the hub has shut down; the
// hub already closed every registered client's send channel on exit.
func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
