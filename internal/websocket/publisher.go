package websocket

import "github.com/dafibh/fintrack/fintrack-backend/internal/event"

var _ event.Publisher = (*Hub)(nil)

// Publish implements event.Publisher by broadcasting to all clients
func (h *Hub) Publish(evt event.Event) {
	h.Broadcast(evt)
}
