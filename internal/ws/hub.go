package ws

import (
	"context"
	"encoding/json"
	"sync"
)

// Event is one message pushed to browsers.
type Event struct {
	Type    string          `json:"type"`
	Table   string          `json:"table"`
	Payload json.RawMessage `json:"payload"`
}

// tableEvent routes an event to the room of one table.
type tableEvent struct {
	Table string
	Event Event
}

// Hub fans table-change events out to the websocket clients watching them.
// A client may sit in several rooms, one per watched table.
type Hub struct {
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	broadcast chan *tableEvent

	// done is closed when Run returns.
	done chan struct{}

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *tableEvent, 256),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.allClients() {
				close(c.send)
			}
			h.rooms = make(map[string]map[*Client]bool)
			h.mu.Unlock()
			close(h.done)
			return

		case client := <-h.register:
			h.mu.Lock()
			for _, table := range client.tables {
				if h.rooms[table] == nil {
					h.rooms[table] = make(map[*Client]bool)
				}
				h.rooms[table][client] = true
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if h.removeClient(client) {
				close(client.send)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event.Event)
			if err != nil {
				continue
			}

			h.mu.Lock()
			for client := range h.rooms[event.Table] {
				select {
				case client.send <- message:
				default:
					// Slow consumer: drop it from every room.
					h.removeClient(client)
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// removeClient deletes client from all rooms. Callers hold h.mu.
func (h *Hub) removeClient(client *Client) bool {
	found := false
	for _, table := range client.tables {
		clients, ok := h.rooms[table]
		if !ok {
			continue
		}
		if _, exists := clients[client]; exists {
			delete(clients, client)
			found = true
		}
		if len(clients) == 0 {
			delete(h.rooms, table)
		}
	}
	return found
}

// allClients collects every distinct client. Callers hold h.mu.
func (h *Hub) allClients() map[*Client]bool {
	out := make(map[*Client]bool)
	for _, clients := range h.rooms {
		for c := range clients {
			out[c] = true
		}
	}
	return out
}

// BroadcastToTable queues event for every client watching table.
func (h *Hub) BroadcastToTable(table string, event Event) {
	event.Table = table
	select {
	case h.broadcast <- &tableEvent{Table: table, Event: event}:
	case <-h.done:
	}
}

// ClientCount returns the number of clients watching table.
func (h *Hub) ClientCount(table string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[table])
}
