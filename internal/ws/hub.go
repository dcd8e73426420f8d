package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/charmbracelet/log"
)

// Hub maintains the connected clients, grouped into one room per session.
type Hub struct {
	rooms      map[string]map[*Client]bool // sessionID -> clients
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	log        *log.Logger
	mu         sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log.WithPrefix("ws"),
	}
}

// Run serves register and unregister requests until ctx is cancelled, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			room, exists := h.rooms[client.sessionID]
			if !exists {
				room = make(map[*Client]bool)
				h.rooms[client.sessionID] = room
			}
			room[client] = true
			if client.hello != nil {
				client.send <- client.hello
			}
			size := len(room)
			h.mu.Unlock()
			h.log.Info("client connected", "session", client.sessionID, "room_size", size)

		case client := <-h.unregister:
			h.mu.Lock()
			if room, exists := h.rooms[client.sessionID]; exists && room[client] {
				delete(room, client)
				close(client.send)
				if len(room) == 0 {
					delete(h.rooms, client.sessionID)
				}
				h.log.Info("client disconnected", "session", client.sessionID)
			}
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for id, room := range h.rooms {
				for client := range room {
					close(client.send)
				}
				delete(h.rooms, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast sends a message to every client watching a session.
func (h *Hub) Broadcast(sessionID string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		h.log.Error("marshal message", "err", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[sessionID] {
		select {
		case client.send <- data:
		default:
			// Client's buffer is full
			h.log.Debug("send buffer full, dropping message", "session", sessionID)
		}
	}
}

// BroadcastAll sends a message to every connected client.
func (h *Hub) BroadcastAll(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		h.log.Error("marshal message", "err", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, room := range h.rooms {
		for client := range room {
			select {
			case client.send <- data:
			default:
			}
		}
	}
}

// CloseRoom disconnects every client of a session. Their write pumps send a
// close frame once queued messages are flushed.
func (h *Hub) CloseRoom(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, exists := h.rooms[sessionID]
	if !exists {
		return
	}
	for client := range room {
		close(client.send)
	}
	delete(h.rooms, sessionID)
	h.log.Info("room closed", "session", sessionID, "clients", len(room))
}

// RoomSize reports how many clients watch a session.
func (h *Hub) RoomSize(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}
