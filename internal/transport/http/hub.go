package http

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// envelope is the wire frame for every outbound event.
type envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type client struct {
	id     string
	conn   *websocket.Conn
	send   chan envelope
	roomID string // set once the connection creates or joins a room
}

// Hub tracks live websocket connections and implements app.Broadcaster.
// Each client has a buffered send channel drained by a single writer
// goroutine, so no two goroutines ever write the same socket.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*client
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]*client)}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()
}

func (h *Hub) remove(connID string) {
	h.mu.Lock()
	delete(h.conns, connID)
	h.mu.Unlock()
}

// setRoom tags a connection as belonging to a room, making it a broadcast target.
func (h *Hub) setRoom(connID, roomID string) {
	h.mu.Lock()
	if c, ok := h.conns[connID]; ok {
		c.roomID = roomID
	}
	h.mu.Unlock()
}

// ToConn delivers an event to a single connection. Slow consumers lose the
// frame rather than blocking the dispatcher.
func (h *Hub) ToConn(connID, event string, payload any) {
	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case c.send <- envelope{Type: event, Payload: payload}:
	default:
		log.Printf("ws: dropping %s for %s: send buffer full", event, connID)
	}
}

// ToRoom fans an event out to every connection in the room.
func (h *Hub) ToRoom(roomID, event string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.conns {
		if c.roomID != roomID {
			continue
		}
		select {
		case c.send <- envelope{Type: event, Payload: payload}:
		default:
			log.Printf("ws: dropping %s for %s: send buffer full", event, c.id)
		}
	}
}
