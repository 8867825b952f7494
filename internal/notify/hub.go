// Package notify pushes task events to connected WebSocket clients.
//
// Delivery is best effort and at most once: every client owns a bounded send
// buffer, and an event that does not fit is dropped for that client.
package notify

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

const (
	EventTaskAssigned = "taskAssigned"
	EventTaskUpdated  = "taskUpdated"
	EventTaskDeleted  = "taskDeleted"
)

// Event is the frame written to clients
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// Hub tracks live clients, grouped by user id
type Hub struct {
	mu      sync.RWMutex
	rooms   map[int64]map[*Client]struct{}
	clients map[*Client]struct{}
	closed  bool

	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewHub creates a hub accepting upgrades from the given origins. An origin of
// "*" accepts any origin.
func NewHub(allowedOrigins []string, log *slog.Logger) *Hub {
	h := &Hub{
		rooms:   make(map[int64]map[*Client]struct{}),
		clients: make(map[*Client]struct{}),
		log:     log,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // non-browser client
		}
		_, ok := set[origin]
		return ok
	}
}

// NotifyUser sends the event to every connection of userID. It is a no-op when
// the user has no live connection.
func (h *Hub) NotifyUser(userID int64, event string, payload any) {
	msg, ok := h.encode(event, payload)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[userID] {
		c.enqueue(msg, event)
	}
}

// Broadcast sends the event to every live connection
func (h *Hub) Broadcast(event string, payload any) {
	msg, ok := h.encode(event, payload)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.enqueue(msg, event)
	}
}

func (h *Hub) encode(event string, payload any) ([]byte, bool) {
	msg, err := json.Marshal(Event{Name: event, Data: payload})
	if err != nil {
		h.log.Error("failed to encode event", "event", event, "err", err)
		return nil, false
	}
	return msg, true
}

// Connections returns the number of live connections for userID
func (h *Hub) Connections(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}

	h.clients[c] = struct{}{}
	room, ok := h.rooms[c.userID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[c.userID] = room
	}
	room[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

// removeLocked detaches c and closes its send buffer. Safe to call twice.
func (h *Hub) removeLocked(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	if room := h.rooms[c.userID]; room != nil {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, c.userID)
		}
	}
	close(c.send)
}

// Close disconnects every client and refuses new ones
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}
