// Package ws holds the realtime layer: a connection hub, the per-socket
// pumps and the dispatcher that routes envelope commands to the store.
package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Hub tracks connected sockets by user and the room membership used for
// conversation-scoped broadcast. A user may hold several sockets at once.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	rooms   map[string]map[string]bool

	log *zap.SugaredLogger
}

func NewHub(log *zap.SugaredLogger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		rooms:   make(map[string]map[string]bool),
		log:     log,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.UserID]; !ok {
		h.clients[c.UserID] = make(map[*Client]struct{})
	}
	h.clients[c.UserID][c] = struct{}{}
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[c.UserID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.UserID)
		}
	}
	for _, members := range h.rooms {
		delete(members, c.UserID)
	}
	c.Close()
}

// JoinRoom subscribes a user to conversation-scoped broadcasts.
func (h *Hub) JoinRoom(roomID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[string]bool)
	}
	h.rooms[roomID][userID] = true
}

func (h *Hub) LeaveRoom(roomID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[roomID]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// SendToUser delivers an event to every socket the user has open. Slow
// sockets are skipped rather than blocking the caller.
func (h *Hub) SendToUser(userID string, env Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		h.log.Errorw("marshal event", "event", env.Event, "error", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.sendLocked(userID, env.Event, payload)
}

// SendToUsers fans one event out to several recipients.
func (h *Hub) SendToUsers(userIDs []string, env Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		h.log.Errorw("marshal event", "event", env.Event, "error", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, id := range userIDs {
		h.sendLocked(id, env.Event, payload)
	}
}

// Broadcast delivers an event to every user currently joined to the room.
func (h *Hub) Broadcast(roomID string, env Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		h.log.Errorw("marshal event", "event", env.Event, "error", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for userID := range h.rooms[roomID] {
		h.sendLocked(userID, env.Event, payload)
	}
}

func (h *Hub) sendLocked(userID, event string, payload []byte) {
	for c := range h.clients[userID] {
		select {
		case c.Send <- payload:
		default:
			h.log.Warnw("dropping event for slow socket", "user_id", userID, "event", event)
		}
	}
}

// Online reports whether the user has at least one open socket.
func (h *Hub) Online(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}
