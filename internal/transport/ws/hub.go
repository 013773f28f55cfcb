package ws

import (
	"sync"

	"github.com/hapdev05/Room-server/internal/domain"
)

type Conn interface {
	ID() string
	User() domain.User
	Send(msg Message) error
	Close() error
}

// Hub is the presence registry and in-process fan-out: it tracks which
// user each live connection belongs to and which rooms it subscribed to.
// Purely in-memory; presence resets on restart and is rebuilt as
// connections re-attach. A user may hold several connections at once.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]Conn                // connID -> conn
	users map[string]map[string]struct{} // userID -> connIDs
	rooms map[string]map[string]struct{} // roomID -> connIDs
	subs  map[string]map[string]struct{} // connID -> roomIDs
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]Conn),
		users: make(map[string]map[string]struct{}),
		rooms: make(map[string]map[string]struct{}),
		subs:  make(map[string]map[string]struct{}),
	}
}

// Attach registers a connection. Reports whether this is the user's
// first live connection (they just came online).
func (h *Hub) Attach(c Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[c.ID()] = c
	uid := c.User().ID
	set, ok := h.users[uid]
	if !ok {
		set = make(map[string]struct{})
		h.users[uid] = set
	}
	first := len(set) == 0
	set[c.ID()] = struct{}{}
	h.subs[c.ID()] = make(map[string]struct{})

	return first
}

// Detach removes a connection and all its subscriptions. Reports the
// connection's user and whether it was their last connection.
func (h *Hub) Detach(connID string) (user domain.User, last bool, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.conns[connID]
	if !ok {
		return domain.User{}, false, false
	}
	delete(h.conns, connID)

	for roomID := range h.subs[connID] {
		h.dropFromRoom(connID, roomID)
	}
	delete(h.subs, connID)

	user = c.User()
	if set, ok := h.users[user.ID]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(h.users, user.ID)
			last = true
		}
	}
	return user, last, true
}

func (h *Hub) Subscribe(connID, roomID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[connID]; !ok {
		return false
	}
	rs, ok := h.rooms[roomID]
	if !ok {
		rs = make(map[string]struct{})
		h.rooms[roomID] = rs
	}
	rs[connID] = struct{}{}
	h.subs[connID][roomID] = struct{}{}
	return true
}

func (h *Hub) Unsubscribe(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.dropFromRoom(connID, roomID)
	if s, ok := h.subs[connID]; ok {
		delete(s, roomID)
	}
}

// dropFromRoom must be called with the lock held.
func (h *Hub) dropFromRoom(connID, roomID string) {
	if rs, ok := h.rooms[roomID]; ok {
		delete(rs, connID)
		if len(rs) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// CountSubscribers counts distinct users with a live subscription to the
// room, so a member connected from two devices is counted once.
func (h *Hub) CountSubscribers(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]struct{})
	for connID := range h.rooms[roomID] {
		if c, ok := h.conns[connID]; ok {
			seen[c.User().ID] = struct{}{}
		}
	}
	return len(seen)
}

// ListOnline returns every distinct user with at least one connection.
func (h *Hub) ListOnline() []domain.User {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]domain.User, 0, len(h.users))
	for _, set := range h.users {
		for connID := range set {
			if c, ok := h.conns[connID]; ok {
				out = append(out, c.User())
				break
			}
		}
	}
	return out
}

func (h *Hub) Online(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID]) > 0
}

// Broadcast delivers an event to every connection subscribed to the
// room. Best-effort, at-most-once.
func (h *Hub) Broadcast(roomID, event string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for connID := range h.rooms[roomID] {
		if c, ok := h.conns[connID]; ok {
			_ = c.Send(Message{Type: event, Payload: payload})
		}
	}
}

// SendToUser delivers an event to the user's personal channel, i.e.
// all of their connections.
func (h *Hub) SendToUser(userID, event string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for connID := range h.users[userID] {
		if c, ok := h.conns[connID]; ok {
			_ = c.Send(Message{Type: event, Payload: payload})
		}
	}
}

// BroadcastAll delivers an event to every live connection.
func (h *Hub) BroadcastAll(event string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.conns {
		_ = c.Send(Message{Type: event, Payload: payload})
	}
}
