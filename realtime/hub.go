// Package realtime carries the live side of the application: the WebSocket
// sessions, the in-memory room registry, and the fan-out of chat, system,
// and gift events to everyone watching a room.
package realtime

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Hub is the in-memory room registry: which sessions are in which room.
// Rooms exist exactly as long as at least one session is in them; joining an
// unknown room name creates it. All methods are safe for concurrent use, and
// a membership change is visible to the very next Broadcast call.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Session]bool
	members map[*Session]string
}

// NewHub creates an empty registry
func NewHub() *Hub {
	return &Hub{
		rooms:   make(map[string]map[*Session]bool),
		members: make(map[*Session]string),
	}
}

// Join adds the session to room, removing it from any previous room first.
// Joining the room the session is already in is a no-op.
func (h *Hub) Join(s *Session, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.members[s]; ok {
		if current == room {
			return
		}
		h.removeLocked(s, current)
	}

	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Session]bool)
	}
	h.rooms[room][s] = true
	h.members[s] = room

	log.WithFields(log.Fields{
		"room": room,
		"size": len(h.rooms[room]),
	}).Debug("Session joined room")
}

// Leave removes the session from its current room and returns that room's
// name, or "" if the session was not in any room.
func (h *Hub) Leave(s *Session) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.members[s]
	if !ok {
		return ""
	}
	h.removeLocked(s, room)
	return room
}

// removeLocked drops the session from a room set; the caller holds the lock.
// Empty rooms are deleted so the registry does not accumulate dead names.
func (h *Hub) removeLocked(s *Session, room string) {
	delete(h.members, s)
	if set, ok := h.rooms[room]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Room returns the room the session is currently in, or "".
func (h *Hub) Room(s *Session) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.members[s]
}

// RoomSize returns the number of sessions currently in a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Broadcast delivers a frame to every session currently in the room.
// Delivery is fire-and-forget: a session whose send buffer is full or whose
// connection has closed is dropped from the registry and closed rather than
// blocking the rest of the room.
func (h *Hub) Broadcast(room string, frame []byte) {
	if frame == nil {
		return
	}

	h.mu.RLock()
	sessions := make([]*Session, 0, len(h.rooms[room]))
	for s := range h.rooms[room] {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	var failed []*Session
	for _, s := range sessions {
		if !s.trySend(frame) {
			failed = append(failed, s)
		}
	}

	if len(failed) == 0 {
		return
	}

	h.mu.Lock()
	for _, s := range failed {
		if current, ok := h.members[s]; ok {
			h.removeLocked(s, current)
			log.WithField("room", current).Debug("Dropped unresponsive session from room")
		}
	}
	h.mu.Unlock()

	for _, s := range failed {
		s.close()
	}
}

// SessionsForUser returns the live sessions bound to the given user id.
// A user with several tabs open has several sessions.
func (h *Hub) SessionsForUser(userID string) []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var sessions []*Session
	for s := range h.members {
		if user := s.User(); user != nil && user.ID == userID {
			sessions = append(sessions, s)
		}
	}
	return sessions
}
