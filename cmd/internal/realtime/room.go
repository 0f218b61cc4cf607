package realtime

import (
	"log/slog"
	"sync"

	v1 "giftlist/shared/contracts/registry/v1"
)

// Room is the set of connections sharing one browser session.
// Join/Leave are safe under concurrent Broadcast, and Broadcast drops
// rather than blocks when a member queue is full.
type Room struct {
	log       *slog.Logger
	SessionID string

	mu      sync.RWMutex
	members map[string]*Client
}

func newRoom(log *slog.Logger, sessionID string) *Room {
	return &Room{
		log:       log,
		SessionID: sessionID,
		members:   make(map[string]*Client),
	}
}

func (r *Room) join(c *Client) {
	r.mu.Lock()
	r.members[c.ConnID] = c
	r.mu.Unlock()
}

// leave removes the connection and reports how many remain.
func (r *Room) leave(connID string) int {
	r.mu.Lock()
	delete(r.members, connID)
	n := len(r.members)
	r.mu.Unlock()
	return n
}

// Len reports the number of connections in the room.
func (r *Room) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Broadcast fans env out to every member and returns how many accepted it.
func (r *Room) Broadcast(env v1.Envelope) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sent := 0
	for _, m := range r.members {
		if m.offer(env) {
			sent++
			continue
		}
		r.log.Debug("ws.broadcast.drop", "session_id", r.SessionID, "conn_id", m.ConnID, "type", env.Type)
	}
	return sent
}
