package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	v1 "giftlist/shared/contracts/registry/v1"
)

// Hub routes view snapshots and toasts to the connections of a session.
// It implements session.Publisher.
type Hub struct {
	log *slog.Logger

	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewHub constructs a Hub instance.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:   log,
		rooms: make(map[string]*Room),
	}
}

// Join attaches c to its session's room.
func (h *Hub) Join(c *Client) {
	if h == nil || c == nil || c.SessionID == "" {
		return
	}

	h.mu.Lock()
	r, ok := h.rooms[c.SessionID]
	if !ok {
		r = newRoom(h.log, c.SessionID)
		h.rooms[c.SessionID] = r
	}
	r.join(c)
	h.mu.Unlock()

	h.log.Info("ws.room.join", "session_id", c.SessionID, "conn_id", c.ConnID)
}

// Leave detaches c, drops the room when it empties and closes c.
func (h *Hub) Leave(c *Client) {
	if h == nil || c == nil {
		return
	}

	h.mu.Lock()
	if r, ok := h.rooms[c.SessionID]; ok {
		if r.leave(c.ConnID) == 0 {
			delete(h.rooms, c.SessionID)
		}
	}
	h.mu.Unlock()

	// Close after removal so no broadcaster still holds c.
	c.Close()
	h.log.Info("ws.room.leave", "session_id", c.SessionID, "conn_id", c.ConnID)
}

// Connections reports the number of live connections for a session.
func (h *Hub) Connections(sessionID string) int {
	h.mu.RLock()
	r := h.rooms[sessionID]
	h.mu.RUnlock()
	if r == nil {
		return 0
	}
	return r.Len()
}

// PublishView pushes a view envelope to every tab of the session.
func (h *Hub) PublishView(sessionID string, view v1.ViewPayload) {
	h.publish(sessionID, v1.TypeView, view)
}

// PublishNotification pushes a toast envelope to every tab of the session.
func (h *Hub) PublishNotification(sessionID string, n v1.NotificationPayload) {
	h.publish(sessionID, v1.TypeNotification, n)
}

func (h *Hub) publish(sessionID, typ string, payload any) {
	h.mu.RLock()
	r := h.rooms[sessionID]
	h.mu.RUnlock()
	if r == nil {
		return
	}

	b, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("ws.publish.marshal.fail", "type", typ, "err", err)
		return
	}
	r.Broadcast(newEnvelope(typ, b, time.Now().UTC()))
}
