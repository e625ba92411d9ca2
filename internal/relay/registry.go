package relay

import (
	"log/slog"

	"github.com/Hayato040404/Watch/internal/protocol"
)

// Registry is the in-memory room bookkeeping. It is owned by the hub
// goroutine: every mutation happens on that single goroutine, which makes
// join and leave atomic with respect to each other without locking.
type Registry struct {
	rooms map[string]*Room
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// getOrCreate returns the room with the given ID, creating it if needed.
func (reg *Registry) getOrCreate(roomID string) *Room {
	room, ok := reg.rooms[roomID]
	if !ok {
		room = newRoom(roomID)
		reg.rooms[roomID] = room
	}
	return room
}

// room returns the room with the given ID, or nil.
func (reg *Registry) room(roomID string) *Room {
	return reg.rooms[roomID]
}

// join places a client in a room with the given role.
//
// A client that is already in a room leaves it first, with full leave side
// effects; joining never leaves stale membership behind in another room.
//
// An owner joining a room that already has an owner replaces it silently
// (last writer wins) and every current viewer is re-notified owner-ready. A
// viewer joining a room that has an owner is notified owner-ready at once.
func (reg *Registry) join(c *Client, roomID string, role protocol.Role) {
	if c.room != "" {
		reg.leave(c)
	}

	room := reg.getOrCreate(roomID)
	c.room = roomID
	c.role = role

	switch role {
	case protocol.RoleOwner:
		room.Owner = c
		for _, viewer := range room.Viewers {
			viewer.trySend(&protocol.Message{Type: protocol.TypeOwnerReady})
		}
	case protocol.RoleViewer:
		room.Viewers[c.ID] = c
		if room.Owner != nil {
			c.trySend(&protocol.Message{Type: protocol.TypeOwnerReady})
		}
	}

	slog.Info("joined room", "room", roomID, "client", c.ID, "role", role)
}

// leave removes a client from whatever room and role it held. Viewers of a
// departing owner are notified owner-left; a departing viewer triggers no
// notification (the owner notices via its own transport state). The room is
// deleted once it holds nobody.
func (reg *Registry) leave(c *Client) {
	room := reg.rooms[c.room]
	if room == nil {
		c.room, c.role = "", ""
		return
	}

	switch {
	case room.Owner == c:
		for _, viewer := range room.Viewers {
			viewer.trySend(&protocol.Message{Type: protocol.TypeOwnerLeft})
		}
		room.Owner = nil
	default:
		delete(room.Viewers, c.ID)
	}

	if room.empty() {
		delete(reg.rooms, room.ID)
		slog.Info("room deleted", "room", room.ID)
	}

	slog.Info("left room", "room", c.room, "client", c.ID, "role", c.role)
	c.room, c.role = "", ""
}
