// Package relay implements the signaling relay: a room registry plus a
// message router. The relay forwards opaque session descriptions and network
// candidates between an owner and its viewers; it never carries media.
package relay

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Hayato040404/Watch/internal/protocol"
)

// inbound pairs a parsed message with the connection it arrived on.
type inbound struct {
	client *Client
	msg    *protocol.Message
}

// Hub is the single goroutine that owns all room state. Connections hand it
// registrations, disconnects and inbound messages over channels; routing and
// registry mutations are serialized by the Run loop.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client
	Inbound    chan inbound

	reg *Registry
}

// NewHub creates a hub with an empty registry.
func NewHub() *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Inbound:    make(chan inbound),
		reg:        NewRegistry(),
	}
}

// Run processes hub events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case c := <-h.Register:
			h.register(c)

		case c := <-h.Unregister:
			h.reg.leave(c)
			close(c.send)

		case in := <-h.Inbound:
			h.route(in.client, in.msg)

		case <-ctx.Done():
			return
		}
	}
}

// register assigns the participant ID and greets the connection.
func (h *Hub) register(c *Client) {
	c.ID = uuid.NewString()
	c.trySend(&protocol.Message{Type: protocol.TypeHello, ID: c.ID})
	slog.Info("client connected", "client", c.ID)
}

// route validates an inbound message and forwards it. Every failure mode is
// a silent drop: signaling is fire-and-forget and the relay never replies
// with errors or buffers for absent recipients.
func (h *Hub) route(c *Client, msg *protocol.Message) {
	if err := msg.Validate(); err != nil {
		slog.Debug("dropping invalid message", "client", c.ID, "err", err)
		return
	}

	switch msg.Type {
	case protocol.TypeJoinRoom:
		h.reg.join(c, msg.RoomID, msg.Role)

	case protocol.TypeViewerOffer:
		room := h.reg.room(msg.RoomID)
		if room == nil || room.Owner == nil {
			return
		}
		room.Owner.trySend(&protocol.Message{
			Type: protocol.TypeViewerOffer,
			From: c.ID,
			SDP:  msg.SDP,
		})

	case protocol.TypeOwnerAnswer:
		room := h.reg.room(msg.RoomID)
		if room == nil {
			return
		}
		viewer := room.Viewers[msg.To]
		if viewer == nil {
			return
		}
		// The target is resolved here; the viewer only sees the answer.
		viewer.trySend(&protocol.Message{
			Type: protocol.TypeOwnerAnswer,
			SDP:  msg.SDP,
		})

	case protocol.TypeICECandidate:
		h.routeCandidate(c, msg)
	}
}

// routeCandidate forwards a candidate according to the sender's role:
// viewer candidates go to the room owner tagged with the sender ID, owner
// candidates go to the viewer named in the "to" field.
func (h *Hub) routeCandidate(c *Client, msg *protocol.Message) {
	room := h.reg.room(msg.RoomID)
	if room == nil {
		return
	}

	switch c.role {
	case protocol.RoleViewer:
		if room.Owner == nil {
			return
		}
		room.Owner.trySend(&protocol.Message{
			Type:      protocol.TypeICECandidate,
			From:      c.ID,
			Candidate: msg.Candidate,
		})

	case protocol.RoleOwner:
		viewer := room.Viewers[msg.To]
		if viewer == nil {
			return
		}
		viewer.trySend(&protocol.Message{
			Type:      protocol.TypeICECandidate,
			Candidate: msg.Candidate,
		})
	}
}
