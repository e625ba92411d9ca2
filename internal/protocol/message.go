// Package protocol defines the JSON signaling messages exchanged between
// peers and the relay. The relay never inspects SDP or ICE candidate bodies;
// they travel as raw JSON so the media stack on each end stays free to evolve.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Type identifies the kind of signaling message.
type Type string

const (
	// TypeHello is sent once by the relay when a connection is accepted and
	// carries the server-assigned participant ID.
	TypeHello Type = "hello"

	// TypeJoinRoom is sent by a peer to enter a room as owner or viewer.
	TypeJoinRoom Type = "join-room"

	// TypeOwnerReady tells a viewer that an owner is present in its room.
	TypeOwnerReady Type = "owner-ready"

	// TypeViewerOffer carries a viewer's SDP offer to the room owner.
	TypeViewerOffer Type = "viewer-offer"

	// TypeOwnerAnswer carries the owner's SDP answer to one viewer.
	TypeOwnerAnswer Type = "owner-answer"

	// TypeICECandidate carries a network candidate in either direction.
	TypeICECandidate Type = "ice-candidate"

	// TypeOwnerLeft tells viewers that the owner's connection closed.
	TypeOwnerLeft Type = "owner-left"
)

// Role is the part a participant plays in a room.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleViewer Role = "viewer"
)

// Valid reports whether the role is one of the two known roles.
func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleViewer
}

// Message is the wire envelope for every signaling message.
//
// SDP and Candidate are opaque json.RawMessage: the relay forwards them
// untouched, and only the peers marshal real WebRTC types into them.
type Message struct {
	Type      Type            `json:"type"`
	ID        string          `json:"id,omitempty"`
	RoomID    string          `json:"roomId,omitempty"`
	Role      Role            `json:"role,omitempty"`
	To        string          `json:"to,omitempty"`
	From      string          `json:"from,omitempty"`
	SDP       json.RawMessage `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

var (
	ErrUnknownType   = errors.New("unknown message type")
	ErrMissingField  = errors.New("missing required field")
	ErrInvalidRole   = errors.New("invalid role")
	ErrNotPeerToRely = errors.New("not a peer-to-relay message")
)

// Validate checks that a peer-to-relay message carries the fields the router
// needs. Relay-to-peer types are rejected: peers must not inject them.
func (m *Message) Validate() error {
	switch m.Type {
	case TypeJoinRoom:
		if m.RoomID == "" {
			return fmt.Errorf("%w: roomId", ErrMissingField)
		}
		if !m.Role.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidRole, m.Role)
		}
	case TypeViewerOffer:
		if m.RoomID == "" {
			return fmt.Errorf("%w: roomId", ErrMissingField)
		}
		if len(m.SDP) == 0 {
			return fmt.Errorf("%w: sdp", ErrMissingField)
		}
	case TypeOwnerAnswer:
		if m.RoomID == "" {
			return fmt.Errorf("%w: roomId", ErrMissingField)
		}
		if m.To == "" {
			return fmt.Errorf("%w: to", ErrMissingField)
		}
		if len(m.SDP) == 0 {
			return fmt.Errorf("%w: sdp", ErrMissingField)
		}
	case TypeICECandidate:
		if m.RoomID == "" {
			return fmt.Errorf("%w: roomId", ErrMissingField)
		}
		if len(m.Candidate) == 0 {
			return fmt.Errorf("%w: candidate", ErrMissingField)
		}
	case TypeHello, TypeOwnerReady, TypeOwnerLeft:
		return fmt.Errorf("%w: %q", ErrNotPeerToRely, m.Type)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
	return nil
}
