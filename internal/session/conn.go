// Package session implements the peer-side negotiation state machines: one
// for the owner (a session per viewer) and one for the viewer (a single
// session with the owner). The media transport itself sits behind the Conn
// interface; the machines only sequence descriptions, candidates and tracks.
package session

import (
	pion "github.com/pion/webrtc/v4"

	"github.com/Hayato040404/Watch/internal/protocol"
)

// Conn is the media-transport handle behind one session.
type Conn interface {
	// AcceptOffer applies a remote offer and returns the local answer.
	AcceptOffer(offer pion.SessionDescription) (pion.SessionDescription, error)

	// Offer creates and applies a local offer.
	Offer() (pion.SessionDescription, error)

	// SetAnswer applies the remote answer.
	SetAnswer(answer pion.SessionDescription) error

	// AddCandidate applies a remote network candidate. It fails if no remote
	// description has been applied yet; callers buffer for that case.
	AddCandidate(c pion.ICECandidateInit) error

	// AddTrack attaches an outgoing track.
	AddTrack(t pion.TrackLocal) error

	// ReplaceTrack swaps the outgoing track of the given kind in place,
	// without renegotiation. It reports false when no sender of that kind
	// carries a track, in which case the caller adds instead.
	ReplaceTrack(kind pion.RTPCodecType, t pion.TrackLocal) (bool, error)

	// RemoveTracks detaches every outgoing track. The connection stays open.
	RemoveTracks() error

	OnCandidate(fn func(pion.ICECandidateInit))
	OnStateChange(fn func(pion.PeerConnectionState))
	OnRemoteTrack(fn func(*pion.TrackRemote))

	Close() error
}

// Factory creates transport handles. Receive-only connections pre-allocate
// inbound transceivers and never send media.
type Factory func(recvOnly bool) (Conn, error)

// SendFunc delivers a signaling message to the relay, best effort.
type SendFunc func(*protocol.Message)

// State is a session's position in the negotiation lifecycle.
type State int

const (
	StateIdle State = iota
	StateAwaitingMedia
	StateAwaitingOwner
	StateOfferSent
	StateAwaitingAnswer
	StateReadyToAnswer
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingMedia:
		return "awaiting-local-media"
	case StateAwaitingOwner:
		return "awaiting-owner"
	case StateOfferSent:
		return "offer-sent"
	case StateAwaitingAnswer:
		return "awaiting-answer"
	case StateReadyToAnswer:
		return "ready-to-answer"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
