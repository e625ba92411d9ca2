package session

import (
	"encoding/json"
	"log/slog"
	"sync"

	pion "github.com/pion/webrtc/v4"

	"github.com/Hayato040404/Watch/internal/protocol"
)

// Viewer runs the watching side of a room: a single receive-only session with
// the owner, rebuilt from scratch every time the owner (re)appears.
type Viewer struct {
	roomID  string
	newConn Factory
	send    SendFunc

	mu       sync.Mutex
	state    State
	conn     Conn
	answered bool
	pending  []pion.ICECandidateInit

	onTrack func(*pion.TrackRemote)
	onState func(State)
}

// NewViewer creates a viewer for the given room.
func NewViewer(roomID string, factory Factory, send SendFunc) *Viewer {
	return &Viewer{
		roomID:  roomID,
		newConn: factory,
		send:    send,
		state:   StateAwaitingOwner,
	}
}

// OnRemoteTrack registers the callback for incoming media tracks.
func (v *Viewer) OnRemoteTrack(fn func(*pion.TrackRemote)) {
	v.mu.Lock()
	v.onTrack = fn
	v.mu.Unlock()
}

// OnState registers a callback fired on every state transition. Called from
// transport goroutines; keep it cheap.
func (v *Viewer) OnState(fn func(State)) {
	v.mu.Lock()
	v.onState = fn
	v.mu.Unlock()
}

// State returns the current session state.
func (v *Viewer) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Start opens a fresh session and sends the offer. Any previous session is
// torn down first, so a repeated owner-ready restarts negotiation cleanly.
func (v *Viewer) Start() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state == StateClosed {
		return ErrClosed
	}

	v.teardownLocked()

	conn, err := v.newConn(true)
	if err != nil {
		v.setStateLocked(StateIdle)
		return newError("open session", err)
	}

	conn.OnCandidate(func(cand pion.ICECandidateInit) {
		data, err := json.Marshal(cand)
		if err != nil {
			return
		}
		v.send(&protocol.Message{
			Type:      protocol.TypeICECandidate,
			RoomID:    v.roomID,
			Candidate: data,
		})
	})
	conn.OnStateChange(func(s pion.PeerConnectionState) {
		switch s {
		case pion.PeerConnectionStateFailed,
			pion.PeerConnectionStateDisconnected,
			pion.PeerConnectionStateClosed:
			v.transportDown(conn)
		}
	})
	conn.OnRemoteTrack(func(track *pion.TrackRemote) {
		v.mu.Lock()
		fn := v.onTrack
		v.mu.Unlock()
		if fn != nil {
			fn(track)
		}
	})

	offer, err := conn.Offer()
	if err != nil {
		conn.Close()
		v.setStateLocked(StateIdle)
		return newError("negotiate", err)
	}

	data, err := json.Marshal(offer)
	if err != nil {
		conn.Close()
		v.setStateLocked(StateIdle)
		return newError("encode offer", err)
	}

	v.conn = conn
	v.setStateLocked(StateOfferSent)

	v.send(&protocol.Message{
		Type:   protocol.TypeViewerOffer,
		RoomID: v.roomID,
		SDP:    data,
	})
	v.setStateLocked(StateAwaitingAnswer)

	return nil
}

// HandleAnswer applies the owner's answer and flushes buffered candidates in
// the order they arrived.
func (v *Viewer) HandleAnswer(rawSDP json.RawMessage) error {
	var answer pion.SessionDescription
	if err := json.Unmarshal(rawSDP, &answer); err != nil {
		return newError("decode answer", ErrBadSDP)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.conn == nil {
		slog.Debug("answer without active session")
		return nil
	}

	if err := v.conn.SetAnswer(answer); err != nil {
		v.teardownLocked()
		v.setStateLocked(StateIdle)
		return newError("apply answer", err)
	}
	v.answered = true

	for _, cand := range v.pending {
		if err := v.conn.AddCandidate(cand); err != nil {
			slog.Warn("apply buffered candidate", "err", err)
		}
	}
	v.pending = nil

	v.setStateLocked(StateConnected)
	return nil
}

// HandleCandidate applies an owner candidate, buffering it when the answer
// has not landed yet.
func (v *Viewer) HandleCandidate(raw json.RawMessage) error {
	var cand pion.ICECandidateInit
	if err := json.Unmarshal(raw, &cand); err != nil {
		return newError("decode candidate", ErrBadCandidate)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.conn == nil {
		slog.Debug("candidate without active session")
		return nil
	}

	if !v.answered {
		v.pending = append(v.pending, cand)
		return nil
	}
	return v.conn.AddCandidate(cand)
}

// HandleOwnerLeft tears the session down and goes back to waiting. The
// viewer's relay connection stays up; a returning owner triggers a fresh
// negotiation via owner-ready.
func (v *Viewer) HandleOwnerLeft() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state == StateClosed {
		return
	}
	v.teardownLocked()
	v.setStateLocked(StateIdle)
}

// Close tears everything down for good.
func (v *Viewer) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state == StateClosed {
		return
	}
	v.teardownLocked()
	v.setStateLocked(StateClosed)
}

// transportDown handles a connection-level failure. Stale callbacks from an
// already replaced session are ignored.
func (v *Viewer) transportDown(conn Conn) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.conn != conn || v.state == StateClosed {
		return
	}
	v.teardownLocked()
	v.setStateLocked(StateIdle)
}

func (v *Viewer) teardownLocked() {
	if v.conn != nil {
		v.conn.Close()
		v.conn = nil
	}
	v.pending = nil
	v.answered = false
}

func (v *Viewer) setStateLocked(s State) {
	if v.state == s {
		return
	}
	v.state = s
	if v.onState != nil {
		go v.onState(s)
	}
}
