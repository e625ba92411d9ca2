package session

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	pion "github.com/pion/webrtc/v4"

	"github.com/Hayato040404/Watch/internal/protocol"
)

// ViewerInfo is a snapshot of one viewer session, for display.
type ViewerInfo struct {
	ID    string
	State State
	Since time.Time
}

// Owner runs the sharing side of a room: one independent session per viewer,
// all fed from a single ordered event stream.
type Owner struct {
	roomID  string
	newConn Factory
	send    SendFunc

	mu       sync.Mutex
	tracks   []pion.TrackLocal
	sessions map[string]*ownerSession
	closed   bool

	onChange func()
}

type ownerSession struct {
	viewerID string
	conn     Conn
	state    State
	since    time.Time
}

// NewOwner creates an owner for the given room. send delivers signaling
// messages to the relay.
func NewOwner(roomID string, factory Factory, send SendFunc) *Owner {
	return &Owner{
		roomID:   roomID,
		newConn:  factory,
		send:     send,
		sessions: make(map[string]*ownerSession),
	}
}

// OnChange registers a callback fired whenever the viewer set or a viewer
// state changes. Called from transport goroutines; keep it cheap.
func (o *Owner) OnChange(fn func()) {
	o.mu.Lock()
	o.onChange = fn
	o.mu.Unlock()
}

// HandleOffer answers a viewer's offer with a fresh session. An existing
// session for the same viewer is torn down first; a rejoining viewer always
// negotiates from scratch.
func (o *Owner) HandleOffer(viewerID string, rawSDP json.RawMessage) error {
	var offer pion.SessionDescription
	if err := json.Unmarshal(rawSDP, &offer); err != nil {
		return newPeerError("decode offer", viewerID, ErrBadSDP)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrClosed
	}

	if prev, ok := o.sessions[viewerID]; ok {
		prev.conn.Close()
		delete(o.sessions, viewerID)
	}

	conn, err := o.newConn(false)
	if err != nil {
		return newPeerError("open session", viewerID, err)
	}

	conn.OnCandidate(func(cand pion.ICECandidateInit) {
		data, err := json.Marshal(cand)
		if err != nil {
			return
		}
		o.send(&protocol.Message{
			Type:      protocol.TypeICECandidate,
			RoomID:    o.roomID,
			To:        viewerID,
			Candidate: data,
		})
	})
	conn.OnStateChange(func(s pion.PeerConnectionState) {
		switch s {
		case pion.PeerConnectionStateConnected:
			o.setState(viewerID, conn, StateConnected)
		case pion.PeerConnectionStateFailed,
			pion.PeerConnectionStateDisconnected,
			pion.PeerConnectionStateClosed:
			o.dropSession(viewerID, conn)
		}
	})

	for _, t := range o.tracks {
		if err := conn.AddTrack(t); err != nil {
			conn.Close()
			return newPeerError("attach media", viewerID, err)
		}
	}

	answer, err := conn.AcceptOffer(offer)
	if err != nil {
		conn.Close()
		return newPeerError("negotiate", viewerID, err)
	}

	data, err := json.Marshal(answer)
	if err != nil {
		conn.Close()
		return newPeerError("encode answer", viewerID, err)
	}

	o.sessions[viewerID] = &ownerSession{
		viewerID: viewerID,
		conn:     conn,
		state:    StateReadyToAnswer,
		since:    time.Now(),
	}

	o.send(&protocol.Message{
		Type:   protocol.TypeOwnerAnswer,
		RoomID: o.roomID,
		To:     viewerID,
		SDP:    data,
	})

	o.notifyLocked()
	return nil
}

// HandleCandidate applies a viewer's network candidate to its session. The
// remote description is always in place before candidates arrive, so there is
// no buffering here; candidates for unknown viewers are dropped.
func (o *Owner) HandleCandidate(viewerID string, raw json.RawMessage) error {
	var cand pion.ICECandidateInit
	if err := json.Unmarshal(raw, &cand); err != nil {
		return newPeerError("decode candidate", viewerID, ErrBadCandidate)
	}

	o.mu.Lock()
	sess, ok := o.sessions[viewerID]
	o.mu.Unlock()

	if !ok {
		slog.Debug("candidate for unknown viewer", "viewer", viewerID)
		return nil
	}
	return sess.conn.AddCandidate(cand)
}

// SetMedia makes tracks the outgoing media for every current and future
// session. Running sessions swap tracks in place, without renegotiation; a
// session missing a sender of some kind gets one added.
func (o *Owner) SetMedia(tracks []pion.TrackLocal) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.tracks = tracks
	for _, sess := range o.sessions {
		for _, t := range tracks {
			replaced, err := sess.conn.ReplaceTrack(t.Kind(), t)
			if err != nil {
				slog.Warn("replace track", "viewer", sess.viewerID, "err", err)
				continue
			}
			if !replaced {
				if err := sess.conn.AddTrack(t); err != nil {
					slog.Warn("add track", "viewer", sess.viewerID, "err", err)
				}
			}
		}
	}
}

// ClearMedia detaches outgoing media from every session. Sessions stay open
// so sharing can resume without renegotiation.
func (o *Owner) ClearMedia() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.tracks = nil
	for _, sess := range o.sessions {
		if err := sess.conn.RemoveTracks(); err != nil {
			slog.Warn("remove tracks", "viewer", sess.viewerID, "err", err)
		}
	}
}

// Viewers returns a snapshot of the current sessions.
func (o *Owner) Viewers() []ViewerInfo {
	o.mu.Lock()
	defer o.mu.Unlock()

	infos := make([]ViewerInfo, 0, len(o.sessions))
	for _, sess := range o.sessions {
		infos = append(infos, ViewerInfo{ID: sess.viewerID, State: sess.state, Since: sess.since})
	}
	return infos
}

// Close tears down every session.
func (o *Owner) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	sessions := o.sessions
	o.sessions = make(map[string]*ownerSession)
	o.mu.Unlock()

	for _, sess := range sessions {
		sess.conn.Close()
	}
}

// setState updates a session's state if conn is still its current transport.
// Stale callbacks from a replaced session are ignored.
func (o *Owner) setState(viewerID string, conn Conn, s State) {
	o.mu.Lock()
	sess, ok := o.sessions[viewerID]
	if !ok || sess.conn != conn {
		o.mu.Unlock()
		return
	}
	sess.state = s
	o.notifyLocked()
	o.mu.Unlock()
}

// dropSession removes a failed session. Terminal: the viewer rejoins with a
// fresh offer if it wants back in.
func (o *Owner) dropSession(viewerID string, conn Conn) {
	o.mu.Lock()
	sess, ok := o.sessions[viewerID]
	if !ok || sess.conn != conn {
		o.mu.Unlock()
		return
	}
	delete(o.sessions, viewerID)
	o.notifyLocked()
	o.mu.Unlock()

	sess.conn.Close()
	slog.Debug("viewer session dropped", "viewer", viewerID)
}

func (o *Owner) notifyLocked() {
	if o.onChange != nil {
		go o.onChange()
	}
}
