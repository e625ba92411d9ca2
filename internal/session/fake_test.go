package session

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	pion "github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/require"

	"github.com/Hayato040404/Watch/internal/protocol"
)

// fakeConn records the operations a machine performs, in order, so tests can
// assert sequencing without a real transport.
type fakeConn struct {
	mu       sync.Mutex
	recvOnly bool
	ops      []string
	kinds    map[pion.RTPCodecType]bool
	closed   bool

	acceptErr error
	offerErr  error
	answerErr error

	onCandidate func(pion.ICECandidateInit)
	onState     func(pion.PeerConnectionState)
	onTrack     func(*pion.TrackRemote)
}

func newFakeConn(recvOnly bool) *fakeConn {
	return &fakeConn{recvOnly: recvOnly, kinds: make(map[pion.RTPCodecType]bool)}
}

func (c *fakeConn) record(op string) {
	c.mu.Lock()
	c.ops = append(c.ops, op)
	c.mu.Unlock()
}

func (c *fakeConn) opLog() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.ops...)
}

func (c *fakeConn) AcceptOffer(offer pion.SessionDescription) (pion.SessionDescription, error) {
	if c.acceptErr != nil {
		return pion.SessionDescription{}, c.acceptErr
	}
	c.record("accept-offer")
	return pion.SessionDescription{Type: pion.SDPTypeAnswer, SDP: "answer-sdp"}, nil
}

func (c *fakeConn) Offer() (pion.SessionDescription, error) {
	if c.offerErr != nil {
		return pion.SessionDescription{}, c.offerErr
	}
	c.record("offer")
	return pion.SessionDescription{Type: pion.SDPTypeOffer, SDP: "offer-sdp"}, nil
}

func (c *fakeConn) SetAnswer(answer pion.SessionDescription) error {
	if c.answerErr != nil {
		return c.answerErr
	}
	c.record("answer")
	return nil
}

func (c *fakeConn) AddCandidate(cand pion.ICECandidateInit) error {
	c.record("candidate:" + cand.Candidate)
	return nil
}

func (c *fakeConn) AddTrack(t pion.TrackLocal) error {
	c.record("add-track:" + t.Kind().String())
	c.mu.Lock()
	c.kinds[t.Kind()] = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) ReplaceTrack(kind pion.RTPCodecType, t pion.TrackLocal) (bool, error) {
	c.mu.Lock()
	present := c.kinds[kind]
	c.mu.Unlock()
	if !present {
		return false, nil
	}
	c.record("replace:" + kind.String())
	return true, nil
}

func (c *fakeConn) RemoveTracks() error {
	c.record("remove-tracks")
	c.mu.Lock()
	c.kinds = make(map[pion.RTPCodecType]bool)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) OnCandidate(fn func(pion.ICECandidateInit)) { c.onCandidate = fn }

func (c *fakeConn) OnStateChange(fn func(pion.PeerConnectionState)) { c.onState = fn }

func (c *fakeConn) OnRemoteTrack(fn func(*pion.TrackRemote)) { c.onTrack = fn }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fakeFactory hands out fakeConns and keeps them for inspection.
type fakeFactory struct {
	mu    sync.Mutex
	conns []*fakeConn
	err   error
}

func (f *fakeFactory) factory(recvOnly bool) (Conn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	conn := newFakeConn(recvOnly)
	f.conns = append(f.conns, conn)
	return conn, nil
}

func (f *fakeFactory) conn(i int) *fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conns[i]
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conns)
}

// sendRecorder collects outbound signaling messages.
type sendRecorder struct {
	mu   sync.Mutex
	msgs []*protocol.Message
}

func (r *sendRecorder) send(msg *protocol.Message) {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
}

func (r *sendRecorder) all() []*protocol.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*protocol.Message(nil), r.msgs...)
}

func (r *sendRecorder) last(t *testing.T) *protocol.Message {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.msgs)
	return r.msgs[len(r.msgs)-1]
}

type fakeTrack struct {
	id   string
	kind pion.RTPCodecType
}

func (t *fakeTrack) Bind(pion.TrackLocalContext) (pion.RTPCodecParameters, error) {
	return pion.RTPCodecParameters{}, nil
}

func (t *fakeTrack) Unbind(pion.TrackLocalContext) error { return nil }
func (t *fakeTrack) ID() string                          { return t.id }
func (t *fakeTrack) RID() string                         { return "" }
func (t *fakeTrack) StreamID() string                    { return "watch" }
func (t *fakeTrack) Kind() pion.RTPCodecType             { return t.kind }

func sdpJSON(t *testing.T, sdpType pion.SDPType, sdp string) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(pion.SessionDescription{Type: sdpType, SDP: sdp})
	require.NoError(t, err)
	return data
}

func candJSON(t *testing.T, candidate string) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(pion.ICECandidateInit{Candidate: candidate})
	require.NoError(t, err)
	return data
}

var errFactory = fmt.Errorf("no transport available")
