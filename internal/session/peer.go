package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/pion/rtcp"
	pion "github.com/pion/webrtc/v4"

	"github.com/Hayato040404/Watch/internal/config"
)

// keyframeInterval is how often a receiving connection asks the sender for a
// fresh keyframe. Decoders joining mid-stream need one before video starts.
const keyframeInterval = 3 * time.Second

// NewPionFactory builds transport handles backed by real peer connections
// using the configured ICE servers.
func NewPionFactory(cfg *config.Config) Factory {
	return func(recvOnly bool) (Conn, error) {
		pc, err := newPeerConnection(cfg)
		if err != nil {
			return nil, newError("create peer connection", err)
		}

		if recvOnly {
			kinds := []pion.RTPCodecType{pion.RTPCodecTypeVideo, pion.RTPCodecTypeAudio}
			for _, kind := range kinds {
				_, err := pc.AddTransceiverFromKind(kind, pion.RTPTransceiverInit{
					Direction: pion.RTPTransceiverDirectionRecvonly,
				})
				if err != nil {
					pc.Close()
					return nil, newError("add transceiver", err)
				}
			}
		}

		return &pionConn{pc: pc, done: make(chan struct{})}, nil
	}
}

// newPeerConnection centralizes ICE server configuration.
func newPeerConnection(cfg *config.Config) (*pion.PeerConnection, error) {
	iceServers := []pion.ICEServer{{URLs: cfg.STUNServers()}}

	turnServers := cfg.TURNServers()
	if turnServers != nil {
		username, password := cfg.TURNCredentials()
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	policy := pion.ICETransportPolicyAll
	if turnServers != nil && cfg.ForceRelay {
		policy = pion.ICETransportPolicyRelay
	}

	return pion.NewPeerConnection(pion.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	})
}

// pionConn adapts a pion peer connection to the Conn interface.
type pionConn struct {
	pc   *pion.PeerConnection
	done chan struct{}

	mu      sync.Mutex
	senders []*pion.RTPSender
	closed  bool
}

func (c *pionConn) AcceptOffer(offer pion.SessionDescription) (pion.SessionDescription, error) {
	if err := c.pc.SetRemoteDescription(offer); err != nil {
		return pion.SessionDescription{}, newError("set remote offer", err)
	}
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return pion.SessionDescription{}, newError("create answer", err)
	}
	if err := c.pc.SetLocalDescription(answer); err != nil {
		return pion.SessionDescription{}, newError("set local answer", err)
	}
	return answer, nil
}

func (c *pionConn) Offer() (pion.SessionDescription, error) {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return pion.SessionDescription{}, newError("create offer", err)
	}
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return pion.SessionDescription{}, newError("set local offer", err)
	}
	return offer, nil
}

func (c *pionConn) SetAnswer(answer pion.SessionDescription) error {
	if err := c.pc.SetRemoteDescription(answer); err != nil {
		return newError("set remote answer", err)
	}
	return nil
}

func (c *pionConn) AddCandidate(cand pion.ICECandidateInit) error {
	if err := c.pc.AddICECandidate(cand); err != nil {
		return newError("add ice candidate", err)
	}
	return nil
}

func (c *pionConn) AddTrack(t pion.TrackLocal) error {
	sender, err := c.pc.AddTrack(t)
	if err != nil {
		return newError("add track", err)
	}

	// Drain RTCP so interceptors keep running; the packets themselves are
	// handled by pion.
	go drainRTCP(sender)

	c.mu.Lock()
	c.senders = append(c.senders, sender)
	c.mu.Unlock()
	return nil
}

func (c *pionConn) ReplaceTrack(kind pion.RTPCodecType, t pion.TrackLocal) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, sender := range c.senders {
		current := sender.Track()
		if current == nil || current.Kind() != kind {
			continue
		}
		if err := sender.ReplaceTrack(t); err != nil {
			return false, newError("replace track", err)
		}
		return true, nil
	}
	return false, nil
}

func (c *pionConn) RemoveTracks() error {
	c.mu.Lock()
	senders := c.senders
	c.senders = nil
	c.mu.Unlock()

	var firstErr error
	for _, sender := range senders {
		if err := c.pc.RemoveTrack(sender); err != nil && firstErr == nil {
			firstErr = newError("remove track", err)
		}
	}
	return firstErr
}

func (c *pionConn) OnCandidate(fn func(pion.ICECandidateInit)) {
	c.pc.OnICECandidate(func(cand *pion.ICECandidate) {
		if cand == nil {
			return
		}
		fn(cand.ToJSON())
	})
}

func (c *pionConn) OnStateChange(fn func(pion.PeerConnectionState)) {
	c.pc.OnConnectionStateChange(fn)
}

func (c *pionConn) OnRemoteTrack(fn func(*pion.TrackRemote)) {
	c.pc.OnTrack(func(track *pion.TrackRemote, _ *pion.RTPReceiver) {
		if track.Kind() == pion.RTPCodecTypeVideo {
			go c.requestKeyframes(track)
		}
		fn(track)
	})
}

// requestKeyframes sends periodic picture loss indications for a remote video
// track so the sender refreshes the stream.
func (c *pionConn) requestKeyframes(track *pion.TrackRemote) {
	ticker := time.NewTicker(keyframeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pli := &rtcp.PictureLossIndication{MediaSSRC: uint32(track.SSRC())}
			if err := c.pc.WriteRTCP([]rtcp.Packet{pli}); err != nil {
				slog.Debug("keyframe request stopped", "err", err)
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *pionConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)
	return c.pc.Close()
}

func drainRTCP(sender *pion.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}
