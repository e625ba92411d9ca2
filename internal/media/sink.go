package media

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/pion/rtp"
	pion "github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media/ivfwriter"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
)

// Sink consumes remote tracks.
type Sink interface {
	// HandleTrack starts consuming a remote track. Safe to call from the
	// transport's track callback.
	HandleTrack(track *pion.TrackRemote)

	// Close flushes and closes everything the sink opened.
	Close() error
}

// DiskSink writes remote tracks to files: IVF for video, Ogg for audio.
type DiskSink struct {
	dir    string
	prefix string

	mu      sync.Mutex
	writers []io.Closer
	files   []string
	closed  bool

	packets atomic.Uint64
	lost    atomic.Uint64
}

// NewDiskSink writes received streams into dir, naming files with prefix.
func NewDiskSink(dir, prefix string) *DiskSink {
	return &DiskSink{dir: dir, prefix: prefix}
}

// HandleTrack spawns a goroutine that drains the track to disk. Tracks with
// codecs that have no container writer are drained and discarded so RTCP
// feedback keeps flowing.
func (s *DiskSink) HandleTrack(track *pion.TrackRemote) {
	switch track.Kind() {
	case pion.RTPCodecTypeVideo:
		go s.saveVideo(track)
	case pion.RTPCodecTypeAudio:
		go s.saveAudio(track)
	}
}

func (s *DiskSink) saveVideo(track *pion.TrackRemote) {
	mimeType := track.Codec().MimeType
	if mimeType != pion.MimeTypeVP8 && mimeType != pion.MimeTypeAV1 {
		slog.Warn("no container writer for video codec, discarding", "codec", mimeType)
		s.discard(track)
		return
	}

	path := filepath.Join(s.dir, fmt.Sprintf("%s-%s.ivf", s.prefix, track.ID()))
	writer, err := ivfwriter.New(path, ivfwriter.WithCodec(mimeType))
	if err != nil {
		slog.Error("open video file", "path", path, "err", err)
		s.discard(track)
		return
	}
	if !s.register(writer, path) {
		writer.Close()
		return
	}
	slog.Info("recording video", "path", path, "codec", mimeType)

	var seq sequenceTracker
	for {
		packet, _, err := track.ReadRTP()
		if err != nil {
			return
		}
		s.observe(packet, &seq)
		if err := writer.WriteRTP(packet); err != nil {
			slog.Error("write video packet", "err", err)
			return
		}
	}
}

func (s *DiskSink) saveAudio(track *pion.TrackRemote) {
	path := filepath.Join(s.dir, fmt.Sprintf("%s-%s.ogg", s.prefix, track.ID()))
	writer, err := oggwriter.New(path, 48000, 2)
	if err != nil {
		slog.Error("open audio file", "path", path, "err", err)
		s.discard(track)
		return
	}
	if !s.register(writer, path) {
		writer.Close()
		return
	}
	slog.Info("recording audio", "path", path)

	var seq sequenceTracker
	for {
		packet, _, err := track.ReadRTP()
		if err != nil {
			return
		}
		s.observe(packet, &seq)
		if err := writer.WriteRTP(packet); err != nil {
			slog.Error("write audio packet", "err", err)
			return
		}
	}
}

// sequenceTracker spots gaps in one track's RTP sequence numbers. Sequence
// numbers wrap at 16 bits; a huge forward jump is treated as reordering, not
// loss.
type sequenceTracker struct {
	last    uint16
	started bool
}

// observe updates the sink's packet counters from one received packet.
func (s *DiskSink) observe(packet *rtp.Packet, seq *sequenceTracker) {
	s.packets.Add(1)

	if seq.started {
		delta := packet.SequenceNumber - seq.last
		if delta > 1 && delta < 1<<15 {
			s.lost.Add(uint64(delta - 1))
		}
	}
	seq.last = packet.SequenceNumber
	seq.started = true
}

// Stats returns how many RTP packets arrived and how many sequence gaps were
// seen across all tracks.
func (s *DiskSink) Stats() (packets, lost uint64) {
	return s.packets.Load(), s.lost.Load()
}

// discard drains a track without storing it.
func (s *DiskSink) discard(track *pion.TrackRemote) {
	for {
		if _, _, err := track.ReadRTP(); err != nil {
			return
		}
	}
}

// register tracks an open writer for Close. Reports false when the sink has
// already been closed.
func (s *DiskSink) register(w io.Closer, path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.writers = append(s.writers, w)
	s.files = append(s.files, path)
	return true
}

// Files returns the paths written so far.
func (s *DiskSink) Files() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.files...)
}

// Close flushes every open writer.
func (s *DiskSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	writers := s.writers
	s.mu.Unlock()

	var errs []error
	for _, w := range writers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
