// Package media moves frames between disk and WebRTC tracks. A headless CLI
// has no capture devices or renderer, so sharing reads pre-encoded files
// (IVF video, Ogg/Opus audio) and watching writes the received streams back
// to disk.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	pion "github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
)

// oggPageDuration is the page interval Opus encoders produce.
const oggPageDuration = 20 * time.Millisecond

// Source produces local tracks and feeds them until stopped.
type Source interface {
	// Tracks returns the outgoing tracks, ready to attach to sessions.
	Tracks() []pion.TrackLocal

	// Stream pushes frames into the tracks until the context is cancelled
	// or a read fails. Files loop back to the start at EOF.
	Stream(ctx context.Context) error
}

// FileSource streams an IVF video file and an optional Ogg/Opus audio file.
type FileSource struct {
	label      string
	videoPath  string
	audioPath  string
	videoTrack *pion.TrackLocalStaticSample
	audioTrack *pion.TrackLocalStaticSample
	frameWait  time.Duration
}

// NewFileSource opens the given files and builds tracks for them. label names
// the stream (screen, camera) and becomes part of the track IDs. audioPath
// may be empty for video-only sharing.
func NewFileSource(label, videoPath, audioPath string) (*FileSource, error) {
	s := &FileSource{label: label, videoPath: videoPath, audioPath: audioPath}

	mimeType, frameWait, err := probeIVF(videoPath)
	if err != nil {
		return nil, err
	}
	s.frameWait = frameWait

	s.videoTrack, err = pion.NewTrackLocalStaticSample(
		pion.RTPCodecCapability{MimeType: mimeType},
		label+"-video", "watch",
	)
	if err != nil {
		return nil, fmt.Errorf("create video track: %w", err)
	}

	if audioPath != "" {
		s.audioTrack, err = pion.NewTrackLocalStaticSample(
			pion.RTPCodecCapability{MimeType: pion.MimeTypeOpus},
			label+"-audio", "watch",
		)
		if err != nil {
			return nil, fmt.Errorf("create audio track: %w", err)
		}
	}

	return s, nil
}

// Label returns the stream name this source was created with.
func (s *FileSource) Label() string {
	return s.label
}

func (s *FileSource) Tracks() []pion.TrackLocal {
	tracks := []pion.TrackLocal{s.videoTrack}
	if s.audioTrack != nil {
		tracks = append(tracks, s.audioTrack)
	}
	return tracks
}

// Stream runs until the context is cancelled. Video and audio are paced
// independently; the first failure stops both.
func (s *FileSource) Stream(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 2)

	go func() { errc <- s.streamVideo(ctx) }()
	if s.audioTrack != nil {
		go func() { errc <- s.streamAudio(ctx) }()
	}

	err := <-errc
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (s *FileSource) streamVideo(ctx context.Context) error {
	ticker := time.NewTicker(s.frameWait)
	defer ticker.Stop()

	file, err := os.Open(s.videoPath)
	if err != nil {
		return fmt.Errorf("open video: %w", err)
	}
	defer file.Close()

	reader, _, err := ivfreader.NewWith(file)
	if err != nil {
		return fmt.Errorf("read ivf header: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		frame, _, err := reader.ParseNextFrame()
		if errors.Is(err, io.EOF) {
			// Loop the file for as long as sharing runs.
			if _, err := file.Seek(0, io.SeekStart); err != nil {
				return fmt.Errorf("rewind video: %w", err)
			}
			if reader, _, err = ivfreader.NewWith(file); err != nil {
				return fmt.Errorf("reread ivf header: %w", err)
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("read video frame: %w", err)
		}

		if err := s.videoTrack.WriteSample(media.Sample{Data: frame, Duration: s.frameWait}); err != nil {
			return fmt.Errorf("write video sample: %w", err)
		}
	}
}

func (s *FileSource) streamAudio(ctx context.Context) error {
	ticker := time.NewTicker(oggPageDuration)
	defer ticker.Stop()

	file, err := os.Open(s.audioPath)
	if err != nil {
		return fmt.Errorf("open audio: %w", err)
	}
	defer file.Close()

	reader, _, err := oggreader.NewWith(file)
	if err != nil {
		return fmt.Errorf("read ogg header: %w", err)
	}

	var lastGranule uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		page, header, err := reader.ParseNextPage()
		if errors.Is(err, io.EOF) {
			if _, err := file.Seek(0, io.SeekStart); err != nil {
				return fmt.Errorf("rewind audio: %w", err)
			}
			if reader, _, err = oggreader.NewWith(file); err != nil {
				return fmt.Errorf("reread ogg header: %w", err)
			}
			lastGranule = 0
			continue
		}
		if err != nil {
			return fmt.Errorf("read audio page: %w", err)
		}

		// Page duration comes from the granule delta at Opus' fixed 48kHz
		// clock.
		sampleCount := header.GranulePosition - lastGranule
		lastGranule = header.GranulePosition
		duration := time.Duration(float64(sampleCount) / 48000 * float64(time.Second))

		if err := s.audioTrack.WriteSample(media.Sample{Data: page, Duration: duration}); err != nil {
			return fmt.Errorf("write audio sample: %w", err)
		}
	}
}

// probeIVF reads the file header to learn the codec and frame pacing.
func probeIVF(path string) (mimeType string, frameWait time.Duration, err error) {
	file, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open video: %w", err)
	}
	defer file.Close()

	_, header, err := ivfreader.NewWith(file)
	if err != nil {
		return "", 0, fmt.Errorf("read ivf header: %w", err)
	}

	switch header.FourCC {
	case "VP80":
		mimeType = pion.MimeTypeVP8
	case "VP90":
		mimeType = pion.MimeTypeVP9
	case "AV01":
		mimeType = pion.MimeTypeAV1
	default:
		return "", 0, fmt.Errorf("unsupported ivf codec %q", header.FourCC)
	}

	if header.TimebaseNumerator == 0 || header.TimebaseDenominator == 0 {
		slog.Debug("ivf header missing timebase, assuming 30fps", "path", path)
		return mimeType, 33 * time.Millisecond, nil
	}

	frameWait = time.Duration(
		float64(header.TimebaseNumerator) / float64(header.TimebaseDenominator) * float64(time.Second),
	)
	return mimeType, frameWait, nil
}
