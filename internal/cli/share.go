package cli

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Hayato040404/Watch/internal/config"
	"github.com/Hayato040404/Watch/internal/media"
	"github.com/Hayato040404/Watch/internal/protocol"
	"github.com/Hayato040404/Watch/internal/session"
	"github.com/Hayato040404/Watch/internal/ui"
	"github.com/Hayato040404/Watch/internal/utils"
)

var shareFlags struct {
	connectionFlags
	video  string
	audio  string
	stream string
	room   string
}

var shareCmd = &cobra.Command{
	Use:     "share",
	Aliases: []string{"s"},
	Short:   "Share a stream into a room",
	Long: `Share a pre-encoded stream into a room. Viewers join with the room link
or by running "watch view <room-id>".

Examples:
  watch share --video screen.ivf
  watch share --video cam.ivf --audio mic.ogg --stream camera
  watch share --video screen.ivf --room demo --domain watch.example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShare()
	},
}

func init() {
	f := shareCmd.Flags()
	f.StringVar(&shareFlags.video, "video", "", "IVF video file to stream (VP8, VP9 or AV1)")
	f.StringVar(&shareFlags.audio, "audio", "", "Ogg/Opus audio file to stream")
	f.StringVar(&shareFlags.stream, "stream", "screen", "stream label: screen or camera")
	f.StringVar(&shareFlags.room, "room", "", "room ID (random when omitted)")
	f.StringVar(&shareFlags.domain, "domain", "", "relay domain")
	f.StringVar(&shareFlags.stun, "stun", "", "STUN server URL")
	f.StringVar(&shareFlags.turn, "turn", "", "TURN server URL")
	f.StringVar(&shareFlags.turnUser, "turn-user", "", "TURN username")
	f.StringVar(&shareFlags.turnPass, "turn-pass", "", "TURN password")
	f.BoolVar(&shareFlags.relay, "relay", false, "force media through the TURN relay")
	shareCmd.MarkFlagRequired("video")
	rootCmd.AddCommand(shareCmd)
}

func runShare() error {
	if shareFlags.stream != "screen" && shareFlags.stream != "camera" {
		return fmt.Errorf("unknown stream %q, want screen or camera", shareFlags.stream)
	}

	cfg, err := config.Load(shareFlags.options())
	if err != nil {
		return err
	}

	source, err := media.NewFileSource(shareFlags.stream, shareFlags.video, shareFlags.audio)
	if err != nil {
		return err
	}

	sp := ui.NewConnectionSpinner("Connecting to relay...")
	sp.Start()
	conn, err := NewConnectionContext(cfg)
	if err != nil {
		sp.Error("Could not reach the relay")
		return err
	}
	defer conn.Close()
	sp.Stop()

	roomID := shareFlags.room
	if roomID == "" {
		roomID = uuid.NewString()[:8]
	}
	conn.JoinRoom(roomID, protocol.RoleOwner)

	ui.NewRoomInfo(roomID, cfg.RoomLink(roomID)).Render()

	owner := session.NewOwner(roomID, session.NewPionFactory(cfg), conn.Client.Send)
	defer owner.Close()
	owner.SetMedia(source.Tracks())

	streamCtx, cancelStream := context.WithCancel(context.Background())
	defer cancelStream()
	go func() {
		if err := source.Stream(streamCtx); err != nil {
			slog.Error("media stream stopped", "err", err)
		}
	}()

	liveUI := ui.NewShareUI(shareFlags.stream)

	var peakMu sync.Mutex
	peak := 0
	owner.OnChange(func() {
		viewers := owner.Viewers()
		peakMu.Lock()
		if len(viewers) > peak {
			peak = len(viewers)
		}
		peakMu.Unlock()

		liveUI.UpdateViewers(viewerItems(viewers))
		if len(viewers) == 0 {
			liveUI.SetState("Waiting for viewers...")
		} else {
			liveUI.SetState(fmt.Sprintf("Streaming to %d viewer(s)", len(viewers)))
		}
	})

	start := time.Now()
	liveUI.Start()

	relayDown := make(chan struct{})
	go func() {
		defer close(relayDown)
		shareEventLoop(conn, owner)
	}()

	select {
	case <-liveUI.Done():
	case <-relayDown:
		liveUI.Stop()
		ui.PrintWarning("Relay connection lost")
	}

	cancelStream()
	owner.Close()

	peakMu.Lock()
	peakViewers := peak
	peakMu.Unlock()

	ui.RenderSessionSummary(ui.SessionSummary{
		Role:        "owner",
		RoomID:      roomID,
		Duration:    utils.FormatTimeDuration(time.Since(start)),
		PeakViewers: peakViewers,
	})
	return nil
}

// shareEventLoop feeds relay messages to the owner machine until the
// connection drops. One loop, one goroutine: offers and candidates must be
// applied in arrival order.
func shareEventLoop(conn *ConnectionContext, owner *session.Owner) {
	for msg := range conn.Handler.Events {
		switch msg.Type {
		case protocol.TypeViewerOffer:
			if err := owner.HandleOffer(msg.From, msg.SDP); err != nil {
				slog.Warn("handle offer", "viewer", msg.From, "err", err)
			}
		case protocol.TypeICECandidate:
			if err := owner.HandleCandidate(msg.From, msg.Candidate); err != nil {
				slog.Warn("handle candidate", "viewer", msg.From, "err", err)
			}
		}
	}
}

func viewerItems(viewers []session.ViewerInfo) []ui.ViewerTableItem {
	sort.Slice(viewers, func(i, j int) bool {
		if viewers[i].Since.Equal(viewers[j].Since) {
			return viewers[i].ID < viewers[j].ID
		}
		return viewers[i].Since.Before(viewers[j].Since)
	})

	items := make([]ui.ViewerTableItem, len(viewers))
	for i, v := range viewers {
		items[i] = ui.ViewerTableItem{ID: v.ID, State: v.State.String(), Since: v.Since}
	}
	return items
}
