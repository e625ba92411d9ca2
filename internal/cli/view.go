package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/Hayato040404/Watch/internal/config"
	"github.com/Hayato040404/Watch/internal/media"
	"github.com/Hayato040404/Watch/internal/protocol"
	"github.com/Hayato040404/Watch/internal/session"
	"github.com/Hayato040404/Watch/internal/ui"
	"github.com/Hayato040404/Watch/internal/utils"
)

var viewFlags struct {
	connectionFlags
	output string
}

var viewCmd = &cobra.Command{
	Use:     "view <room-id>",
	Aliases: []string{"v"},
	Short:   "Watch the stream shared in a room",
	Long: `Watch the stream shared in a room and record it to disk, video as IVF
and audio as Ogg. Watching survives the owner leaving: the session waits
and reconnects when sharing resumes.

Examples:
  watch view demo
  watch view demo --output ./recordings
  watch view demo --domain watch.example.com`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runView(args[0])
	},
}

func init() {
	f := viewCmd.Flags()
	f.StringVar(&viewFlags.output, "output", ".", "directory for recorded streams")
	f.StringVar(&viewFlags.domain, "domain", "", "relay domain")
	f.StringVar(&viewFlags.stun, "stun", "", "STUN server URL")
	f.StringVar(&viewFlags.turn, "turn", "", "TURN server URL")
	f.StringVar(&viewFlags.turnUser, "turn-user", "", "TURN username")
	f.StringVar(&viewFlags.turnPass, "turn-pass", "", "TURN password")
	f.BoolVar(&viewFlags.relay, "relay", false, "force media through the TURN relay")
	rootCmd.AddCommand(viewCmd)
}

// viewSpinner serializes spinner handoffs between the event loop and the
// shutdown path.
type viewSpinner struct {
	mu      sync.Mutex
	current *ui.SimpleSpinner
}

func (v *viewSpinner) wait(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.current != nil {
		v.current.Stop()
	}
	v.current = ui.NewWaitingSpinner(message)
	v.current.Start()
}

func (v *viewSpinner) stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.current != nil {
		v.current.Stop()
		v.current = nil
	}
}

func runView(roomID string) error {
	cfg, err := config.Load(viewFlags.options())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(viewFlags.output, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
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

	sink := media.NewDiskSink(viewFlags.output, roomID)
	defer sink.Close()

	viewer := session.NewViewer(roomID, session.NewPionFactory(cfg), conn.Client.Send)
	defer viewer.Close()
	viewer.OnRemoteTrack(sink.HandleTrack)

	spinners := &viewSpinner{}
	defer spinners.stop()

	viewer.OnState(func(s session.State) {
		switch s {
		case session.StateConnected:
			spinners.stop()
			ui.PrintSuccess("Connected! Recording the stream...")
		case session.StateIdle:
			spinners.wait("Stream interrupted, waiting for the owner...")
		}
	})

	conn.JoinRoom(roomID, protocol.RoleViewer)
	spinners.wait("Waiting for the owner to start sharing...")

	start := time.Now()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	defer signal.Stop(sig)

	relayDown := make(chan struct{})
	go func() {
		defer close(relayDown)
		viewEventLoop(conn, viewer, spinners)
	}()

	select {
	case <-sig:
	case <-relayDown:
		spinners.stop()
		ui.PrintWarning("Relay connection lost")
	}

	spinners.stop()
	viewer.Close()
	if err := sink.Close(); err != nil {
		slog.Warn("close recordings", "err", err)
	}

	packets, lost := sink.Stats()
	ui.RenderSessionSummary(ui.SessionSummary{
		Role:        "viewer",
		RoomID:      roomID,
		Duration:    utils.FormatTimeDuration(time.Since(start)),
		Packets:     packets,
		PacketsLost: lost,
		Files:       sink.Files(),
	})
	return nil
}

// viewEventLoop feeds relay messages to the viewer machine until the
// connection drops. Answers and candidates must be applied in arrival order,
// so everything runs on this one goroutine.
func viewEventLoop(conn *ConnectionContext, viewer *session.Viewer, spinners *viewSpinner) {
	for msg := range conn.Handler.Events {
		switch msg.Type {
		case protocol.TypeOwnerReady:
			spinners.stop()
			if err := viewer.Start(); err != nil {
				slog.Warn("start session", "err", err)
				spinners.wait("Negotiation failed, waiting for the owner...")
			}
		case protocol.TypeOwnerAnswer:
			if err := viewer.HandleAnswer(msg.SDP); err != nil {
				slog.Warn("handle answer", "err", err)
			}
		case protocol.TypeICECandidate:
			if err := viewer.HandleCandidate(msg.Candidate); err != nil {
				slog.Warn("handle candidate", "err", err)
			}
		case protocol.TypeOwnerLeft:
			viewer.HandleOwnerLeft()
		}
	}
}
