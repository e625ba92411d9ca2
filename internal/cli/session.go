package cli

import (
	"fmt"
	"time"

	"github.com/Hayato040404/Watch/internal/config"
	"github.com/Hayato040404/Watch/internal/protocol"
	"github.com/Hayato040404/Watch/internal/signaling"
)

// helloTimeout bounds the wait for the relay's greeting after connect.
const helloTimeout = 10 * time.Second

// ConnectionContext bundles the live relay connection with its message
// handler and the resolved configuration.
type ConnectionContext struct {
	Client  *signaling.Client
	Handler *signaling.Handler
	Config  *config.Config

	// ID is the relay-assigned participant ID.
	ID string
}

// NewConnectionContext connects to the relay and waits for the greeting.
func NewConnectionContext(cfg *config.Config) (*ConnectionContext, error) {
	client := signaling.NewClient(cfg.WebSocketURL())
	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("connect to relay: %w", err)
	}

	handler := signaling.NewHandler(client)
	go handler.Start()

	select {
	case id := <-handler.Hello:
		return &ConnectionContext{
			Client:  client,
			Handler: handler,
			Config:  cfg,
			ID:      id,
		}, nil
	case <-time.After(helloTimeout):
		client.Close()
		return nil, fmt.Errorf("relay did not greet within %s", helloTimeout)
	}
}

// JoinRoom announces this connection as a room participant.
func (c *ConnectionContext) JoinRoom(roomID string, role protocol.Role) {
	c.Client.Send(&protocol.Message{
		Type:   protocol.TypeJoinRoom,
		RoomID: roomID,
		Role:   role,
	})
}

func (c *ConnectionContext) Close() {
	if c.Client != nil {
		c.Client.Close()
	}
}

// connectionFlags are shared by share and view.
type connectionFlags struct {
	domain   string
	stun     string
	turn     string
	turnUser string
	turnPass string
	relay    bool
}

func (f *connectionFlags) options() config.Options {
	return config.Options{
		Domain:     f.domain,
		STUNServer: f.stun,
		TURNServer: f.turn,
		TURNUser:   f.turnUser,
		TURNPass:   f.turnPass,
		ForceRelay: f.relay,
	}
}
