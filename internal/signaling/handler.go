package signaling

import (
	"github.com/Hayato040404/Watch/internal/protocol"
)

// Handler splits the hello greeting off the stream and forwards everything
// else on a single ordered channel.
//
// Session machines depend on arrival order across message types (an
// ice-candidate must not overtake the owner-answer it follows), so all
// session-relevant traffic stays on one channel instead of per-type fan-out.
type Handler struct {
	client *Client

	// Hello receives the server-assigned participant ID, once.
	Hello chan string

	// Events receives every other relay message in arrival order. The
	// channel is closed when the connection drops.
	Events chan *protocol.Message
}

// NewHandler creates a handler for the client's inbound stream.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client: client,
		Hello:  make(chan string, 1),
		Events: make(chan *protocol.Message, 32),
	}
}

// Start consumes the client's incoming stream until it closes. Run it in its
// own goroutine.
func (h *Handler) Start() {
	defer close(h.Events)

	for msg := range h.client.Incoming() {
		if msg.Type == protocol.TypeHello {
			select {
			case h.Hello <- msg.ID:
			default:
			}
			continue
		}
		h.Events <- msg
	}
}
