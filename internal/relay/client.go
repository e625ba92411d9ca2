package relay

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Hayato040404/Watch/internal/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. SDP payloads stay well below this.
	maxMessageSize = 64 * 1024

	// Outbound queue per connection. A full queue means the recipient is not
	// draining; further messages to it are dropped, not buffered.
	sendQueueSize = 256
)

// Client wraps one WebSocket connection to the relay.
//
// ID is assigned by the hub and is unique for the lifetime of the
// connection. room and role are the participant's current membership and are
// read and written only by the hub goroutine.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	ID   string
	room string
	role protocol.Role

	send chan *protocol.Message
}

// NewClient wraps an accepted WebSocket connection. The caller must register
// it with the hub and start both pumps.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan *protocol.Message, sendQueueSize),
	}
}

// trySend enqueues a message without blocking. Delivery is best effort: if
// the client's queue is full the message is dropped, matching the relay's
// at-most-once forwarding contract.
func (c *Client) trySend(msg *protocol.Message) {
	select {
	case c.send <- msg:
	default:
		slog.Debug("send queue full, dropping message", "client", c.ID, "type", msg.Type)
	}
}

// ReadPump pumps messages from the WebSocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine, which is the
// single reader for the connection.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg protocol.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("read error", "client", c.ID, "err", err)
			}
			return
		}
		c.hub.Inbound <- inbound{client: c, msg: &msg}
	}
}

// WritePump pumps messages from the hub to the WebSocket connection and
// sends periodic pings. It is the single writer for the connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
