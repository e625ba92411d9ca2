// Package server wires the relay hub into HTTP routes.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Hayato040404/Watch/internal/relay"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,

	// Signaling carries no credentials and no media; any origin may connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS returns an http.HandlerFunc that upgrades requests to WebSocket
// and hands the connection to the hub.
func ServeWS(hub *relay.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
			return
		}

		client := relay.NewClient(hub, conn)
		hub.Register <- client

		go client.WritePump()
		go client.ReadPump()
	}
}

// HealthHandler answers liveness probes.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Signaling relay is healthy."))
}

// NewMux returns the relay's full route table.
func NewMux(hub *relay.Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", HealthHandler)
	mux.HandleFunc("/ws", ServeWS(hub))
	return mux
}
