package ws

import (
	"net/http"

	"nhooyr.io/websocket"

	"github.com/vedran77/hive/internal/identity"
)

// ServeWS returns an HTTP handler that upgrades to WebSocket.
// Auth is done via ?token=xxx query param (WebSocket can't send headers).
func ServeWS(hub *Hub, provider identity.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenStr := r.URL.Query().Get("token")
		if tokenStr == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		id, err := provider.Verify(r.Context(), tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true, // Allow any origin (dev mode)
		})
		if err != nil {
			hub.log.WithError(err).Warn("ws: accept error")
			return
		}

		client := NewClient(hub, conn, *id)
		if err := hub.add(client); err != nil {
			client.shutdown()
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		}
		if err := client.watchActivity(); err != nil {
			client.log.WithError(err).Warn("ws: watching activity")
		}

		// Start read/write pumps in goroutines
		go client.WritePump()
		go client.ReadPump()
	}
}
