package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"

	"streakoverlay/internal/overlay"
	"streakoverlay/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Overlay clients are local OBS browser sources with no Origin header
		return true
	},
}

// HandleOverlayWebSocket upgrades an overlay client connection, registers it
// with the hub, and replays the current state to it
func HandleOverlayWebSocket(w http.ResponseWriter, r *http.Request, hub *overlay.Hub, state *overlay.StateManager) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.ServerLogger.Error("Failed to upgrade overlay connection: %v", err)
		return
	}

	session, err := hub.AddSession(conn)
	if err != nil {
		logger.ServerLogger.Warn("Rejecting overlay connection: %v", err)
		conn.Close()
		return
	}

	state.Attach(session)
}
