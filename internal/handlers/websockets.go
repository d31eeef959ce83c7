package handlers

import (
	"net/http"
	"time"

	"detectserver/internal/logger"
	"detectserver/internal/services"
	wshub "detectserver/internal/services/websocket"

	"github.com/gorilla/websocket"
)

var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ViewWebsocketHandler streams overlaid frames and detections to a viewer.
func ViewWebsocketHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}
		connection.SetReadLimit(512)
		connection.SetReadDeadline(time.Now().Add(wshub.PongWait))
		connection.SetPongHandler(func(appData string) error {
			connection.SetReadDeadline(time.Now().Add(wshub.PongWait))
			return nil
		})

		hub := manager.Hub()
		hub.Register(connection)
		defer hub.Unregister(connection)

		// viewer nic nie wysyla, hub wysyla pingi a pong przedluza deadline
		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				logger.Debug("Viewer disconnected: %v", err)
				return
			}
			connection.SetReadDeadline(time.Now().Add(wshub.PongWait))
		}
	}
}
