package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// handleExpiryStream upgrades the connection and hands it to the hub. The
// read loop only serves to notice the client going away; clients never send
// payloads on this stream.
func (s *Server) handleExpiryStream(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		slog.Info("WebSocket upgrade failed", "error", err, "remote", c.RealIP())
		return nil
	}

	if err := s.hub.Register(conn); err != nil {
		slog.Warn("Rejecting expiry stream client", "error", err, "remote", c.RealIP())
		msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too many clients")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = conn.Close()
		return nil
	}

	go func() {
		defer s.hub.Unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	return nil
}

// CheckWebSocketOrigin restricts upgrades to same-host requests when the
// daemon is exposed beyond localhost.
func CheckWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}
