// Package websocket streams session expiry events to connected UI clients.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hauke92/mindgate/internal/domain"
	"github.com/hauke92/mindgate/internal/metrics"
)

// ExpiryEvent is the wire payload pushed when a session ends by expiry.
// CountdownSeconds tells the client how long to show the countdown dialog
// before forcing the decision.
type ExpiryEvent struct {
	Type             string         `json:"type"`
	Session          domain.Session `json:"session"`
	CountdownSeconds int            `json:"countdown_seconds"`
}

// ExpirySource is the slice of the session layer the hub consumes.
type ExpirySource interface {
	SubscribeExpirations() (<-chan domain.Session, func())
}

// --- Command types ---

type hubCmd interface{ hubCmd() }

type cmdRegister struct {
	conn  *websocket.Conn
	errCh chan error
}

func (cmdRegister) hubCmd() {}

type cmdUnregister struct {
	conn *websocket.Conn
}

func (cmdUnregister) hubCmd() {}

type cmdBroadcast struct {
	data []byte
}

func (cmdBroadcast) hubCmd() {}

type cmdClientCount struct {
	replyCh chan int
}

func (cmdClientCount) hubCmd() {}

type cmdStop struct{}

func (cmdStop) hubCmd() {}

// --- Per-connection writer ---

type clientWriter struct {
	conn   *websocket.Conn
	sendCh chan []byte
	done   chan struct{}
}

func newClientWriter(conn *websocket.Conn) *clientWriter {
	cw := &clientWriter{
		conn:   conn,
		sendCh: make(chan []byte, 16),
		done:   make(chan struct{}),
	}
	go cw.run()
	return cw
}

func (cw *clientWriter) run() {
	for {
		select {
		case msg, ok := <-cw.sendCh:
			if !ok {
				return
			}
			cw.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := cw.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-cw.done:
			return
		}
	}
}

func (cw *clientWriter) stop() {
	close(cw.done)
	cw.conn.Close()
}

// --- Hub ---

// errHubStopped is returned to registrations that arrive after Stop.
var errHubStopped = fmt.Errorf("expiry hub stopped")

// Hub fans expiry events out to every connected client. All state is owned
// by the run goroutine; callers only talk over the command channel. The
// stopped channel lets callers that arrive after shutdown fail instead of
// blocking on a command nobody will ever process.
type Hub struct {
	cmdCh      chan hubCmd
	stopped    chan struct{}
	clients    map[*websocket.Conn]*clientWriter
	maxClients int

	expiries ExpirySource
	settings domain.SettingsSource
}

func NewHub(expiries ExpirySource, settings domain.SettingsSource, maxClients int) *Hub {
	hub := &Hub{
		cmdCh:      make(chan hubCmd, 256),
		stopped:    make(chan struct{}),
		clients:    make(map[*websocket.Conn]*clientWriter),
		maxClients: maxClients,
		expiries:   expiries,
		settings:   settings,
	}
	go hub.run()
	return hub
}

// Run consumes the expiry stream and broadcasts events until ctx is
// cancelled or the stream closes.
func (h *Hub) Run(ctx context.Context) {
	events, unsubscribe := h.expiries.SubscribeExpirations()
	defer unsubscribe()

	for {
		select {
		case s, ok := <-events:
			if !ok {
				slog.Info("Expiry stream closed, stopping websocket hub feed")
				return
			}
			h.publish(ctx, s)
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) publish(ctx context.Context, s domain.Session) {
	countdown := 0
	settings, err := h.settings.Settings(ctx)
	if err != nil {
		slog.Warn("Failed to read settings for expiry event, countdown defaults to 0", "error", err)
	} else {
		countdown = settings.SessionExpiryCountdownSeconds
	}

	event := ExpiryEvent{
		Type:             "session_expired",
		Session:          s,
		CountdownSeconds: countdown,
	}
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal expiry event", "session_id", s.ID, "error", err)
		return
	}

	select {
	case h.cmdCh <- cmdBroadcast{data: data}:
	case <-h.stopped:
	}
}

// Register adds a client connection. Fails when the client cap is reached
// or the hub has already been stopped.
func (h *Hub) Register(conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	select {
	case h.cmdCh <- cmdRegister{conn: conn, errCh: errCh}:
	case <-h.stopped:
		return errHubStopped
	}
	select {
	case err := <-errCh:
		return err
	case <-h.stopped:
		return errHubStopped
	}
}

// Unregister removes a client connection and stops its writer.
func (h *Hub) Unregister(conn *websocket.Conn) {
	select {
	case h.cmdCh <- cmdUnregister{conn: conn}:
	case <-h.stopped:
	}
}

// ClientCount reports the number of connected clients, zero after Stop.
func (h *Hub) ClientCount() int {
	replyCh := make(chan int, 1)
	select {
	case h.cmdCh <- cmdClientCount{replyCh: replyCh}:
	case <-h.stopped:
		return 0
	}
	select {
	case n := <-replyCh:
		return n
	case <-h.stopped:
		return 0
	}
}

// Stop disconnects all clients and terminates the hub goroutine. Blocks
// until the goroutine has drained; safe to call more than once.
func (h *Hub) Stop() {
	select {
	case h.cmdCh <- cmdStop{}:
	case <-h.stopped:
		return
	}
	<-h.stopped
}

func (h *Hub) run() {
	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case cmdRegister:
			h.handleRegister(c)
		case cmdUnregister:
			h.handleUnregister(c.conn)
		case cmdBroadcast:
			h.handleBroadcast(c.data)
		case cmdClientCount:
			c.replyCh <- len(h.clients)
		case cmdStop:
			for conn := range h.clients {
				h.handleUnregister(conn)
			}
			close(h.stopped)
			return
		}
	}
}

func (h *Hub) handleRegister(c cmdRegister) {
	if h.maxClients > 0 && len(h.clients) >= h.maxClients {
		slog.Warn("Rejecting expiry stream client, max clients reached", "max_clients", h.maxClients)
		c.conn.Close()
		c.errCh <- fmt.Errorf("max clients (%d) reached", h.maxClients)
		return
	}

	h.clients[c.conn] = newClientWriter(c.conn)
	metrics.StreamConnectedClients.Set(float64(len(h.clients)))
	slog.Info("Expiry stream client connected", "total_clients", len(h.clients))
	c.errCh <- nil
}

func (h *Hub) handleUnregister(conn *websocket.Conn) {
	cw, exists := h.clients[conn]
	if !exists {
		return
	}

	cw.stop()
	delete(h.clients, conn)
	metrics.StreamConnectedClients.Set(float64(len(h.clients)))
	slog.Info("Expiry stream client disconnected", "remaining_clients", len(h.clients))
}

func (h *Hub) handleBroadcast(data []byte) {
	var slow []*websocket.Conn
	for conn, cw := range h.clients {
		select {
		case cw.sendCh <- data:
			// sent successfully
		default:
			// client is slow, mark for removal
			slow = append(slow, conn)
		}
	}

	for _, conn := range slow {
		slog.Warn("Disconnecting slow expiry stream client")
		metrics.StreamSlowClientsEvicted.Inc()
		h.handleUnregister(conn)
	}
}
