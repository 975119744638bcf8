package websocket

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"teamchat/internal/config"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking is delegated to the fronting HTTP layer.
		return true
	},
	HandshakeTimeout: 10 * time.Second,
}

// Dispatcher routes one inbound frame for a connection. Implemented by the
// protocol dispatcher; defined here so the handler does not depend on it.
type Dispatcher interface {
	HandleFrame(ctx context.Context, conn *Connection, frame []byte)
}

// Lifecycle handles connection teardown bookkeeping (registry removal,
// presence). Implemented by the hub.
type Lifecycle interface {
	Deregister(conn *Connection)
}

// Handler is the transport upgrade hook handed to the external HTTP
// layer. It owns the per-connection read pump; authentication happens in
// band through the auth envelope, not at upgrade time.
type Handler struct {
	dispatcher Dispatcher
	lifecycle  Lifecycle
	cfg        *config.WebSocketConfig
}

// NewHandler creates the upgrade hook.
func NewHandler(dispatcher Dispatcher, lifecycle Lifecycle, cfg *config.WebSocketConfig) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		lifecycle:  lifecycle,
		cfg:        cfg,
	}
}

// HandleWebSocket upgrades the request and hands the connection to the
// transport layer. The connection starts unauthenticated; it is promoted
// when the dispatcher processes a valid auth envelope.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket: upgrade failed: %v", err)
		return
	}

	conn := NewConnection(wsConn, h.cfg.BufferSize, h.cfg.WriteTimeout)

	go h.handleConnection(conn)
}

// handleConnection runs the read pump until the transport closes, then
// deregisters the connection.
func (h *Handler) handleConnection(conn *Connection) {
	defer func() {
		h.lifecycle.Deregister(conn)
		_ = conn.Close()
	}()

	if err := conn.conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout)); err != nil {
		log.Printf("websocket: failed to set read deadline: %v", err)
		return
	}

	// Probe acknowledgments arrive out of band from the envelope protocol.
	conn.conn.SetPongHandler(func(string) error {
		conn.SetAlive(true)
		return conn.conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	})

	for {
		messageType, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("websocket: read error for user %q: %v", conn.UserID(), err)
			}
			return
		}

		// Any inbound traffic proves the peer is alive.
		if err := conn.conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout)); err != nil {
			return
		}

		if messageType == websocket.TextMessage {
			h.dispatcher.HandleFrame(conn.Context(), conn, data)
		}
	}
}
