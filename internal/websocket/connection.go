package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"teamchat/pkg/interfaces"
)

var _ interfaces.Connection = (*Connection)(nil)

// Connection wraps one live transport session. All outbound writes are
// serialized through a single writer goroutine; the liveness flag is reset
// by each heartbeat probe and set again by the pong acknowledgment.
type Connection struct {
	conn         *websocket.Conn
	writeCh      chan []byte
	writeTimeout time.Duration

	userID        string
	channels      []string
	authenticated bool
	alive         bool

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	mu        sync.RWMutex
}

// NewConnection creates a connection wrapper and starts its writer
// goroutine. bufferSize is the outbound queue depth; writeTimeout bounds
// both the enqueue wait and the socket write so one slow recipient cannot
// stall a broadcast.
func NewConnection(conn *websocket.Conn, bufferSize int, writeTimeout time.Duration) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		conn:         conn,
		writeCh:      make(chan []byte, bufferSize),
		writeTimeout: writeTimeout,
		alive:        true,
		ctx:          ctx,
		cancel:       cancel,
	}

	go c.writeLoop()

	return c
}

// writeLoop is the single writer for the underlying socket. The channel
// is never closed; senders observe shutdown through the context, and the
// queue is reclaimed with the connection.
func (c *Connection) writeLoop() {
	for {
		select {
		case data := <-c.writeCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// WriteJSON serializes v and queues it for delivery. Safe for concurrent
// callers. Returns ErrConnectionClosed once the connection is torn down
// and ErrWriteTimeout when the outbound queue stays full past the write
// timeout.
func (c *Connection) WriteJSON(v interface{}) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	data, err := json.Marshal(v)
	if err != nil {
		return ErrInvalidJSON
	}

	select {
	case c.writeCh <- data:
		return nil
	case <-time.After(c.writeTimeout):
		return ErrWriteTimeout
	case <-c.ctx.Done():
		return ErrConnectionClosed
	}
}

// Ping sends a liveness probe as a control frame, bypassing the writer
// queue so probes get through even when the queue is backed up.
func (c *Connection) Ping(timeout time.Duration) error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(timeout))
}

// Close tears down the transport. Idempotent.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

// Context is cancelled when the connection closes.
func (c *Connection) Context() context.Context {
	return c.ctx
}

// SetUser promotes the connection to authenticated, recording the user ID
// and the membership snapshot resolved at authentication time. The
// snapshot is a cache; broadcasts re-resolve membership from the store.
func (c *Connection) SetUser(userID string, channels []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.userID = userID
	c.channels = channels
	c.authenticated = true
}

// UserID returns the authenticated user's ID, or "" before auth.
func (c *Connection) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// IsAuthenticated reports whether an auth envelope has been processed.
func (c *Connection) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authenticated
}

// Channels returns a copy of the membership snapshot taken at auth time.
func (c *Connection) Channels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	channels := make([]string, len(c.channels))
	copy(channels, c.channels)
	return channels
}

// Alive reports whether the connection acknowledged the last probe.
func (c *Connection) Alive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.alive
}

// SetAlive records probe state: the supervisor clears it when probing,
// the pong handler sets it on acknowledgment.
func (c *Connection) SetAlive(alive bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alive = alive
}
