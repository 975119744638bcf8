// Package client implements the client side of the transport: a session
// manager owning the single connection and its reconnect state machine,
// and a multiplexer fanning inbound envelopes out to view handlers.
package client

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"teamchat/pkg/types"
)

// State is the session manager's connection state.
type State int

// Session states. Reconnecting is entered from any non-terminal state on
// transport loss; a clean normal closure is terminal.
const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateAuthenticated
	StateClosing
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateAuthenticated:
		return "authenticated"
	case StateClosing:
		return "closing"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Reconnect policy defaults: delay = min(baseDelay * 2^attempt, maxDelay),
// capped at maxAttempts tries before surfacing ErrReconnectExhausted.
const (
	defaultBaseDelay      = time.Second
	defaultMaxDelay       = 10 * time.Second
	defaultMaxAttempts    = 5
	defaultSendRetryDelay = time.Second
)

// SessionManager owns the client-side transport: it dials, authenticates,
// reads inbound envelopes into the multiplexer and runs the reconnect
// state machine. One instance per logged-in session; views share it and
// must never close it on teardown.
type SessionManager struct {
	url    string
	userID string
	mux    *Multiplexer
	dialer *websocket.Dialer

	// onError receives user-visible failures (reconnect exhaustion, send
	// failure). May be nil.
	onError func(error)

	baseDelay      time.Duration
	maxDelay       time.Duration
	maxAttempts    int
	sendRetryDelay time.Duration

	mu      sync.Mutex
	state   State
	conn    *websocket.Conn
	attempt int
	timer   *time.Timer
	closed  bool

	// writeMu serializes writes onto the single transport; Send may be
	// called concurrently by multiple views.
	writeMu sync.Mutex
}

// NewSessionManager creates a session manager for userID against url.
func NewSessionManager(url, userID string, mux *Multiplexer, onError func(error)) *SessionManager {
	return &SessionManager{
		url:            url,
		userID:         userID,
		mux:            mux,
		dialer:         websocket.DefaultDialer,
		onError:        onError,
		baseDelay:      defaultBaseDelay,
		maxDelay:       defaultMaxDelay,
		maxAttempts:    defaultMaxAttempts,
		sendRetryDelay: defaultSendRetryDelay,
		state:          StateDisconnected,
	}
}

// State returns the current session state.
func (m *SessionManager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect dials the server and starts the read loop. It sends the auth
// envelope immediately on open; auth_success promotes the state to
// Authenticated. Safe to call when already connected (no-op) and on
// visibility regain.
func (m *SessionManager) Connect() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrSessionClosed
	}
	switch m.state {
	case StateConnecting, StateOpen, StateAuthenticated:
		m.mu.Unlock()
		return nil
	}
	m.state = StateConnecting
	m.mu.Unlock()

	conn, _, err := m.dialer.Dial(m.url, nil)
	if err != nil {
		m.mu.Lock()
		if !m.closed {
			m.scheduleReconnectLocked()
		}
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = conn.Close()
		return ErrSessionClosed
	}
	m.conn = conn
	m.state = StateOpen
	m.attempt = 0
	m.mu.Unlock()

	go m.readLoop(conn)

	if err := m.write(conn, &types.Envelope{Type: types.KindAuth, UserID: m.userID}); err != nil {
		log.Printf("client: auth send failed: %v", err)
	}

	return nil
}

// Send delivers an envelope over the transport. If the transport is not
// open it triggers a connect attempt and retries once after a fixed
// delay; if that also fails the error is surfaced through the error
// callback. Best-effort single retry, no queue.
func (m *SessionManager) Send(env *types.Envelope) error {
	if err := m.trySend(env); err == nil {
		return nil
	}

	_ = m.Connect()
	time.Sleep(m.sendRetryDelay)

	if err := m.trySend(env); err != nil {
		m.reportError(ErrSendFailed)
		return ErrSendFailed
	}
	return nil
}

// Close is the clean, intentional shutdown: it cancels any pending
// reconnect timer, sends a normal closure frame and is terminal.
func (m *SessionManager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.state = StateClosing
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()

	if conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = conn.Close()
	}

	m.mu.Lock()
	m.state = StateDisconnected
	m.mu.Unlock()
	return nil
}

// readLoop reads envelopes until the transport drops, then decides
// between terminal shutdown and reconnection.
func (m *SessionManager) readLoop(conn *websocket.Conn) {
	for {
		var env types.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			m.handleTransportLoss(conn, err)
			return
		}

		if env.Type == types.KindAuthSuccess {
			m.mu.Lock()
			if m.conn == conn && m.state == StateOpen {
				m.state = StateAuthenticated
			}
			m.mu.Unlock()
			continue
		}

		m.mux.Dispatch(&env)
	}
}

// handleTransportLoss enters Reconnecting unless the closure was a clean,
// intentional shutdown.
func (m *SessionManager) handleTransportLoss(conn *websocket.Conn, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != conn {
		// A newer connection has taken over; this loop is stale.
		return
	}
	m.conn = nil

	if m.closed || m.state == StateClosing {
		m.state = StateDisconnected
		return
	}

	if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		// Clean server-side shutdown is terminal.
		m.state = StateDisconnected
		return
	}

	log.Printf("client: transport lost: %v", err)
	m.scheduleReconnectLocked()
}

// scheduleReconnectLocked arms the backoff timer for the next attempt or
// gives up after maxAttempts failures. Caller holds m.mu.
func (m *SessionManager) scheduleReconnectLocked() {
	if m.attempt >= m.maxAttempts {
		m.state = StateDisconnected
		go m.reportError(ErrReconnectExhausted)
		return
	}

	m.state = StateReconnecting
	delay := m.backoff(m.attempt)
	m.attempt++

	m.timer = time.AfterFunc(delay, func() {
		m.mu.Lock()
		if m.closed || m.state != StateReconnecting {
			m.mu.Unlock()
			return
		}
		m.state = StateDisconnected
		m.mu.Unlock()

		_ = m.Connect()
	})
}

// backoff returns min(baseDelay * 2^attempt, maxDelay).
func (m *SessionManager) backoff(attempt int) time.Duration {
	delay := m.baseDelay << uint(attempt)
	if delay > m.maxDelay {
		delay = m.maxDelay
	}
	return delay
}

func (m *SessionManager) trySend(env *types.Envelope) error {
	m.mu.Lock()
	conn := m.conn
	state := m.state
	m.mu.Unlock()

	if conn == nil || (state != StateOpen && state != StateAuthenticated) {
		return ErrNotConnected
	}
	return m.write(conn, env)
}

func (m *SessionManager) write(conn *websocket.Conn, env *types.Envelope) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return conn.WriteJSON(env)
}

func (m *SessionManager) reportError(err error) {
	if m.onError != nil {
		m.onError(err)
	}
}
