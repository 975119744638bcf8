package websocket

import (
	"log"
	"sync"
)

// Registry holds the live set of authenticated connections, at most one
// per user. It is an explicit service object so tests can run isolated
// instances; all operations take the registry lock.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]*Connection
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[string]*Connection),
	}
}

// Register stores an authenticated connection under its user ID. A second
// registration for the same user replaces the entry; the superseded
// connection's transport is closed before the slot is overwritten.
func (r *Registry) Register(conn *Connection) error {
	if conn == nil {
		return ErrNilConnection
	}
	if !conn.IsAuthenticated() {
		return ErrConnectionNotAuthenticated
	}

	userID := conn.UserID()

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.connections[userID]; ok && existing != conn {
		if err := existing.Close(); err != nil {
			log.Printf("registry: failed to close superseded connection for %s: %v", userID, err)
		}
	}

	r.connections[userID] = conn
	return nil
}

// Unregister removes a connection and reports whether an entry was
// actually removed. The removal is instance-checked: a superseded
// connection tearing down late cannot evict its replacement.
func (r *Registry) Unregister(conn *Connection) bool {
	if conn == nil {
		return false
	}

	userID := conn.UserID()

	r.mu.Lock()
	defer r.mu.Unlock()

	registered, ok := r.connections[userID]
	if !ok || registered != conn {
		return false
	}

	delete(r.connections, userID)
	return true
}

// Get returns the current connection for a user.
func (r *Registry) Get(userID string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.connections[userID]
	return conn, ok
}

// Connections returns a snapshot of all registered connections, so
// callers can iterate without holding the registry lock.
func (r *Registry) Connections() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connections := make([]*Connection, 0, len(r.connections))
	for _, conn := range r.connections {
		connections = append(connections, conn)
	}
	return connections
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

// Stats returns registry counters for the stats endpoint.
func (r *Registry) Stats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return map[string]int{
		"connections": len(r.connections),
	}
}
