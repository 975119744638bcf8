// Package hub owns the connection lifecycle: authentication, registry
// bookkeeping, presence transitions and liveness supervision.
package hub

import (
	"context"
	"log"
	"sync"
	"time"

	"teamchat/internal/broadcast"
	"teamchat/internal/membership"
	"teamchat/internal/websocket"
	"teamchat/pkg/interfaces"
	"teamchat/pkg/types"
)

// Hub coordinates connection lifecycle across the registry, the store and
// the broadcaster. It is an explicit service with Start/Stop so tests can
// run isolated instances.
type Hub struct {
	registry    *websocket.Registry
	resolver    *membership.Resolver
	store       interfaces.Store
	broadcaster *broadcast.Engine
	supervisor  *Supervisor

	running bool
	mu      sync.RWMutex
}

// NewHub creates a hub. pingInterval drives the liveness supervisor;
// pingTimeout bounds each probe write.
func NewHub(registry *websocket.Registry, resolver *membership.Resolver, store interfaces.Store, broadcaster *broadcast.Engine, pingInterval, pingTimeout time.Duration) *Hub {
	h := &Hub{
		registry:    registry,
		resolver:    resolver,
		store:       store,
		broadcaster: broadcaster,
	}
	h.supervisor = NewSupervisor(registry, h, pingInterval, pingTimeout)
	return h
}

// Start begins liveness supervision.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return ErrHubAlreadyRunning
	}
	h.running = true

	h.supervisor.Start(ctx)
	return nil
}

// Stop halts supervision and closes every registered connection.
func (h *Hub) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running {
		return ErrHubNotRunning
	}
	h.running = false

	h.supervisor.Stop()

	for _, conn := range h.registry.Connections() {
		_ = conn.Close()
		h.registry.Unregister(conn)
	}

	return nil
}

// Authenticate promotes a connection for userID: snapshots the user's
// channel memberships, replaces any prior registry entry (closing the
// superseded transport), persists presence and announces it. Store
// failures are logged and swallowed; the in-memory registration stands.
func (h *Hub) Authenticate(ctx context.Context, conn *websocket.Connection, userID string) error {
	if !types.IsValidUserID(userID) {
		return types.ErrInvalidUserID
	}

	channels, err := h.resolver.UserChannels(ctx, userID)
	if err != nil {
		log.Printf("hub: failed to resolve channels for %s: %v", userID, err)
		channels = nil
	}

	conn.SetUser(userID, channels)

	if err := h.registry.Register(conn); err != nil {
		return err
	}

	if err := h.store.SetUserStatus(ctx, userID, types.StatusOnline); err != nil {
		log.Printf("hub: failed to persist online status for %s: %v", userID, err)
	}

	h.broadcaster.Global(types.NewUserStatus(userID, types.StatusOnline))

	if err := conn.WriteJSON(types.NewAuthSuccess(userID)); err != nil {
		log.Printf("hub: failed to confirm auth for %s: %v", userID, err)
	}

	log.Printf("hub: user %s authenticated, %d channel(s)", userID, len(channels))
	return nil
}

// Deregister removes a connection from the registry. Presence flips to
// offline only when the registry entry was actually removed, so a
// superseded connection tearing down late never marks its replacement's
// user offline. Safe to call from the read pump and the supervisor.
func (h *Hub) Deregister(conn *websocket.Connection) {
	if !conn.IsAuthenticated() {
		return
	}

	if !h.registry.Unregister(conn) {
		return
	}

	userID := conn.UserID()

	if err := h.store.SetUserStatus(context.Background(), userID, types.StatusOffline); err != nil {
		log.Printf("hub: failed to persist offline status for %s: %v", userID, err)
	}

	h.broadcaster.Global(types.NewUserStatus(userID, types.StatusOffline))

	log.Printf("hub: user %s deregistered", userID)
}

// Stats returns lifecycle counters for the stats endpoint.
func (h *Hub) Stats() map[string]int {
	h.mu.RLock()
	running := 0
	if h.running {
		running = 1
	}
	h.mu.RUnlock()

	stats := h.registry.Stats()
	stats["running"] = running
	return stats
}
