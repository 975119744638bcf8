// Package broadcast fans envelopes out to recipient connections. Delivery
// is best-effort and non-blocking: a send failure or absent connection is
// skipped, never retried or queued, so each recipient sees an envelope at
// most once per call and a dead recipient cannot stall the rest.
package broadcast

import (
	"context"
	"log"

	"teamchat/internal/membership"
	"teamchat/internal/websocket"
	"teamchat/pkg/types"
)

// Engine resolves recipients and pushes envelopes to their connections.
type Engine struct {
	registry *websocket.Registry
	resolver *membership.Resolver
}

// NewEngine creates a broadcast engine.
func NewEngine(registry *websocket.Registry, resolver *membership.Resolver) *Engine {
	return &Engine{
		registry: registry,
		resolver: resolver,
	}
}

// ToChannel delivers env to every connected member of the channel except
// excludeUserID (pass "" to exclude nobody). Membership is re-resolved
// from the store on every call.
func (e *Engine) ToChannel(ctx context.Context, channelID string, env *types.Envelope, excludeUserID string) error {
	members, err := e.resolver.ChannelMembers(ctx, channelID)
	if err != nil {
		return err
	}

	for _, userID := range members {
		if userID == excludeUserID {
			continue
		}
		conn, ok := e.registry.Get(userID)
		if !ok {
			continue
		}
		if err := conn.WriteJSON(env); err != nil {
			log.Printf("broadcast: failed to deliver %s to %s: %v", env.Type, userID, err)
		}
	}

	return nil
}

// Global delivers env to every registered connection. Used for presence.
func (e *Engine) Global(env *types.Envelope) {
	for _, conn := range e.registry.Connections() {
		if err := conn.WriteJSON(env); err != nil {
			log.Printf("broadcast: failed to deliver %s to %s: %v", env.Type, conn.UserID(), err)
		}
	}
}
