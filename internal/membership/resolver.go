// Package membership resolves channel membership against the store. It is
// deliberately uncached: broadcasts re-resolve the authoritative member
// list on every fan-out, so the recipient set tracks current membership
// regardless of what connections snapshotted at authentication time.
package membership

import (
	"context"

	"teamchat/pkg/interfaces"
)

// Resolver answers membership queries from the store.
type Resolver struct {
	store interfaces.Store
}

// NewResolver creates a store-backed membership resolver.
func NewResolver(store interfaces.Store) *Resolver {
	return &Resolver{store: store}
}

// ChannelMembers returns the current member user IDs of a channel.
func (r *Resolver) ChannelMembers(ctx context.Context, channelID string) ([]string, error) {
	return r.store.GetChannelMembers(ctx, channelID)
}

// UserChannels returns the channel IDs a user belongs to.
func (r *Resolver) UserChannels(ctx context.Context, userID string) ([]string, error) {
	return r.store.GetUserChannels(ctx, userID)
}
