package interfaces

import (
	"context"

	"teamchat/pkg/types"
)

// Store is the persistence boundary consumed by the transport layer.
// The transport never reaches into tables directly; everything it needs
// from storage flows through these operations.
type Store interface {
	// GetChannelMembers returns the current member user IDs of a channel.
	// Broadcasts call this on every fan-out so the recipient set tracks
	// authoritative membership, not whatever was cached at auth time.
	GetChannelMembers(ctx context.Context, channelID string) ([]string, error)

	// GetUserChannels returns the channel IDs a user belongs to. Used once
	// at authentication time to snapshot the connection's subscriptions.
	GetUserChannels(ctx context.Context, userID string) ([]string, error)

	// SetUserStatus persists a presence transition. Callers treat failures
	// as best-effort: presence degrades, connections stay up.
	SetUserStatus(ctx context.Context, userID, status string) error

	// InsertMessage persists a message that already carries a server-assigned
	// ID and timestamp.
	InsertMessage(ctx context.Context, message *types.Message) error

	// GetChannelMessages returns top-level messages of a channel in
	// chronological order, up to limit (0 means no limit).
	GetChannelMessages(ctx context.Context, channelID string, limit int) ([]*types.Message, error)

	// GetThreadReplies returns the replies under a parent message in
	// chronological order.
	GetThreadReplies(ctx context.Context, parentID string) ([]*types.Message, error)

	// HealthCheck verifies connectivity and basic read access.
	HealthCheck(ctx context.Context) error

	// Close flushes pending writes and releases the store.
	Close() error
}
