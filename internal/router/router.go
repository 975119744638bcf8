// Package router is the protocol dispatcher: it parses inbound envelopes
// per connection and routes each kind to the correct server-side behavior.
package router

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"teamchat/internal/broadcast"
	"teamchat/internal/hub"
	"teamchat/internal/websocket"
	"teamchat/pkg/interfaces"
	"teamchat/pkg/types"
)

// Router routes inbound frames. Malformed frames get an error envelope
// back on the originating connection only; they never terminate it.
// Frames that require authentication are silently dropped when the
// connection has none.
type Router struct {
	hub         *hub.Hub
	store       interfaces.Store
	broadcaster *broadcast.Engine
	rateLimiter *RateLimiter
}

// NewRouter creates a protocol dispatcher.
func NewRouter(h *hub.Hub, store interfaces.Store, broadcaster *broadcast.Engine) *Router {
	return &Router{
		hub:         h,
		store:       store,
		broadcaster: broadcaster,
		rateLimiter: NewRateLimiter(),
	}
}

// HandleFrame processes one inbound frame from a connection.
func (r *Router) HandleFrame(ctx context.Context, conn *websocket.Connection, frame []byte) {
	env, err := types.DecodeEnvelope(frame)
	if err != nil {
		r.replyError(conn, "malformed envelope")
		return
	}

	if err := env.Validate(); err != nil {
		if errors.Is(err, types.ErrUnknownKind) {
			// Unknown kinds are ignored, not fatal.
			return
		}
		r.replyError(conn, err.Error())
		return
	}

	switch env.Type {
	case types.KindAuth:
		if err := r.hub.Authenticate(ctx, conn, env.UserID); err != nil {
			log.Printf("router: authentication failed: %v", err)
			r.replyError(conn, "authentication failed")
		}

	case types.KindMessage:
		r.handlePost(ctx, conn, env, "")

	case types.KindThreadMessage:
		r.handlePost(ctx, conn, env, env.ParentID)

	case types.KindTyping:
		if !conn.IsAuthenticated() {
			return
		}
		// The broadcast carries the authenticated identity, never the
		// client-supplied userId field.
		userID := conn.UserID()
		typing := types.NewTyping(env.ChannelID, userID)
		if err := r.broadcaster.ToChannel(ctx, env.ChannelID, typing, userID); err != nil {
			log.Printf("router: typing broadcast failed for channel %s: %v", env.ChannelID, err)
		}

	case types.KindAuthSuccess, types.KindUserStatus, types.KindError:
		// Server-to-client kinds arriving inbound are dropped.
	}
}

// handlePost persists a channel or thread post, then broadcasts the
// stored, id-assigned result to the channel excluding the author. The
// author's own views append locally; they do not rely on the echo.
func (r *Router) handlePost(ctx context.Context, conn *websocket.Connection, env *types.Envelope, parentID string) {
	if !conn.IsAuthenticated() {
		return
	}

	authorID := conn.UserID()

	if !r.rateLimiter.Allow(authorID) {
		r.replyError(conn, ErrRateLimitExceeded.Error())
		return
	}

	message := &types.Message{
		ID:        uuid.New().String(),
		ChannelID: env.ChannelID,
		AuthorID:  authorID,
		Content:   env.Content,
		CreatedAt: time.Now().UTC(),
	}
	if parentID != "" {
		message.ParentID = &parentID
	}

	// Persist-then-broadcast: the stored message is the one fanned out.
	if err := r.store.InsertMessage(ctx, message); err != nil {
		log.Printf("router: failed to persist message from %s: %v", authorID, err)
		r.replyError(conn, "message could not be saved")
		return
	}

	if err := r.broadcaster.ToChannel(ctx, message.ChannelID, message.Envelope(), authorID); err != nil {
		log.Printf("router: broadcast failed for channel %s: %v", message.ChannelID, err)
	}
}

// replyError sends an error envelope to the originating connection only.
func (r *Router) replyError(conn *websocket.Connection, message string) {
	if err := conn.WriteJSON(types.NewError(message)); err != nil {
		log.Printf("router: failed to send error envelope: %v", err)
	}
}
