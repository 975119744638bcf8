package types

import (
	"time"
)

// Kind discriminates envelope variants on the wire.
type Kind string

// Envelope kinds exchanged over the persistent connection.
const (
	KindAuth          Kind = "auth"
	KindAuthSuccess   Kind = "auth_success"
	KindMessage       Kind = "message"
	KindThreadMessage Kind = "thread_message"
	KindTyping        Kind = "typing"
	KindUserStatus    Kind = "userStatus"
	KindError         Kind = "error"
)

// Presence states carried by userStatus envelopes.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Envelope is one discrete message unit exchanged over the persistent
// connection, tagged by Kind. It is a flattened tagged union: only the
// fields relevant to the Kind are populated, the rest stay at their zero
// value and are omitted from JSON.
type Envelope struct {
	Type      Kind       `json:"type"`
	UserID    string     `json:"userId,omitempty"`
	ChannelID string     `json:"channelId,omitempty"`
	ParentID  string     `json:"parentId,omitempty"`
	Content   string     `json:"content,omitempty"`
	AuthorID  string     `json:"authorId,omitempty"`
	ID        string     `json:"id,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	Status    string     `json:"status,omitempty"`
	Message   string     `json:"message,omitempty"`
}

// Message is a persisted chat message. Thread replies reference their
// parent through the nullable ParentID; adjacency is resolved through
// store queries on demand, never through embedded object references.
type Message struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channelId"`
	AuthorID  string    `json:"authorId"`
	ParentID  *string   `json:"parentId,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsReply reports whether the message belongs to a thread.
func (m *Message) IsReply() bool {
	return m.ParentID != nil && *m.ParentID != ""
}

// Envelope converts a stored message into its broadcast envelope. Replies
// are tagged thread_message and carry both the parent and channel ids so
// thread views and channel reply counters work off the same event.
func (m *Message) Envelope() *Envelope {
	created := m.CreatedAt
	env := &Envelope{
		Type:      KindMessage,
		ID:        m.ID,
		ChannelID: m.ChannelID,
		AuthorID:  m.AuthorID,
		Content:   m.Content,
		CreatedAt: &created,
	}
	if m.IsReply() {
		env.Type = KindThreadMessage
		env.ParentID = *m.ParentID
	}
	return env
}

// NewAuthSuccess builds the server reply confirming authentication.
func NewAuthSuccess(userID string) *Envelope {
	return &Envelope{Type: KindAuthSuccess, UserID: userID}
}

// NewUserStatus builds a presence envelope.
func NewUserStatus(userID, status string) *Envelope {
	return &Envelope{Type: KindUserStatus, UserID: userID, Status: status}
}

// NewTyping builds a typing indicator envelope.
func NewTyping(channelID, userID string) *Envelope {
	return &Envelope{Type: KindTyping, ChannelID: channelID, UserID: userID}
}

// NewError builds an error envelope for the originating connection.
func NewError(message string) *Envelope {
	return &Envelope{Type: KindError, Message: message}
}
