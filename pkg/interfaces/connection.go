package interfaces

// Connection is the send/close capability the transport layer exposes for
// one live socket. Implementations must make WriteJSON safe for concurrent
// callers (single-writer discipline underneath).
type Connection interface {
	// WriteJSON serializes v and queues it for delivery.
	WriteJSON(v interface{}) error

	// Close tears down the transport and releases resources. Idempotent.
	Close() error

	// UserID returns the authenticated user's ID, or "" before auth.
	UserID() string

	// IsAuthenticated reports whether the auth envelope has been processed.
	IsAuthenticated() bool

	// Channels returns the membership snapshot taken at authentication.
	Channels() []string
}
