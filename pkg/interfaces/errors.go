package interfaces

import "errors"

// Common boundary errors shared across components.
var (
	ErrChannelNotFound = errors.New("channel not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrStoreClosed     = errors.New("store is closed")
)
