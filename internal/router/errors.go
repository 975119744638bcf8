package router

import "errors"

// Dispatcher errors surfaced to clients as error envelopes.
var (
	ErrRateLimitExceeded = errors.New("rate limit exceeded: 100 messages per minute")
)
