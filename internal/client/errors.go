package client

import "errors"

// User-visible session errors.
var (
	ErrReconnectExhausted = errors.New("connection lost: reconnect attempts exhausted")
	ErrSendFailed         = errors.New("message could not be sent")
	ErrNotConnected       = errors.New("not connected")
	ErrSessionClosed      = errors.New("session is closed")
)
