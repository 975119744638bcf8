package types

import "errors"

// Envelope validation errors. ErrUnknownKind marks envelopes that decode
// but carry a kind this build does not understand; callers drop those
// instead of failing the connection.
var (
	ErrMalformedEnvelope = errors.New("malformed envelope")
	ErrUnknownKind       = errors.New("unknown envelope kind")
	ErrInvalidUserID     = errors.New("user ID must be 1-50 characters, alphanumeric + underscore/hyphen only")
	ErrInvalidChannelID  = errors.New("channel ID must be 1-50 characters, alphanumeric + underscore/hyphen only")
	ErrInvalidContent    = errors.New("message content must be 1 byte to 64KB")
	ErrMissingParent     = errors.New("thread message missing parent ID")
	ErrInvalidStatus     = errors.New("status must be online or offline")
)
