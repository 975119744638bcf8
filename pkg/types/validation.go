package types

import (
	"encoding/json"
	"regexp"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Maximum content size for a single message payload.
const maxContentBytes = 65536

// IsValidUserID checks if a user ID meets format requirements.
func IsValidUserID(userID string) bool {
	if len(userID) < 1 || len(userID) > 50 {
		return false
	}
	return idRegex.MatchString(userID)
}

// IsValidChannelID checks if a channel ID meets format requirements.
func IsValidChannelID(channelID string) bool {
	if len(channelID) < 1 || len(channelID) > 50 {
		return false
	}
	return idRegex.MatchString(channelID)
}

// IsValidStatus checks if a presence status is one of the allowed values.
func IsValidStatus(status string) bool {
	return status == StatusOnline || status == StatusOffline
}

// DecodeEnvelope parses a raw frame into an envelope. A frame that is not
// a JSON object with a string type field is malformed; a well-formed frame
// with an unrecognized kind decodes fine and is rejected later by Validate.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, ErrMalformedEnvelope
	}
	if env.Type == "" {
		return nil, ErrMalformedEnvelope
	}
	return &env, nil
}

// Validate checks that the envelope carries the fields its kind requires.
// The switch is exhaustive over the declared kinds; an unlisted kind
// returns ErrUnknownKind so callers can ignore it without closing the
// connection.
func (e *Envelope) Validate() error {
	switch e.Type {
	case KindAuth, KindAuthSuccess:
		if !IsValidUserID(e.UserID) {
			return ErrInvalidUserID
		}
	case KindMessage:
		if !IsValidChannelID(e.ChannelID) {
			return ErrInvalidChannelID
		}
		if e.Content == "" || len(e.Content) > maxContentBytes {
			return ErrInvalidContent
		}
	case KindThreadMessage:
		if !IsValidChannelID(e.ChannelID) {
			return ErrInvalidChannelID
		}
		if e.ParentID == "" {
			return ErrMissingParent
		}
		if e.Content == "" || len(e.Content) > maxContentBytes {
			return ErrInvalidContent
		}
	case KindTyping:
		if !IsValidChannelID(e.ChannelID) {
			return ErrInvalidChannelID
		}
		if !IsValidUserID(e.UserID) {
			return ErrInvalidUserID
		}
	case KindUserStatus:
		if !IsValidUserID(e.UserID) {
			return ErrInvalidUserID
		}
		if !IsValidStatus(e.Status) {
			return ErrInvalidStatus
		}
	case KindError:
		if e.Message == "" {
			return ErrInvalidContent
		}
	default:
		return ErrUnknownKind
	}
	return nil
}
