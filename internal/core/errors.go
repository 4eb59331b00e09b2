package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotInRoom      = "not_in_room"
	ErrCodeChannelInUse   = "channel_in_use"
	ErrCodeRateLimited    = "rate_limited"
	ErrCodeUnauthorized   = "unauthorized"
	ErrCodeInvalidMessage = "invalid_message"
)

var (
	// ErrHubStopped is returned by hub calls made after Run has returned.
	ErrHubStopped = errors.New("hub stopped")
	// ErrConnectionNotFound is returned by Resolve for unknown ids.
	ErrConnectionNotFound = errors.New("connection not found")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
