package session

import "errors"

// Sentinel errors matching the error-kind table in the bridge design notes.
// Callers should use errors.Is rather than string matching.
var (
	ErrBusy             = errors.New("session: prompt already in flight")
	ErrAuthRejected     = errors.New("session: caller not allowed")
	ErrActivationFailed = errors.New("session: target chat could not be re-entered")
	ErrInvalidPayload   = errors.New("session: dom script returned an unexpected shape")
)
