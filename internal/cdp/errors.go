package cdp

import (
	"errors"
	"fmt"
)

// Sentinel errors matching the error-kind table in the bridge design notes.
// Callers should use errors.Is/As rather than string matching.
var (
	ErrNoTarget          = errors.New("cdp: no target found")
	ErrNoContext         = errors.New("cdp: no execution context available")
	ErrHandshakeFailed   = errors.New("cdp: websocket handshake failed")
	ErrDomainEnableFailed = errors.New("cdp: domain enable failed")
	ErrDisconnected      = errors.New("cdp: disconnected")
	ErrTimeout           = errors.New("cdp: call timed out")
	ErrClosed            = errors.New("cdp: client closed")
)

// RemoteError wraps a CDP protocol-level error object ({code, message}).
type RemoteError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("cdp: remote error %d: %s", e.Code, e.Message)
}
