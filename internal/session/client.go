package session

import (
	"context"
	"encoding/json"

	"github.com/kagebridge/gravitybridge/internal/cdp"
)

// CdpClient is the subset of *cdp.Client a SessionBridge needs: issuing
// protocol calls and subscribing to connection lifecycle events. Defined
// locally, matching *cdp.Client's methods exactly, so the real client
// satisfies it with no adapter and fakes can drive it in tests.
type CdpClient interface {
	Call(ctx context.Context, method string, params map[string]interface{}, opts cdp.CallOptions) (json.RawMessage, error)
	Subscribe(event string, handler func(json.RawMessage)) cdp.SubscriptionHandle
	Unsubscribe(handle cdp.SubscriptionHandle)
}
