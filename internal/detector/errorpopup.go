package detector

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kagebridge/gravitybridge/internal/cdp"
	"github.com/kagebridge/gravitybridge/internal/scripts"
)

const errorPopupCooldown = 10 * time.Second

// ErrorSignal is the payload an ErrorPopupDetector hands to its callback.
type ErrorSignal struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// ErrorPopupDetector watches for the assistant's error/alert dialog.
type ErrorPopupDetector struct {
	*base
	eval Evaluator
}

// NewErrorPopupDetector polls every interval (default 2s) with a fixed 10s
// cooldown between fires, matching the spec's anti-flood rule for error
// toasts.
func NewErrorPopupDetector(eval Evaluator, interval time.Duration, onFire func(ErrorSignal)) *ErrorPopupDetector {
	d := &ErrorPopupDetector{eval: eval}
	poll := func(ctx context.Context) (string, json.RawMessage, error) {
		raw, err := eval.Call(ctx, "Runtime.evaluate", map[string]interface{}{
			"expression":    scripts.Source(scripts.ErrorPopupProbe),
			"returnByValue": true,
		}, cdp.CallOptions{AutoContext: true})
		if err != nil {
			return "", nil, err
		}
		var wrapped struct {
			Result struct {
				Value json.RawMessage `json:"value"`
			} `json:"result"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return "", nil, err
		}
		if wrapped.Result.Value == nil || string(wrapped.Result.Value) == "null" {
			return "", nil, nil
		}
		var sig ErrorSignal
		if err := json.Unmarshal(wrapped.Result.Value, &sig); err != nil {
			return "", nil, err
		}
		body := sig.Body
		if len(body) > 100 {
			body = body[:100]
		}
		return sig.Title + "::" + body, wrapped.Result.Value, nil
	}
	wrapped := func(payload json.RawMessage) {
		if onFire == nil {
			return
		}
		var sig ErrorSignal
		if err := json.Unmarshal(payload, &sig); err == nil {
			onFire(sig)
		}
	}
	d.base = newBase(interval, errorPopupCooldown, poll, wrapped, nil)
	return d
}

// ClickDismiss dismisses the popup without retrying.
func (d *ErrorPopupDetector) ClickDismiss(ctx context.Context) (bool, error) {
	return evaluateClick(ctx, d.eval, scripts.Source(scripts.ErrorDismissClick))
}

// ClickRetry retries the failed operation.
func (d *ErrorPopupDetector) ClickRetry(ctx context.Context) (bool, error) {
	return evaluateClick(ctx, d.eval, scripts.Source(scripts.ErrorRetryClick))
}

// ClickCopyDebugInfo triggers the popup's "copy debug info" action, which
// populates the clipboard for a subsequent ReadClipboard call.
func (d *ErrorPopupDetector) ClickCopyDebugInfo(ctx context.Context) (bool, error) {
	return evaluateClick(ctx, d.eval, scripts.Source(scripts.ErrorCopyDebugClick))
}

// ReadClipboard reads back whatever ClickCopyDebugInfo placed on the
// clipboard. A denied clipboard permission returns ("", nil), not an
// error — the caller is expected to carry on without retrying.
func (d *ErrorPopupDetector) ReadClipboard(ctx context.Context) (string, error) {
	raw, err := d.eval.Call(ctx, "Runtime.evaluate", map[string]interface{}{
		"expression":    scripts.Source(scripts.ReadClipboard),
		"returnByValue": true,
		"awaitPromise":  true,
	}, cdp.CallOptions{AutoContext: true})
	if err != nil {
		return "", err
	}
	var wrapped struct {
		Result struct {
			Value *string `json:"value"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return "", err
	}
	if wrapped.Result.Value == nil {
		return "", nil
	}
	return *wrapped.Result.Value, nil
}
