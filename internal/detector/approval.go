package detector

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kagebridge/gravitybridge/internal/cdp"
	"github.com/kagebridge/gravitybridge/internal/scripts"
)

// Signal is the payload a dialog-style detector (approval, planning, error
// popup) hands to its callback: a title/description pair lifted from the
// probe script's return shape.
type Signal struct {
	ButtonText  string `json:"buttonText"`
	Description string `json:"description"`
}

// ApprovalDetector watches for the "allow this action" dialog that
// precedes a tool call.
type ApprovalDetector struct {
	*base
	eval Evaluator
}

// NewApprovalDetector builds a detector polling every interval (default
// 2s when zero) against eval's execution context.
func NewApprovalDetector(eval Evaluator, interval time.Duration, onFire func(Signal)) *ApprovalDetector {
	d := &ApprovalDetector{eval: eval}
	poll := func(ctx context.Context) (string, json.RawMessage, error) {
		return probeSignal(ctx, eval, scripts.ApprovalProbe)
	}
	wrapped := func(payload json.RawMessage) {
		if onFire == nil {
			return
		}
		var sig Signal
		if err := json.Unmarshal(payload, &sig); err == nil {
			onFire(sig)
		}
	}
	d.base = newBase(interval, 0, poll, wrapped, nil)
	return d
}

// ApproveButton clicks the "Allow" affordance.
func (d *ApprovalDetector) ApproveButton(ctx context.Context) (bool, error) {
	return evaluateClick(ctx, d.eval, scripts.Source(scripts.ApproveClick))
}

// DenyButton clicks the "Deny" affordance.
func (d *ApprovalDetector) DenyButton(ctx context.Context) (bool, error) {
	return evaluateClick(ctx, d.eval, scripts.Source(scripts.DenyClick))
}

// probeSignal evaluates a dialog-probe script returning either null or
// {buttonText, description}, producing the "buttonText::description" dedup
// key the shared base expects.
func probeSignal(ctx context.Context, eval Evaluator, name scripts.Name) (string, json.RawMessage, error) {
	raw, err := eval.Call(ctx, "Runtime.evaluate", map[string]interface{}{
		"expression":    scripts.Source(name),
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
	var sig Signal
	if err := json.Unmarshal(wrapped.Result.Value, &sig); err != nil {
		return "", nil, err
	}
	key := sig.ButtonText + "::" + sig.Description
	return key, wrapped.Result.Value, nil
}
