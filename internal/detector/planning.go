package detector

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kagebridge/gravitybridge/internal/cdp"
	"github.com/kagebridge/gravitybridge/internal/scripts"
)

// PlanningDetector watches for the plan-review dialog the assistant shows
// before executing a multi-step plan.
type PlanningDetector struct {
	*base
	eval Evaluator
}

// NewPlanningDetector mirrors NewApprovalDetector for the planning dialog.
func NewPlanningDetector(eval Evaluator, interval time.Duration, onFire func(Signal)) *PlanningDetector {
	d := &PlanningDetector{eval: eval}
	poll := func(ctx context.Context) (string, json.RawMessage, error) {
		return probeSignal(ctx, eval, scripts.PlanningProbe)
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

// ClickOpenButton opens the plan detail view.
func (d *PlanningDetector) ClickOpenButton(ctx context.Context) (bool, error) {
	return evaluateClick(ctx, d.eval, scripts.Source(scripts.PlanOpenClick))
}

// ClickProceedButton confirms the plan and lets execution continue.
func (d *PlanningDetector) ClickProceedButton(ctx context.Context) (bool, error) {
	return evaluateClick(ctx, d.eval, scripts.Source(scripts.PlanProceedClick))
}

// ExtractPlanContent reads the plan's rendered text.
func (d *PlanningDetector) ExtractPlanContent(ctx context.Context) (string, error) {
	raw, err := d.eval.Call(ctx, "Runtime.evaluate", map[string]interface{}{
		"expression":    scripts.Source(scripts.PlanExtractContent),
		"returnByValue": true,
	}, cdp.CallOptions{AutoContext: true})
	if err != nil {
		return "", err
	}
	var wrapped struct {
		Result struct {
			Value string `json:"value"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return "", err
	}
	return wrapped.Result.Value, nil
}
