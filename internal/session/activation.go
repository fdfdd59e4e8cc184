package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kagebridge/gravitybridge/internal/cdp"
	"github.com/kagebridge/gravitybridge/internal/scripts"
)

// ActivationConfig tunes how long and how often SubmitPrompt retries
// re-entering the target chat session before giving up.
type ActivationConfig struct {
	Timeout       time.Duration
	RetryInterval time.Duration
}

func (c ActivationConfig) withDefaults() ActivationConfig {
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = 1 * time.Second
	}
	return c
}

// activate re-enters the chat session named by title. It first retries a
// direct side-panel search within the configured budget; if that never
// succeeds, it falls back to an explicit "Past Conversations" flow and
// retries the direct search again: at least one more attempt, then further
// attempts while budget remains.
// Matches scenario S6: a failed first attempt followed by a successful
// second is expected to proceed, not fail.
func (b *SessionBridge) activate(ctx context.Context, title string) error {
	deadline := time.Now().Add(b.cfg.Activation.Timeout)

	if b.tryActivateDirect(ctx, title, deadline) {
		return nil
	}

	if ok, _ := evaluateClick(ctx, b.client, scripts.Source(scripts.OpenPastConversations)); ok {
		if b.tryActivateDirect(ctx, title, deadline) {
			return nil
		}
	}

	return ErrActivationFailed
}

func (b *SessionBridge) tryActivateDirect(ctx context.Context, title string, deadline time.Time) bool {
	for {
		if ok, _ := evaluateClick(ctx, b.client, scripts.SourceWithTitle(scripts.ActivateByTitle, title)); ok {
			active, err := b.readActiveTitle(ctx)
			if err == nil && active == title {
				return true
			}
		}
		if !time.Now().Before(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(b.cfg.Activation.RetryInterval):
		}
	}
}

func (b *SessionBridge) readActiveTitle(ctx context.Context) (string, error) {
	raw, err := b.client.Call(ctx, "Runtime.evaluate", map[string]interface{}{
		"expression":    scripts.Source(scripts.ActiveTitleProbe),
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

// evaluateClick mirrors internal/detector's click-script evaluation; kept
// local since session's Evaluator needs are identical but importing
// detector's unexported helper is not possible.
func evaluateClick(ctx context.Context, client CdpClient, source string) (bool, error) {
	raw, err := client.Call(ctx, "Runtime.evaluate", map[string]interface{}{
		"expression":    source,
		"returnByValue": true,
	}, cdp.CallOptions{AutoContext: true})
	if err != nil {
		return false, err
	}
	var wrapped struct {
		Result struct {
			Value struct {
				OK  bool   `json:"ok"`
				Err string `json:"err"`
			} `json:"value"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return false, err
	}
	return wrapped.Result.Value.OK, nil
}
