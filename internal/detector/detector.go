// Package detector implements the family of small DOM pollers that watch
// for approval prompts, planning dialogs, error popups, and newly-posted
// user messages inside the assistant UI, independent of an in-flight
// ResponseMonitor.
package detector

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/kagebridge/gravitybridge/internal/cdp"
)

// Evaluator is the subset of *cdp.Client a detector needs to run a probe
// script. Defined locally (rather than embedding *cdp.Client) so detectors
// can be driven by a fake in tests without a live CDP connection.
type Evaluator interface {
	Call(ctx context.Context, method string, params map[string]interface{}, opts cdp.CallOptions) (json.RawMessage, error)
}

// Poller runs one detector's probe script and returns a dedup key plus the
// raw payload. An empty key means "no signal" (the script returned null);
// a non-nil error means the probe failed and this cycle is skipped.
type Poller func(ctx context.Context) (key string, payload json.RawMessage, err error)

// Callback receives the payload of a newly-fired detection.
type Callback func(payload json.RawMessage)

// base implements the Start/Stop/IsActive polling shape shared by every
// concrete detector: poll at a fixed interval, fire on key change, clear
// the key on a null result so the same event can recur, and optionally
// enforce a cooldown between fires regardless of key.
type base struct {
	interval time.Duration
	cooldown time.Duration
	poll     Poller
	onFire   Callback
	logger   *log.Logger

	mu      sync.Mutex
	active  bool
	cancel  context.CancelFunc
	lastKey string
	firedAt time.Time
}

func newBase(interval, cooldown time.Duration, poll Poller, onFire Callback, logger *log.Logger) *base {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	return &base{interval: interval, cooldown: cooldown, poll: poll, onFire: onFire, logger: logger}
}

// Start begins polling. Idempotent while already active.
func (b *base) Start() {
	b.mu.Lock()
	if b.active {
		b.mu.Unlock()
		return
	}
	b.active = true
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.mu.Unlock()

	go b.loop(ctx)
}

// Stop halts polling. Idempotent.
func (b *base) Stop() {
	b.mu.Lock()
	if !b.active {
		b.mu.Unlock()
		return
	}
	b.active = false
	cancel := b.cancel
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// IsActive reports whether the detector is currently polling.
func (b *base) IsActive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

func (b *base) loop(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.tick(ctx)
		}
	}
}

func (b *base) tick(ctx context.Context) {
	key, payload, err := b.poll(ctx)
	if err != nil {
		b.logger.Printf("detector: poll error: %v", err)
		return
	}
	b.applyResult(key, payload)
}

// applyResult is split out of tick so tests can drive the dedup state
// machine with scripted key sequences directly.
func (b *base) applyResult(key string, payload json.RawMessage) {
	b.mu.Lock()
	if key == "" {
		b.lastKey = ""
		b.mu.Unlock()
		return
	}
	if key == b.lastKey {
		b.mu.Unlock()
		return
	}
	if b.cooldown > 0 && !b.firedAt.IsZero() && time.Since(b.firedAt) < b.cooldown {
		b.mu.Unlock()
		return
	}
	b.lastKey = key
	b.firedAt = time.Now()
	b.mu.Unlock()

	if b.onFire != nil {
		b.onFire(payload)
	}
}

// clickResult is the {ok, err?} shape every click script in the registry
// returns.
type clickResult struct {
	OK  bool   `json:"ok"`
	Err string `json:"err"`
}

func evaluateClick(ctx context.Context, e Evaluator, source string) (bool, error) {
	raw, err := e.Call(ctx, "Runtime.evaluate", map[string]interface{}{
		"expression":    source,
		"returnByValue": true,
	}, cdp.CallOptions{AutoContext: true})
	if err != nil {
		return false, err
	}
	var wrapped struct {
		Result struct {
			Value clickResult `json:"value"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return false, err
	}
	if !wrapped.Result.Value.OK && wrapped.Result.Value.Err != "" {
		return false, errClickFailed(wrapped.Result.Value.Err)
	}
	return wrapped.Result.Value.OK, nil
}

type errClickFailed string

func (e errClickFailed) Error() string { return "detector: click failed: " + string(e) }
