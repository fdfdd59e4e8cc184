package cdp

import (
	"encoding/json"
	"strings"
	"sync"
)

// ExecutionContext is a JavaScript realm inside a target.
type ExecutionContext struct {
	ID        int64
	FrameName string
	URL       string
}

// preferredFramePatterns are evaluated in order; the first execution context
// whose frame name or URL contains one of these becomes primary.
var preferredFramePatterns = []string{"cascade", "workbench"}

// contextRegistry tracks live execution contexts for one connection and
// selects the "primary" context a caller means when it omits contextId.
type contextRegistry struct {
	mu       sync.RWMutex
	contexts map[int64]ExecutionContext
	primary  int64
	hasPrime bool
}

func newContextRegistry() *contextRegistry {
	return &contextRegistry{contexts: make(map[int64]ExecutionContext)}
}

func (r *contextRegistry) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contexts = make(map[int64]ExecutionContext)
	r.hasPrime = false
}

type runtimeExecutionContextDescription struct {
	ID     int64  `json:"id"`
	Origin string `json:"origin"`
	Name   string `json:"name"`
	AuxData json.RawMessage `json:"auxData"`
}

type executionContextCreatedParams struct {
	Context runtimeExecutionContextDescription `json:"context"`
}

type executionContextDestroyedParams struct {
	ExecutionContextID int64 `json:"executionContextId"`
}

// onCreated registers a new context and re-runs primary selection.
func (r *contextRegistry) onCreated(raw json.RawMessage) {
	var params executionContextCreatedParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return
	}

	ctx := ExecutionContext{
		ID:        params.Context.ID,
		FrameName: params.Context.Name,
		URL:       params.Context.Origin,
	}

	r.mu.Lock()
	r.contexts[ctx.ID] = ctx
	r.selectPrimaryLocked()
	r.mu.Unlock()
}

// onDestroyed removes one context, re-selecting primary if it was the one
// destroyed.
func (r *contextRegistry) onDestroyed(raw json.RawMessage) {
	var params executionContextDestroyedParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return
	}

	r.mu.Lock()
	delete(r.contexts, params.ExecutionContextID)
	if r.hasPrime && r.primary == params.ExecutionContextID {
		r.hasPrime = false
		r.selectPrimaryLocked()
	}
	r.mu.Unlock()
}

// onCleared drops every known context (Runtime.executionContextsCleared).
func (r *contextRegistry) onCleared() {
	r.mu.Lock()
	r.contexts = make(map[int64]ExecutionContext)
	r.hasPrime = false
	r.mu.Unlock()
}

// selectPrimaryLocked must be called with r.mu held. It evaluates the
// ordered preferred-pattern list first, then falls back to the first
// available context (map iteration order is not stable, but any single
// context is an acceptable fallback — the spec leaves ties unspecified).
// A current primary is kept when it matches the earliest pattern any live
// context matches, or when no context matches and it is still live; a
// fallback primary is replaced once a matching context appears.
func (r *contextRegistry) selectPrimaryLocked() {
	current, haveCurrent := r.contexts[r.primary]
	haveCurrent = haveCurrent && r.hasPrime

	for _, pattern := range preferredFramePatterns {
		if haveCurrent && (strings.Contains(strings.ToLower(current.FrameName), pattern) || strings.Contains(strings.ToLower(current.URL), pattern)) {
			return
		}
		for _, c := range r.contexts {
			if strings.Contains(strings.ToLower(c.FrameName), pattern) || strings.Contains(strings.ToLower(c.URL), pattern) {
				r.primary = c.ID
				r.hasPrime = true
				return
			}
		}
	}

	if haveCurrent {
		return
	}
	r.hasPrime = false
	for _, c := range r.contexts {
		r.primary = c.ID
		r.hasPrime = true
		return
	}
}

// primaryContextID returns the current primary selection.
func (r *contextRegistry) primaryContextID() (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.primary, r.hasPrime
}
