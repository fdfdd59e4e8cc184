package session

import (
	"hash/fnv"
	"sync"
	"time"
)

const echoTTL = 60 * time.Second

// EchoTable is the per-bridge record of prompts this bridge itself
// submitted, so the user-message detector does not treat its own
// injections as new user input. Entries expire after echoTTL; pruning
// happens lazily on access rather than via a background ticker, so no
// goroutine of its own owns this table; a mutex guards it.
//
// Satisfies detector.EchoChecker.
type EchoTable struct {
	mu      sync.Mutex
	entries map[uint64]time.Time
}

// NewEchoTable builds an empty echo table.
func NewEchoTable() *EchoTable {
	return &EchoTable{entries: make(map[uint64]time.Time)}
}

// Record marks text as bridge-submitted; it will be treated as an echo for
// the next echoTTL.
func (t *EchoTable) Record(text string) {
	h := hashEcho(text)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune()
	t.entries[h] = time.Now().Add(echoTTL)
}

// IsEcho reports whether text matches a recent bridge-submitted prompt.
func (t *EchoTable) IsEcho(text string) bool {
	h := hashEcho(text)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune()
	expiry, ok := t.entries[h]
	return ok && time.Now().Before(expiry)
}

// prune must be called with t.mu held.
func (t *EchoTable) prune() {
	now := time.Now()
	for h, expiry := range t.entries {
		if now.After(expiry) {
			delete(t.entries, h)
		}
	}
}

func hashEcho(text string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(text))
	return h.Sum64()
}
