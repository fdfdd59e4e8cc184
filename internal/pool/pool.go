// Package pool implements CdpPool, the per-workspace lifecycle manager for
// CDP connections and their SessionBridges, per spec.md §4.5.
package pool

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/kagebridge/gravitybridge/internal/cdp"
	"github.com/kagebridge/gravitybridge/internal/session"
)

// BridgeFactory supplies a workspace's session.Config and session.Callbacks
// the first time that workspace is connected. Concurrent first connects to
// the same workspace may each consult it; only one resulting bridge is kept.
type BridgeFactory func(workspace string) (session.Config, session.Callbacks, error)

// cdpClient is the subset of *cdp.Client CdpPool drives directly, plus the
// session.CdpClient methods SessionBridge needs. Narrowed to an interface so
// tests can substitute a fake in place of a real websocket dial.
type cdpClient interface {
	session.CdpClient
	Connect(ctx context.Context, ports []int, workspaceHint string) error
	Close() error
}

type entry struct {
	client cdpClient
	bridge *session.SessionBridge
}

// CdpPool owns one cdpClient and one *session.SessionBridge per normalized
// workspace name, lazily connecting on first use and tearing both down
// together on Release. Ports are tried in order against each workspace's
// debug endpoint, per spec.md §4.1's discovery contract.
type CdpPool struct {
	ports     []int
	factory   BridgeFactory
	logger    *log.Logger
	newClient func() cdpClient

	mu      sync.Mutex
	entries map[string]*entry
}

// New builds a CdpPool that probes ports (in order) when connecting to a new
// workspace, consulting factory for that workspace's bridge configuration.
func New(ports []int, factory BridgeFactory, logger *log.Logger) *CdpPool {
	if logger == nil {
		logger = log.Default()
	}
	return &CdpPool{
		ports:   ports,
		factory: factory,
		logger:  logger,
		newClient: func() cdpClient {
			return cdp.NewClient(logger)
		},
		entries: make(map[string]*entry),
	}
}

// GetOrConnect returns the shared bridge for workspace, connecting and
// starting it on first use. workspace is normalized via NormalizeWorkspace
// before use as the pool key, so callers may pass either a raw path or
// content containing an embedded file:// URL.
func (p *CdpPool) GetOrConnect(ctx context.Context, workspace string) (*session.SessionBridge, error) {
	key := NormalizeWorkspace(workspace)
	if key == "" {
		return nil, fmt.Errorf("pool: could not normalize workspace %q", workspace)
	}

	p.mu.Lock()
	if e, ok := p.entries[key]; ok {
		p.mu.Unlock()
		return e.bridge, nil
	}
	p.mu.Unlock()

	client := p.newClient()
	if err := client.Connect(ctx, p.ports, key); err != nil {
		return nil, fmt.Errorf("pool: connect workspace %q: %w", key, err)
	}

	cfg, cb, err := p.factory(key)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("pool: build config for workspace %q: %w", key, err)
	}

	bridge := session.New(client, cfg, cb, p.logger)

	p.mu.Lock()
	if e, ok := p.entries[key]; ok {
		// Lost a race with a concurrent GetOrConnect for the same
		// workspace; discard the redundant connection and bridge.
		p.mu.Unlock()
		bridge.Shutdown()
		client.Close()
		return e.bridge, nil
	}
	p.entries[key] = &entry{client: client, bridge: bridge}
	p.mu.Unlock()

	bridge.Start()
	return bridge, nil
}

// Release shuts down and disconnects workspace's bridge and client, if any.
// A no-op if workspace was never connected.
func (p *CdpPool) Release(workspace string) error {
	key := NormalizeWorkspace(workspace)

	p.mu.Lock()
	e, ok := p.entries[key]
	if ok {
		delete(p.entries, key)
	}
	p.mu.Unlock()

	if !ok {
		return nil
	}

	e.bridge.Shutdown()
	return e.client.Close()
}

// ReleaseAll shuts down and disconnects every connected workspace, for use
// during process shutdown.
func (p *CdpPool) ReleaseAll() {
	p.mu.Lock()
	entries := p.entries
	p.entries = make(map[string]*entry)
	p.mu.Unlock()

	for key, e := range entries {
		e.bridge.Shutdown()
		if err := e.client.Close(); err != nil {
			p.logger.Printf("pool: close workspace %q: %v", key, err)
		}
	}
}

// Active reports the currently connected workspace keys.
func (p *CdpPool) Active() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.entries))
	for k := range p.entries {
		out = append(out, k)
	}
	return out
}
