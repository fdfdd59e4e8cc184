// Package cdp implements a minimal Chrome DevTools Protocol client over a
// raw WebSocket connection: request/response correlation, multi-target
// discovery, execution-context tracking, and auto-reconnect with
// exponential backoff.
//
// Unlike a full browser-automation library, this client never drives a
// browser process — it only ever dials one existing debug target and speaks
// the wire protocol directly, which is what lets the caller observe and
// reconnect to a long-lived desktop application's DevTools endpoint.
package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultCallTimeout   = 15 * time.Second
	defaultMaxAttempts   = 5
	reconnectBaseDelay   = 3 * time.Second
	reconnectMaxDelay    = 30 * time.Second
	subscriberQueueDepth = 64
	subscriberDropLimit  = 5
)

// wireMessage is the union of the three shapes a CDP frame can take:
// a reply to a call (ID set, Result or Error set) or an event (Method set).
type wireMessage struct {
	ID     int64           `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RemoteError    `json:"error,omitempty"`
}

// CallOptions configures a single Call.
type CallOptions struct {
	// Timeout defaults to 15s when zero.
	Timeout time.Duration
	// ContextID, if non-nil, is injected as params.contextId.
	ContextID *int64
	// AutoContext injects the primary execution context's ID as
	// params.contextId when ContextID is nil and the method is
	// Runtime.evaluate.
	AutoContext bool
}

type pendingCall struct {
	replyCh chan wireMessage
	// err, when set, is the typed sentinel (ErrDisconnected, ErrClosed) that
	// caused this call to be abandoned rather than answered. Checked before
	// reply.Error so errors.Is sees the real sentinel, not a RemoteError
	// carrying its message text.
	err error
}

type subscription struct {
	id      int64
	event   string
	handler func(json.RawMessage)
	ch      chan json.RawMessage
	drops   int
}

// Client is a thread-safe CDP client bound to one target's WebSocket.
type Client struct {
	ports        []int
	hint         string
	enableNet    bool
	logger       *log.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	running bool // true once Connect succeeds, until Close or a disconnect
	seq     atomic.Int64

	pendingMu sync.Mutex
	pending   map[int64]*pendingCall

	subMu   sync.Mutex
	subs    map[string][]*subscription
	subSeq  atomic.Int64

	ctxReg *contextRegistry

	maxAttempts int

	closed atomic.Bool
}

// Lifecycle event names, delivered through Subscribe like any CDP event so
// that multiple owners (a CdpPool's bridges sharing one workspace client)
// can each observe them independently.
const (
	EventDisconnected    = "lifecycle.disconnected"
	EventReconnecting    = "lifecycle.reconnecting"
	EventReconnected     = "lifecycle.reconnected"
	EventReconnectFailed = "lifecycle.reconnectFailed"
	EventContextsChanged = "lifecycle.contextsChanged"
)

type reconnectingPayload struct {
	Attempt int `json:"attempt"`
}

type reconnectFailedPayload struct {
	Error string `json:"error"`
}

// SubscriptionHandle identifies a registered Subscribe call for Unsubscribe.
type SubscriptionHandle struct {
	event string
	id    int64
}

// NewClient builds a client that has not yet connected.
func NewClient(logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		logger:      logger,
		pending:     make(map[int64]*pendingCall),
		subs:        make(map[string][]*subscription),
		ctxReg:      newContextRegistry(),
		maxAttempts: defaultMaxAttempts,
	}
}

// EnableNetworkDomain turns on Network.enable during Connect, in addition
// to the always-enabled Runtime domain.
func (c *Client) EnableNetworkDomain(enable bool) {
	c.enableNet = enable
}

// SetMaxReconnectAttempts overrides the default of 5.
func (c *Client) SetMaxReconnectAttempts(n int) {
	if n > 0 {
		c.maxAttempts = n
	}
}

// Connect scans ports for a matching target, opens the WebSocket, and
// enables the Runtime (and optionally Network) domain.
func (c *Client) Connect(ctx context.Context, ports []int, workspaceHint string) error {
	c.ports = ports
	c.hint = workspaceHint

	target, err := findTarget(ctx, ports, workspaceHint)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target.WSURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.running = true
	c.mu.Unlock()
	c.seq.Store(0)
	c.ctxReg.reset()

	go c.readLoop(conn)

	if err := c.enableDomains(ctx); err != nil {
		return err
	}

	return nil
}

func (c *Client) enableDomains(ctx context.Context) error {
	if _, err := c.Call(ctx, "Runtime.enable", nil, CallOptions{}); err != nil {
		return fmt.Errorf("%w: %v", ErrDomainEnableFailed, err)
	}
	if c.enableNet {
		if _, err := c.Call(ctx, "Network.enable", nil, CallOptions{}); err != nil {
			return fmt.Errorf("%w: %v", ErrDomainEnableFailed, err)
		}
	}
	return nil
}

// Call sends a request and blocks until the correlated reply, the call
// timeout, or the caller's context fires.
func (c *Client) Call(ctx context.Context, method string, params map[string]interface{}, opts CallOptions) (json.RawMessage, error) {
	c.mu.Lock()
	running := c.running
	conn := c.conn
	c.mu.Unlock()
	if !running || conn == nil {
		return nil, ErrDisconnected
	}

	if opts.ContextID != nil {
		params = withContextID(params, *opts.ContextID)
	} else if opts.AutoContext && method == "Runtime.evaluate" {
		if id, ok := c.ctxReg.primaryContextID(); ok {
			params = withContextID(params, id)
		} else {
			return nil, ErrNoContext
		}
	}

	id := c.seq.Add(1)
	req := wireMessage{ID: id, Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		req.Params = raw
	}

	pc := &pendingCall{replyCh: make(chan wireMessage, 1)}
	c.pendingMu.Lock()
	c.pending[id] = pc
	c.pendingMu.Unlock()

	if err := c.send(conn, req); err != nil {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case reply := <-pc.replyCh:
		if pc.err != nil {
			return nil, pc.err
		}
		if reply.Error != nil {
			return nil, reply.Error
		}
		return reply.Result, nil
	case <-timer.C:
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return nil, ErrTimeout
	case <-ctx.Done():
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return nil, ctx.Err()
	}
}

func withContextID(params map[string]interface{}, id int64) map[string]interface{} {
	out := make(map[string]interface{}, len(params)+1)
	for k, v := range params {
		out[k] = v
	}
	out["contextId"] = id
	return out
}

func (c *Client) send(conn *websocket.Conn, msg wireMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if conn != c.conn || !c.running {
		return ErrDisconnected
	}
	return conn.WriteJSON(msg)
}

// Subscribe registers handler for every event named eventName. The handler
// runs on its own goroutine reading from a bounded queue; a handler that
// cannot keep up is detached after subscriberDropLimit consecutive drops.
func (c *Client) Subscribe(eventName string, handler func(params json.RawMessage)) SubscriptionHandle {
	sub := &subscription{
		id:      c.subSeq.Add(1),
		event:   eventName,
		handler: handler,
		ch:      make(chan json.RawMessage, subscriberQueueDepth),
	}

	c.subMu.Lock()
	c.subs[eventName] = append(c.subs[eventName], sub)
	c.subMu.Unlock()

	go func() {
		for params := range sub.ch {
			handler(params)
		}
	}()

	return SubscriptionHandle{event: eventName, id: sub.id}
}

// Unsubscribe detaches a previously registered handler.
func (c *Client) Unsubscribe(handle SubscriptionHandle) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	subs := c.subs[handle.event]
	for i, s := range subs {
		if s.id == handle.id {
			close(s.ch)
			c.subs[handle.event] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

func (c *Client) fanOut(eventName string, params json.RawMessage) {
	c.subMu.Lock()
	subs := append([]*subscription(nil), c.subs[eventName]...)
	c.subMu.Unlock()

	for _, sub := range subs {
		select {
		case sub.ch <- params:
			sub.drops = 0
		default:
			sub.drops++
			if sub.drops >= subscriberDropLimit {
				c.logger.Printf("cdp: detaching slow subscriber for %s after %d drops", eventName, sub.drops)
				c.Unsubscribe(SubscriptionHandle{event: eventName, id: sub.id})
			}
		}
	}
}

// PrimaryContextID reads the current primary execution context selection.
func (c *Client) PrimaryContextID() (int64, bool) {
	return c.ctxReg.primaryContextID()
}

// WaitForReady polls the context registry until a primary context appears
// or timeout elapses.
func (c *Client) WaitForReady(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if _, ok := c.ctxReg.primaryContextID(); ok {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// Close shuts the connection down for good; no further reconnect attempts
// are made.
func (c *Client) Close() error {
	c.closed.Store(true)
	c.mu.Lock()
	c.running = false
	conn := c.conn
	c.mu.Unlock()

	c.failAllPending(ErrClosed)
	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *Client) failAllPending(err error) {
	c.pendingMu.Lock()
	pending := c.pending
	c.pending = make(map[int64]*pendingCall)
	c.pendingMu.Unlock()

	for _, pc := range pending {
		pc.err = err
		select {
		case pc.replyCh <- wireMessage{}:
		default:
		}
	}
}

// readLoop decodes frames off the socket until it closes, then kicks off
// reconnect (unless the client was explicitly Closed).
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var msg wireMessage
		if err := conn.ReadJSON(&msg); err != nil {
			c.handleDisconnect(conn)
			return
		}

		switch {
		case msg.ID != 0:
			c.resolveCall(msg)
		case msg.Method != "":
			c.dispatchEvent(msg.Method, msg.Params)
		}
	}
}

func (c *Client) resolveCall(msg wireMessage) {
	c.pendingMu.Lock()
	pc, ok := c.pending[msg.ID]
	if ok {
		delete(c.pending, msg.ID)
	}
	c.pendingMu.Unlock()

	if ok {
		select {
		case pc.replyCh <- msg:
		default:
		}
	}
}

func (c *Client) dispatchEvent(method string, params json.RawMessage) {
	switch method {
	case "Runtime.executionContextCreated":
		c.ctxReg.onCreated(params)
		c.emitContextsChanged()
	case "Runtime.executionContextDestroyed":
		c.ctxReg.onDestroyed(params)
		c.emitContextsChanged()
	case "Runtime.executionContextsCleared":
		c.ctxReg.onCleared()
		c.emitContextsChanged()
	}
	c.fanOut(method, params)
}

func (c *Client) handleDisconnect(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return // already superseded by a reconnect
	}
	c.running = false
	c.mu.Unlock()

	c.failAllPending(ErrDisconnected)
	c.emitDisconnected()

	if c.closed.Load() {
		return
	}
	go c.reconnectLoop()
}

func (c *Client) reconnectLoop() {
	delay := reconnectBaseDelay
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		c.emitReconnecting(attempt)
		time.Sleep(delay)
		if c.closed.Load() {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), defaultCallTimeout)
		err := c.Connect(ctx, c.ports, c.hint)
		cancel()
		if err == nil {
			c.emitReconnected()
			return
		}

		c.logger.Printf("cdp: reconnect attempt %d failed: %v", attempt, err)
		delay *= 2
		if delay > reconnectMaxDelay {
			delay = reconnectMaxDelay
		}
	}

	c.emitReconnectFailed(fmt.Errorf("cdp: exhausted %d reconnect attempts", c.maxAttempts))
}

// --- lifecycle event emission (delivered through Subscribe) ---

func (c *Client) emitDisconnected() {
	c.fanOut(EventDisconnected, nil)
}

func (c *Client) emitReconnecting(attempt int) {
	raw, _ := json.Marshal(reconnectingPayload{Attempt: attempt})
	c.fanOut(EventReconnecting, raw)
}

func (c *Client) emitReconnected() {
	c.fanOut(EventReconnected, nil)
}

func (c *Client) emitReconnectFailed(err error) {
	raw, _ := json.Marshal(reconnectFailedPayload{Error: err.Error()})
	c.fanOut(EventReconnectFailed, raw)
}

func (c *Client) emitContextsChanged() {
	c.fanOut(EventContextsChanged, nil)
}
