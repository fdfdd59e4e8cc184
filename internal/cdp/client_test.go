package cdp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeTarget runs an httptest server that behaves like a minimal CDP
// endpoint: it serves /json/list for discovery and echoes back a reply for
// every request it receives on /ws, tagging the reply with the same id,
// except Test.neverReplies, which gets no reply.
type fakeTarget struct {
	server   *httptest.Server
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns []*websocket.Conn
}

func newFakeTarget(t *testing.T) *fakeTarget {
	t.Helper()
	ft := &fakeTarget{}
	mux := http.NewServeMux()
	mux.HandleFunc("/json/list", ft.handleList)
	mux.HandleFunc("/ws", ft.handleWS)
	ft.server = httptest.NewServer(mux)
	return ft
}

func (ft *fakeTarget) wsURL() string {
	return "ws" + strings.TrimPrefix(ft.server.URL, "http") + "/ws"
}

func (ft *fakeTarget) port(t *testing.T) int {
	t.Helper()
	u := ft.server.URL
	idx := strings.LastIndex(u, ":")
	p, err := strconv.Atoi(u[idx+1:])
	if err != nil {
		t.Fatalf("parsing port from %q: %v", u, err)
	}
	return p
}

func (ft *fakeTarget) handleList(w http.ResponseWriter, r *http.Request) {
	targets := []Target{{ID: "1", Kind: "page", Title: "cascade workbench", URL: "about:blank", WSURL: ft.wsURL()}}
	json.NewEncoder(w).Encode(targets)
}

func (ft *fakeTarget) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := ft.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	ft.mu.Lock()
	ft.conns = append(ft.conns, conn)
	ft.mu.Unlock()

	for {
		var req wireMessage
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		if req.Method == "Test.neverReplies" {
			continue
		}
		reply := wireMessage{ID: req.ID, Result: json.RawMessage(`{}`)}
		if err := conn.WriteJSON(reply); err != nil {
			return
		}
	}
}

// dropConn force-closes every connection the fake target has accepted,
// simulating the browser side vanishing.
func (ft *fakeTarget) dropConn() {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	for _, c := range ft.conns {
		c.Close()
	}
	ft.conns = nil
}

func (ft *fakeTarget) close() {
	ft.server.Close()
}

func connectedClient(t *testing.T) (*Client, *fakeTarget) {
	t.Helper()
	ft := newFakeTarget(t)
	c := NewClient(nil)
	if err := c.Connect(context.Background(), []int{ft.port(t)}, "cascade"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return c, ft
}

// TestCallCorrelation verifies property 1: N concurrent calls each resolve
// exactly once with the reply whose id equals their seq.
func TestCallCorrelation(t *testing.T) {
	c, ft := connectedClient(t)
	defer ft.close()

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.Call(context.Background(), fmt.Sprintf("Test.method%d", i), nil, CallOptions{})
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("call %d: unexpected error %v", i, err)
		}
	}
}

// TestDisconnectSafety verifies property 2: after disconnect, pending calls
// fail with ErrDisconnected, and after reconnect new calls succeed.
func TestDisconnectSafety(t *testing.T) {
	c, ft := connectedClient(t)
	defer ft.close()
	c.SetMaxReconnectAttempts(3)

	reconnected := make(chan struct{}, 1)
	c.Subscribe(EventReconnected, func(json.RawMessage) { reconnected <- struct{}{} })

	inFlight := make(chan error, 1)
	go func() {
		_, err := c.Call(context.Background(), "Test.neverReplies", nil, CallOptions{})
		inFlight <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		c.pendingMu.Lock()
		n := len(c.pending)
		c.pendingMu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for in-flight call to register")
		}
		time.Sleep(time.Millisecond)
	}

	ft.dropConn()

	select {
	case err := <-inFlight:
		if !errors.Is(err, ErrDisconnected) {
			t.Fatalf("in-flight call error = %v, want errors.Is(err, ErrDisconnected)", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for in-flight call to fail")
	}

	select {
	case <-reconnected:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for reconnect")
	}

	if _, err := c.Call(context.Background(), "Test.afterReconnect", nil, CallOptions{}); err != nil {
		t.Fatalf("call after reconnect: %v", err)
	}
}

func TestCallTimeout(t *testing.T) {
	ft := newFakeTarget(t)
	defer ft.close()

	c := NewClient(nil)
	if err := c.Connect(context.Background(), []int{ft.port(t)}, "cascade"); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	_, err := c.Call(context.Background(), "Test.neverReplies", nil, CallOptions{Timeout: 50 * time.Millisecond})
	if err != ErrTimeout {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}
