package nodes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestRegistry_FindByCapability(t *testing.T) {
	r := NewRegistry()
	a := &Node{ID: "a", Capabilities: []string{"macos.notes.search"}}
	b := &Node{ID: "b", Capabilities: []string{"macos.notes.create"}}
	r.register(a)
	r.register(b)

	got, ok := r.FindByCapability("macos.notes.create")
	if !ok || got.ID != "b" {
		t.Fatalf("FindByCapability(create) = %v, %v, want node b", got, ok)
	}

	if _, ok := r.FindByCapability("unknown.capability"); ok {
		t.Fatal("expected no match for unregistered capability")
	}
}

func TestRegistry_List(t *testing.T) {
	r := NewRegistry()
	r.register(&Node{ID: "a", Name: "laptop", Capabilities: []string{"shell.exec"}, ConnectedAt: time.Now()})
	r.register(&Node{ID: "b", Name: "phone", Capabilities: []string{"sms.send"}})

	list := r.List()
	if len(list) != 2 {
		t.Fatalf("List() returned %d nodes, want 2", len(list))
	}
}

func TestRegistry_UnregisterFailsPendingCalls(t *testing.T) {
	r := NewRegistry()
	n := &Node{ID: "a", pending: make(map[string]chan frame)}
	ch := make(chan frame, 1)
	n.pending["call-1"] = ch
	r.register(n)

	r.unregister("a")

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected pending channel to be closed, not sent a value")
		}
	default:
		t.Fatal("expected pending channel to be closed immediately on unregister")
	}
}

// TestHandler_RegisterAndDispatch drives a full round trip: a fake node
// dials in, registers a capability, and answers one call frame, exercising
// Handler.ServeHTTP and Registry.Dispatch together the way turn.Runtime's
// dispatchNode does.
func TestHandler_RegisterAndDispatch(t *testing.T) {
	registry := NewRegistry()
	handler := NewHandler(registry, nil)
	srv := httptest.NewServer(handler)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(frame{Type: frameRegister, NodeName: "test-node", Capabilities: []string{"echo"}}); err != nil {
		t.Fatalf("write register frame: %v", err)
	}

	// give the server a moment to process registration
	var node *Node
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if n, ok := registry.FindByCapability("echo"); ok {
			node = n
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if node == nil {
		t.Fatal("node never registered")
	}

	// respond to whatever call frame arrives with an echo result
	go func() {
		var call frame
		if err := conn.ReadJSON(&call); err != nil {
			return
		}
		if call.Type != frameCall {
			return
		}
		conn.WriteJSON(frame{Type: frameResult, ID: call.ID, Output: "echoed"})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	output, isError, err := registry.Dispatch(ctx, node, "echo", map[string]interface{}{"msg": "hi"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if isError {
		t.Fatal("expected isError=false")
	}
	if output != "echoed" {
		t.Fatalf("output = %q, want %q", output, "echoed")
	}
}

func TestHandler_RejectsNonRegisterFirstFrame(t *testing.T) {
	registry := NewRegistry()
	handler := NewHandler(registry, nil)
	srv := httptest.NewServer(handler)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(frame{Type: frameCall, Capability: "echo"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected server to close the connection after a non-register first frame")
	}
}

func TestHandler_CheckOrigin(t *testing.T) {
	h := NewHandler(NewRegistry(), []string{"https://allowed.example"})

	req := httptest.NewRequest(http.MethodGet, "/v1/nodes/connect", nil)
	req.Header.Set("Origin", "https://allowed.example")
	if !h.checkOrigin(req) {
		t.Error("expected allowed origin to pass")
	}

	req2 := httptest.NewRequest(http.MethodGet, "/v1/nodes/connect", nil)
	req2.Header.Set("Origin", "https://evil.example")
	if h.checkOrigin(req2) {
		t.Error("expected disallowed origin to fail")
	}

	req3 := httptest.NewRequest(http.MethodGet, "/v1/nodes/connect", nil)
	if !h.checkOrigin(req3) {
		t.Error("expected missing Origin header (non-browser client) to pass")
	}
}
