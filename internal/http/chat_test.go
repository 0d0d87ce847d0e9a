package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/serialagent/gateway/internal/bus"
	"github.com/serialagent/gateway/internal/sessions"
	"github.com/serialagent/gateway/internal/store"
	"github.com/serialagent/gateway/internal/turn"
)

func newTestChatHandler(t *testing.T) *ChatHandler {
	t.Helper()
	stores := &store.Stores{Sessions: sessions.NewManager("")}
	runtime := turn.New(nil, nil, nil, nil, stores, bus.New(), map[string]turn.AgentConfig{"default": {}}, "default")
	return NewChatHandler(runtime, bus.New(), "")
}

func TestChatHandlerRejectsMissingFields(t *testing.T) {
	h := newTestChatHandler(t)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	cases := []string{
		`{}`,
		`{"session_key":"s1"}`,
		`{"user_message":"hi"}`,
	}
	for _, body := range cases {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body=%s: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestChatHandlerRejectsInvalidJSON(t *testing.T) {
	h := newTestChatHandler(t)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader("not json")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestChatHandlerTokenGate(t *testing.T) {
	stores := &store.Stores{Sessions: sessions.NewManager("")}
	runtime := turn.New(nil, nil, nil, nil, stores, bus.New(), map[string]turn.AgentConfig{"default": {}}, "default")
	h := NewChatHandler(runtime, bus.New(), "secret")
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"session_key":"s1","user_message":"hi"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 without a token", rec.Code)
	}
}
