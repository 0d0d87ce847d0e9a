package http

import (
	"encoding/json"
	"net/http"

	"github.com/serialagent/gateway/internal/bus"
	"github.com/serialagent/gateway/internal/turn"
)

// ChatHandler runs turns synchronously or streams their events over SSE.
type ChatHandler struct {
	runtime *turn.Runtime
	events  bus.Publisher
	token   string
}

func NewChatHandler(runtime *turn.Runtime, events bus.Publisher, token string) *ChatHandler {
	return &ChatHandler{runtime: runtime, events: events, token: token}
}

func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/chat", requireToken(h.token, h.handleChat))
	mux.HandleFunc("POST /v1/chat/stream", requireToken(h.token, h.handleChatStream))
}

type chatRequest struct {
	SessionKey  string `json:"session_key"`
	SessionID   string `json:"session_id"`
	UserMessage string `json:"user_message"`
	Model       string `json:"model"`
	Agent       string `json:"agent"`
	RoutingProfile string `json:"routing_profile"`
}

func decodeChatRequest(r *http.Request) (turn.Input, error) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return turn.Input{}, err
	}
	return turn.Input{
		SessionKey:     req.SessionKey,
		SessionID:      req.SessionID,
		UserMessage:    req.UserMessage,
		Model:          req.Model,
		Agent:          req.Agent,
		RoutingProfile: req.RoutingProfile,
	}, nil
}

func (h *ChatHandler) handleChat(w http.ResponseWriter, r *http.Request) {
	in, err := decodeChatRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if in.SessionKey == "" || in.UserMessage == "" {
		writeError(w, http.StatusBadRequest, "session_key and user_message are required")
		return
	}

	result, err := h.runtime.Run(r.Context(), in)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleChatStream subscribes to the session's event topic before starting
// the run so no event published during the run is missed, then forwards
// every event as an SSE frame until the run's terminal event arrives.
func (h *ChatHandler) handleChatStream(w http.ResponseWriter, r *http.Request) {
	in, err := decodeChatRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if in.SessionKey == "" || in.UserMessage == "" {
		writeError(w, http.StatusBadRequest, "session_key and user_message are required")
		return
	}

	sw, ok := newSSEWriter(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	// Bus.Publish runs subscriber handlers synchronously in the publisher's
	// goroutine (internal/bus.Bus.Publish), so every event the run emits —
	// including its terminal final/error/stopped frame — reaches sw before
	// Run returns below.
	if h.events != nil {
		unsubscribe := h.events.Subscribe(in.SessionKey, "chat-stream-"+in.SessionKey, func(ev bus.Event) {
			sw.send(ev)
		})
		defer unsubscribe()
	}

	if _, runErr := h.runtime.Run(r.Context(), in); runErr != nil {
		sw.send(bus.Event{Name: bus.EventError, Payload: map[string]string{"error": runErr.Error()}})
	}
}
