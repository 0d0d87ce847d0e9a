package http

import (
	"net/http"
	"time"

	"github.com/serialagent/gateway/internal/store"
	"github.com/serialagent/gateway/internal/turn"
)

// SessionsHandler serves session listing, detail, reset/stop, and transcript
// paging (spec §6).
type SessionsHandler struct {
	stores  *store.Stores
	runtime *turn.Runtime
	token   string
}

func NewSessionsHandler(stores *store.Stores, runtime *turn.Runtime, token string) *SessionsHandler {
	return &SessionsHandler{stores: stores, runtime: runtime, token: token}
}

func (h *SessionsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/sessions", requireToken(h.token, h.handleList))
	mux.HandleFunc("GET /v1/sessions/{key}", requireToken(h.token, h.handleGet))
	mux.HandleFunc("POST /v1/sessions/{key}/reset", requireToken(h.token, h.handleReset))
	mux.HandleFunc("POST /v1/sessions/{key}/stop", requireToken(h.token, h.handleStop))
	mux.HandleFunc("GET /v1/sessions/{key}/transcript", requireToken(h.token, h.handleTranscript))
}

func (h *SessionsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	offset, limit := pageParams(r, 50)
	result := h.stores.Sessions.ListPaged(store.SessionListOpts{
		AgentID: r.URL.Query().Get("agent_id"),
		Offset:  offset,
		Limit:   limit,
	})
	writeJSON(w, http.StatusOK, result)
}

func (h *SessionsHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	data := h.stores.Sessions.GetOrCreate(key)
	writeJSON(w, http.StatusOK, data)
}

func (h *SessionsHandler) handleReset(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	h.stores.Sessions.Reset(key)
	writeJSON(w, http.StatusOK, map[string]string{"ok": "true"})
}

func (h *SessionsHandler) handleStop(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	cancelled := h.runtime.Cancel(key)
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": cancelled})
}

func (h *SessionsHandler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	_, limit := pageParams(r, 100)

	var since time.Time
	if s := r.URL.Query().Get("since"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			since = t
		}
	}

	lines, err := h.stores.Transcripts.Read(r.Context(), key, since, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"lines": lines})
}
