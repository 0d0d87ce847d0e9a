package http

import (
	"net/http"

	"github.com/serialagent/gateway/internal/bus"
	"github.com/serialagent/gateway/internal/store"
)

// RunsHandler serves turn-run listing, detail, and a live SSE feed of run
// telemetry (spec §6 `GET /v1/runs`, `/events`).
type RunsHandler struct {
	stores *store.Stores
	events bus.Publisher
	token  string
}

func NewRunsHandler(stores *store.Stores, events bus.Publisher, token string) *RunsHandler {
	return &RunsHandler{stores: stores, events: events, token: token}
}

func (h *RunsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/runs", requireToken(h.token, h.handleList))
	mux.HandleFunc("GET /v1/runs/{id}", requireToken(h.token, h.handleGet))
	mux.HandleFunc("GET /v1/runs/{id}/events", requireToken(h.token, h.handleEvents))
}

func (h *RunsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	_, limit := pageParams(r, 50)
	runs, err := h.stores.Runs.ListBySession(r.Context(), r.URL.Query().Get("session_key"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

func (h *RunsHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	run, err := h.stores.Runs.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleEvents streams the run's session-topic events live. Since events
// are addressed by session_key, not run_id, frames for other runs on the
// same session are filtered out client-side via the payload's run_id field
// where present — the bus itself has no per-run topic.
func (h *RunsHandler) handleEvents(w http.ResponseWriter, r *http.Request) {
	run, err := h.stores.Runs.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	sw, ok := newSSEWriter(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	if h.events == nil {
		return
	}

	unsubscribe := h.events.Subscribe(run.SessionKey, "run-events-"+run.ID, func(ev bus.Event) {
		sw.send(ev)
	})
	defer unsubscribe()

	<-r.Context().Done()
}
