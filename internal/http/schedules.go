package http

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/serialagent/gateway/internal/scheduler"
	"github.com/serialagent/gateway/internal/store"
)

// SchedulesHandler serves schedule CRUD plus run-now/dry-run/reset-errors
// operations (spec §6, §4.5).
type SchedulesHandler struct {
	stores    store.ScheduleStore
	scheduler *scheduler.Scheduler
	token     string
}

func NewSchedulesHandler(stores store.ScheduleStore, sched *scheduler.Scheduler, token string) *SchedulesHandler {
	return &SchedulesHandler{stores: stores, scheduler: sched, token: token}
}

func (h *SchedulesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/schedules", requireToken(h.token, h.handleList))
	mux.HandleFunc("POST /v1/schedules", requireToken(h.token, h.handleCreate))
	mux.HandleFunc("GET /v1/schedules/{id}", requireToken(h.token, h.handleGet))
	mux.HandleFunc("PUT /v1/schedules/{id}", requireToken(h.token, h.handleUpdate))
	mux.HandleFunc("DELETE /v1/schedules/{id}", requireToken(h.token, h.handleDelete))
	mux.HandleFunc("POST /v1/schedules/{id}/run-now", requireToken(h.token, h.handleRunNow))
	mux.HandleFunc("POST /v1/schedules/{id}/dry-run", requireToken(h.token, h.handleDryRun))
	mux.HandleFunc("POST /v1/schedules/{id}/reset-errors", requireToken(h.token, h.handleResetErrors))
}

func (h *SchedulesHandler) handleList(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.stores.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"schedules": schedules})
}

func (h *SchedulesHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var sch store.Schedule
	if err := json.NewDecoder(r.Body).Decode(&sch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if sch.ID == "" {
		sch.ID = uuid.NewString()
	}
	if sch.MissedPolicy == "" {
		sch.MissedPolicy = store.MissedSkip
	}
	if sch.MaxCatchupRuns == 0 {
		sch.MaxCatchupRuns = 5 // spec §9 Open Question #2 default
	}
	if err := h.stores.Create(r.Context(), &sch); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, sch)
}

func (h *SchedulesHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	sch, err := h.stores.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sch)
}

func (h *SchedulesHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := h.stores.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	var patch store.Schedule
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	patch.ID = existing.ID
	if err := h.stores.Update(r.Context(), &patch); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, patch)
}

func (h *SchedulesHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.stores.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ok": "true"})
}

func (h *SchedulesHandler) handleRunNow(w http.ResponseWriter, r *http.Request) {
	if err := h.scheduler.RunNow(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"ok": "true"})
}

func (h *SchedulesHandler) handleDryRun(w http.ResponseWriter, r *http.Request) {
	prompt, changed, err := h.scheduler.DryRun(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"prompt": prompt, "sources_changed": changed})
}

func (h *SchedulesHandler) handleResetErrors(w http.ResponseWriter, r *http.Request) {
	if err := h.scheduler.ResetErrors(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ok": "true"})
}
