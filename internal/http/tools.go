package http

import (
	"encoding/json"
	"net/http"

	"github.com/serialagent/gateway/internal/store"
	"github.com/serialagent/gateway/internal/tools"
)

// ToolsHandler serves direct tool dispatch (bypassing the turn loop) and the
// exec-approval workflow.
type ToolsHandler struct {
	registry  *tools.Registry
	approvals store.ApprovalStore
	token     string
}

func NewToolsHandler(registry *tools.Registry, approvals store.ApprovalStore, token string) *ToolsHandler {
	return &ToolsHandler{registry: registry, approvals: approvals, token: token}
}

func (h *ToolsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/tools/invoke", requireToken(h.token, h.handleInvoke))
	mux.HandleFunc("GET /v1/tools/exec/pending", requireToken(h.token, h.handlePending))
	mux.HandleFunc("POST /v1/tools/exec/approve/{id}", requireToken(h.token, h.handleApprove))
	mux.HandleFunc("POST /v1/tools/exec/deny/{id}", requireToken(h.token, h.handleDeny))
}

func (h *ToolsHandler) handleInvoke(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string                 `json:"name"`
		Args map[string]interface{} `json:"args"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	tool, ok := h.registry.Get(req.Name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown tool: "+req.Name)
		return
	}
	result := tool.Execute(r.Context(), req.Args)
	status := http.StatusOK
	if result.IsError {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, result)
}

func (h *ToolsHandler) handlePending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.approvals.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"pending": pending})
}

func (h *ToolsHandler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, true)
}

func (h *ToolsHandler) handleDeny(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, false)
}

func (h *ToolsHandler) resolve(w http.ResponseWriter, r *http.Request, approve bool) {
	id := r.PathValue("id")
	if err := h.approvals.Resolve(r.Context(), id, approve); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"approved": approve})
}
