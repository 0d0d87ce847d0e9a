package http

import (
	"encoding/json"
	"net/http"

	"github.com/serialagent/gateway/internal/config"
	"github.com/serialagent/gateway/internal/router"
)

// RouterHandler serves smart-router introspection and live config updates
// (spec §6 `GET/PUT /v1/router/...`).
type RouterHandler struct {
	router *router.Router
	cfg    *config.Config
	token  string
}

func NewRouterHandler(r *router.Router, cfg *config.Config, token string) *RouterHandler {
	return &RouterHandler{router: r, cfg: cfg, token: token}
}

func (h *RouterHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/router/status", requireToken(h.token, h.handleStatus))
	mux.HandleFunc("PUT /v1/router/config", requireToken(h.token, h.handleUpdateConfig))
	mux.HandleFunc("POST /v1/router/classify", requireToken(h.token, h.handleClassify))
	mux.HandleFunc("GET /v1/router/decisions", requireToken(h.token, h.handleDecisions))
}

func (h *RouterHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cfg.RouterSnapshot())
}

func (h *RouterHandler) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var patch config.RouterConfig
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	h.cfg.SetRouter(patch)
	writeJSON(w, http.StatusOK, patch)
}

func (h *RouterHandler) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	res, err := h.router.Resolve(r.Context(), router.Request{Prompt: req.Prompt})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *RouterHandler) handleDecisions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"decisions": h.router.Decisions()})
}
