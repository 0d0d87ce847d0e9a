package http

import (
	"net/http"

	"github.com/serialagent/gateway/internal/providers"
)

// HealthHandler serves liveness and model-readiness probes.
type HealthHandler struct {
	providers *providers.Registry
	agents    []string
}

func NewHealthHandler(registry *providers.Registry, agentIDs []string) *HealthHandler {
	return &HealthHandler{providers: registry, agents: agentIDs}
}

func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.handleLiveness)
	mux.HandleFunc("GET /v1/models/readiness", h.handleReadiness)
}

func (h *HealthHandler) handleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type readinessProvider struct {
	ID            string `json:"id"`
	DefaultModel  string `json:"default_model"`
	Capabilities  []string `json:"capabilities"`
}

func (h *HealthHandler) handleReadiness(w http.ResponseWriter, r *http.Request) {
	ids := h.providers.List()
	out := make([]readinessProvider, 0, len(ids))
	for _, id := range ids {
		p, ok := h.providers.Get(id)
		if !ok {
			continue
		}
		caps := []string{"chat"}
		if _, ok := p.(providers.Embedder); ok {
			caps = append(caps, "embed")
		}
		out = append(out, readinessProvider{ID: id, DefaultModel: p.DefaultModel(), Capabilities: caps})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ready":     len(out) > 0,
		"providers": out,
		"agents":    h.agents,
	})
}
