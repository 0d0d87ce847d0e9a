package http

import (
	"net/http"

	"github.com/serialagent/gateway/internal/nodes"
)

// NodesHandler serves remote-node introspection and the WebSocket upgrade
// remote nodes use to register their capabilities (spec §4.3, §6 `GET
// /v1/nodes`, `/v1/nodes/connect`).
type NodesHandler struct {
	registry *nodes.Registry
	upgrade  *nodes.Handler
	token    string
}

func NewNodesHandler(registry *nodes.Registry, upgrade *nodes.Handler, token string) *NodesHandler {
	return &NodesHandler{registry: registry, upgrade: upgrade, token: token}
}

func (h *NodesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/nodes", requireToken(h.token, h.handleList))
	// The node WebSocket handshake authenticates nodes by origin check
	// (internal/nodes.Handler.checkOrigin), not the operator bearer token.
	mux.Handle("/v1/nodes/connect", h.upgrade)
}

func (h *NodesHandler) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"nodes": h.registry.List()})
}
