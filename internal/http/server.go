// Package http implements the gateway's versioned JSON/SSE API (spec §6
// "EXTERNAL INTERFACES"), grounded on the teacher's internal/http package
// shape (per-concern handler files, RegisterRoutes(mux), bearer-token
// authMiddleware, writeJSON), trimmed of its multi-tenant agent CRUD,
// channel instance management, and MCP server admin — none of which this
// gateway's single-agent-set, single-operator scope carries.
package http

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

// Server bundles every handler group and mounts them on a single mux.
// Constructed once in cmd/serve.go after the turn runtime, scheduler, and
// dispatcher are wired.
type Server struct {
	Health    *HealthHandler
	Sessions  *SessionsHandler
	Chat      *ChatHandler
	Tools     *ToolsHandler
	Schedules *SchedulesHandler
	Deliveries *DeliveriesHandler
	Runs      *RunsHandler
	Router    *RouterHandler
	Nodes     *NodesHandler
	Admin     *AdminHandler
}

// RegisterRoutes mounts every handler group's routes onto mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	if s.Health != nil {
		s.Health.RegisterRoutes(mux)
	}
	if s.Sessions != nil {
		s.Sessions.RegisterRoutes(mux)
	}
	if s.Chat != nil {
		s.Chat.RegisterRoutes(mux)
	}
	if s.Tools != nil {
		s.Tools.RegisterRoutes(mux)
	}
	if s.Schedules != nil {
		s.Schedules.RegisterRoutes(mux)
	}
	if s.Deliveries != nil {
		s.Deliveries.RegisterRoutes(mux)
	}
	if s.Runs != nil {
		s.Runs.RegisterRoutes(mux)
	}
	if s.Router != nil {
		s.Router.RegisterRoutes(mux)
	}
	if s.Nodes != nil {
		s.Nodes.RegisterRoutes(mux)
	}
	if s.Admin != nil {
		s.Admin.RegisterRoutes(mux)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// extractBearerToken pulls the token out of "Authorization: Bearer <token>".
func extractBearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimPrefix(h, prefix)
}

// requireToken builds middleware that rejects requests whose bearer token
// doesn't match token in constant time. An empty token disables the check
// (spec §6 "Authentication: bearer token when configured; otherwise open").
func requireToken(token string, next http.HandlerFunc) http.HandlerFunc {
	if token == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		got := extractBearerToken(r)
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

// pageParams reads offset/limit query params with sane defaults.
func pageParams(r *http.Request, defaultLimit int) (offset, limit int) {
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	return offset, limit
}
