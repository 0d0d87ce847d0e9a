package http

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"

	"github.com/serialagent/gateway/internal/config"
)

// AdminHandler serves the admin-only surface (spec §6 `POST /v1/admin/*`):
// reloading config from disk, installing skill files, and requesting a
// graceful process restart. Gated by SA_ADMIN_TOKEN, a separate token from
// the general API bearer token.
type AdminHandler struct {
	cfg      *config.Config
	cfgPath  string
	restart  chan<- struct{}
	adminTok string
}

func NewAdminHandler(cfg *config.Config, cfgPath string, restart chan<- struct{}, adminToken string) *AdminHandler {
	return &AdminHandler{cfg: cfg, cfgPath: cfgPath, restart: restart, adminTok: adminToken}
}

func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/admin/import", requireToken(h.adminTok, h.handleImport))
	mux.HandleFunc("POST /v1/admin/skills/install", requireToken(h.adminTok, h.handleSkillInstall))
	mux.HandleFunc("POST /v1/admin/restart", requireToken(h.adminTok, h.handleRestart))
}

// handleImport reloads the config file from disk and swaps it into the live
// config in place, so dependents holding the *config.Config pointer observe
// the new values without a process restart.
func (h *AdminHandler) handleImport(w http.ResponseWriter, r *http.Request) {
	fresh, err := config.Load(h.cfgPath)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reload failed: "+err.Error())
		return
	}
	h.cfg.ReplaceFrom(fresh)
	writeJSON(w, http.StatusOK, map[string]string{"ok": "true"})
}

type skillInstallRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// handleSkillInstall writes a skill's markdown content into the configured
// skills storage directory, named after the skill (spec §4.3 "the in-process
// skills engine").
func (h *AdminHandler) handleSkillInstall(w http.ResponseWriter, r *http.Request) {
	var req skillInstallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Name == "" || filepath.Base(req.Name) != req.Name {
		writeError(w, http.StatusBadRequest, "name must be a bare filename")
		return
	}

	dir := config.ExpandHome(h.cfg.Skills.StorageDir)
	if dir == "" {
		dir = config.ExpandHome("~/.serialagent/skills-store")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	path := filepath.Join(dir, req.Name+".md")
	if err := os.WriteFile(path, []byte(req.Content), 0o644); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"path": path})
}

// handleRestart signals the caller-provided restart channel and responds
// before the process actually shuts down, mirroring the graceful-shutdown
// path already wired to SIGINT/SIGTERM in cmd/serve.go.
func (h *AdminHandler) handleRestart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusAccepted, map[string]string{"ok": "true"})
	select {
	case h.restart <- struct{}{}:
	default:
	}
}
