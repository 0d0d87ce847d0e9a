package nodes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
)

// Handler upgrades GET /v1/nodes/connect to a WebSocket and keeps the
// connection registered in Registry for the rest of its lifetime, mirroring
// the teacher's Server.handleWebSocket/registerClient/unregisterClient
// lifecycle (upgrade, register, run, unregister-on-exit).
type Handler struct {
	registry       *Registry
	upgrader       websocket.Upgrader
	allowedOrigins []string
}

func NewHandler(registry *Registry, allowedOrigins []string) *Handler {
	h := &Handler{registry: registry, allowedOrigins: allowedOrigins}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin matches the teacher's gateway CORS policy: no configured
// whitelist means allow all, and non-browser clients sending no Origin
// header are always allowed.
func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.allowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range h.allowedOrigins {
		if o == origin || o == "*" {
			return true
		}
	}
	return false
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("nodes: websocket upgrade failed", "err", err)
		return
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	var reg frame
	if err := conn.ReadJSON(&reg); err != nil || reg.Type != frameRegister {
		slog.Warn("nodes: first frame was not a registration", "err", err)
		conn.Close()
		return
	}

	node := &Node{
		ID:           uuid.NewString(),
		Name:         reg.NodeName,
		Capabilities: reg.Capabilities,
		ConnectedAt:  time.Now(),
		conn:         conn,
		pending:      make(map[string]chan frame),
	}
	h.registry.register(node)
	slog.Info("nodes: connected", "id", node.ID, "name", node.Name, "capabilities", node.Capabilities)

	stopPing := make(chan struct{})
	go h.pingLoop(node, stopPing)

	defer func() {
		close(stopPing)
		h.registry.unregister(node.ID)
		conn.Close()
		slog.Info("nodes: disconnected", "id", node.ID, "name", node.Name)
	}()

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			return
		}
		switch f.Type {
		case frameResult:
			node.deliver(f)
		case framePong:
			conn.SetReadDeadline(time.Now().Add(pongWait))
		default:
			slog.Warn("nodes: unexpected frame from node", "id", node.ID, "type", f.Type)
		}
	}
}

func (h *Handler) pingLoop(n *Node, stop <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := n.send(frame{Type: framePing}); err != nil {
				return
			}
		}
	}
}
