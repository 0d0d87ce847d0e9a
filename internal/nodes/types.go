// Package nodes implements the remote-capability half of the tool dispatcher
// (spec §4.3 "Routing"/"Remote dispatch"): a capability index of
// WebSocket-connected processes, each advertising a set of tool names it can
// execute, reached over a single duplex RPC connection per node. Grounded on
// the teacher's internal/gateway/server.go WebSocket upgrader (CheckOrigin,
// client registry under a mutex) and internal/mcp/manager_connect.go's
// request/response round-trip shape, generalized from an MCP client library
// call to a hand-rolled JSON frame since a node is a bespoke peer, not an
// MCP server.
package nodes

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// frameKind discriminates the small JSON protocol spoken over a node's
// WebSocket connection.
type frameKind string

const (
	frameRegister frameKind = "register"
	frameCall     frameKind = "call"
	frameResult   frameKind = "result"
	framePing     frameKind = "ping"
	framePong     frameKind = "pong"
)

// frame is the wire envelope for every message exchanged with a node.
type frame struct {
	Type         frameKind              `json:"type"`
	ID           string                 `json:"id,omitempty"`           // call/result correlation id
	Capabilities []string               `json:"capabilities,omitempty"` // register
	NodeName     string                 `json:"node_name,omitempty"`    // register
	Capability   string                 `json:"capability,omitempty"`   // call
	Args         map[string]interface{} `json:"args,omitempty"`         // call
	Output       string                 `json:"output,omitempty"`       // result
	IsError      bool                   `json:"is_error,omitempty"`     // result
	Error        string                 `json:"error,omitempty"`        // result
}

// Node is one connected remote process and its advertised capabilities.
type Node struct {
	ID           string
	Name         string
	Capabilities []string
	ConnectedAt  time.Time

	conn    *websocket.Conn
	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan frame
}

// hasCapability reports whether this node advertises name.
func (n *Node) hasCapability(name string) bool {
	for _, c := range n.Capabilities {
		if c == name {
			return true
		}
	}
	return false
}

func (n *Node) send(f frame) error {
	n.writeMu.Lock()
	defer n.writeMu.Unlock()
	return n.conn.WriteJSON(f)
}

// Info is the read-only snapshot returned by GET /v1/nodes.
type Info struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Capabilities []string  `json:"capabilities"`
	ConnectedAt  time.Time `json:"connected_at"`
}
