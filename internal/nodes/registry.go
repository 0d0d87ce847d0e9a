package nodes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNodeGone means the node disconnected while a call was in flight (spec
// §4.3 "A lost node connection before response → ToolExecFailed{NodeGone}").
type ErrNodeGone struct{ NodeID string }

func (e *ErrNodeGone) Error() string { return fmt.Sprintf("node %q disconnected", e.NodeID) }

// Registry is the capability index the tool dispatcher consults after
// failing to find a local match (spec §4.3 "prefer local match; else pick
// the first node advertising the capability").
type Registry struct {
	mu    sync.RWMutex
	nodes map[string]*Node
}

func NewRegistry() *Registry {
	return &Registry{nodes: make(map[string]*Node)}
}

func (r *Registry) register(n *Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[n.ID] = n
}

// unregister removes a node and fails out any calls still waiting on it.
func (r *Registry) unregister(id string) {
	r.mu.Lock()
	n, ok := r.nodes[id]
	delete(r.nodes, id)
	r.mu.Unlock()
	if !ok {
		return
	}
	n.mu.Lock()
	for callID, ch := range n.pending {
		close(ch)
		delete(n.pending, callID)
	}
	n.mu.Unlock()
}

// FindByCapability returns the first connected node advertising name, in no
// particular order beyond Go's map iteration (spec only requires "the
// first" node, not a load-balancing policy).
func (r *Registry) FindByCapability(name string) (*Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, n := range r.nodes {
		if n.hasCapability(name) {
			return n, true
		}
	}
	return nil, false
}

// List returns a snapshot of every connected node, for GET /v1/nodes.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.nodes))
	for _, n := range r.nodes {
		out = append(out, Info{ID: n.ID, Name: n.Name, Capabilities: n.Capabilities, ConnectedAt: n.ConnectedAt})
	}
	return out
}

// Dispatch sends a capability call to node and blocks for its result or
// ctx's deadline, whichever comes first (spec §4.3 "Remote dispatch": RPC
// request to the node's durable session; await result with timeout_ms from
// args, bounded by agent limits").
func (r *Registry) Dispatch(ctx context.Context, n *Node, capability string, args map[string]interface{}) (output string, isError bool, err error) {
	callID := uuid.NewString()
	ch := make(chan frame, 1)

	n.mu.Lock()
	if n.pending == nil {
		n.pending = make(map[string]chan frame)
	}
	n.pending[callID] = ch
	n.mu.Unlock()

	defer func() {
		n.mu.Lock()
		delete(n.pending, callID)
		n.mu.Unlock()
	}()

	if sendErr := n.send(frame{Type: frameCall, ID: callID, Capability: capability, Args: args}); sendErr != nil {
		return "", false, &ErrNodeGone{NodeID: n.ID}
	}

	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case resp, ok := <-ch:
		if !ok {
			return "", false, &ErrNodeGone{NodeID: n.ID}
		}
		if resp.Error != "" {
			return resp.Output, true, fmt.Errorf("%s", resp.Error)
		}
		return resp.Output, resp.IsError, nil
	}
}

// deliver routes an inbound result frame to the goroutine awaiting it.
func (n *Node) deliver(f frame) {
	n.mu.Lock()
	ch, ok := n.pending[f.ID]
	n.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- f:
	case <-time.After(time.Second):
	}
}
