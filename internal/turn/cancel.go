package turn

import (
	"context"
	"sync"
)

// cancelRegistry enforces the per-session(1) concurrency cap (spec §5
// "Scheduling model") and exposes an explicit Cancel handle per session,
// generalizing the teacher's bare activeRuns atomic.Int32 counter into
// something a caller can interrupt between suspension points (spec §4.1
// "Cancellation semantics").
type cancelRegistry struct {
	mu      sync.Mutex
	running map[string]context.CancelFunc
}

func newCancelRegistry() *cancelRegistry {
	return &cancelRegistry{running: make(map[string]context.CancelFunc)}
}

// begin registers sessionKey as active and returns a cancellable context
// plus a release func the caller must defer. ok is false if the session
// already has a run in flight.
func (r *cancelRegistry) begin(ctx context.Context, sessionKey string) (runCtx context.Context, release func(), ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.running[sessionKey]; busy {
		return nil, nil, false
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.running[sessionKey] = cancel
	release = func() {
		r.mu.Lock()
		delete(r.running, sessionKey)
		r.mu.Unlock()
		cancel()
	}
	return runCtx, release, true
}

// cancel interrupts the active run for sessionKey, if any. Returns false if
// no run is in flight.
func (r *cancelRegistry) cancel(sessionKey string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cancel, ok := r.running[sessionKey]
	if !ok {
		return false
	}
	cancel()
	return true
}
