package listener

import (
	"sync"

	"github.com/indragiek/reactivexpc/pkg/connection"
)

// Registry tracks the accepted endpoints a listener keeps alive.
// It is safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	conns map[*connection.Connection]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[*connection.Connection]struct{}),
	}
}

// Add registers c. Adding a registered endpoint is a no-op.
func (r *Registry) Add(c *connection.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c] = struct{}{}
}

// Remove deregisters c and reports whether it was registered.
func (r *Registry) Remove(c *connection.Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[c]; !ok {
		return false
	}
	delete(r.conns, c)
	return true
}

// Contains reports whether c is registered.
func (r *Registry) Contains(c *connection.Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.conns[c]
	return ok
}

// Len returns the number of registered endpoints.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// Snapshot returns the registered endpoints in no particular order.
func (r *Registry) Snapshot() []*connection.Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*connection.Connection, 0, len(r.conns))
	for c := range r.conns {
		out = append(out, c)
	}
	return out
}
