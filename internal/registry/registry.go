//go:generate go run go.uber.org/mock/mockgen -source=registry.go -destination=../mocks/mock_conn.go -package=mocks
package registry

import "sync"

// Conn is a live, push-capable connection. Send must not block.
type Conn interface {
	Send(event string, payload any) error
}

// Registry maps a user id to the single live connection currently routing to that user.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

func New() *Registry {
	return &Registry{conns: make(map[string]Conn)}
}

// Register binds conn to userID. A previous connection is replaced without being notified
// and is returned so the caller can log the eviction.
func (r *Registry) Register(userID string, conn Conn) (evicted Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.conns[userID]
	r.conns[userID] = conn
	if prev == conn {
		return nil
	}
	return prev
}

// Unregister removes the entry only if it still points at conn, so a stale disconnect
// cannot drop a newer connection. It reports whether an entry was removed.
func (r *Registry) Unregister(userID string, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.conns[userID]
	if !ok || cur != conn {
		return false
	}
	delete(r.conns, userID)
	return true
}

func (r *Registry) Lookup(userID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[userID]
	return c, ok
}

func (r *Registry) UserIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.conns))
	for id := range r.conns {
		out = append(out, id)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Range calls fn for a snapshot of the current entries; fn runs without the lock held.
func (r *Registry) Range(fn func(userID string, conn Conn)) {
	r.mu.RLock()
	snapshot := make(map[string]Conn, len(r.conns))
	for id, c := range r.conns {
		snapshot[id] = c
	}
	r.mu.RUnlock()
	for id, c := range snapshot {
		fn(id, c)
	}
}
