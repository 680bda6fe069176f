package chat

import (
	"sync"

	"github.com/samber/lo"
)

// Registry tracks every live authenticated connection. It is mutated only
// by the session protocol (add on authenticate, remove on close); the
// router and HTTP handlers read it, never write.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Conn
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*Conn)}
}

func (r *Registry) Add(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c.id] = c
}

// Remove drops a connection by id and reports whether it was present.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[id]; !ok {
		return false
	}
	delete(r.conns, id)
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) snapshot() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]*Conn, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	return conns
}

// Admins returns every live operator connection.
func (r *Registry) Admins() []*Conn {
	return lo.Filter(r.snapshot(), func(c *Conn, _ int) bool {
		ident := c.Identity()
		return ident != nil && ident.IsAdmin
	})
}

// NonAdmins returns every live visitor connection, authenticated or not.
func (r *Registry) NonAdmins() []*Conn {
	return lo.Filter(r.snapshot(), func(c *Conn, _ int) bool {
		ident := c.Identity()
		return ident == nil || !ident.IsAdmin
	})
}

// ForUser returns every live connection belonging to userID, across all
// of that user's open tabs and devices.
func (r *Registry) ForUser(userID int64) []*Conn {
	return lo.Filter(r.snapshot(), func(c *Conn, _ int) bool {
		ident := c.Identity()
		return ident != nil && ident.UserID == userID
	})
}

// Online reports whether userID has at least one live connection.
func (r *Registry) Online(userID int64) bool {
	return len(r.ForUser(userID)) > 0
}
