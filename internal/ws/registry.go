package ws

import (
	"errors"
	"sort"
	"sync"
)

var ErrInvalidUser = errors.New("registry: user id must be positive")

// Registry maps a user id to its current socket. The last registration wins.
type Registry struct {
	mu    sync.RWMutex
	conns map[int]*Client
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[int]*Client)}
}

// Register stores c for userID and returns the handle it replaced, if any.
func (r *Registry) Register(userID int, c *Client) (*Client, error) {
	if userID <= 0 || c == nil {
		return nil, ErrInvalidUser
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.conns[userID]
	r.conns[userID] = c
	if prev == c {
		prev = nil
	}
	return prev, nil
}

func (r *Registry) Lookup(userID int) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[userID]
	return c, ok
}

// RemoveIf deletes the mapping only while it still points at c. Removing an
// absent or superseded mapping is a no-op.
func (r *Registry) RemoveIf(userID int, c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.conns[userID]; !ok || cur != c {
		return false
	}
	delete(r.conns, userID)
	return true
}

// ListOnline returns the registered user ids in ascending order.
func (r *Registry) ListOnline() []int {
	r.mu.RLock()
	ids := make([]int, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Ints(ids)
	return ids
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
