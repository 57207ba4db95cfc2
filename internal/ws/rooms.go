package ws

import (
	"sort"
	"sync"
)

// Rooms tracks which group rooms each connection joined.
// Joining is not an authorization check.
type Rooms struct {
	mu     sync.RWMutex
	rooms  map[int]map[*Client]struct{}
	joined map[*Client]map[int]struct{}
}

func NewRooms() *Rooms {
	return &Rooms{
		rooms:  make(map[int]map[*Client]struct{}),
		joined: make(map[*Client]map[int]struct{}),
	}
}

func (r *Rooms) Join(c *Client, groupID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[groupID]; !ok {
		r.rooms[groupID] = make(map[*Client]struct{})
	}
	r.rooms[groupID][c] = struct{}{}
	if _, ok := r.joined[c]; !ok {
		r.joined[c] = make(map[int]struct{})
	}
	r.joined[c][groupID] = struct{}{}
}

// Groups lists the rooms c joined, ascending.
func (r *Rooms) Groups(c *Client) []int {
	r.mu.RLock()
	ids := make([]int, 0, len(r.joined[c]))
	for id := range r.joined[c] {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Ints(ids)
	return ids
}

// DropAll removes c from every room and returns the rooms it left.
func (r *Rooms) DropAll(c *Client) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	groups := r.joined[c]
	delete(r.joined, c)
	left := make([]int, 0, len(groups))
	for id := range groups {
		left = append(left, id)
		if conns, ok := r.rooms[id]; ok {
			delete(conns, c)
			if len(conns) == 0 {
				delete(r.rooms, id)
			}
		}
	}
	sort.Ints(left)
	return left
}

// Sizes reports the connection count per room.
func (r *Rooms) Sizes() map[int]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sizes := make(map[int]int, len(r.rooms))
	for id, conns := range r.rooms {
		sizes[id] = len(conns)
	}
	return sizes
}
