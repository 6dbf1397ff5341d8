package server

import (
	"fmt"
	"sync"
)

// Registry tracks which room each live connection belongs to. A
// connection belongs to exactly one room at a time; unregistering an
// absent connection is a no-op so double-close races are harmless.
type Registry struct {
	mu      sync.Mutex
	conns   map[*Client]string
	members map[string][]*Client
}

func NewRegistry() *Registry {
	return &Registry{
		conns:   make(map[*Client]string),
		members: make(map[string][]*Client),
	}
}

func (reg *Registry) Register(c *Client, roomId string) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if cur, ok := reg.conns[c]; ok {
		return fmt.Errorf("connection %s already registered in room %q", c.sessionId, cur)
	}

	reg.conns[c] = roomId
	reg.members[roomId] = append(reg.members[roomId], c)
	return nil
}

// Unregister removes the connection from its room. It reports whether
// the connection was present, so callers can announce the leave exactly
// once.
func (reg *Registry) Unregister(c *Client) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	roomId, ok := reg.conns[c]
	if !ok {
		return false
	}
	delete(reg.conns, c)

	members := reg.members[roomId]
	for i, member := range members {
		if member == c {
			reg.members[roomId] = append(members[:i], members[i+1:]...)
			break
		}
	}
	if len(reg.members[roomId]) == 0 {
		delete(reg.members, roomId)
	}

	return true
}

// Members returns the room's connections in registration order.
func (reg *Registry) Members(roomId string) []*Client {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	members := make([]*Client, len(reg.members[roomId]))
	copy(members, reg.members[roomId])
	return members
}

// Usernames returns the roster for a room in registration order. A
// username connected twice appears twice, matching the distinct
// connections actually present.
func (reg *Registry) Usernames(roomId string) []string {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	users := make([]string, 0, len(reg.members[roomId]))
	for _, c := range reg.members[roomId] {
		users = append(users, c.username)
	}
	return users
}

func (reg *Registry) Count(roomId string) int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.members[roomId])
}
