package server

import (
	"sort"
	"sync"
)

// ConnectionRegistry tracks which users currently hold at least one open
// presence connection. It is shared by every connection lifecycle callback
// in the process, so all state lives behind one mutex and transition
// detection happens inside the same critical section as the mutation.
type ConnectionRegistry struct {
	mu          sync.Mutex
	onlineUsers map[string]map[string]struct{}
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		onlineUsers: make(map[string]map[string]struct{}),
	}
}

// RegisterConnection records a connection for the user and reports whether
// this was the user's first connection, the 0 to 1 transition. Only that
// transition should produce an online broadcast, so a second device coming
// up stays silent.
func (r *ConnectionRegistry) RegisterConnection(username, connectionId string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.onlineUsers[username]
	if !ok {
		conns = make(map[string]struct{})
		r.onlineUsers[username] = conns
	}
	conns[connectionId] = struct{}{}

	return !ok
}

// DeregisterConnection removes a connection for the user and reports whether
// it was the user's last one, the 1 to 0 transition. Unknown usernames are a
// no-op.
func (r *ConnectionRegistry) DeregisterConnection(username, connectionId string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.onlineUsers[username]
	if !ok {
		return false
	}

	delete(conns, connectionId)
	if len(conns) == 0 {
		delete(r.onlineUsers, username)
		return true
	}

	return false
}

// ListOnlineUsers returns a sorted snapshot of all usernames with at least
// one open connection.
func (r *ConnectionRegistry) ListOnlineUsers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	usernames := make([]string, 0, len(r.onlineUsers))
	for username := range r.onlineUsers {
		usernames = append(usernames, username)
	}
	sort.Strings(usernames)

	return usernames
}

// ConnectionsForUser returns a snapshot of the user's connection ids, or nil
// if the user is offline.
func (r *ConnectionRegistry) ConnectionsForUser(username string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.onlineUsers[username]
	if !ok {
		return nil
	}

	connectionIds := make([]string, 0, len(conns))
	for id := range conns {
		connectionIds = append(connectionIds, id)
	}

	return connectionIds
}
