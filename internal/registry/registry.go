// Package registry holds the in-memory presence table mapping user
// identities to their active transport sessions.
package registry

import (
	"sync"

	"github.com/widefield-io/go-chat-relay/pkg/chat"
)

// Registry implements chat.SessionRegistry with a mutex-guarded pair of
// maps. The reverse index (connection ID to user) makes Unbind O(1) and
// keeps the two invariants in lockstep: at most one connection per user,
// at most one user per connection.
type Registry struct {
	mu     sync.RWMutex
	byUser map[chat.UserID]chat.Connection
	byConn map[string]chat.UserID
}

// New creates an empty registry. One instance is created at service start
// and injected into the presence manager and the router.
func New() *Registry {
	return &Registry{
		byUser: make(map[chat.UserID]chat.Connection),
		byConn: make(map[string]chat.UserID),
	}
}

// Bind inserts or replaces the entry for userID. A prior connection for
// the same user is silently superseded (last writer wins): it stays open
// but becomes unroutable. If conn was already bound to a different user,
// that association is dropped first so a connection never backs two users.
func (r *Registry) Bind(userID chat.UserID, conn chat.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prevUser, ok := r.byConn[conn.ID()]; ok && prevUser != userID {
		delete(r.byUser, prevUser)
	}
	if prevConn, ok := r.byUser[userID]; ok {
		delete(r.byConn, prevConn.ID())
	}
	r.byUser[userID] = conn
	r.byConn[conn.ID()] = userID
}

// Unbind removes the entry whose connection equals conn, if any.
// Unbinding an unknown or already-superseded connection is a no-op, so a
// stale connection's disconnect never evicts a newer binding.
func (r *Registry) Unbind(conn chat.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byConn[conn.ID()]
	if !ok {
		return
	}
	delete(r.byConn, conn.ID())
	delete(r.byUser, userID)
}

// Resolve returns the current connection for userID. Never blocks.
func (r *Registry) Resolve(userID chat.UserID) (chat.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.byUser[userID]
	return conn, ok
}

// Size returns the count of active entries.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byUser)
}
