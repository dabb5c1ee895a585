package runtime

import (
	"chat-relay/contract"
	"chat-relay/errors"
	"sync"

	"github.com/samber/lo"
)

// Registry is the single owner of live connections and claimed nicknames.
// Lock order when a flow needs both: Registry before Directory.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]contract.Connection // connection ID -> handle
	nicknames   map[string]string              // connection ID -> nickname
	owners      map[string]string              // nickname -> connection ID
}

var _ contract.IRegistry = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[string]contract.Connection),
		nicknames:   make(map[string]string),
		owners:      make(map[string]string),
	}
}

// Register records a newly accepted connection with no nickname.
func (r *Registry) Register(conn contract.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connections[conn.ID()] = conn
}

// Claim associates nickname with the connection.
// Claiming the nickname already held is a no-op. Claiming a free one while
// holding another renames the connection and frees the old nickname.
func (r *Registry) Claim(connID, nickname string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.connections[connID]; !ok {
		return errors.ErrConnectionNotFound
	}
	if owner, taken := r.owners[nickname]; taken {
		if owner == connID {
			return nil
		}
		return errors.ErrNicknameTaken
	}
	if previous, ok := r.nicknames[connID]; ok {
		delete(r.owners, previous)
	}
	r.nicknames[connID] = nickname
	r.owners[nickname] = connID
	return nil
}

func (r *Registry) NicknameOf(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	nickname, ok := r.nicknames[connID]
	return nickname, ok
}

// Release forgets the connection and frees its nickname in one step.
// It returns the nickname that was held, if any. Releasing twice is a no-op.
func (r *Registry) Release(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.connections, connID)
	nickname, ok := r.nicknames[connID]
	if !ok {
		return "", false
	}
	delete(r.nicknames, connID)
	delete(r.owners, nickname)
	return nickname, true
}

// Connections returns a snapshot safe to iterate without the lock.
func (r *Registry) Connections() []contract.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.connections)
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}
