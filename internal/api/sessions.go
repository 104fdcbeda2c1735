package api

import (
	"sync"

	"github.com/tubechat/tubechat/internal/core"
)

// SessionRegistry keeps chat sessions in memory for the life of the process.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*core.Session
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]*core.Session)}
}

func (r *SessionRegistry) Create() *core.Session {
	sess := core.NewSession()
	r.mu.Lock()
	r.sessions[sess.ID] = sess
	r.mu.Unlock()
	return sess
}

func (r *SessionRegistry) Get(id string) (*core.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	return sess, ok
}

func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
