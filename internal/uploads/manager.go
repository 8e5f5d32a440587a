package uploads

import (
	"context"
	"log"
	"sync"
)

// Manager keeps one Session per signed-in owner.
type Manager struct {
	ctx  context.Context
	deps Deps

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager returns a Manager whose sessions load snapshots under ctx.
func NewManager(ctx context.Context, deps Deps) *Manager {
	return &Manager{ctx: ctx, deps: deps, sessions: make(map[string]*Session)}
}

// Session returns the open session of ownerID, opening one if needed. A new
// session has loaded its first snapshot when it is returned.
func (m *Manager) Session(ownerID string) *Session {
	m.mu.Lock()
	s, ok := m.sessions[ownerID]
	m.mu.Unlock()
	if ok {
		return s
	}

	// Opening loads from the record store, so it runs outside mu.
	opened := Open(m.ctx, ownerID, m.deps)

	m.mu.Lock()
	if s, ok := m.sessions[ownerID]; ok {
		m.mu.Unlock()
		opened.Close()
		return s
	}
	m.sessions[ownerID] = opened
	m.mu.Unlock()
	return opened
}

// SignedOut closes the owner's session.
func (m *Manager) SignedOut(ownerID string) {
	m.mu.Lock()
	s, ok := m.sessions[ownerID]
	delete(m.sessions, ownerID)
	m.mu.Unlock()
	if ok {
		log.Printf("[uploads] closing session of %s", ownerID)
		s.Close()
	}
}

// Close closes every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
