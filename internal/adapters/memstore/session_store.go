package memstore

import (
	"context"
	"sync"

	"PesaVault/internal/core/domain"
	"PesaVault/internal/core/ports"
)

// SessionStore is the default, in-memory SessionStore. Losing a session
// only forces the user to re-navigate from the menu.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

var _ ports.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates an empty in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*domain.Session)}
}

func (s *SessionStore) Get(ctx context.Context, chatID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[chatID]
	if !ok {
		return nil, nil
	}
	copied := *sess
	return &copied, nil
}

func (s *SessionStore) Put(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *session
	s.sessions[session.ChatID] = &copied
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, chatID)
	return nil
}
