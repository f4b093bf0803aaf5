package memstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"PesaVault/internal/core/domain"
	"PesaVault/internal/core/ports"
)

// UserStore is an in-memory UserStore for tests and development. Records
// are cloned on the way in and out so callers never share memory with the
// store.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

var _ ports.UserStore = (*UserStore)(nil)

// NewUserStore creates an empty in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	raw, err := json.Marshal(u)
	if err != nil {
		panic(err) // domain.User always marshals
	}
	var out domain.User
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	return &out
}

func (s *UserStore) Get(ctx context.Context, phone string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[phone]
	if !ok {
		return nil, nil
	}
	return cloneUser(u), nil
}

func (s *UserStore) GetByChatID(ctx context.Context, chatID string) (*domain.User, error) {
	if chatID == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ChatID == chatID {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (s *UserStore) GetByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	if code == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ReferralCode == code {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (s *UserStore) Put(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.Phone] = cloneUser(user)
	return nil
}

func (s *UserStore) All(ctx context.Context) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Phone < out[j].Phone })
	return out, nil
}
