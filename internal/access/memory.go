package access

import (
	"context"
	"sync"
)

// InMemory implements Store with in-process concurrency safety. It backs
// handler tests and local experiments; production traffic goes through
// SQLStore.
type InMemory struct {
	mu     sync.RWMutex
	users  map[string]*User
	grants map[string]GrantSet
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty store, optionally preloaded with users.
func NewInMemory(users ...*User) *InMemory {
	s := &InMemory{
		users:  make(map[string]*User),
		grants: make(map[string]GrantSet),
	}
	for _, u := range users {
		copied := *u
		s.users[u.ID] = &copied
	}
	return s
}

func (s *InMemory) FindUser(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	return &out, nil
}

func (s *InMemory) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemory) ListUsers(ctx context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		copied := *u
		out = append(out, &copied)
	}
	return out, nil
}

func (s *InMemory) UpdatePassword(ctx context.Context, userID, credentialHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.CredentialHash = credentialHash
	return nil
}

func (s *InMemory) Grants(ctx context.Context, userID string) (GrantSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := GrantSet{}
	for resource, g := range s.grants[userID] {
		out[resource] = g
	}
	return out, nil
}

func (s *InMemory) ReplaceGrants(ctx context.Context, userID string, grants GrantSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return ErrNotFound
	}
	replacement := GrantSet{}
	for resource, g := range grants {
		replacement[resource] = g
	}
	s.grants[userID] = replacement
	return nil
}
