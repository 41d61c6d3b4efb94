package users

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is a thread-safe in-memory Store with a unique email index
type MemoryStore struct {
	mu      sync.RWMutex
	items   map[uuid.UUID]User
	byEmail map[string]uuid.UUID
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:   make(map[uuid.UUID]User),
		byEmail: make(map[string]uuid.UUID),
	}
}

// Create stores a new user
func (s *MemoryStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[u.Email]; taken {
		return ErrDuplicateEmail
	}
	s.items[u.ID] = *u
	s.byEmail[u.Email] = u.ID
	return nil
}

// Get returns a copy of the stored user
func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

// Update replaces a stored user
func (s *MemoryStore) Update(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.items[u.ID]
	if !ok {
		return ErrNotFound
	}
	if owner, taken := s.byEmail[u.Email]; taken && owner != u.ID {
		return ErrDuplicateEmail
	}
	delete(s.byEmail, old.Email)
	s.items[u.ID] = *u
	s.byEmail[u.Email] = u.ID
	return nil
}

// Delete removes a user
func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.items[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.items, id)
	delete(s.byEmail, u.Email)
	return nil
}

// Truncate removes every user
func (s *MemoryStore) Truncate(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[uuid.UUID]User)
	s.byEmail = make(map[string]uuid.UUID)
	return nil
}
