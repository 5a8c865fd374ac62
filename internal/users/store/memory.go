package store

import (
	"context"
	"sync"

	"bazaar/internal/users/models"
	"bazaar/pkg/domain"
	"bazaar/pkg/platform/sentinel"
)

// In-memory stores favor clarity over performance. They hand out copies so
// callers never alias store-internal state.
type InMemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[domain.Address]models.Profile
	byOwner  map[domain.AccountID]domain.Address
}

func NewInMemoryProfileStore() *InMemoryProfileStore {
	return &InMemoryProfileStore{
		profiles: make(map[domain.Address]models.Profile),
		byOwner:  make(map[domain.AccountID]domain.Address),
	}
}

func (s *InMemoryProfileStore) Create(_ context.Context, profile *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[profile.Address]; ok {
		return sentinel.ErrConflict
	}
	s.profiles[profile.Address] = *profile
	s.byOwner[profile.Owner] = profile.Address
	return nil
}

func (s *InMemoryProfileStore) FindByAddress(_ context.Context, address domain.Address) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[address]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := p
	return &out, nil
}

func (s *InMemoryProfileStore) FindByOwner(_ context.Context, owner domain.AccountID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	addr, ok := s.byOwner[owner]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	p := s.profiles[addr]
	out := p
	return &out, nil
}

func (s *InMemoryProfileStore) Update(_ context.Context, profile *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.profiles[profile.Address]
	if !ok {
		return sentinel.ErrNotFound
	}
	if old.Owner != profile.Owner {
		delete(s.byOwner, old.Owner)
		s.byOwner[profile.Owner] = profile.Address
	}
	s.profiles[profile.Address] = *profile
	return nil
}

func (s *InMemoryProfileStore) Delete(_ context.Context, address domain.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[address]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.profiles, address)
	delete(s.byOwner, p.Owner)
	return nil
}

// InMemoryFactoryStateStore holds the singleton factory state.
type InMemoryFactoryStateStore struct {
	mu    sync.RWMutex
	state *models.FactoryState
}

func NewInMemoryFactoryStateStore() *InMemoryFactoryStateStore {
	return &InMemoryFactoryStateStore{}
}

func (s *InMemoryFactoryStateStore) Create(_ context.Context, state *models.FactoryState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != nil {
		return sentinel.ErrConflict
	}
	copied := *state
	s.state = &copied
	return nil
}

func (s *InMemoryFactoryStateStore) Get(_ context.Context) (*models.FactoryState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return nil, sentinel.ErrNotFound
	}
	copied := *s.state
	return &copied, nil
}

func (s *InMemoryFactoryStateStore) Update(_ context.Context, state *models.FactoryState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return sentinel.ErrNotFound
	}
	copied := *state
	s.state = &copied
	return nil
}
