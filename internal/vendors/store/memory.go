package store

import (
	"context"
	"sort"
	"sync"

	"bazaar/internal/vendors/models"
	"bazaar/pkg/domain"
	"bazaar/pkg/platform/sentinel"
)

// InMemoryProfileStore hands out deep copies so callers never alias the
// product slices held inside the store.
type InMemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[domain.Address]models.Profile
}

func NewInMemoryProfileStore() *InMemoryProfileStore {
	return &InMemoryProfileStore{profiles: make(map[domain.Address]models.Profile)}
}

func clone(p *models.Profile) models.Profile {
	out := *p
	out.Products = append([]models.Product(nil), p.Products...)
	return out
}

func (s *InMemoryProfileStore) Create(_ context.Context, profile *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[profile.Address]; ok {
		return sentinel.ErrConflict
	}
	s.profiles[profile.Address] = clone(profile)
	return nil
}

func (s *InMemoryProfileStore) FindByAddress(_ context.Context, address domain.Address) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[address]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := clone(&p)
	return &out, nil
}

func (s *InMemoryProfileStore) ListByOwner(_ context.Context, owner domain.AccountID) ([]*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Profile
	for _, p := range s.profiles {
		if p.Owner == owner {
			copied := clone(&p)
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemoryProfileStore) Update(_ context.Context, profile *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[profile.Address]; !ok {
		return sentinel.ErrNotFound
	}
	s.profiles[profile.Address] = clone(profile)
	return nil
}

func (s *InMemoryProfileStore) Delete(_ context.Context, address domain.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[address]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.profiles, address)
	return nil
}

// InMemoryFactoryStateStore holds the vendor domain's singleton state.
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
