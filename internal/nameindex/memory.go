package nameindex

import (
	"context"
	"sync"

	"bazaar/pkg/domain"
	"bazaar/pkg/platform/sentinel"
)

// InMemory keeps the index in a mutex-guarded map. Tombstones are entries
// with a cleared target, matching the persistent implementations.
type InMemory struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewInMemory() *InMemory {
	return &InMemory{entries: make(map[string]Entry)}
}

func (s *InMemory) Claim(_ context.Context, name string, target domain.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[name]; ok && e.Claimed() {
		return sentinel.ErrAlreadyUsed
	}
	s.entries[name] = Entry{Name: name, Target: target}
	return nil
}

func (s *InMemory) Release(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[name]; !ok {
		return sentinel.ErrNotFound
	}
	s.entries[name] = Entry{Name: name}
	return nil
}

func (s *InMemory) Lookup(_ context.Context, name string) (domain.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[name]
	if !ok || !e.Claimed() {
		return "", sentinel.ErrNotFound
	}
	return e.Target, nil
}
