package ledger

import (
	"context"
	"sync"

	"bazaar/pkg/domain"
	"bazaar/pkg/platform/checked"
	"bazaar/pkg/platform/sentinel"
)

// InMemory keeps balances in a mutex-guarded map. Debit and credit happen
// under one lock so a transfer is all-or-nothing.
type InMemory struct {
	mu       sync.RWMutex
	balances map[domain.AccountID]uint64
}

func NewInMemory() *InMemory {
	return &InMemory{balances: make(map[domain.AccountID]uint64)}
}

func (l *InMemory) Transfer(_ context.Context, from, to domain.AccountID, amount uint64) error {
	if amount == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[from] < amount {
		return sentinel.ErrInsufficientFunds
	}
	credited, ok := checked.AddUint64(l.balances[to], amount)
	if !ok {
		return sentinel.ErrConflict
	}
	l.balances[from] -= amount
	l.balances[to] = credited
	return nil
}

func (l *InMemory) Balance(_ context.Context, account domain.AccountID) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[account], nil
}

// Mint credits an account out of thin air. Test and development seeding only;
// production balances come from the surrounding substrate.
func (l *InMemory) Mint(_ context.Context, account domain.AccountID, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	credited, ok := checked.AddUint64(l.balances[account], amount)
	if !ok {
		return sentinel.ErrConflict
	}
	l.balances[account] = credited
	return nil
}
