package store

import (
	"context"

	"bazaar/internal/users/models"
	"bazaar/pkg/domain"
)

// ProfileStore persists user profiles keyed by derived address.
// Implementations return pkg/platform/sentinel facts: ErrConflict when the
// address is already occupied, ErrNotFound when a record is absent.
type ProfileStore interface {
	Create(ctx context.Context, profile *models.Profile) error
	FindByAddress(ctx context.Context, address domain.Address) (*models.Profile, error)
	FindByOwner(ctx context.Context, owner domain.AccountID) (*models.Profile, error)
	Update(ctx context.Context, profile *models.Profile) error
	Delete(ctx context.Context, address domain.Address) error
}

// FactoryStateStore persists the domain's singleton factory state.
// Create fails with sentinel.ErrConflict once initialized; Get returns
// sentinel.ErrNotFound before initialization.
type FactoryStateStore interface {
	Create(ctx context.Context, state *models.FactoryState) error
	Get(ctx context.Context) (*models.FactoryState, error)
	Update(ctx context.Context, state *models.FactoryState) error
}
