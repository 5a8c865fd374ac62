package store

import (
	"context"

	"bazaar/internal/vendors/models"
	"bazaar/pkg/domain"
)

// ProfileStore persists vendor profiles keyed by derived address. The
// product list is part of the profile record: Update replaces it wholesale.
// Implementations return pkg/platform/sentinel facts.
type ProfileStore interface {
	Create(ctx context.Context, profile *models.Profile) error
	FindByAddress(ctx context.Context, address domain.Address) (*models.Profile, error)
	ListByOwner(ctx context.Context, owner domain.AccountID) ([]*models.Profile, error)
	Update(ctx context.Context, profile *models.Profile) error
	Delete(ctx context.Context, address domain.Address) error
}

// FactoryStateStore persists the vendor domain's singleton factory state.
type FactoryStateStore interface {
	Create(ctx context.Context, state *models.FactoryState) error
	Get(ctx context.Context) (*models.FactoryState, error)
	Update(ctx context.Context, state *models.FactoryState) error
}
