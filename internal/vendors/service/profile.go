package service

import (
	"context"
	"errors"
	"fmt"

	"bazaar/internal/audit"
	"bazaar/internal/vendors/models"
	"bazaar/internal/vendors/store"
	"bazaar/pkg/domain"
	dErrors "bazaar/pkg/domain-errors"
	"bazaar/pkg/platform/sentinel"
	"bazaar/pkg/requestcontext"
)

// ProfileService mutates existing vendor profiles and their product
// catalogs. Writes are gated on the caller owning the vendor; reads are
// open. Vendors are addressed by their current name, resolved through the
// name index.
type ProfileService struct {
	deps
}

func NewProfileService(profiles store.ProfileStore, state store.FactoryStateStore, names NameIndex, opts ...Option) *ProfileService {
	return &ProfileService{deps: newDeps(profiles, state, names, opts)}
}

// Get returns the vendor profile at address.
func (s *ProfileService) Get(ctx context.Context, address domain.Address) (*models.Profile, error) {
	profile, err := s.profiles.FindByAddress(ctx, address)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "vendor not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load vendor")
	}
	return profile, nil
}

// GetByName resolves name through the name index and returns the vendor it
// points at.
func (s *ProfileService) GetByName(ctx context.Context, name string) (*models.Profile, error) {
	name = models.NormalizeName(name)
	if err := models.ValidateName(name); err != nil {
		return nil, err
	}
	address, err := s.names.Lookup(ctx, name)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "vendor name not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve vendor name")
	}
	return s.Get(ctx, address)
}

// ListByOwner returns all vendors owned by owner, ordered by name.
func (s *ProfileService) ListByOwner(ctx context.Context, owner domain.AccountID) ([]*models.Profile, error) {
	if owner.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "owner is required")
	}
	profiles, err := s.profiles.ListByOwner(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list vendors")
	}
	return profiles, nil
}

// UpdateDescription replaces the description of the caller's vendor.
func (s *ProfileService) UpdateDescription(ctx context.Context, caller domain.AccountID, vendorName, description string) (*models.Profile, error) {
	if err := models.ValidateDescription(description); err != nil {
		return nil, err
	}
	var updated *models.Profile
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		profile, err := s.requireOwned(txCtx, caller, vendorName)
		if err != nil {
			return err
		}
		old := profile.Description
		profile.ApplyDescription(description, requestcontext.Now(txCtx))
		if err := s.profiles.Update(txCtx, profile); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update description")
		}
		updated = profile
		s.emitAudit(txCtx, audit.ActionDescriptionUpdated,
			"actor", caller.String(),
			"profile", profile.Address.String(),
			"old_value", old,
			"new_value", description)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Rename moves the caller's vendor to newName. The profile address stays the
// registration-time derivation; only the index entry and the stored name
// move. Claim-then-release ordering as in the user domain.
func (s *ProfileService) Rename(ctx context.Context, caller domain.AccountID, vendorName, newName string) (*models.Profile, error) {
	newName = models.NormalizeName(newName)
	if err := models.ValidateName(newName); err != nil {
		return nil, err
	}
	var updated *models.Profile
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		profile, err := s.requireOwned(txCtx, caller, vendorName)
		if err != nil {
			return err
		}
		old := profile.Name
		if old == newName {
			return dErrors.New(dErrors.CodeValidation, "new vendor name matches the current one")
		}

		if err := s.names.Claim(txCtx, newName, profile.Address); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				if s.metrics != nil {
					s.metrics.NameConflicts.Inc()
				}
				return dErrors.New(dErrors.CodeConflict, "vendor name is already taken")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to claim vendor name")
		}

		profile.ApplyName(newName, requestcontext.Now(txCtx))
		if err := s.profiles.Update(txCtx, profile); err != nil {
			s.releaseQuietly(txCtx, newName)
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update vendor")
		}
		if err := s.names.Release(txCtx, old); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to release previous vendor name")
		}

		updated = profile
		s.emitAudit(txCtx, audit.ActionVendorNameChanged,
			"actor", caller.String(),
			"profile", profile.Address.String(),
			"old_value", old,
			"new_value", newName)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// TransferOwnership hands the caller's vendor to newOwner.
func (s *ProfileService) TransferOwnership(ctx context.Context, caller domain.AccountID, vendorName string, newOwner domain.AccountID) (*models.Profile, error) {
	if newOwner.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "new owner is required")
	}
	if caller == newOwner {
		return nil, dErrors.New(dErrors.CodeValidation, "vendor is already owned by that account")
	}
	var updated *models.Profile
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		profile, err := s.requireOwned(txCtx, caller, vendorName)
		if err != nil {
			return err
		}
		profile.ApplyOwner(newOwner, requestcontext.Now(txCtx))
		if err := s.profiles.Update(txCtx, profile); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to transfer ownership")
		}
		updated = profile
		s.emitAudit(txCtx, audit.ActionOwnershipTransferred,
			"actor", caller.String(),
			"profile", profile.Address.String(),
			"old_value", caller.String(),
			"new_value", newOwner.String())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// AddProduct appends a product to the caller's vendor catalog.
func (s *ProfileService) AddProduct(ctx context.Context, caller domain.AccountID, vendorName, productID string, price uint64, description string) (*models.Profile, error) {
	var updated *models.Profile
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		profile, err := s.requireOwned(txCtx, caller, vendorName)
		if err != nil {
			return err
		}
		if err := profile.AddProduct(productID, price, description, requestcontext.Now(txCtx)); err != nil {
			return err
		}
		if err := s.profiles.Update(txCtx, profile); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store product")
		}
		updated = profile
		s.emitAudit(txCtx, audit.ActionProductAdded,
			"actor", caller.String(),
			"profile", profile.Address.String(),
			"name", productID,
			"amount", price,
			"new_value", fmt.Sprintf("%d products", len(profile.Products)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ProductsAdded.Inc()
	}
	return updated, nil
}

// RemoveProduct deletes a product from the caller's vendor catalog.
func (s *ProfileService) RemoveProduct(ctx context.Context, caller domain.AccountID, vendorName, productID string) (*models.Profile, error) {
	var updated *models.Profile
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		profile, err := s.requireOwned(txCtx, caller, vendorName)
		if err != nil {
			return err
		}
		if err := profile.RemoveProduct(productID, requestcontext.Now(txCtx)); err != nil {
			return err
		}
		if err := s.profiles.Update(txCtx, profile); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store catalog")
		}
		updated = profile
		s.emitAudit(txCtx, audit.ActionProductRemoved,
			"actor", caller.String(),
			"profile", profile.Address.String(),
			"name", productID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ProductsRemoved.Inc()
	}
	return updated, nil
}

// requireOwned resolves vendorName to a profile and checks that caller owns
// it. The name goes through the index so a renamed vendor is only reachable
// under its current name.
func (s *ProfileService) requireOwned(ctx context.Context, caller domain.AccountID, vendorName string) (*models.Profile, error) {
	if caller.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	vendorName = models.NormalizeName(vendorName)
	if err := models.ValidateName(vendorName); err != nil {
		return nil, err
	}
	address, err := s.names.Lookup(ctx, vendorName)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "vendor name not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve vendor name")
	}
	profile, err := s.profiles.FindByAddress(ctx, address)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "vendor not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load vendor")
	}
	if !profile.IsOwnedBy(caller) {
		return nil, dErrors.New(dErrors.CodeForbidden, "caller does not own this vendor")
	}
	return profile, nil
}

func (s *ProfileService) releaseQuietly(ctx context.Context, name string) {
	if err := s.names.Release(ctx, name); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to release vendor name during compensation",
			"name", name,
			"error", err)
	}
}
