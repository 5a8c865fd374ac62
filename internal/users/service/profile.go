package service

import (
	"context"
	"errors"

	"bazaar/internal/audit"
	"bazaar/internal/nameindex"
	"bazaar/internal/users/models"
	"bazaar/internal/users/store"
	"bazaar/pkg/domain"
	dErrors "bazaar/pkg/domain-errors"
	"bazaar/pkg/platform/sentinel"
	"bazaar/pkg/requestcontext"
)

// ProfileService mutates existing user profiles. Every write is gated on the
// caller owning the profile; reads are open.
type ProfileService struct {
	deps
}

func NewProfileService(profiles store.ProfileStore, state store.FactoryStateStore, names NameIndex, opts ...Option) *ProfileService {
	return &ProfileService{deps: newDeps(profiles, state, names, opts)}
}

// Get returns the profile at address.
func (s *ProfileService) Get(ctx context.Context, address domain.Address) (*models.Profile, error) {
	profile, err := s.profiles.FindByAddress(ctx, address)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}
	return profile, nil
}

// GetByName resolves username through the name index and returns the profile
// it points at. A tombstoned or absent name is a not-found.
func (s *ProfileService) GetByName(ctx context.Context, username string) (*models.Profile, error) {
	username = models.NormalizeUsername(username)
	if err := models.ValidateUsername(username); err != nil {
		return nil, err
	}
	address, err := s.names.Lookup(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "username not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve username")
	}
	return s.Get(ctx, address)
}

// UpdateBio replaces the caller's bio.
func (s *ProfileService) UpdateBio(ctx context.Context, caller domain.AccountID, bio string) (*models.Profile, error) {
	if err := models.ValidateBio(bio); err != nil {
		return nil, err
	}
	var updated *models.Profile
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		profile, err := s.requireOwned(txCtx, caller)
		if err != nil {
			return err
		}
		old := profile.Bio
		profile.ApplyBio(bio, requestcontext.Now(txCtx))
		if err := s.profiles.Update(txCtx, profile); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update bio")
		}
		updated = profile
		s.emitAudit(txCtx, audit.ActionBioUpdated,
			"actor", caller.String(),
			"profile", profile.Address.String(),
			"old_value", old,
			"new_value", bio)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Rename moves the caller's profile to newUsername. The new name is claimed
// before the old one is released so no window exists where the profile is
// unreachable; the old entry is left as a reclaimable tombstone.
func (s *ProfileService) Rename(ctx context.Context, caller domain.AccountID, newUsername string) (*models.Profile, error) {
	newUsername = models.NormalizeUsername(newUsername)
	if err := models.ValidateUsername(newUsername); err != nil {
		return nil, err
	}
	var updated *models.Profile
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		profile, err := s.requireOwned(txCtx, caller)
		if err != nil {
			return err
		}
		old := profile.Username
		if old == newUsername {
			return dErrors.New(dErrors.CodeValidation, "new username matches the current one")
		}

		if err := s.names.Claim(txCtx, newUsername, profile.Address); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				if s.metrics != nil {
					s.metrics.NameConflicts.Inc()
				}
				return dErrors.New(dErrors.CodeConflict, "username is already taken")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to claim username")
		}

		profile.ApplyUsername(newUsername, requestcontext.Now(txCtx))
		if err := s.profiles.Update(txCtx, profile); err != nil {
			s.releaseQuietly(txCtx, newUsername)
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update profile")
		}
		if err := s.names.Release(txCtx, old); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to release previous username")
		}

		updated = profile
		s.emitAudit(txCtx, audit.ActionUsernameChanged,
			"actor", caller.String(),
			"profile", profile.Address.String(),
			"old_value", old,
			"new_value", newUsername)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// TransferOwnership hands the caller's profile to newOwner. The profile
// address does not change, so the previous owner cannot register a fresh
// profile at the same address while this one exists.
func (s *ProfileService) TransferOwnership(ctx context.Context, caller, newOwner domain.AccountID) (*models.Profile, error) {
	if newOwner.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "new owner is required")
	}
	if caller == newOwner {
		return nil, dErrors.New(dErrors.CodeValidation, "profile is already owned by that account")
	}
	var updated *models.Profile
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		profile, err := s.requireOwned(txCtx, caller)
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

// requireOwned loads the profile at the caller's derived address and rejects
// the call when it does not exist or is owned by someone else. The second
// case can only occur after an ownership transfer.
func (s *ProfileService) requireOwned(ctx context.Context, caller domain.AccountID) (*models.Profile, error) {
	if caller.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	address := nameindex.Derive(nameindex.NamespaceUserProfile, caller.String())
	profile, err := s.profiles.FindByAddress(ctx, address)
	if errors.Is(err, sentinel.ErrNotFound) {
		// The caller may own a profile that was transferred to them.
		profile, err = s.profiles.FindByOwner(ctx, caller)
	}
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "caller has no profile")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}
	if !profile.IsOwnedBy(caller) {
		return nil, dErrors.New(dErrors.CodeForbidden, "caller does not own this profile")
	}
	return profile, nil
}

func (s *ProfileService) releaseQuietly(ctx context.Context, name string) {
	if err := s.names.Release(ctx, name); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to release username during compensation",
			"name", name,
			"error", err)
	}
}
