package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bazaar/internal/audit"
	"bazaar/internal/nameindex"
	"bazaar/internal/vendors/models"
	"bazaar/internal/vendors/store"
	"bazaar/pkg/domain"
	dErrors "bazaar/pkg/domain-errors"
	"bazaar/pkg/platform/checked"
	"bazaar/pkg/platform/sentinel"
	"bazaar/pkg/requestcontext"
)

// FactoryService is the admission-control front door for the vendor domain.
// Compared to the user factory it adds a pause switch and seeds profile
// addresses with a per-registration nonce rather than the owner, so one
// account may operate several vendors and a vacated name can be re-registered
// at a fresh address.
type FactoryService struct {
	deps
	ledger Ledger
}

func NewFactoryService(profiles store.ProfileStore, state store.FactoryStateStore, names NameIndex, ledger Ledger, opts ...Option) *FactoryService {
	return &FactoryService{
		deps:   newDeps(profiles, state, names, opts),
		ledger: ledger,
	}
}

// Initialize creates the singleton factory state with registration open.
func (s *FactoryService) Initialize(ctx context.Context, admin domain.AccountID, fee uint64) (*models.FactoryState, error) {
	state, err := models.NewFactoryState(admin, domain.AccountID(uuid.New()), fee, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.state.Create(ctx, state); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "vendor factory is already initialized")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to initialize vendor factory")
	}
	s.emitAudit(ctx, audit.ActionFactoryInitialized,
		"actor", admin.String(),
		"amount", fee)
	return state, nil
}

// Register creates a vendor profile for caller under name, charging the
// current registration fee. Fails while the domain is paused. Effects are
// all-or-nothing; see the user factory for the compensation contract.
func (s *FactoryService) Register(ctx context.Context, caller domain.AccountID, name, description string) (*models.Profile, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "vendors.register")
	defer span.End()

	name = models.NormalizeName(name)
	if err := models.ValidateName(name); err != nil {
		return nil, err
	}
	if err := models.ValidateDescription(description); err != nil {
		return nil, err
	}
	if caller.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}

	var (
		profile    *models.Profile
		chargedFee uint64
	)
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		state, err := s.requireState(txCtx)
		if err != nil {
			return err
		}
		if state.Paused {
			return dErrors.New(dErrors.CodeConflict, "vendor registration is paused")
		}

		if _, err := s.names.Lookup(txCtx, name); err == nil {
			s.countNameConflict()
			return dErrors.New(dErrors.CodeConflict, "vendor name is already taken")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check vendor name availability")
		}

		fee := state.RegistrationFee
		newTotal, ok := checked.AddUint64(state.TotalFeesCollected, fee)
		if !ok {
			return dErrors.New(dErrors.CodeInvariantViolation, "collected fee counter would overflow")
		}
		newCount, ok := checked.AddUint64(state.VendorCount, 1)
		if !ok {
			return dErrors.New(dErrors.CodeInvariantViolation, "vendor counter would overflow")
		}

		if err := s.ledger.Transfer(txCtx, caller, state.Vault, fee); err != nil {
			if errors.Is(err, sentinel.ErrInsufficientFunds) {
				return dErrors.New(dErrors.CodeInsufficientFunds, "balance too low for registration fee")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to collect registration fee")
		}

		// The address is seeded with a fresh nonce, not the name: renames
		// keep the record in place and a vacated name must stay
		// registrable by a new vendor at a new address. The name binding
		// lives in the index entry alone.
		address := nameindex.Derive(nameindex.NamespaceVendorProfile, uuid.NewString())
		p, err := models.NewProfile(address, caller, name, description, requestcontext.Now(txCtx))
		if err != nil {
			s.refund(txCtx, state.Vault, caller, fee)
			return err
		}
		if err := s.profiles.Create(txCtx, p); err != nil {
			s.refund(txCtx, state.Vault, caller, fee)
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create vendor profile")
		}
		if err := s.names.Claim(txCtx, name, address); err != nil {
			s.deleteQuietly(txCtx, address)
			s.refund(txCtx, state.Vault, caller, fee)
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				s.countNameConflict()
				return dErrors.New(dErrors.CodeConflict, "vendor name is already taken")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to claim vendor name")
		}

		state.TotalFeesCollected = newTotal
		state.VendorCount = newCount
		state.UpdatedAt = requestcontext.Now(txCtx)
		if err := s.state.Update(txCtx, state); err != nil {
			s.releaseName(txCtx, name)
			s.deleteQuietly(txCtx, address)
			s.refund(txCtx, state.Vault, caller, fee)
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update factory state")
		}

		profile = p
		chargedFee = fee
		s.emitAudit(txCtx, audit.ActionVendorRegistered,
			"actor", caller.String(),
			"profile", address.String(),
			"name", name,
			"amount", fee)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.VendorsRegistered.Inc()
		s.metrics.FeesCollected.Add(float64(chargedFee))
		s.metrics.ObserveRegister(start)
	}
	return profile, nil
}

// SetFee replaces the registration fee. Admin only.
func (s *FactoryService) SetFee(ctx context.Context, caller domain.AccountID, newFee uint64) (*models.FactoryState, error) {
	var state *models.FactoryState
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		st, err := s.requireState(txCtx)
		if err != nil {
			return err
		}
		if !st.IsAdmin(caller) {
			return dErrors.New(dErrors.CodeUnauthorized, "only the factory admin can set the fee")
		}
		oldFee := st.RegistrationFee
		st.RegistrationFee = newFee
		st.UpdatedAt = requestcontext.Now(txCtx)
		if err := s.state.Update(txCtx, st); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update registration fee")
		}
		state = st
		s.emitAudit(txCtx, audit.ActionFeeUpdated,
			"actor", caller.String(),
			"old_value", fmt.Sprintf("%d", oldFee),
			"new_value", fmt.Sprintf("%d", newFee))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// WithdrawFees moves amount from the factory vault to destination and debits
// the collected-fee counter. Admin only.
func (s *FactoryService) WithdrawFees(ctx context.Context, caller domain.AccountID, amount uint64, destination domain.AccountID) (*models.FactoryState, error) {
	if destination.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "withdrawal destination is required")
	}
	var state *models.FactoryState
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		st, err := s.requireState(txCtx)
		if err != nil {
			return err
		}
		if !st.IsAdmin(caller) {
			return dErrors.New(dErrors.CodeUnauthorized, "only the factory admin can withdraw fees")
		}
		if amount > st.TotalFeesCollected {
			return dErrors.New(dErrors.CodeInsufficientFunds, "withdrawal exceeds collected fees")
		}
		newTotal, ok := checked.SubUint64(st.TotalFeesCollected, amount)
		if !ok {
			return dErrors.New(dErrors.CodeInvariantViolation, "collected fee counter would underflow")
		}

		if err := s.ledger.Transfer(txCtx, st.Vault, destination, amount); err != nil {
			if errors.Is(err, sentinel.ErrInsufficientFunds) {
				return dErrors.New(dErrors.CodeInvariantViolation, "vault balance below collected fee counter")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to transfer withdrawn fees")
		}

		st.TotalFeesCollected = newTotal
		st.UpdatedAt = requestcontext.Now(txCtx)
		if err := s.state.Update(txCtx, st); err != nil {
			s.refund(txCtx, destination, st.Vault, amount)
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update factory state")
		}
		state = st
		s.emitAudit(txCtx, audit.ActionFeesWithdrawn,
			"actor", caller.String(),
			"name", destination.String(),
			"amount", amount)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.FeesWithdrawn.Add(float64(amount))
	}
	return state, nil
}

// Pause sets the registration pause switch. Admin only; idempotent. While
// paused only Register is refused, everything else keeps working.
func (s *FactoryService) Pause(ctx context.Context, caller domain.AccountID, paused bool) (*models.FactoryState, error) {
	var state *models.FactoryState
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		st, err := s.requireState(txCtx)
		if err != nil {
			return err
		}
		if !st.IsAdmin(caller) {
			return dErrors.New(dErrors.CodeUnauthorized, "only the factory admin can pause registration")
		}
		old := st.Paused
		st.Paused = paused
		st.UpdatedAt = requestcontext.Now(txCtx)
		if err := s.state.Update(txCtx, st); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update pause switch")
		}
		state = st
		s.emitAudit(txCtx, audit.ActionRegistrationPaused,
			"actor", caller.String(),
			"old_value", fmt.Sprintf("%t", old),
			"new_value", fmt.Sprintf("%t", paused))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.SetPaused(paused)
	}
	return state, nil
}

// CheckNameAvailable reports whether name is free to claim.
func (s *FactoryService) CheckNameAvailable(ctx context.Context, name string) (bool, error) {
	name = models.NormalizeName(name)
	if err := models.ValidateName(name); err != nil {
		return false, err
	}
	_, err := s.names.Lookup(ctx, name)
	if errors.Is(err, sentinel.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check vendor name availability")
	}
	return false, nil
}

// State returns the current factory state.
func (s *FactoryService) State(ctx context.Context) (*models.FactoryState, error) {
	return s.requireState(ctx)
}

func (s *FactoryService) requireState(ctx context.Context) (*models.FactoryState, error) {
	state, err := s.state.Get(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeConflict, "vendor factory is not initialized")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load factory state")
	}
	return state, nil
}

func (s *FactoryService) refund(ctx context.Context, from, to domain.AccountID, amount uint64) {
	if err := s.ledger.Transfer(ctx, from, to, amount); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "fee compensation failed; funds stranded",
			"from", from.String(),
			"to", to.String(),
			"amount", amount,
			"error", err)
	}
}

func (s *FactoryService) deleteQuietly(ctx context.Context, address domain.Address) {
	if err := s.profiles.Delete(ctx, address); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to remove vendor profile during compensation",
			"address", address.String(),
			"error", err)
	}
}

func (s *FactoryService) releaseName(ctx context.Context, name string) {
	if err := s.names.Release(ctx, name); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to release vendor name during compensation",
			"name", name,
			"error", err)
	}
}

func (s *FactoryService) countNameConflict() {
	if s.metrics != nil {
		s.metrics.NameConflicts.Inc()
	}
}
