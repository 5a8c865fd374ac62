package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bazaar/internal/audit"
	"bazaar/internal/nameindex"
	"bazaar/internal/users/models"
	"bazaar/internal/users/store"
	"bazaar/pkg/domain"
	dErrors "bazaar/pkg/domain-errors"
	"bazaar/pkg/platform/checked"
	"bazaar/pkg/platform/sentinel"
	"bazaar/pkg/requestcontext"
)

// FactoryService is the admission-control front door for the user domain:
// it validates input, collects the registration fee, delegates profile
// creation, and publishes the name index entry as one unit of work.
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

// Initialize creates the singleton factory state. One-time: a second call
// fails with a conflict. The vault account holding collected fees is minted
// here and never changes.
func (s *FactoryService) Initialize(ctx context.Context, admin domain.AccountID, fee uint64) (*models.FactoryState, error) {
	state, err := models.NewFactoryState(admin, domain.AccountID(uuid.New()), fee, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.state.Create(ctx, state); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "user factory is already initialized")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to initialize user factory")
	}
	s.emitAudit(ctx, audit.ActionFactoryInitialized,
		"actor", admin.String(),
		"amount", fee)
	return state, nil
}

// Register creates a profile for caller under username, charging the current
// registration fee. Effects are indivisible: fee debit, profile creation,
// name claim, and fee/counter accounting either all apply or none do. Under
// the in-memory runner the fee transfer is compensated (refunded) when a
// later step fails; under the SQL runner the transaction rolls back.
func (s *FactoryService) Register(ctx context.Context, caller domain.AccountID, username, bio string) (*models.Profile, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "users.register")
	defer span.End()

	username = models.NormalizeUsername(username)
	if err := models.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := models.ValidateBio(bio); err != nil {
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

		// Re-validate availability inside the transaction: a racing
		// registration may have claimed the name since any caller-side check.
		if _, err := s.names.Lookup(txCtx, username); err == nil {
			s.countNameConflict()
			return dErrors.New(dErrors.CodeConflict, "username is already taken")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check username availability")
		}

		address := nameindex.Derive(nameindex.NamespaceUserProfile, caller.String())
		if _, err := s.profiles.FindByAddress(txCtx, address); err == nil {
			return dErrors.New(dErrors.CodeConflict, "caller already has a profile")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check profile address")
		}

		// Overflow is checked before any effect so the abort is clean.
		fee := state.RegistrationFee
		newTotal, ok := checked.AddUint64(state.TotalFeesCollected, fee)
		if !ok {
			return dErrors.New(dErrors.CodeInvariantViolation, "collected fee counter would overflow")
		}
		newCount, ok := checked.AddUint64(state.UserCount, 1)
		if !ok {
			return dErrors.New(dErrors.CodeInvariantViolation, "user counter would overflow")
		}

		if err := s.ledger.Transfer(txCtx, caller, state.Vault, fee); err != nil {
			if errors.Is(err, sentinel.ErrInsufficientFunds) {
				return dErrors.New(dErrors.CodeInsufficientFunds, "balance too low for registration fee")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to collect registration fee")
		}

		p, err := models.NewProfile(address, caller, username, bio, requestcontext.Now(txCtx))
		if err != nil {
			s.refund(txCtx, state.Vault, caller, fee)
			return err
		}
		if err := s.profiles.Create(txCtx, p); err != nil {
			s.refund(txCtx, state.Vault, caller, fee)
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "caller already has a profile")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create profile")
		}
		if err := s.names.Claim(txCtx, username, address); err != nil {
			s.deleteQuietly(txCtx, address)
			s.refund(txCtx, state.Vault, caller, fee)
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				s.countNameConflict()
				return dErrors.New(dErrors.CodeConflict, "username is already taken")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to claim username")
		}

		state.TotalFeesCollected = newTotal
		state.UserCount = newCount
		state.UpdatedAt = requestcontext.Now(txCtx)
		if err := s.state.Update(txCtx, state); err != nil {
			s.releaseName(txCtx, username)
			s.deleteQuietly(txCtx, address)
			s.refund(txCtx, state.Vault, caller, fee)
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update factory state")
		}

		profile = p
		chargedFee = fee
		s.emitAudit(txCtx, audit.ActionUserRegistered,
			"actor", caller.String(),
			"profile", address.String(),
			"name", username,
			"amount", fee)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.UsersRegistered.Inc()
		s.metrics.FeesCollected.Add(float64(chargedFee))
		s.metrics.ObserveRegister(start)
	}
	return profile, nil
}

// SetFee replaces the registration fee. Admin only; already-registered
// profiles are unaffected.
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
			// Unreachable given the check above; a wrap here means the
			// counter is corrupt, not a recoverable caller error.
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

// CheckNameAvailable reports whether username is free to claim. Pure read, no
// authorization.
func (s *FactoryService) CheckNameAvailable(ctx context.Context, username string) (bool, error) {
	username = models.NormalizeUsername(username)
	if err := models.ValidateUsername(username); err != nil {
		return false, err
	}
	_, err := s.names.Lookup(ctx, username)
	if errors.Is(err, sentinel.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check username availability")
	}
	return false, nil
}

// State returns the current factory state. Read-only; used by transports and
// the startup path to detect an uninitialized factory.
func (s *FactoryService) State(ctx context.Context) (*models.FactoryState, error) {
	return s.requireState(ctx)
}

func (s *FactoryService) requireState(ctx context.Context) (*models.FactoryState, error) {
	state, err := s.state.Get(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeConflict, "user factory is not initialized")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load factory state")
	}
	return state, nil
}

// refund compensates an already-applied fee transfer when a later step of
// register/withdraw fails outside a rollback-capable transaction. A failed
// refund is logged loudly: it means value is stranded in the vault.
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
		s.logger.ErrorContext(ctx, "failed to remove profile during compensation",
			"address", address.String(),
			"error", err)
	}
}

func (s *FactoryService) releaseName(ctx context.Context, name string) {
	if err := s.names.Release(ctx, name); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to release username during compensation",
			"name", name,
			"error", err)
	}
}

func (s *FactoryService) countNameConflict() {
	if s.metrics != nil {
		s.metrics.NameConflicts.Inc()
	}
}
