package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"bazaar/internal/audit"
	"bazaar/internal/ledger"
	"bazaar/internal/nameindex"
	"bazaar/internal/users/store"
	"bazaar/pkg/domain"
	dErrors "bazaar/pkg/domain-errors"
)

const registrationFee = uint64(500)

type FactorySuite struct {
	suite.Suite

	profiles   *store.InMemoryProfileStore
	state      *store.InMemoryFactoryStateStore
	names      *nameindex.InMemory
	ledger     *ledger.InMemory
	auditStore *audit.InMemoryStore

	admin   domain.AccountID
	factory *FactoryService
}

func TestFactorySuite(t *testing.T) {
	suite.Run(t, new(FactorySuite))
}

func (s *FactorySuite) SetupTest() {
	s.profiles = store.NewInMemoryProfileStore()
	s.state = store.NewInMemoryFactoryStateStore()
	s.names = nameindex.NewInMemory()
	s.ledger = ledger.NewInMemory()
	s.auditStore = audit.NewInMemoryStore()
	s.admin = domain.AccountID(uuid.New())

	s.factory = NewFactoryService(s.profiles, s.state, s.names, s.ledger,
		WithAuditPublisher(audit.NewPublisher(s.auditStore)))

	_, err := s.factory.Initialize(context.Background(), s.admin, registrationFee)
	s.Require().NoError(err)
}

func (s *FactorySuite) fundedAccount(balance uint64) domain.AccountID {
	account := domain.AccountID(uuid.New())
	s.Require().NoError(s.ledger.Mint(context.Background(), account, balance))
	return account
}

func (s *FactorySuite) TestInitializeIsOneTime() {
	_, err := s.factory.Initialize(context.Background(), s.admin, 10)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *FactorySuite) TestRegisterHappyPath() {
	ctx := context.Background()
	caller := s.fundedAccount(registrationFee * 2)

	profile, err := s.factory.Register(ctx, caller, "Alice_01", "hello")
	s.Require().NoError(err)
	s.Equal("alice_01", profile.Username)
	s.Equal(caller, profile.Owner)
	s.Equal(nameindex.Derive(nameindex.NamespaceUserProfile, caller.String()), profile.Address)

	target, err := s.names.Lookup(ctx, "alice_01")
	s.Require().NoError(err)
	s.Equal(profile.Address, target)

	balance, err := s.ledger.Balance(ctx, caller)
	s.Require().NoError(err)
	s.Equal(registrationFee, balance)

	state, err := s.factory.State(ctx)
	s.Require().NoError(err)
	s.Equal(uint64(1), state.UserCount)
	s.Equal(registrationFee, state.TotalFeesCollected)

	// ListRecent returns oldest first; initialization emitted the first
	// event, the registration the last.
	events, err := s.auditStore.ListRecent(ctx, 10)
	s.Require().NoError(err)
	s.Require().NotEmpty(events)
	last := events[len(events)-1]
	s.Equal(audit.ActionUserRegistered, last.Action)
	s.Equal(registrationFee, last.Amount)
	s.Equal(caller.String(), last.Actor)
}

func (s *FactorySuite) TestConcurrentRegisterSameName() {
	ctx := context.Background()
	const racers = 8

	callers := make([]domain.AccountID, racers)
	for i := range callers {
		callers[i] = s.fundedAccount(registrationFee)
	}

	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.factory.Register(ctx, callers[i], "contested", "")
		}(i)
	}
	wg.Wait()

	var winners int
	for i, err := range errs {
		if err == nil {
			winners++
			continue
		}
		s.True(dErrors.HasCode(err, dErrors.CodeConflict), "racer %d: %v", i, err)

		balance, balErr := s.ledger.Balance(ctx, callers[i])
		s.Require().NoError(balErr)
		s.Equal(registrationFee, balance, "loser %d must not be charged", i)
	}
	s.Equal(1, winners)

	state, err := s.factory.State(ctx)
	s.Require().NoError(err)
	s.Equal(uint64(1), state.UserCount)
	s.Equal(registrationFee, state.TotalFeesCollected)
}

func (s *FactorySuite) TestRegisterFeeAccounting() {
	ctx := context.Background()
	const n = 5
	for i := 0; i < n; i++ {
		caller := s.fundedAccount(registrationFee)
		_, err := s.factory.Register(ctx, caller, "user"+string(rune('a'+i))+"name", "")
		s.Require().NoError(err)
	}

	state, err := s.factory.State(ctx)
	s.Require().NoError(err)
	s.Equal(uint64(n), state.UserCount)
	s.Equal(registrationFee*n, state.TotalFeesCollected)

	vaultBalance, err := s.ledger.Balance(ctx, state.Vault)
	s.Require().NoError(err)
	s.Equal(registrationFee*n, vaultBalance)
}

func (s *FactorySuite) TestRegisterRejectsTakenName() {
	ctx := context.Background()
	first := s.fundedAccount(registrationFee)
	second := s.fundedAccount(registrationFee)

	_, err := s.factory.Register(ctx, first, "shared", "")
	s.Require().NoError(err)

	_, err = s.factory.Register(ctx, second, "SHARED", "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	// The loser pays nothing.
	balance, err := s.ledger.Balance(ctx, second)
	s.Require().NoError(err)
	s.Equal(registrationFee, balance)

	state, err := s.factory.State(ctx)
	s.Require().NoError(err)
	s.Equal(uint64(1), state.UserCount)
}

func (s *FactorySuite) TestRegisterRejectsSecondProfileForOwner() {
	ctx := context.Background()
	caller := s.fundedAccount(registrationFee * 2)

	_, err := s.factory.Register(ctx, caller, "firstname", "")
	s.Require().NoError(err)

	_, err = s.factory.Register(ctx, caller, "secondname", "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *FactorySuite) TestRegisterValidation() {
	ctx := context.Background()
	caller := s.fundedAccount(registrationFee)

	cases := []struct {
		name     string
		username string
		bio      string
	}{
		{"too short", "ab", ""},
		{"too long", "this-username-is-way-way-way-too-long", ""},
		{"bad charset", "has spaces", ""},
		{"bio too long", "validname", string(make([]byte, 281))},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.factory.Register(ctx, caller, tc.username, tc.bio)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}

	// No fee charged for rejected attempts.
	balance, err := s.ledger.Balance(ctx, caller)
	s.Require().NoError(err)
	s.Equal(registrationFee, balance)
}

func (s *FactorySuite) TestRegisterInsufficientFunds() {
	ctx := context.Background()
	caller := s.fundedAccount(registrationFee - 1)

	_, err := s.factory.Register(ctx, caller, "brokeuser", "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInsufficientFunds))

	// Nothing was created.
	_, err = s.names.Lookup(ctx, "brokeuser")
	s.Require().Error(err)
}

func (s *FactorySuite) TestRegisterFreeWhenFeeIsZero() {
	ctx := context.Background()
	_, err := s.factory.SetFee(ctx, s.admin, 0)
	s.Require().NoError(err)

	caller := domain.AccountID(uuid.New()) // no balance at all
	profile, err := s.factory.Register(ctx, caller, "freeuser", "")
	s.Require().NoError(err)
	s.Equal("freeuser", profile.Username)
}

func (s *FactorySuite) TestSetFeeAdminOnly() {
	ctx := context.Background()
	stranger := domain.AccountID(uuid.New())

	_, err := s.factory.SetFee(ctx, stranger, 1)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	state, err := s.factory.State(ctx)
	s.Require().NoError(err)
	s.Equal(registrationFee, state.RegistrationFee)

	updated, err := s.factory.SetFee(ctx, s.admin, 900)
	s.Require().NoError(err)
	s.Equal(uint64(900), updated.RegistrationFee)
}

func (s *FactorySuite) TestSetFeeDoesNotAffectExistingProfiles() {
	ctx := context.Background()
	caller := s.fundedAccount(registrationFee)
	profile, err := s.factory.Register(ctx, caller, "earlybird", "")
	s.Require().NoError(err)

	_, err = s.factory.SetFee(ctx, s.admin, registrationFee*10)
	s.Require().NoError(err)

	reloaded, err := s.profiles.FindByAddress(ctx, profile.Address)
	s.Require().NoError(err)
	s.Equal(profile.Username, reloaded.Username)
}

func (s *FactorySuite) TestWithdrawFees() {
	ctx := context.Background()
	caller := s.fundedAccount(registrationFee)
	_, err := s.factory.Register(ctx, caller, "payinguser", "")
	s.Require().NoError(err)

	destination := domain.AccountID(uuid.New())

	s.Run("more than collected is rejected", func() {
		_, err := s.factory.WithdrawFees(ctx, s.admin, registrationFee+1, destination)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientFunds))
	})

	s.Run("non-admin is rejected", func() {
		_, err := s.factory.WithdrawFees(ctx, caller, 1, destination)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("admin withdraws partial amount", func() {
		state, err := s.factory.WithdrawFees(ctx, s.admin, registrationFee/2, destination)
		s.Require().NoError(err)
		s.Equal(registrationFee-registrationFee/2, state.TotalFeesCollected)

		balance, err := s.ledger.Balance(ctx, destination)
		s.Require().NoError(err)
		s.Equal(registrationFee/2, balance)
	})
}

func (s *FactorySuite) TestCheckNameAvailable() {
	ctx := context.Background()
	caller := s.fundedAccount(registrationFee)

	available, err := s.factory.CheckNameAvailable(ctx, "somename")
	s.Require().NoError(err)
	s.True(available)

	_, err = s.factory.Register(ctx, caller, "somename", "")
	s.Require().NoError(err)

	available, err = s.factory.CheckNameAvailable(ctx, "SomeName")
	s.Require().NoError(err)
	s.False(available)
}
