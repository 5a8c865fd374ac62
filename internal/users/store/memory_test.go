package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"bazaar/internal/users/models"
	"bazaar/pkg/domain"
	"bazaar/pkg/platform/sentinel"
)

type ProfileStoreSuite struct {
	suite.Suite
	store *InMemoryProfileStore
	ctx   context.Context
}

func (s *ProfileStoreSuite) SetupTest() {
	s.store = NewInMemoryProfileStore()
	s.ctx = context.Background()
}

func TestProfileStoreSuite(t *testing.T) {
	suite.Run(t, new(ProfileStoreSuite))
}

func (s *ProfileStoreSuite) newProfile(username string) *models.Profile {
	p, err := models.NewProfile(
		domain.Address("addr-"+username),
		domain.AccountID(uuid.New()),
		username, "hello", time.Now())
	s.Require().NoError(err)
	return p
}

func (s *ProfileStoreSuite) TestCreateAndLookups() {
	p := s.newProfile("alice")
	s.Require().NoError(s.store.Create(s.ctx, p))

	byAddr, err := s.store.FindByAddress(s.ctx, p.Address)
	s.Require().NoError(err)
	s.Equal(p.Username, byAddr.Username)

	byOwner, err := s.store.FindByOwner(s.ctx, p.Owner)
	s.Require().NoError(err)
	s.Equal(p.Address, byOwner.Address)
}

func (s *ProfileStoreSuite) TestCreateRejectsOccupiedAddress() {
	p := s.newProfile("alice")
	s.Require().NoError(s.store.Create(s.ctx, p))

	dup := s.newProfile("other")
	dup.Address = p.Address
	s.Require().ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrConflict)
}

func (s *ProfileStoreSuite) TestFindUnknown() {
	_, err := s.store.FindByAddress(s.ctx, "nope")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindByOwner(s.ctx, domain.AccountID(uuid.New()))
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ProfileStoreSuite) TestUpdatePersistsAndReindexesOwner() {
	p := s.newProfile("alice")
	s.Require().NoError(s.store.Create(s.ctx, p))

	oldOwner := p.Owner
	newOwner := domain.AccountID(uuid.New())
	p.ApplyOwner(newOwner, time.Now())
	s.Require().NoError(s.store.Update(s.ctx, p))

	found, err := s.store.FindByOwner(s.ctx, newOwner)
	s.Require().NoError(err)
	s.Equal(p.Address, found.Address)

	_, err = s.store.FindByOwner(s.ctx, oldOwner)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ProfileStoreSuite) TestUpdateUnknown() {
	s.Require().ErrorIs(s.store.Update(s.ctx, s.newProfile("ghost")), sentinel.ErrNotFound)
}

func (s *ProfileStoreSuite) TestReadsReturnCopies() {
	p := s.newProfile("alice")
	s.Require().NoError(s.store.Create(s.ctx, p))

	read, err := s.store.FindByAddress(s.ctx, p.Address)
	s.Require().NoError(err)
	read.Bio = "mutated"

	again, err := s.store.FindByAddress(s.ctx, p.Address)
	s.Require().NoError(err)
	s.Equal("hello", again.Bio)
}

type FactoryStateStoreSuite struct {
	suite.Suite
	store *InMemoryFactoryStateStore
	ctx   context.Context
}

func (s *FactoryStateStoreSuite) SetupTest() {
	s.store = NewInMemoryFactoryStateStore()
	s.ctx = context.Background()
}

func TestFactoryStateStoreSuite(t *testing.T) {
	suite.Run(t, new(FactoryStateStoreSuite))
}

func (s *FactoryStateStoreSuite) TestSingletonLifecycle() {
	_, err := s.store.Get(s.ctx)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	state, err := models.NewFactoryState(
		domain.AccountID(uuid.New()), domain.AccountID(uuid.New()), 100, time.Now())
	s.Require().NoError(err)

	s.Require().NoError(s.store.Create(s.ctx, state))
	s.Require().ErrorIs(s.store.Create(s.ctx, state), sentinel.ErrConflict)

	got, err := s.store.Get(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(100), got.RegistrationFee)

	got.RegistrationFee = 250
	s.Require().NoError(s.store.Update(s.ctx, got))

	again, err := s.store.Get(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(250), again.RegistrationFee)
}
