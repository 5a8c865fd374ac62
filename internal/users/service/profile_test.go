package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"bazaar/internal/ledger"
	"bazaar/internal/nameindex"
	"bazaar/internal/users/store"
	"bazaar/pkg/domain"
	dErrors "bazaar/pkg/domain-errors"
)

type ProfileSuite struct {
	suite.Suite

	profiles *store.InMemoryProfileStore
	state    *store.InMemoryFactoryStateStore
	names    *nameindex.InMemory
	ledger   *ledger.InMemory

	factory  *FactoryService
	service  *ProfileService
	owner    domain.AccountID
	stranger domain.AccountID
	address  domain.Address
}

func TestProfileSuite(t *testing.T) {
	suite.Run(t, new(ProfileSuite))
}

func (s *ProfileSuite) SetupTest() {
	ctx := context.Background()

	s.profiles = store.NewInMemoryProfileStore()
	s.state = store.NewInMemoryFactoryStateStore()
	s.names = nameindex.NewInMemory()
	s.ledger = ledger.NewInMemory()

	// Both services share one tx runner so their effects serialize.
	tx := NewInMemoryTx()
	s.factory = NewFactoryService(s.profiles, s.state, s.names, s.ledger, WithTx(tx))
	s.service = NewProfileService(s.profiles, s.state, s.names, WithTx(tx))

	_, err := s.factory.Initialize(ctx, domain.AccountID(uuid.New()), 0)
	s.Require().NoError(err)

	s.owner = domain.AccountID(uuid.New())
	s.stranger = domain.AccountID(uuid.New())
	profile, err := s.factory.Register(ctx, s.owner, "original", "first bio")
	s.Require().NoError(err)
	s.address = profile.Address
}

func (s *ProfileSuite) TestGetByName() {
	profile, err := s.service.GetByName(context.Background(), "Original")
	s.Require().NoError(err)
	s.Equal(s.address, profile.Address)

	_, err = s.service.GetByName(context.Background(), "missing")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ProfileSuite) TestUpdateBio() {
	ctx := context.Background()

	updated, err := s.service.UpdateBio(ctx, s.owner, "second bio")
	s.Require().NoError(err)
	s.Equal("second bio", updated.Bio)

	s.Run("empty bio is allowed", func() {
		updated, err := s.service.UpdateBio(ctx, s.owner, "")
		s.Require().NoError(err)
		s.Empty(updated.Bio)
	})

	s.Run("stranger has no profile", func() {
		_, err := s.service.UpdateBio(ctx, s.stranger, "nope")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ProfileSuite) TestRename() {
	ctx := context.Background()

	updated, err := s.service.Rename(ctx, s.owner, "Renamed")
	s.Require().NoError(err)
	s.Equal("renamed", updated.Username)

	s.Run("new name resolves", func() {
		target, err := s.names.Lookup(ctx, "renamed")
		s.Require().NoError(err)
		s.Equal(s.address, target)
	})

	s.Run("old name no longer resolves", func() {
		_, err := s.service.GetByName(ctx, "original")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("released name is claimable again", func() {
		other := domain.AccountID(uuid.New())
		profile, err := s.factory.Register(ctx, other, "original", "")
		s.Require().NoError(err)
		s.Equal("original", profile.Username)
	})
}

func (s *ProfileSuite) TestRenameRejectsTakenName() {
	ctx := context.Background()
	other := domain.AccountID(uuid.New())
	_, err := s.factory.Register(ctx, other, "occupied", "")
	s.Require().NoError(err)

	_, err = s.service.Rename(ctx, s.owner, "occupied")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	// The caller keeps the old name.
	profile, err := s.service.GetByName(ctx, "original")
	s.Require().NoError(err)
	s.Equal(s.address, profile.Address)
}

func (s *ProfileSuite) TestRenameToSameName() {
	_, err := s.service.Rename(context.Background(), s.owner, "original")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ProfileSuite) TestTransferOwnership() {
	ctx := context.Background()
	newOwner := domain.AccountID(uuid.New())

	updated, err := s.service.TransferOwnership(ctx, s.owner, newOwner)
	s.Require().NoError(err)
	s.Equal(newOwner, updated.Owner)
	s.Equal(s.address, updated.Address)

	s.Run("previous owner loses write access", func() {
		_, err := s.service.UpdateBio(ctx, s.owner, "locked out")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("new owner can write", func() {
		updated, err := s.service.UpdateBio(ctx, newOwner, "in charge now")
		s.Require().NoError(err)
		s.Equal("in charge now", updated.Bio)
	})

	s.Run("transfer to self is rejected", func() {
		_, err := s.service.TransferOwnership(ctx, newOwner, newOwner)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ProfileSuite) TestZeroCallerUnauthorized() {
	_, err := s.service.UpdateBio(context.Background(), domain.AccountID(uuid.Nil), "bio")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
