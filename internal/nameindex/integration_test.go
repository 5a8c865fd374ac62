//go:build integration

package nameindex_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"bazaar/internal/nameindex"
	"bazaar/internal/platform/database"
	"bazaar/pkg/domain"
	"bazaar/pkg/platform/sentinel"
	"bazaar/pkg/testutil/containers"
)

// Index is the behavior shared by every backend: first claim wins, release
// leaves a reclaimable tombstone, lookup never returns a tombstone.
type Index interface {
	Claim(ctx context.Context, name string, target domain.Address) error
	Release(ctx context.Context, name string) error
	Lookup(ctx context.Context, name string) (domain.Address, error)
}

// IndexSuite exercises one backend; the concrete suites plug in the index,
// a second index in a different namespace, and a reset hook.
type IndexSuite struct {
	suite.Suite
	index Index
	other Index
	reset func()
}

func (s *IndexSuite) SetupTest() {
	s.reset()
}

func (s *IndexSuite) TestClaimLifecycle() {
	ctx := context.Background()

	_, err := s.index.Lookup(ctx, "alice")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.index.Claim(ctx, "alice", "addr-1"))

	target, err := s.index.Lookup(ctx, "alice")
	s.Require().NoError(err)
	s.Equal(domain.Address("addr-1"), target)

	s.Run("second claim loses", func() {
		err := s.index.Claim(ctx, "alice", "addr-2")
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)

		target, err := s.index.Lookup(ctx, "alice")
		s.Require().NoError(err)
		s.Equal(domain.Address("addr-1"), target)
	})
}

func (s *IndexSuite) TestReleaseLeavesReclaimableTombstone() {
	ctx := context.Background()

	s.Require().NoError(s.index.Claim(ctx, "bob", "addr-1"))
	s.Require().NoError(s.index.Release(ctx, "bob"))

	_, err := s.index.Lookup(ctx, "bob")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.index.Claim(ctx, "bob", "addr-2"))
	target, err := s.index.Lookup(ctx, "bob")
	s.Require().NoError(err)
	s.Equal(domain.Address("addr-2"), target)
}

func (s *IndexSuite) TestReleaseUnknownName() {
	err := s.index.Release(context.Background(), "never-claimed")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *IndexSuite) TestNamespacesDoNotCollide() {
	ctx := context.Background()

	s.Require().NoError(s.index.Claim(ctx, "shared", "addr-1"))
	s.Require().NoError(s.other.Claim(ctx, "shared", "addr-2"))

	target, err := s.index.Lookup(ctx, "shared")
	s.Require().NoError(err)
	s.Equal(domain.Address("addr-1"), target)

	target, err = s.other.Lookup(ctx, "shared")
	s.Require().NoError(err)
	s.Equal(domain.Address("addr-2"), target)
}

type PostgresIndexSuite struct {
	IndexSuite
	pg *containers.PostgresContainer
}

func TestPostgresIndexSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresIndexSuite))
}

func (s *PostgresIndexSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.Require().NoError(database.Migrate(context.Background(), s.pg.DB))
	s.index = nameindex.NewPostgres(s.pg.DB, nameindex.NamespaceUsername)
	s.other = nameindex.NewPostgres(s.pg.DB, nameindex.NamespaceVendorName)
	s.reset = func() {
		s.Require().NoError(s.pg.TruncateAll(context.Background(), "name_index"))
	}
}

type RedisIndexSuite struct {
	IndexSuite
	redis *containers.RedisContainer
}

func TestRedisIndexSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisIndexSuite))
}

func (s *RedisIndexSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.index = nameindex.NewRedis(s.redis.Client, nameindex.NamespaceUsername)
	s.other = nameindex.NewRedis(s.redis.Client, nameindex.NamespaceVendorName)
	s.reset = func() {
		s.Require().NoError(s.redis.FlushAll(context.Background()))
	}
}
