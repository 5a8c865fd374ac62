package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"bazaar/internal/users/models"
	"bazaar/pkg/domain"
	"bazaar/pkg/platform/sentinel"
	"bazaar/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresProfileStore persists user profiles in the user_profiles table.
// All statements run through the transaction bound to ctx when one exists.
type PostgresProfileStore struct {
	db *sql.DB
}

func NewPostgresProfileStore(db *sql.DB) *PostgresProfileStore {
	return &PostgresProfileStore{db: db}
}

func (s *PostgresProfileStore) Create(ctx context.Context, p *models.Profile) error {
	q := tx.QuerierFrom(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO user_profiles (address, owner, username, bio, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.Address.String(), p.Owner.String(), p.Username, p.Bio, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create user profile: %w", err)
	}
	return nil
}

func (s *PostgresProfileStore) FindByAddress(ctx context.Context, address domain.Address) (*models.Profile, error) {
	return s.findBy(ctx, `address = $1`, address.String())
}

func (s *PostgresProfileStore) FindByOwner(ctx context.Context, owner domain.AccountID) (*models.Profile, error) {
	return s.findBy(ctx, `owner = $1`, owner.String())
}

func (s *PostgresProfileStore) findBy(ctx context.Context, where string, arg any) (*models.Profile, error) {
	q := tx.QuerierFrom(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		SELECT address, owner, username, bio, created_at, updated_at
		FROM user_profiles WHERE `+where, arg)

	var p models.Profile
	var address, owner string
	err := row.Scan(&address, &owner, &p.Username, &p.Bio, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user profile: %w", err)
	}
	p.Address = domain.Address(address)
	ownerID, err := domain.ParseAccountID(owner)
	if err != nil {
		return nil, fmt.Errorf("find user profile: %w", err)
	}
	p.Owner = ownerID
	return &p, nil
}

func (s *PostgresProfileStore) Update(ctx context.Context, p *models.Profile) error {
	q := tx.QuerierFrom(ctx, s.db)
	res, err := q.ExecContext(ctx, `
		UPDATE user_profiles
		SET owner = $2, username = $3, bio = $4, updated_at = $5
		WHERE address = $1`,
		p.Address.String(), p.Owner.String(), p.Username, p.Bio, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update user profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user profile: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresProfileStore) Delete(ctx context.Context, address domain.Address) error {
	q := tx.QuerierFrom(ctx, s.db)
	res, err := q.ExecContext(ctx, `DELETE FROM user_profiles WHERE address = $1`, address.String())
	if err != nil {
		return fmt.Errorf("delete user profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user profile: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// PostgresFactoryStateStore persists the singleton row in user_factory_state.
// The id = 1 check constraint keeps it a singleton at the schema level.
type PostgresFactoryStateStore struct {
	db *sql.DB
}

func NewPostgresFactoryStateStore(db *sql.DB) *PostgresFactoryStateStore {
	return &PostgresFactoryStateStore{db: db}
}

func (s *PostgresFactoryStateStore) Create(ctx context.Context, state *models.FactoryState) error {
	q := tx.QuerierFrom(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO user_factory_state
			(id, admin, vault, registration_fee, total_fees_collected, user_count, created_at, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7)`,
		state.Admin.String(), state.Vault.String(), int64(state.RegistrationFee),
		int64(state.TotalFeesCollected), int64(state.UserCount), state.CreatedAt, state.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create user factory state: %w", err)
	}
	return nil
}

func (s *PostgresFactoryStateStore) Get(ctx context.Context) (*models.FactoryState, error) {
	q := tx.QuerierFrom(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		SELECT admin, vault, registration_fee, total_fees_collected, user_count, created_at, updated_at
		FROM user_factory_state WHERE id = 1`)

	var state models.FactoryState
	var admin, vault string
	var fee, total, count int64
	err := row.Scan(&admin, &vault, &fee, &total, &count, &state.CreatedAt, &state.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user factory state: %w", err)
	}
	adminID, err := domain.ParseAccountID(admin)
	if err != nil {
		return nil, fmt.Errorf("get user factory state: %w", err)
	}
	vaultID, err := domain.ParseAccountID(vault)
	if err != nil {
		return nil, fmt.Errorf("get user factory state: %w", err)
	}
	state.Admin = adminID
	state.Vault = vaultID
	state.RegistrationFee = uint64(fee)
	state.TotalFeesCollected = uint64(total)
	state.UserCount = uint64(count)
	return &state, nil
}

func (s *PostgresFactoryStateStore) Update(ctx context.Context, state *models.FactoryState) error {
	q := tx.QuerierFrom(ctx, s.db)
	res, err := q.ExecContext(ctx, `
		UPDATE user_factory_state
		SET admin = $1, vault = $2, registration_fee = $3,
		    total_fees_collected = $4, user_count = $5, updated_at = $6
		WHERE id = 1`,
		state.Admin.String(), state.Vault.String(), int64(state.RegistrationFee),
		int64(state.TotalFeesCollected), int64(state.UserCount), state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update user factory state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user factory state: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
