package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"bazaar/internal/vendors/models"
	"bazaar/pkg/domain"
	"bazaar/pkg/platform/sentinel"
	"bazaar/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresProfileStore persists vendor profiles in vendor_profiles with the
// catalog in vendor_products. Update replaces the catalog wholesale; the
// position column keeps insertion order. Run mutations inside a transaction
// bound to ctx so the two tables stay consistent.
type PostgresProfileStore struct {
	db *sql.DB
}

func NewPostgresProfileStore(db *sql.DB) *PostgresProfileStore {
	return &PostgresProfileStore{db: db}
}

func (s *PostgresProfileStore) Create(ctx context.Context, p *models.Profile) error {
	q := tx.QuerierFrom(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO vendor_profiles (address, owner, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.Address.String(), p.Owner.String(), p.Name, p.Description, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create vendor profile: %w", err)
	}
	return s.writeProducts(ctx, p)
}

func (s *PostgresProfileStore) FindByAddress(ctx context.Context, address domain.Address) (*models.Profile, error) {
	q := tx.QuerierFrom(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		SELECT address, owner, name, description, created_at, updated_at
		FROM vendor_profiles WHERE address = $1`, address.String())
	p, err := scanProfile(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadProducts(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PostgresProfileStore) ListByOwner(ctx context.Context, owner domain.AccountID) ([]*models.Profile, error) {
	q := tx.QuerierFrom(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT address, owner, name, description, created_at, updated_at
		FROM vendor_profiles WHERE owner = $1 ORDER BY name`, owner.String())
	if err != nil {
		return nil, fmt.Errorf("list vendor profiles: %w", err)
	}
	defer rows.Close()

	var out []*models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list vendor profiles: %w", err)
	}
	for _, p := range out {
		if err := s.loadProducts(ctx, p); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *PostgresProfileStore) Update(ctx context.Context, p *models.Profile) error {
	q := tx.QuerierFrom(ctx, s.db)
	res, err := q.ExecContext(ctx, `
		UPDATE vendor_profiles
		SET owner = $2, name = $3, description = $4, updated_at = $5
		WHERE address = $1`,
		p.Address.String(), p.Owner.String(), p.Name, p.Description, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update vendor profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update vendor profile: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM vendor_products WHERE vendor_address = $1`, p.Address.String()); err != nil {
		return fmt.Errorf("update vendor products: %w", err)
	}
	return s.writeProducts(ctx, p)
}

func (s *PostgresProfileStore) Delete(ctx context.Context, address domain.Address) error {
	q := tx.QuerierFrom(ctx, s.db)
	if _, err := q.ExecContext(ctx, `DELETE FROM vendor_products WHERE vendor_address = $1`, address.String()); err != nil {
		return fmt.Errorf("delete vendor products: %w", err)
	}
	res, err := q.ExecContext(ctx, `DELETE FROM vendor_profiles WHERE address = $1`, address.String())
	if err != nil {
		return fmt.Errorf("delete vendor profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete vendor profile: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresProfileStore) writeProducts(ctx context.Context, p *models.Profile) error {
	q := tx.QuerierFrom(ctx, s.db)
	for i, product := range p.Products {
		_, err := q.ExecContext(ctx, `
			INSERT INTO vendor_products (vendor_address, product_id, position, price, description, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			p.Address.String(), product.ID, i, int64(product.Price), product.Description, product.CreatedAt)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				return sentinel.ErrConflict
			}
			return fmt.Errorf("write vendor product: %w", err)
		}
	}
	return nil
}

func (s *PostgresProfileStore) loadProducts(ctx context.Context, p *models.Profile) error {
	q := tx.QuerierFrom(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT product_id, price, description, created_at
		FROM vendor_products WHERE vendor_address = $1 ORDER BY position`, p.Address.String())
	if err != nil {
		return fmt.Errorf("load vendor products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var product models.Product
		var price int64
		if err := rows.Scan(&product.ID, &price, &product.Description, &product.CreatedAt); err != nil {
			return fmt.Errorf("load vendor products: %w", err)
		}
		product.Price = uint64(price)
		p.Products = append(p.Products, product)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load vendor products: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*models.Profile, error) {
	var p models.Profile
	var address, owner string
	err := row.Scan(&address, &owner, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find vendor profile: %w", err)
	}
	p.Address = domain.Address(address)
	ownerID, err := domain.ParseAccountID(owner)
	if err != nil {
		return nil, fmt.Errorf("find vendor profile: %w", err)
	}
	p.Owner = ownerID
	return &p, nil
}

// PostgresFactoryStateStore persists the singleton row in
// vendor_factory_state.
type PostgresFactoryStateStore struct {
	db *sql.DB
}

func NewPostgresFactoryStateStore(db *sql.DB) *PostgresFactoryStateStore {
	return &PostgresFactoryStateStore{db: db}
}

func (s *PostgresFactoryStateStore) Create(ctx context.Context, state *models.FactoryState) error {
	q := tx.QuerierFrom(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO vendor_factory_state
			(id, admin, vault, registration_fee, total_fees_collected, vendor_count, paused, created_at, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8)`,
		state.Admin.String(), state.Vault.String(), int64(state.RegistrationFee),
		int64(state.TotalFeesCollected), int64(state.VendorCount), state.Paused,
		state.CreatedAt, state.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create vendor factory state: %w", err)
	}
	return nil
}

func (s *PostgresFactoryStateStore) Get(ctx context.Context) (*models.FactoryState, error) {
	q := tx.QuerierFrom(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		SELECT admin, vault, registration_fee, total_fees_collected, vendor_count, paused, created_at, updated_at
		FROM vendor_factory_state WHERE id = 1`)

	var state models.FactoryState
	var admin, vault string
	var fee, total, count int64
	err := row.Scan(&admin, &vault, &fee, &total, &count, &state.Paused, &state.CreatedAt, &state.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get vendor factory state: %w", err)
	}
	adminID, err := domain.ParseAccountID(admin)
	if err != nil {
		return nil, fmt.Errorf("get vendor factory state: %w", err)
	}
	vaultID, err := domain.ParseAccountID(vault)
	if err != nil {
		return nil, fmt.Errorf("get vendor factory state: %w", err)
	}
	state.Admin = adminID
	state.Vault = vaultID
	state.RegistrationFee = uint64(fee)
	state.TotalFeesCollected = uint64(total)
	state.VendorCount = uint64(count)
	return &state, nil
}

func (s *PostgresFactoryStateStore) Update(ctx context.Context, state *models.FactoryState) error {
	q := tx.QuerierFrom(ctx, s.db)
	res, err := q.ExecContext(ctx, `
		UPDATE vendor_factory_state
		SET admin = $1, vault = $2, registration_fee = $3,
		    total_fees_collected = $4, vendor_count = $5, paused = $6, updated_at = $7
		WHERE id = 1`,
		state.Admin.String(), state.Vault.String(), int64(state.RegistrationFee),
		int64(state.TotalFeesCollected), int64(state.VendorCount), state.Paused, state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update vendor factory state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update vendor factory state: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
