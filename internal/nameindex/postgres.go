package nameindex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bazaar/pkg/domain"
	"bazaar/pkg/platform/sentinel"
	"bazaar/pkg/platform/tx"
)

// Postgres persists the index in the name_index table. It joins any SQL
// transaction carried in the context so claims commit or roll back with the
// rest of a registration.
type Postgres struct {
	db        *sql.DB
	namespace string
}

func NewPostgres(db *sql.DB, namespace string) *Postgres {
	return &Postgres{db: db, namespace: namespace}
}

// Claim inserts the mapping, or overwrites a tombstone. The conditional
// upsert makes concurrent claims race on the row: the first committed writer
// wins and later ones see ErrAlreadyUsed.
func (s *Postgres) Claim(ctx context.Context, name string, target domain.Address) error {
	q := tx.QuerierFrom(ctx, s.db)
	res, err := q.ExecContext(ctx, `
		INSERT INTO name_index (namespace, name, target)
		VALUES ($1, $2, $3)
		ON CONFLICT (namespace, name)
		DO UPDATE SET target = EXCLUDED.target
		WHERE name_index.target = ''`,
		s.namespace, name, target.String())
	if err != nil {
		return fmt.Errorf("claim name: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim name: %w", err)
	}
	if n == 0 {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

// Release clears the target but keeps the row as a tombstone.
func (s *Postgres) Release(ctx context.Context, name string) error {
	q := tx.QuerierFrom(ctx, s.db)
	res, err := q.ExecContext(ctx,
		`UPDATE name_index SET target = '' WHERE namespace = $1 AND name = $2`,
		s.namespace, name)
	if err != nil {
		return fmt.Errorf("release name: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("release name: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) Lookup(ctx context.Context, name string) (domain.Address, error) {
	q := tx.QuerierFrom(ctx, s.db)
	var target string
	err := q.QueryRowContext(ctx,
		`SELECT target FROM name_index WHERE namespace = $1 AND name = $2 AND target <> ''`,
		s.namespace, name).Scan(&target)
	if errors.Is(err, sql.ErrNoRows) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup name: %w", err)
	}
	return domain.Address(target), nil
}
