package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bazaar/pkg/domain"
	"bazaar/pkg/platform/sentinel"
	"bazaar/pkg/platform/tx"
)

// Postgres keeps balances in the accounts table. The conditional debit makes
// the insufficient-funds check and the debit one statement, so concurrent
// transfers cannot overdraw even outside an explicit transaction.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (l *Postgres) Transfer(ctx context.Context, from, to domain.AccountID, amount uint64) error {
	if amount == 0 {
		return nil
	}
	q := tx.QuerierFrom(ctx, l.db)

	res, err := q.ExecContext(ctx,
		`UPDATE accounts SET balance = balance - $2 WHERE id = $1 AND balance >= $2`,
		from.String(), amount)
	if err != nil {
		return fmt.Errorf("debit account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("debit account: %w", err)
	}
	if n == 0 {
		return sentinel.ErrInsufficientFunds
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO accounts (id, balance) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET balance = accounts.balance + EXCLUDED.balance`,
		to.String(), amount)
	if err != nil {
		return fmt.Errorf("credit account: %w", err)
	}
	return nil
}

func (l *Postgres) Balance(ctx context.Context, account domain.AccountID) (uint64, error) {
	q := tx.QuerierFrom(ctx, l.db)
	var balance uint64
	err := q.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE id = $1`, account.String()).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return balance, nil
}
