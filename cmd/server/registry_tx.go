package main

import (
	"context"
	"database/sql"
	"time"

	dErrors "bazaar/pkg/domain-errors"
	"bazaar/pkg/platform/tx"
)

const defaultRegistryTxTimeout = 5 * time.Second

// registryPostgresTx runs an operation inside one SQL transaction. The
// transaction travels in the context, so every store call inside fn joins the
// same unit of work. Both registries use the same runner shape.
type registryPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newRegistryPostgresTx(db *sql.DB) *registryPostgresTx {
	return &registryPostgresTx{db: db}
}

func (t *registryPostgresTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultRegistryTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	sqlTx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(tx.WithTx(ctx, sqlTx)); err != nil {
		return err
	}

	return sqlTx.Commit()
}
