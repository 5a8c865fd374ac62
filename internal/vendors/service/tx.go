package service

import (
	"context"
	"sync"
	"time"

	dErrors "bazaar/pkg/domain-errors"
)

// StoreTx provides the atomic multi-record boundary for vendor registration,
// rename, and catalog mutation. See the user domain's runner for the
// contract; the two interfaces are declared separately so neither context
// imports the other.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

const defaultTxTimeout = 5 * time.Second

type inMemoryTx struct {
	mu      sync.Mutex
	timeout time.Duration
}

// NewInMemoryTx returns the lock-based transaction runner used with the
// in-memory and Redis stores.
func NewInMemoryTx() StoreTx {
	return &inMemoryTx{}
}

func (t *inMemoryTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx)
}
