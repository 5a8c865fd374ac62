package service

import (
	"context"
	"sync"
	"time"

	dErrors "bazaar/pkg/domain-errors"
)

// StoreTx provides the atomic multi-record boundary that register and rename
// run under. Implementations may wrap a database transaction or, in-memory, a
// coarse lock. Whatever the backing, a failed operation must leave no prefix
// of its effects behind: the SQL runner rolls back, the in-memory runner
// serializes writers and relies on the service's compensation steps.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// defaultTxTimeout bounds one registry transaction.
const defaultTxTimeout = 5 * time.Second

// inMemoryTx serializes all writers behind one mutex. The factory state is a
// singleton every registration touches, so finer sharding would not admit
// more concurrency without breaking the fee counter.
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

	// Check again after acquiring the lock.
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx)
}
