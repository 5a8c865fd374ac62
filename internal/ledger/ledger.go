// Package ledger is the balance transfer boundary the registry charges fees
// through. The execution substrate owns real money movement; the registry
// only needs an atomic debit/credit primitive that fails closed when the
// payer's balance is short.
package ledger

import (
	"context"

	"bazaar/pkg/domain"
)

// Ledger moves value between accounts. Transfer returns
// sentinel.ErrInsufficientFunds when from's balance is below amount, with no
// partial effect. Implementations joining a SQL transaction in ctx commit or
// roll back with the surrounding operation.
type Ledger interface {
	Transfer(ctx context.Context, from, to domain.AccountID, amount uint64) error
	Balance(ctx context.Context, account domain.AccountID) (uint64, error)
}
