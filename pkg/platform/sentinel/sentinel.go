package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, the ledger, and the name
// index return these (optionally wrapped) so services can translate them into
// domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record does not exist in store (tombstones count as absent)
// - ErrAlreadyUsed: name or product id already claimed
// - ErrConflict: record already exists at the target address
// - ErrInsufficientFunds: ledger balance short of the requested amount
// - ErrInvalidState: singleton in wrong state for the requested operation
// - ErrUnavailable: backing service temporarily unavailable
//
// For validation errors (bad input, length limits), use pkg/domain-errors
// directly.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrAlreadyUsed       = errors.New("already used")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidState      = errors.New("invalid state")
	ErrUnavailable       = errors.New("unavailable")
)
