package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// AccountID identifies an external identity (a registered owner, an admin, a
// fee destination). The substrate authenticates it; the registry only compares
// it against stored owner/admin fields.
//
// Typed to prevent accidental cross-assignment with other UUID-shaped values.
type AccountID uuid.UUID

// ParseAccountID validates and returns an AccountID.
// Rejects empty strings, malformed UUIDs, and the nil UUID.
func ParseAccountID(s string) (AccountID, error) {
	if s == "" {
		return AccountID{}, fmt.Errorf("account id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return AccountID{}, fmt.Errorf("invalid account id: %w", err)
	}
	if u == uuid.Nil {
		return AccountID{}, fmt.Errorf("account id cannot be the nil UUID")
	}
	return AccountID(u), nil
}

func (a AccountID) String() string {
	return uuid.UUID(a).String()
}

// IsZero reports whether the account ID is unset.
func (a AccountID) IsZero() bool {
	return uuid.UUID(a) == uuid.Nil
}

// MarshalText renders the canonical UUID string, so JSON payloads carry
// "550e8400-..." rather than a byte array.
func (a AccountID) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *AccountID) UnmarshalText(text []byte) error {
	parsed, err := ParseAccountID(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Address is the deterministic storage address of a record (profile or name
// index entry). Derived, never random; see nameindex.Derive.
type Address string

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool {
	return a == ""
}

func (a Address) String() string {
	return string(a)
}
