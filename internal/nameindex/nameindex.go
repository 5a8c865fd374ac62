// Package nameindex maintains the uniqueness mapping from a normalized name
// to the address of the record that owns it. Each registry domain gets its
// own instance with its own namespace; instances share no state.
package nameindex

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"bazaar/pkg/domain"
)

// Namespaces partition the address space so the same name in different
// domains never collides.
const (
	NamespaceUsername      = "username"
	NamespaceUserProfile   = "user-profile"
	NamespaceVendorName    = "vendor-name"
	NamespaceVendorProfile = "vendor-profile"
)

// Derive computes the deterministic address for seed bytes within a
// namespace. Pure: the same (namespace, seed) always yields the same address
// and distinct inputs never collide within SHA-256's guarantees. The zero
// byte separator keeps ("ab","c") and ("a","bc") apart.
func Derive(namespace, seed string) domain.Address {
	h := sha256.New()
	h.Write([]byte(namespace))
	h.Write([]byte{0})
	h.Write([]byte(seed))
	return domain.Address(hex.EncodeToString(h.Sum(nil)))
}

// Entry is one name-to-address mapping. A released entry stays in the store
// as a tombstone (Target cleared) so the entry's address remains stable;
// every lookup path must treat a tombstone as absent.
type Entry struct {
	Name   string
	Target domain.Address
}

// Claimed reports whether the entry currently maps to a record.
func (e Entry) Claimed() bool {
	return !e.Target.IsZero()
}

// Store is the uniqueness index contract.
//
// Claim fails with sentinel.ErrAlreadyUsed when a live entry exists; it
// atomically writes over a tombstone or creates the entry otherwise. Release
// clears the target, leaving a tombstone. Lookup returns
// sentinel.ErrNotFound for both missing entries and tombstones.
type Store interface {
	Claim(ctx context.Context, name string, target domain.Address) error
	Release(ctx context.Context, name string) error
	Lookup(ctx context.Context, name string) (domain.Address, error)
}
