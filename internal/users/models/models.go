package models

import (
	"strings"
	"time"

	"bazaar/pkg/domain"
	dErrors "bazaar/pkg/domain-errors"
)

// Username and bio limits, in bytes.
const (
	MinUsernameLen = 3
	MaxUsernameLen = 32
	MaxBioLen      = 280
)

// NormalizeUsername lowercases and trims a username. The normalized form is
// what the name index keys on, so "Alice" and "alice" are the same claim.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateUsername checks length and charset of an already-normalized
// username.
func ValidateUsername(s string) error {
	if len(s) < MinUsernameLen || len(s) > MaxUsernameLen {
		return dErrors.New(dErrors.CodeValidation, "username must be 3-32 bytes")
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_' || c == '-' || c == '.' {
			continue
		}
		return dErrors.New(dErrors.CodeValidation, "username may only contain a-z, 0-9, '_', '-', '.'")
	}
	return nil
}

// ValidateBio checks the bio length limit.
func ValidateBio(s string) error {
	if len(s) > MaxBioLen {
		return dErrors.New(dErrors.CodeValidation, "bio must be 280 bytes or less")
	}
	return nil
}

// Profile is the per-user record.
//
// Invariants:
//   - Address is the derived profile address and never changes
//   - Username is normalized, 3-32 bytes, and matches the live name index
//     entry pointing at Address
//   - CreatedAt is immutable after construction
//
// The profile is the source of truth for its own current name; index entries
// are weak references.
type Profile struct {
	Address   domain.Address   `json:"address"`
	Owner     domain.AccountID `json:"owner"`
	Username  string           `json:"username"`
	Bio       string           `json:"bio"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// NewProfile constructs an active profile, validating invariants.
func NewProfile(address domain.Address, owner domain.AccountID, username, bio string, now time.Time) (*Profile, error) {
	if address.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "profile address is required")
	}
	if owner.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "profile owner is required")
	}
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateBio(bio); err != nil {
		return nil, err
	}
	return &Profile{
		Address:   address,
		Owner:     owner,
		Username:  username,
		Bio:       bio,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsOwnedBy reports whether caller is the profile owner. Owner-gated
// operations compare the authenticated caller against this.
func (p *Profile) IsOwnedBy(caller domain.AccountID) bool {
	return p.Owner == caller
}

// ApplyBio replaces the bio. Validate first with ValidateBio.
func (p *Profile) ApplyBio(bio string, now time.Time) {
	p.Bio = bio
	p.UpdatedAt = now
}

// ApplyUsername replaces the stored name. The caller owns keeping the name
// index in step; this only mutates the record.
func (p *Profile) ApplyUsername(username string, now time.Time) {
	p.Username = username
	p.UpdatedAt = now
}

// ApplyOwner transfers ownership. Name claims are unaffected.
func (p *Profile) ApplyOwner(owner domain.AccountID, now time.Time) {
	p.Owner = owner
	p.UpdatedAt = now
}

// FactoryState is the singleton admission-control state for the user domain.
// Created once by Initialize, mutated by SetFee and WithdrawFees, never
// destroyed.
type FactoryState struct {
	Admin              domain.AccountID `json:"admin"`
	Vault              domain.AccountID `json:"vault"`
	RegistrationFee    uint64           `json:"registration_fee"`
	TotalFeesCollected uint64           `json:"total_fees_collected"`
	UserCount          uint64           `json:"user_count"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// NewFactoryState constructs the singleton, validating invariants.
func NewFactoryState(admin, vault domain.AccountID, fee uint64, now time.Time) (*FactoryState, error) {
	if admin.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "factory admin is required")
	}
	if vault.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "factory vault account is required")
	}
	return &FactoryState{
		Admin:           admin,
		Vault:           vault,
		RegistrationFee: fee,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// IsAdmin reports whether caller is the factory admin.
func (s *FactoryState) IsAdmin(caller domain.AccountID) bool {
	return s.Admin == caller
}
