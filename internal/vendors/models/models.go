// Package models holds the vendor-domain records: the vendor profile with
// its product list and the singleton factory state. The vendor domain
// mirrors the user domain but adds products and a registration pause switch.
package models

import (
	"strings"
	"time"

	"bazaar/pkg/domain"
	dErrors "bazaar/pkg/domain-errors"
)

const (
	// MaxDescriptionLen bounds the vendor description, in bytes.
	MaxDescriptionLen = 256
	// MaxProducts is the capacity of a vendor's product list. Adds beyond
	// it fail instead of truncating.
	MaxProducts = 50
)

// NormalizeName lowercases and trims a vendor name. Uniqueness is enforced
// on the normalized form.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateName checks an already-normalized vendor name. Vendor names carry
// no charset restriction and no upper length bound, only non-emptiness.
func ValidateName(s string) error {
	if s == "" {
		return dErrors.New(dErrors.CodeValidation, "vendor name must not be empty")
	}
	return nil
}

// ValidateDescription checks the description length limit. Applies to both
// the vendor description and per-product descriptions.
func ValidateDescription(s string) error {
	if len(s) > MaxDescriptionLen {
		return dErrors.New(dErrors.CodeValidation, "description must be 256 bytes or less")
	}
	return nil
}

// Product is one entry in a vendor's catalog. ID is caller-chosen and unique
// within the owning profile only.
type Product struct {
	ID          string    `json:"id"`
	Price       uint64    `json:"price"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Profile is the per-vendor record.
//
// Invariants:
//   - Address is derived from the registration-time name and never changes,
//     even across renames
//   - Name is normalized and matches the live name index entry pointing at
//     Address
//   - Product IDs are unique within Products
type Profile struct {
	Address     domain.Address   `json:"address"`
	Owner       domain.AccountID `json:"owner"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Products    []Product        `json:"products"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// NewProfile constructs a vendor profile, validating invariants.
func NewProfile(address domain.Address, owner domain.AccountID, name, description string, now time.Time) (*Profile, error) {
	if address.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "vendor address is required")
	}
	if owner.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "vendor owner is required")
	}
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := ValidateDescription(description); err != nil {
		return nil, err
	}
	return &Profile{
		Address:     address,
		Owner:       owner,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (p *Profile) IsOwnedBy(caller domain.AccountID) bool {
	return p.Owner == caller
}

func (p *Profile) ApplyDescription(description string, now time.Time) {
	p.Description = description
	p.UpdatedAt = now
}

func (p *Profile) ApplyName(name string, now time.Time) {
	p.Name = name
	p.UpdatedAt = now
}

func (p *Profile) ApplyOwner(owner domain.AccountID, now time.Time) {
	p.Owner = owner
	p.UpdatedAt = now
}

// AddProduct appends a product, enforcing per-profile ID uniqueness and the
// catalog capacity.
func (p *Profile) AddProduct(id string, price uint64, description string, now time.Time) error {
	if strings.TrimSpace(id) == "" {
		return dErrors.New(dErrors.CodeValidation, "product id must not be empty")
	}
	if err := ValidateDescription(description); err != nil {
		return err
	}
	if len(p.Products) >= MaxProducts {
		return dErrors.New(dErrors.CodeValidation, "product list is at capacity")
	}
	for _, existing := range p.Products {
		if existing.ID == id {
			return dErrors.New(dErrors.CodeConflict, "product id already exists")
		}
	}
	p.Products = append(p.Products, Product{
		ID:          id,
		Price:       price,
		Description: description,
		CreatedAt:   now,
	})
	p.UpdatedAt = now
	return nil
}

// RemoveProduct deletes the product with id, preserving catalog order.
func (p *Profile) RemoveProduct(id string, now time.Time) error {
	for i, existing := range p.Products {
		if existing.ID == id {
			p.Products = append(p.Products[:i], p.Products[i+1:]...)
			p.UpdatedAt = now
			return nil
		}
	}
	return dErrors.New(dErrors.CodeNotFound, "product not found")
}

// Product returns the product with id, if present.
func (p *Profile) Product(id string) (Product, bool) {
	for _, existing := range p.Products {
		if existing.ID == id {
			return existing, true
		}
	}
	return Product{}, false
}

// FactoryState is the singleton admission-control state for the vendor
// domain. Unlike the user domain it carries a pause switch: while Paused is
// set, registration is rejected and everything else keeps working.
type FactoryState struct {
	Admin              domain.AccountID `json:"admin"`
	Vault              domain.AccountID `json:"vault"`
	RegistrationFee    uint64           `json:"registration_fee"`
	TotalFeesCollected uint64           `json:"total_fees_collected"`
	VendorCount        uint64           `json:"vendor_count"`
	Paused             bool             `json:"paused"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

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

func (s *FactoryState) IsAdmin(caller domain.AccountID) bool {
	return s.Admin == caller
}
