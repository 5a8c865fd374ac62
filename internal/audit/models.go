package audit

import "time"

// Event is emitted from domain logic to capture key registry actions. It is
// observational only: the core never reads events back for correctness.
// Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	// Domain is "users" or "vendors".
	Domain string `json:"domain"`
	Action string `json:"action"`
	// Actor is the authenticated caller, when there is one.
	Actor string `json:"actor,omitempty"`
	// Profile is the address of the record the action touched.
	Profile string `json:"profile,omitempty"`
	Name    string `json:"name,omitempty"`
	// OldValue/NewValue carry before/after values for mutations (bio edits,
	// renames, fee changes, ownership transfers).
	OldValue string `json:"old_value,omitempty"`
	NewValue string `json:"new_value,omitempty"`
	// Amount is set for fee movements, in the smallest currency unit.
	Amount    uint64 `json:"amount,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Action names, one per registry operation.
const (
	ActionFactoryInitialized   = "factory_initialized"
	ActionUserRegistered       = "user_registered"
	ActionVendorRegistered     = "vendor_registered"
	ActionFeeUpdated           = "fee_updated"
	ActionFeesWithdrawn        = "fees_withdrawn"
	ActionUsernameChanged      = "username_changed"
	ActionVendorNameChanged    = "vendor_name_changed"
	ActionBioUpdated           = "bio_updated"
	ActionDescriptionUpdated   = "description_updated"
	ActionOwnershipTransferred = "ownership_transferred"
	ActionProductAdded         = "product_added"
	ActionProductRemoved       = "product_removed"
	ActionRegistrationPaused   = "registration_paused"
)
