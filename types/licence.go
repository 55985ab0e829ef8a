package types

import (
	"regexp"
	"time"
)

// LicenceKeyFormat is the human readable shape of a licence key.
const LicenceKeyFormat = "AAAA-BBBB-CCCC-DDDD"

var licenceKeyPattern = regexp.MustCompile(`^[A-Za-z0-9]{4}-[A-Za-z0-9]{4}-[A-Za-z0-9]{4}-[A-Za-z0-9]{4}$`)

// Licence is a single-use token that grants a role to exactly one future
// account.
//
// A licence starts unclaimed (OwnerID is nil). Redeeming it during signup
// binds it to the new account. The transition is one way: once OwnerID is
// set it is never cleared.
type Licence struct {
	// ID is the unique identifier of the licence record.
	ID string `json:"id"`

	// Key is the licence key presented at signup, in LicenceKeyFormat.
	Key string `json:"key"`

	// OwnerID references the account that redeemed the licence.
	// It is nil while the licence is unclaimed.
	OwnerID *string `json:"owner_id"`

	// Role is the role granted to the account that redeems the licence.
	Role Role `json:"role"`

	// CreatedAt is the timestamp when the licence was issued.
	CreatedAt time.Time `json:"created_at"`

	// ClaimedAt is the timestamp when the licence was redeemed, if it was.
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`
}

// Claimed reports whether the licence has been bound to an account.
func (l Licence) Claimed() bool {
	return l.OwnerID != nil
}

// ValidLicenceKey reports whether key is exactly four groups of four ASCII
// alphanumeric characters separated by hyphens.
func ValidLicenceKey(key string) bool {
	return licenceKeyPattern.MatchString(key)
}
