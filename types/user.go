package types

import (
	"regexp"
	"time"
)

// User represents an account in the system.
// It contains identity, the role granted by the licence redeemed at signup,
// and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID string `json:"id"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username"`

	// Email is the user's email address. It is unique across accounts.
	Email string `json:"email"`

	// Role is the authorization level granted to the user. It is copied from
	// the licence redeemed during signup and never changes afterwards.
	Role Role `json:"role"`

	// PasswordHash stores the hex encoded digest of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at"`
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether email has the local@domain.tld shape.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}
