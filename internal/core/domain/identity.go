package domain

import (
	"strings"
	"time"
)

// Role is the authority an identity holds, either as its signup-time
// default or as computed against a specific store's membership lists.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleStaff  Role = "staff"
	RoleFamily Role = "family"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleStaff, RoleFamily:
		return true
	}
	return false
}

// NormalizeEmail lowercases and trims an email address. Every email
// comparison and every persisted membership entry goes through this.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Identity models a registered account.
type Identity struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"` // normalized at registration
	SecretHash      string    `json:"-"`
	PhotoRef        string    `json:"photo_ref,omitempty"`
	Role            Role      `json:"role"`
	DisplayCurrency string    `json:"display_currency,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Sanitized returns a copy with the credential hash stripped. Identities
// handed outside the identity store boundary must pass through here.
func (i Identity) Sanitized() Identity {
	i.SecretHash = ""
	return i
}

// ProfilePatch carries optional profile-field updates applied to an
// already-authenticated identity. Nil fields are left untouched.
type ProfilePatch struct {
	PhotoRef        *string
	DisplayCurrency *string
}
