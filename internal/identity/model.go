package identity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of access levels an identity can hold.
type Role string

const (
	RoleStandard      Role = "standard"
	RoleGuide         Role = "guide"
	RoleLeadGuide     Role = "lead-guide"
	RoleAdministrator Role = "administrator"
)

// ParseRole validates a raw role value against the closed set.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleStandard, RoleGuide, RoleLeadGuide, RoleAdministrator:
		return Role(raw), nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// User is a registered identity. Credential material never serializes
// to clients.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	Role         Role      `json:"role"`

	// PasswordChangedAt invalidates bearer tokens issued before it.
	PasswordChangedAt *time.Time `json:"-"`

	// At most one outstanding reset credential per identity; only the
	// digest of the secret is ever stored.
	ResetTokenHash      string     `json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`

	// Active is the soft-delete marker. Inactive identities are
	// invisible to reads.
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
