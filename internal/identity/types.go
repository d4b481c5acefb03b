package identity

import (
	"fmt"
	"strings"
	"time"
)

// Role is an ordered tier in the access hierarchy. Higher values may act on
// strictly lower ones and on themselves, never on peers or superiors.
type Role int

const (
	RoleStandardUser Role = iota + 1
	RoleAdmin
	RoleSuperAdmin
)

const (
	roleNameStandardUser = "user"
	roleNameAdmin        = "admin"
	roleNameSuperAdmin   = "superadmin"
)

func (r Role) String() string {
	switch r {
	case RoleStandardUser:
		return roleNameStandardUser
	case RoleAdmin:
		return roleNameAdmin
	case RoleSuperAdmin:
		return roleNameSuperAdmin
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Valid reports whether r is one of the known tiers.
func (r Role) Valid() bool {
	return r >= RoleStandardUser && r <= RoleSuperAdmin
}

// ParseRole maps a stored role name onto the ordered enum.
func ParseRole(name string) (Role, error) {
	switch strings.TrimSpace(strings.ToLower(name)) {
	case roleNameStandardUser:
		return RoleStandardUser, nil
	case roleNameAdmin:
		return RoleAdmin, nil
	case roleNameSuperAdmin:
		return RoleSuperAdmin, nil
	default:
		return 0, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, name)
	}
}

// HighestRole returns the top tier of a role set, or zero when empty.
func HighestRole(roles []Role) Role {
	var top Role
	for _, r := range roles {
		if r > top {
			top = r
		}
	}
	return top
}

// RoleNames renders roles for token claims and responses.
func RoleNames(roles []Role) []string {
	if len(roles) == 0 {
		return nil
	}
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, r.String())
	}
	return out
}

// Account is the stored identity record the token pipeline re-checks on every
// authenticated request.
type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"active"`
	FailedLogins int       `json:"-"`
	LockedUntil  time.Time `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Locked reports whether the account is under a lockout window at now.
func (a *Account) Locked(now time.Time) bool {
	return !a.LockedUntil.IsZero() && now.Before(a.LockedUntil)
}
