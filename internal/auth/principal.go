package auth

import "identra.org/internal/identity"

// Principal is the authenticated caller for the current request, rebuilt from
// validated token claims. It is never persisted.
type Principal struct {
	SubjectID   string
	DisplayName string
	Roles       []identity.Role
}

// NewPrincipal constructs a principal from claim values.
func NewPrincipal(subjectID, displayName string, roles []identity.Role) Principal {
	return Principal{SubjectID: subjectID, DisplayName: displayName, Roles: roles}
}

// HighestRole returns the principal's top tier, or zero when roleless.
func (p Principal) HighestRole() identity.Role {
	return identity.HighestRole(p.Roles)
}

// Anonymous reports whether no authenticated subject backs this principal.
func (p Principal) Anonymous() bool {
	return p.SubjectID == ""
}
