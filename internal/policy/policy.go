package policy

import (
	"context"
	"errors"
	"strings"

	"identra.org/internal/auth"
	"identra.org/internal/identity"
)

// Engine decides whether a caller may act on a target identity using the
// three-tier hierarchy: super-admins act on anyone, admins act on themselves
// and on standard users, standard users act only on themselves. Peers and
// superiors are never reachable.
type Engine struct {
	store identity.Store
}

// NewEngine constructs the access policy engine.
func NewEngine(store identity.Store) (*Engine, error) {
	if store == nil {
		return nil, errors.New("policy: identity store is required")
	}
	return &Engine{store: store}, nil
}

// ValidatePermission evaluates the decision table top-down; the first match
// wins. The caller's top tier resolves multi-role principals, so a caller
// holding both admin and super-admin gets super-admin treatment. Target roles
// are fetched fresh from the store; lookup errors other than not-found
// propagate rather than turning into a deny.
func (e *Engine) ValidatePermission(ctx context.Context, caller auth.Principal, targetID string) (bool, error) {
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return false, nil
	}
	if caller.Anonymous() || len(caller.Roles) == 0 {
		return false, nil
	}

	switch caller.HighestRole() {
	case identity.RoleSuperAdmin:
		return true, nil
	case identity.RoleAdmin:
		if targetID == caller.SubjectID {
			return true, nil
		}
		targetTier, exists, err := e.targetTier(ctx, targetID)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, nil
		}
		// Admins reach strictly lower tiers only.
		return targetTier < identity.RoleAdmin, nil
	case identity.RoleStandardUser:
		return targetID == caller.SubjectID, nil
	default:
		return false, nil
	}
}

func (e *Engine) targetTier(ctx context.Context, targetID string) (identity.Role, bool, error) {
	if _, err := e.store.FindByID(ctx, targetID); err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	roles, err := e.store.Roles(ctx, targetID)
	if err != nil {
		return 0, false, err
	}
	return identity.HighestRole(roles), true, nil
}
