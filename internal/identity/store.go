package identity

import (
	"context"
	"time"
)

// Lockout policy applied by the store on consecutive credential failures.
const (
	MaxLoginFailures = 5
	LockoutDuration  = 2 * time.Minute
)

// Store describes persistence operations required by the identity subsystem.
// The token authenticator and the access policy engine read through it; the
// account lifecycle (create, delete, role assignment) is owned here too.
type Store interface {
	FindByID(ctx context.Context, id string) (*Account, error)
	FindByUsername(ctx context.Context, username string) (*Account, error)
	List(ctx context.Context) ([]*Account, error)
	Create(ctx context.Context, a *Account) error
	Delete(ctx context.Context, id string) error

	Roles(ctx context.Context, accountID string) ([]Role, error)
	AssignRole(ctx context.Context, accountID string, role Role) error
	RemoveRole(ctx context.Context, accountID string, role Role) error

	// RegisterLoginFailure bumps the consecutive-failure counter and, once it
	// reaches MaxLoginFailures, opens a LockoutDuration window.
	RegisterLoginFailure(ctx context.Context, accountID string) error
	ResetLoginFailures(ctx context.Context, accountID string) error
}
