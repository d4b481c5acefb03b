package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"identra.org/internal/identity"
	"identra.org/internal/obs"
	"identra.org/internal/token"
)

// Login failure messages. Not-found and wrong-password remain observably
// distinct; that matches the upstream behavior and is kept on purpose.
const (
	msgUserNotFound       = "user not found"
	msgNotActivated       = "account is not activated"
	msgLocked             = "account is locked"
	msgInvalidCredentials = "username or password is invalid"
)

// LoginResult is the structured outcome of a credential check. Domain
// failures land in Errors; they are never raised as Go errors.
type LoginResult struct {
	Succeeded bool      `json:"succeeded"`
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	Errors    []string  `json:"errors,omitempty"`
}

func loginFailure(msg string) LoginResult {
	return LoginResult{Errors: []string{msg}}
}

// Service verifies credentials against the identity store and issues tokens.
type Service struct {
	store  identity.Store
	issuer *token.Issuer
	now    func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the login service.
func NewService(store identity.Store, issuer *token.Issuer, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: identity store is required")
	}
	if issuer == nil {
		return nil, errors.New("auth: token issuer is required")
	}
	svc := &Service{store: store, issuer: issuer, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Login runs the credential check as a linear state machine, terminal on the
// first failure. Blank input is a caller contract violation, not a login
// failure, and comes back as an error wrapping ErrInvalidInput.
func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return LoginResult{}, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}

	account, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			obs.IncLoginFailure()
			return loginFailure(msgUserNotFound), nil
		}
		return LoginResult{}, err
	}

	if !account.Active {
		obs.IncLoginFailure()
		return loginFailure(msgNotActivated), nil
	}
	if account.Locked(s.now()) {
		obs.IncLoginFailure()
		return loginFailure(msgLocked), nil
	}

	if err := identity.VerifyPassword(account.PasswordHash, password); err != nil {
		obs.IncLoginFailure()
		if err := s.store.RegisterLoginFailure(ctx, account.ID); err != nil {
			obs.Error("login failure not counted", map[string]any{
				"account_id": account.ID,
				"error":      err.Error(),
			})
		}
		return loginFailure(msgInvalidCredentials), nil
	}

	roles, err := s.store.Roles(ctx, account.ID)
	if err != nil {
		return LoginResult{}, err
	}
	signed, expiresAt, err := s.issuer.Issue(account.ID, account.DisplayName, roles)
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.store.ResetLoginFailures(ctx, account.ID); err != nil {
		obs.Error("login failure counter not reset", map[string]any{
			"account_id": account.ID,
			"error":      err.Error(),
		})
	}

	return LoginResult{Succeeded: true, Token: signed, ExpiresAt: expiresAt}, nil
}
