package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"identra.org/internal/identity"
)

const minSecretBytes = 32

// DefaultTTL is the fixed access token lifetime.
const DefaultTTL = time.Hour

// ErrInvalidToken indicates the token failed validation.
var ErrInvalidToken = errors.New("token: invalid token")

// Config holds signing material and registered-claim values. The secret length
// is checked at construction so a weak deployment fails at startup.
type Config struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
}

// Claims are the JWT claims carried by access tokens.
type Claims struct {
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Issuer mints and validates HS256 access tokens. It is stateless; every
// decision is a pure function of the config and the wall clock.
type Issuer struct {
	cfg Config
	now func() time.Time
}

// Option configures Issuer behavior.
type Option func(*Issuer)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(i *Issuer) {
		if fn != nil {
			i.now = fn
		}
	}
}

// NewIssuer validates the config and constructs an Issuer.
func NewIssuer(cfg Config, opts ...Option) (*Issuer, error) {
	if len(cfg.Secret) < minSecretBytes {
		return nil, fmt.Errorf("token: secret must be at least %d bytes", minSecretBytes)
	}
	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, errors.New("token: issuer is required")
	}
	if strings.TrimSpace(cfg.Audience) == "" {
		return nil, errors.New("token: audience is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	iss := &Issuer{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(iss)
	}
	return iss, nil
}

// Issue signs a token for the subject with its display name and role claims.
// Roles may be empty; subject and display name may not.
func (i *Issuer) Issue(subjectID, displayName string, roles []identity.Role) (string, time.Time, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return "", time.Time{}, errors.New("token: subject is required")
	}
	if strings.TrimSpace(displayName) == "" {
		return "", time.Time{}, errors.New("token: display name is required")
	}

	now := i.now().UTC()
	expiresAt := now.Add(i.cfg.TTL)
	claims := Claims{
		Name:  displayName,
		Roles: identity.RoleNames(roles),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.cfg.Issuer,
			Audience:  jwt.ClaimStrings{i.cfg.Audience},
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.cfg.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token: sign: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseAndValidate verifies signature, algorithm, issuer, audience and expiry.
// It does not consult the identity store; stale-subject detection happens in
// the request pipeline.
func (i *Issuer) ParseAndValidate(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return i.cfg.Secret, nil
	},
		jwt.WithIssuer(i.cfg.Issuer),
		jwt.WithAudience(i.cfg.Audience),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// RoleSet parses role claims back into the ordered enum, dropping unknowns.
func (c *Claims) RoleSet() []identity.Role {
	if len(c.Roles) == 0 {
		return nil
	}
	roles := make([]identity.Role, 0, len(c.Roles))
	for _, name := range c.Roles {
		role, err := identity.ParseRole(name)
		if err != nil {
			continue
		}
		roles = append(roles, role)
	}
	return roles
}
