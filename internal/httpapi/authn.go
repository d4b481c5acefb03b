package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"identra.org/internal/audit"
	"identra.org/internal/auth"
	"identra.org/internal/identity"
	"identra.org/internal/obs"
)

const (
	authHeader   = "Authorization"
	bearerPrefix = "Bearer "
)

// Authenticate polices requests that present a bearer token. Requests without
// one pass through anonymous; per-endpoint guards decide whether that is
// acceptable. A token that validates cryptographically is still rejected when
// its subject no longer resolves to a live account, closing the gap between
// token expiry and account deletion at the cost of one store lookup.
func (a *API) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(authHeader))
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		if !strings.HasPrefix(raw, bearerPrefix) {
			a.rejectUnauthorized(w, r, "invalid authorization scheme")
			return
		}
		tokenString := strings.TrimSpace(raw[len(bearerPrefix):])
		if tokenString == "" {
			a.rejectUnauthorized(w, r, "missing bearer token")
			return
		}

		claims, err := a.issuer.ParseAndValidate(tokenString)
		if err != nil {
			a.rejectUnauthorized(w, r, "token validation failed")
			return
		}

		// ParseAndValidate guarantees a non-blank subject.
		subjectID := strings.TrimSpace(claims.Subject)
		// Record the actor before the liveness check so a breach event names
		// the stale subject rather than an anonymous caller.
		audit.SetContextUser(r.Context(), subjectID)

		account, err := a.accounts.FindByID(r.Context(), subjectID)
		if err != nil {
			if errors.Is(err, identity.ErrNotFound) {
				a.rejectUnauthorized(w, r, "subject no longer exists")
				return
			}
			// Fail closed on store trouble.
			obs.Error("subject liveness check failed", map[string]any{
				"subject_id": subjectID,
				"error":      err.Error(),
			})
			a.rejectUnauthorized(w, r, "subject verification unavailable")
			return
		}
		if !account.Active {
			a.rejectUnauthorized(w, r, "subject is deactivated")
			return
		}

		principal := auth.NewPrincipal(subjectID, claims.Name, claims.RoleSet())
		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *API) rejectUnauthorized(w http.ResponseWriter, r *http.Request, reason string) {
	if err := a.recorder.RecordAuthorizationBreach(r.Context(), reason); err != nil {
		obs.Error("breach audit write failed", map[string]any{
			"path":  r.URL.Path,
			"error": err.Error(),
		})
	}
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, msgUnauthorized)
}

// requirePrincipal guards endpoints that need an authenticated caller.
func (a *API) requirePrincipal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		a.rejectUnauthorized(w, r, "authentication required")
		return auth.Principal{}, false
	}
	return principal, true
}

// requireRole guards endpoints restricted to a minimum tier.
func (a *API) requireRole(w http.ResponseWriter, r *http.Request, min identity.Role) (auth.Principal, bool) {
	principal, ok := a.requirePrincipal(w, r)
	if !ok {
		return auth.Principal{}, false
	}
	if principal.HighestRole() < min {
		if err := a.recorder.RecordAuthorizationBreach(r.Context(), "insufficient role"); err != nil {
			obs.Error("breach audit write failed", map[string]any{
				"path":  r.URL.Path,
				"error": err.Error(),
			})
		}
		writeError(w, http.StatusForbidden, msgForbidden)
		return auth.Principal{}, false
	}
	return principal, true
}
