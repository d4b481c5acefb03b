package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"identra.org/internal/identity"
)

type createUserRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
	Active      bool   `json:"active"`
}

type assignRoleRequest struct {
	Role string `json:"role"`
}

type userResponse struct {
	identity.Account
	Roles []string `json:"roles"`
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.handleCreateUser(w, r)
	case http.MethodGet:
		a.handleListUsers(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireRole(w, r, identity.RoleAdmin); !ok {
		return
	}

	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || strings.TrimSpace(req.Password) == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	if strings.TrimSpace(req.DisplayName) == "" {
		req.DisplayName = req.Username
	}

	hash, err := identity.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusBadRequest, "password could not be hashed")
		return
	}
	account := &identity.Account{
		Username:     req.Username,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		PasswordHash: hash,
		Active:       req.Active,
	}
	if err := a.accounts.Create(r.Context(), account); err != nil {
		handleIdentityError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/v1/users/%s", account.ID))
	writeJSON(w, http.StatusCreated, account)
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireRole(w, r, identity.RoleAdmin); !ok {
		return
	}
	accounts, err := a.accounts.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	if accounts == nil {
		accounts = []*identity.Account{}
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (a *API) handleUserScoped(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/users/"), "/")
	if path == "" {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	userID := parts[0]

	switch {
	case len(parts) == 1:
		a.handleUser(w, r, userID)
	case len(parts) == 2 && parts[1] == "roles":
		a.handleUserRoles(w, r, userID)
	case len(parts) == 3 && parts[1] == "roles":
		a.handleUserRole(w, r, userID, parts[2])
	default:
		writeError(w, http.StatusNotFound, "resource not found")
	}
}

// handleUser serves GET and DELETE on a single account. Both run through the
// access policy engine: self or a strictly lower tier, nothing else.
func (a *API) handleUser(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet && r.Method != http.MethodDelete {
		methodNotAllowed(w, http.MethodGet, http.MethodDelete)
		return
	}
	principal, ok := a.requirePrincipal(w, r)
	if !ok {
		return
	}
	allowed, err := a.policy.ValidatePermission(r.Context(), principal, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	if !allowed {
		a.rejectForbidden(w, r, "target outside caller hierarchy")
		return
	}

	switch r.Method {
	case http.MethodGet:
		account, err := a.accounts.FindByID(r.Context(), userID)
		if err != nil {
			handleIdentityError(w, err)
			return
		}
		roles, err := a.accounts.Roles(r.Context(), userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, msgInternalError)
			return
		}
		names := identity.RoleNames(roles)
		if names == nil {
			names = []string{}
		}
		writeJSON(w, http.StatusOK, userResponse{Account: *account, Roles: names})
	case http.MethodDelete:
		if err := a.accounts.Delete(r.Context(), userID); err != nil {
			handleIdentityError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (a *API) handleUserRoles(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if _, ok := a.requireRole(w, r, identity.RoleSuperAdmin); !ok {
		return
	}
	var req assignRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	role, err := identity.ParseRole(req.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown role")
		return
	}
	if err := a.accounts.AssignRole(r.Context(), userID, role); err != nil {
		handleIdentityError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (a *API) handleUserRole(w http.ResponseWriter, r *http.Request, userID, roleName string) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, http.MethodDelete)
		return
	}
	if _, ok := a.requireRole(w, r, identity.RoleSuperAdmin); !ok {
		return
	}
	role, err := identity.ParseRole(roleName)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown role")
		return
	}
	if err := a.accounts.RemoveRole(r.Context(), userID, role); err != nil {
		handleIdentityError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) rejectForbidden(w http.ResponseWriter, r *http.Request, reason string) {
	if err := a.recorder.RecordAuthorizationBreach(r.Context(), reason); err != nil {
		// Never mask the response with an audit failure.
		writeError(w, http.StatusForbidden, msgForbidden)
		return
	}
	writeError(w, http.StatusForbidden, msgForbidden)
}

func handleIdentityError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, identity.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, identity.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, identity.ErrNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	default:
		writeError(w, http.StatusInternalServerError, msgInternalError)
	}
}
