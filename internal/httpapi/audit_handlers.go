package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"identra.org/internal/audit"
	"identra.org/internal/identity"
	"identra.org/internal/ids"
)

type auditListResponse struct {
	Events     []audit.Event `json:"events"`
	Pagination audit.Page    `json:"pagination"`
}

func (a *API) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if _, ok := a.requireRole(w, r, identity.RoleSuperAdmin); !ok {
		return
	}

	var filter audit.Filter
	q := r.URL.Query()
	if raw := q.Get("action"); raw != "" {
		action, err := audit.ParseAction(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unknown action kind")
			return
		}
		filter.Action = action
	}
	filter.Page = intQuery(q.Get("page"), 1)
	filter.PageSize = intQuery(q.Get("page_size"), 0)

	events, page, err := a.auditStore.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	writeJSON(w, http.StatusOK, auditListResponse{Events: events, Pagination: page})
}

func (a *API) handleAuditLogScoped(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireRole(w, r, identity.RoleSuperAdmin); !ok {
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/audit-logs/"), "/")
	if id == "" || strings.Contains(id, "/") || !ids.IsValid(id) {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		event, err := a.auditStore.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, audit.ErrNotFound) {
				writeError(w, http.StatusNotFound, "audit log not found")
				return
			}
			writeError(w, http.StatusInternalServerError, msgInternalError)
			return
		}
		writeJSON(w, http.StatusOK, event)
	case http.MethodDelete:
		if err := a.auditStore.Delete(r.Context(), id); err != nil {
			if errors.Is(err, audit.ErrNotFound) {
				writeError(w, http.StatusNotFound, "audit log not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "audit log deletion failed")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodDelete)
	}
}

func intQuery(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
