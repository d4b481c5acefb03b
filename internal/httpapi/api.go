package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"identra.org/internal/audit"
	"identra.org/internal/auth"
	"identra.org/internal/config"
	"identra.org/internal/identity"
	"identra.org/internal/obs"
	"identra.org/internal/policy"
	"identra.org/internal/token"
)

const maxRequestBody = 1 << 20

// ReadyProbe is a simple readiness check (e.g. DB ping).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	accounts   identity.Store
	issuer     *token.Issuer
	login      *auth.Service
	policy     *policy.Engine
	recorder   *audit.Recorder
	auditStore audit.Store

	slowThreshold time.Duration
	production    bool
}

// Deps collects the collaborators the API composes around every request.
type Deps struct {
	Accounts   identity.Store
	Issuer     *token.Issuer
	Login      *auth.Service
	Policy     *policy.Engine
	Recorder   *audit.Recorder
	AuditStore audit.Store
	ReadyProbe ReadyProbe
	Version    string
}

// New wires routes. Config supplies the slow-request threshold and the
// production flag controlling how much detail ends up in operational logs.
func New(cfg *config.Config, deps Deps) *API {
	a := &API{
		mux:           http.NewServeMux(),
		readyProbe:    deps.ReadyProbe,
		version:       deps.Version,
		accounts:      deps.Accounts,
		issuer:        deps.Issuer,
		login:         deps.Login,
		policy:        deps.Policy,
		recorder:      deps.Recorder,
		auditStore:    deps.AuditStore,
		slowThreshold: cfg.SlowRequestThreshold,
		production:    cfg.Production,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// authentication
	a.mux.HandleFunc("/login/tokens", a.handleLogin)

	// accounts
	a.mux.HandleFunc("/v1/users", a.handleUsers)
	a.mux.HandleFunc("/v1/users/", a.handleUserScoped)

	// audit administration
	a.mux.HandleFunc("/v1/audit-logs", a.handleAuditLogs)
	a.mux.HandleFunc("/v1/audit-logs/", a.handleAuditLogScoped)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "resource not found")
	})

	return a
}

// Handler composes the middleware pipeline. Ordering matters: provenance is
// attached first, exception containment wraps timing wraps authentication, so
// a panic anywhere downstream is still caught and audited, and token
// rejection happens before business logic but inside the timing window.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.Authenticate(h)
	h = a.Timing(h)
	h = a.Recover(h)
	h = obs.Instrument(h)
	h = RateLimit(h, 50, 25)
	h = MaxBodyBytes(h, maxRequestBody)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = RequestID(h)
	return h
}
