package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"identra.org/internal/audit"
	"identra.org/internal/auth"
	"identra.org/internal/config"
	"identra.org/internal/httpapi"
	"identra.org/internal/identity"
	"identra.org/internal/obs"
	"identra.org/internal/policy"
	"identra.org/internal/token"
)

var version = "0.3.1"

func main() {
	obs.Init()

	cfg, err := config.Load()
	if err != nil {
		obs.Error("config_load_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	db, err := sql.Open("pgx", cfg.PostgresDSN)
	if err != nil {
		obs.Error("db_open_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	issuer, err := token.NewIssuer(token.Config{
		Secret:   cfg.TokenSecret,
		Issuer:   cfg.TokenIssuer,
		Audience: cfg.TokenAudience,
		TTL:      cfg.TokenTTL,
	})
	if err != nil {
		obs.Error("issuer_init_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	accounts := identity.NewPGStore(db)
	auditStore := audit.NewPGStore(db)
	recorder, err := audit.NewRecorder(auditStore, audit.WithWriteTimeout(cfg.AuditWriteTimeout))
	if err != nil {
		obs.Error("recorder_init_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	login, err := auth.NewService(accounts, issuer)
	if err != nil {
		obs.Error("auth_init_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	engine, err := policy.NewEngine(accounts)
	if err != nil {
		obs.Error("policy_init_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	api := httpapi.New(cfg, httpapi.Deps{
		Accounts:   accounts,
		Issuer:     issuer,
		Login:      login,
		Policy:     engine,
		Recorder:   recorder,
		AuditStore: auditStore,
		ReadyProbe: httpapi.ReadyProbe{DB: db},
		Version:    version,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	obs.Info("starting", map[string]any{"addr": srv.Addr, "version": version})

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			obs.Error("listen_failed", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	obs.Info("shutting_down", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = db.Close()
	obs.Info("stopped", nil)
}
