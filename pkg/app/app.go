// Package app wires the TartalaCRM stores, engine and service together. Both
// binaries build their dependencies through it.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/platinummonkey/tartalacrm/pkg/audit"
	"github.com/platinummonkey/tartalacrm/pkg/auth"
	"github.com/platinummonkey/tartalacrm/pkg/authz"
	"github.com/platinummonkey/tartalacrm/pkg/config"
	"github.com/platinummonkey/tartalacrm/pkg/crm"
	"github.com/platinummonkey/tartalacrm/pkg/observability"
	"github.com/platinummonkey/tartalacrm/pkg/rbac"
	"github.com/platinummonkey/tartalacrm/pkg/schema"
	"github.com/platinummonkey/tartalacrm/pkg/service"
	"github.com/platinummonkey/tartalacrm/pkg/storage"
)

// Options configures New
type Options struct {
	JWTSecret  []byte
	TokenTTL   time.Duration
	BcryptCost int

	// AuditDB also writes audit events to the audit_logs table.
	AuditDB bool

	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// App holds every long-lived TartalaCRM component
type App struct {
	DB        *storage.DB
	Users     *auth.UserStore
	Grants    *rbac.Store
	Clients   *crm.ClientStore
	Contracts *crm.ContractStore
	Events    *crm.EventStore
	Issuer    *auth.TokenIssuer
	Engine    *authz.Engine
	Service   *service.Service
	Audit     audit.Logger
	Logger    *observability.Logger
	Metrics   *observability.Metrics
}

// New migrates db, seeds the permission catalog and builds the components.
func New(ctx context.Context, db *storage.DB, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	if err := schema.Apply(ctx, db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	grants := rbac.NewStore(db.DB)
	if err := grants.SeedCatalog(ctx); err != nil {
		return nil, fmt.Errorf("failed to seed permission catalog: %w", err)
	}

	users := auth.NewUserStore(db.DB, auth.NewBcryptHasher(opts.BcryptCost))
	issuer, err := auth.NewTokenIssuer(opts.JWTSecret, opts.TokenTTL, users)
	if err != nil {
		return nil, err
	}

	loggers := []audit.Logger{audit.NewLogLogger(logger)}
	if opts.AuditDB {
		dbLogger, err := audit.NewDBLogger(db.DB)
		if err != nil {
			return nil, err
		}
		loggers = append(loggers, dbLogger)
	}
	auditLogger := audit.NewMultiLogger(loggers...)

	engineOpts := []authz.Option{authz.WithAudit(auditLogger), authz.WithLogger(logger)}
	if opts.Metrics != nil {
		engineOpts = append(engineOpts, authz.WithMetrics(opts.Metrics))
	}
	engine := authz.NewEngine(issuer, crm.NewOwnerIndex(db.DB), users, engineOpts...)

	a := &App{
		DB:        db,
		Users:     users,
		Grants:    grants,
		Clients:   crm.NewClientStore(db.DB),
		Contracts: crm.NewContractStore(db.DB),
		Events:    crm.NewEventStore(db.DB),
		Issuer:    issuer,
		Engine:    engine,
		Audit:     auditLogger,
		Logger:    logger,
		Metrics:   opts.Metrics,
	}
	a.Service = service.New(service.Deps{
		Engine:    engine,
		Issuer:    issuer,
		Users:     users,
		Clients:   a.Clients,
		Contracts: a.Contracts,
		Events:    a.Events,
		Audit:     auditLogger,
		Metrics:   opts.Metrics,
		Logger:    logger,
	})
	return a, nil
}

// Open connects to the database named by cfg and builds the App on it.
func Open(ctx context.Context, cfg *config.Config, logger *observability.Logger, metrics *observability.Metrics) (*App, error) {
	db, err := storage.Open(cfg.Storage)
	if err != nil {
		return nil, err
	}

	a, err := New(ctx, db, Options{
		JWTSecret:  []byte(cfg.Auth.JWTSecret),
		TokenTTL:   cfg.Auth.TokenTTL,
		BcryptCost: cfg.Auth.BcryptCost,
		AuditDB:    cfg.Observability.AuditDB,
		Logger:     logger,
		Metrics:    metrics,
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

// Close flushes the audit trail and closes the database.
func (a *App) Close() error {
	if err := a.Audit.Close(); err != nil {
		a.Logger.WithError(err).Warn("failed to close audit logger")
	}
	return a.DB.Close()
}
