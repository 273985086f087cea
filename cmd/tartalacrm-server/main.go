package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	"github.com/platinummonkey/tartalacrm/pkg/api"
	"github.com/platinummonkey/tartalacrm/pkg/app"
	"github.com/platinummonkey/tartalacrm/pkg/config"
	"github.com/platinummonkey/tartalacrm/pkg/middleware"
	"github.com/platinummonkey/tartalacrm/pkg/observability"
	"github.com/platinummonkey/tartalacrm/pkg/rbac"
	"github.com/platinummonkey/tartalacrm/pkg/storage"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	addr := pflag.String("addr", "", "listen address, overrides TARTALA_HOST and TARTALA_PORT")
	pflag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).
			WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout).
		WithField("service", "tartalacrm").
		WithField("version", version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = observability.WithLogger(ctx, logger)

	if err := run(ctx, cfg, logger, *addr); err != nil {
		logger.WithError(err).Error("server stopped with an error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *observability.Logger, addr string) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	a, err := app.Open(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	shutdownFuncs := []observability.ShutdownFunc{
		func(context.Context) error { return a.Close() },
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisClient, err = storage.OpenRedis(ctx, cfg.Redis)
		if err != nil {
			a.Close()
			return err
		}
		shutdownFuncs = append(shutdownFuncs, func(context.Context) error { return redisClient.Close() })
		logger.Info("Using Redis for login rate limiting")
	}

	health := observability.NewHealthChecker(a.DB.DB, redisClient, version)
	health.AddCheck("permissions", true, func(ctx context.Context) error {
		permissions, err := a.Grants.ListPermissions(ctx)
		if err != nil {
			return err
		}
		if want := len(rbac.AllGrants()); len(permissions) < want {
			return fmt.Errorf("permission catalog has %d of %d entries", len(permissions), want)
		}
		return nil
	})

	opts := api.Options{
		Logger:   logger,
		Metrics:  metrics,
		Gatherer: registry,
		Health:   health,
	}
	if cfg.Server.LoginRateLimit > 0 {
		limitCfg := middleware.LoginRateLimitConfig(cfg.Server.LoginRateLimit)
		var limiter middleware.Limiter
		if redisClient != nil {
			limiter = middleware.NewDistributedRateLimiter(redisClient, limitCfg, "")
		} else {
			memory := middleware.NewRateLimiter(limitCfg)
			memory.StartCleanup(ctx)
			limiter = memory
		}
		opts.LoginLimit = middleware.NewLoginRateLimit(limiter, a.Audit, metrics)
	}
	if !cfg.Observability.MetricsEnabled {
		opts.Gatherer = nil
	}

	go recordDBStats(ctx, a, metrics)

	if addr == "" {
		addr = cfg.Addr()
	}
	server := &http.Server{
		Addr:         addr,
		Handler:      api.NewServer(a.Service, opts),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return observability.Serve(ctx, logger, server, cfg.Server.ShutdownTimeout, shutdownFuncs...)
}

func recordDBStats(ctx context.Context, a *app.App, metrics *observability.Metrics) {
	defer observability.RecoverPanic(a.Logger, "db stats")
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			metrics.RecordDBStats(a.DB.DB)
		case <-ctx.Done():
			return
		}
	}
}
