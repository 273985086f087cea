// Package observability provides structured logging, Prometheus metrics and
// health probes for TartalaCRM.
//
// # Structured Logging
//
// Logger wraps logrus with a JSON formatter:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stderr)
//	logger.WithField("username", username).Warn("login failed")
//
// FromContext enriches the request logger with the request and user ids
// stored by the HTTP middleware.
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	router.Use(observability.HTTPMetricsMiddleware(metrics))
//	observability.RegisterMetricsEndpoint(router, registry)
//
// Authorization decisions, logins and store operations have their own
// counters.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient, version)
//	observability.RegisterHealthRoutes(router, checker)
//
// # Related Packages
//
//   - pkg/config: log level and metrics settings
//   - pkg/httputil: request logging middleware
package observability
