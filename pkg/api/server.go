package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/platinummonkey/tartalacrm/pkg/apperr"
	"github.com/platinummonkey/tartalacrm/pkg/httputil"
	"github.com/platinummonkey/tartalacrm/pkg/middleware"
	"github.com/platinummonkey/tartalacrm/pkg/observability"
	"github.com/platinummonkey/tartalacrm/pkg/rbac"
	"github.com/platinummonkey/tartalacrm/pkg/service"
)

// DefaultMaxBodyBytes bounds request bodies when Options.MaxBodyBytes is zero.
const DefaultMaxBodyBytes = 1 << 20

// Options configures the optional parts of a Server
type Options struct {
	Logger  *observability.Logger
	Metrics *observability.Metrics

	// Gatherer serves /metrics when set.
	Gatherer prometheus.Gatherer

	// Health serves /health, /health/live and /health/ready when set.
	Health *observability.HealthChecker

	// LoginLimit throttles POST /get_token when set.
	LoginLimit *middleware.LoginRateLimit

	MaxBodyBytes int64
}

// Server is the TartalaCRM HTTP API
type Server struct {
	svc    *service.Service
	router *mux.Router
	opts   Options
}

// NewServer creates a new API server on top of svc
func NewServer(svc *service.Service, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}

	s := &Server{
		svc:    svc,
		router: mux.NewRouter(),
		opts:   opts,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.Use(observability.RecoveryMiddleware(s.opts.Logger))
	s.router.Use(httputil.RequestIDMiddleware(s.opts.Logger))
	s.router.Use(httputil.LoggingMiddleware)
	if s.opts.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.opts.Metrics))
	}
	s.router.Use(httputil.MaxBytesMiddleware(s.opts.MaxBodyBytes))

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorMessage(w, http.StatusNotFound, string(apperr.KindNotFound), "route not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorMessage(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	if s.opts.Health != nil {
		observability.RegisterHealthRoutes(s.router, s.opts.Health)
	}
	if s.opts.Gatherer != nil {
		observability.RegisterMetricsEndpoint(s.router, s.opts.Gatherer)
	}

	// Token route
	var getToken http.Handler = http.HandlerFunc(s.getToken)
	if s.opts.LoginLimit != nil {
		getToken = s.opts.LoginLimit.Handler(getToken)
	}
	s.router.Handle("/get_token", getToken).Methods(http.MethodPost)

	// Resource routes
	registerCollection(s, s.svc.Clients)
	registerCollection(s, s.svc.Contracts)
	registerCollection(s, s.svc.Events)
	s.registerUsers()
}

// protected requires a valid bearer token in front of h
func (s *Server) protected(h http.HandlerFunc) http.Handler {
	return middleware.BearerAuth(s.svc)(h)
}

// handle registers the list, create and per-id routes of one resource type
func (s *Server) handle(rt rbac.ResourceType, list, create, get, update, remove http.HandlerFunc) {
	base := "/" + string(rt)
	item := base + "/{id:[0-9]+}"

	s.router.Handle(base, s.protected(list)).Methods(http.MethodGet)
	s.router.Handle(base+"/", s.protected(list)).Methods(http.MethodGet)
	s.router.Handle(base, s.protected(create)).Methods(http.MethodPost)
	s.router.Handle(base+"/", s.protected(create)).Methods(http.MethodPost)
	s.router.Handle(item, s.protected(get)).Methods(http.MethodGet)
	s.router.Handle(item, s.protected(update)).Methods(http.MethodPut)
	s.router.Handle(item, s.protected(remove)).Methods(http.MethodDelete)
}

// fail writes err and logs it when it is not the caller's fault
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if apperr.KindOf(err) == apperr.KindInternal {
		observability.FromContext(r.Context()).WithError(err).Error("request failed")
	}
	httputil.WriteAppError(w, err)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router returns the router of the server
func (s *Server) Router() *mux.Router {
	return s.router
}
