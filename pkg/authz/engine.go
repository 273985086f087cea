package authz

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/platinummonkey/tartalacrm/pkg/apperr"
	"github.com/platinummonkey/tartalacrm/pkg/audit"
	"github.com/platinummonkey/tartalacrm/pkg/auth"
	"github.com/platinummonkey/tartalacrm/pkg/crm"
	"github.com/platinummonkey/tartalacrm/pkg/observability"
	"github.com/platinummonkey/tartalacrm/pkg/rbac"
)

var (
	// ErrMissingToken is returned when a call carries no bearer token
	ErrMissingToken = errors.New("no token provided")
	// ErrGrantMissing denies a principal whose department lacks the grant
	ErrGrantMissing = errors.New("role grant missing")
	// ErrNotOwner denies a mutation by someone other than the owner
	ErrNotOwner = errors.New("not owner")
	// ErrNotClientOwner denies a contract for a client the principal does not own
	ErrNotClientOwner = errors.New("not client owner")
)

const (
	decisionAllow = "allow"
	decisionDeny  = "deny"
)

// TokenVerifier turns a bearer token into a live user.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*auth.User, error)
}

// OwnerLookup reports the owner of a client, contract or event.
type OwnerLookup interface {
	Owner(ctx context.Context, rt rbac.ResourceType, id int64) (owner int64, found bool, err error)
}

// UserLookup loads users, which have no owner but must exist to be mutated.
type UserLookup interface {
	GetUser(ctx context.Context, id int64) (*auth.User, error)
}

// Engine decides every protected action. Checks run in a fixed order and stop
// at the first denial. Nothing is cached: grants and owners are read live.
type Engine struct {
	tokens  TokenVerifier
	owners  OwnerLookup
	users   UserLookup
	audit   audit.Logger
	metrics *observability.Metrics
	logger  *observability.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithAudit records denials and rejected tokens to logger
func WithAudit(logger audit.Logger) Option {
	return func(e *Engine) { e.audit = logger }
}

// WithMetrics counts decisions
func WithMetrics(metrics *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = metrics }
}

// WithLogger sets the engine's logger
func WithLogger(logger *observability.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine creates an authorization engine
func NewEngine(tokens TokenVerifier, owners OwnerLookup, users UserLookup, opts ...Option) *Engine {
	e := &Engine{
		tokens: tokens,
		owners: owners,
		users:  users,
		audit:  audit.NoOp(),
		logger: observability.NewLogger(observability.ErrorLevel, nil),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Principal resolves a bearer token to the calling user. Every token failure
// is Unauthenticated and keeps the auth sentinel in its chain so callers can
// tell expired, invalid, malformed and unknown-principal tokens apart.
func (e *Engine) Principal(ctx context.Context, token string) (*auth.User, error) {
	if token == "" {
		return nil, apperr.Unauthenticated(ErrMissingToken)
	}

	user, err := e.tokens.Verify(ctx, token)
	if err == nil {
		return user, nil
	}

	switch {
	case errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrInvalidSignature),
		errors.Is(err, auth.ErrMalformedToken),
		errors.Is(err, auth.ErrUnknownPrincipal):
		event := audit.NewEvent(ctx, audit.EventTypeAuthTokenRejected, audit.EventStatusFailure)
		event.ErrorMessage = err.Error()
		e.record(ctx, event)
		return nil, apperr.Unauthenticated(err)
	default:
		return nil, apperr.Internal(fmt.Errorf("failed to verify token: %w", err))
	}
}

// Authorize checks that principal holds the (permission, resource) grant.
// Create and read gates stop here.
func (e *Engine) Authorize(ctx context.Context, principal *auth.User, permission rbac.PermissionType, resource rbac.ResourceType) error {
	if principal == nil {
		return apperr.Unauthenticated(ErrMissingToken)
	}
	if !principal.HasPermission(resource, permission) {
		return e.deny(ctx, principal, permission, resource, "", ErrGrantMissing)
	}
	e.allow(permission, resource)
	return nil
}

// AuthorizeOwner gates an update or delete of instance id. The grant check
// runs first, then the instance must exist and be owned by principal. Users
// have no owner so only their existence is checked.
func (e *Engine) AuthorizeOwner(ctx context.Context, principal *auth.User, permission rbac.PermissionType, resource rbac.ResourceType, id int64) error {
	if principal == nil {
		return apperr.Unauthenticated(ErrMissingToken)
	}
	instance := strconv.FormatInt(id, 10)
	if !principal.HasPermission(resource, permission) {
		return e.deny(ctx, principal, permission, resource, instance, ErrGrantMissing)
	}

	if resource == rbac.ResourceUser {
		user, err := e.users.GetUser(ctx, id)
		if err != nil {
			return apperr.Internal(err)
		}
		if user == nil {
			return apperr.NotFound(fmt.Errorf("%s %d: %w", resource, id, auth.ErrUserNotFound))
		}
		e.allow(permission, resource)
		return nil
	}

	owner, found, err := e.owners.Owner(ctx, resource, id)
	if err != nil {
		return apperr.Internal(err)
	}
	if !found {
		return apperr.NotFound(fmt.Errorf("%s %d: %w", resource, id, crm.ErrNotFound))
	}
	if owner != principal.ID {
		return e.deny(ctx, principal, permission, resource, instance, ErrNotOwner)
	}
	e.allow(permission, resource)
	return nil
}

// AuthorizeContractCreate gates the creation of a contract for clientID: the
// principal needs CREATE:CONTRACT and must own the client.
func (e *Engine) AuthorizeContractCreate(ctx context.Context, principal *auth.User, clientID int64) error {
	if principal == nil {
		return apperr.Unauthenticated(ErrMissingToken)
	}
	permission, resource := rbac.PermissionCreate, rbac.ResourceContract
	if !principal.HasPermission(resource, permission) {
		return e.deny(ctx, principal, permission, resource, "", ErrGrantMissing)
	}
	return e.authorizeContractClient(ctx, principal, permission, "", clientID)
}

// AuthorizeContractClient gates moving contract id to clientID. The caller
// must already pass AuthorizeOwner for the update; the principal must also
// own the new client.
func (e *Engine) AuthorizeContractClient(ctx context.Context, principal *auth.User, id, clientID int64) error {
	if principal == nil {
		return apperr.Unauthenticated(ErrMissingToken)
	}
	return e.authorizeContractClient(ctx, principal, rbac.PermissionUpdate, strconv.FormatInt(id, 10), clientID)
}

func (e *Engine) authorizeContractClient(ctx context.Context, principal *auth.User, permission rbac.PermissionType, instance string, clientID int64) error {
	resource := rbac.ResourceContract
	owner, found, err := e.owners.Owner(ctx, rbac.ResourceClient, clientID)
	if err != nil {
		return apperr.Internal(err)
	}
	if !found {
		return apperr.Validationf("client_id: client %d does not exist", clientID)
	}
	if owner != principal.ID {
		return e.deny(ctx, principal, permission, resource, instance, ErrNotClientOwner)
	}
	e.allow(permission, resource)
	return nil
}

func (e *Engine) allow(permission rbac.PermissionType, resource rbac.ResourceType) {
	if e.metrics != nil {
		e.metrics.AuthzDecisionsTotal.WithLabelValues(string(permission), string(resource), decisionAllow).Inc()
	}
}

func (e *Engine) deny(ctx context.Context, principal *auth.User, permission rbac.PermissionType, resource rbac.ResourceType, instance string, reason error) error {
	if e.metrics != nil {
		e.metrics.AuthzDecisionsTotal.WithLabelValues(string(permission), string(resource), decisionDeny).Inc()
	}

	event := audit.NewEvent(ctx, audit.EventTypeAuthzAccessDenied, audit.EventStatusDenied).
		WithUser(principal.ID, principal.Username)
	event.Permission = string(permission)
	event.ResourceType = string(resource)
	event.ResourceID = instance
	event.Message = reason.Error()
	e.record(ctx, event)

	return apperr.Forbidden(reason)
}

func (e *Engine) record(ctx context.Context, event *audit.AuditEvent) {
	if err := e.audit.Log(ctx, event); err != nil {
		e.logger.WithError(err).Warn("failed to record audit event")
	}
}
