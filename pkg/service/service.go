package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/platinummonkey/tartalacrm/pkg/apperr"
	"github.com/platinummonkey/tartalacrm/pkg/audit"
	"github.com/platinummonkey/tartalacrm/pkg/auth"
	"github.com/platinummonkey/tartalacrm/pkg/authz"
	"github.com/platinummonkey/tartalacrm/pkg/crm"
	"github.com/platinummonkey/tartalacrm/pkg/observability"
	"github.com/platinummonkey/tartalacrm/pkg/rbac"
)

// ErrInvalidCredentials is the single login failure, whichever of username
// or password was wrong.
var ErrInvalidCredentials = errors.New("unknown username or password")

// Service exposes every TartalaCRM use case to the HTTP and CLI surfaces.
type Service struct {
	engine *authz.Engine
	issuer *auth.TokenIssuer
	users  *auth.UserStore
	obs    *instruments

	Clients   *Collection[crm.Client, crm.ClientInput, crm.ClientPatch]
	Contracts *Collection[crm.Contract, crm.ContractInput, crm.ContractPatch]
	Events    *Collection[crm.Event, crm.EventInput, crm.EventPatch]
}

// Deps holds the collaborators of a Service.
type Deps struct {
	Engine    *authz.Engine
	Issuer    *auth.TokenIssuer
	Users     *auth.UserStore
	Clients   *crm.ClientStore
	Contracts *crm.ContractStore
	Events    *crm.EventStore

	Audit   audit.Logger
	Metrics *observability.Metrics
	Logger  *observability.Logger
}

// New creates a Service from deps. Audit, Metrics and Logger are optional.
func New(deps Deps) *Service {
	obs := &instruments{
		audit:   deps.Audit,
		metrics: deps.Metrics,
		logger:  deps.Logger,
	}
	if obs.audit == nil {
		obs.audit = audit.NoOp()
	}
	if obs.logger == nil {
		obs.logger = observability.NewLogger(observability.ErrorLevel, nil)
	}

	s := &Service{
		engine: deps.Engine,
		issuer: deps.Issuer,
		users:  deps.Users,
		obs:    obs,
	}
	s.Clients = newCollection(rbac.ResourceClient, crm.Store[crm.Client, crm.ClientInput, crm.ClientPatch](deps.Clients), deps.Engine, obs,
		func(c *crm.Client) int64 { return c.ID })
	s.Contracts = newCollection(rbac.ResourceContract, crm.Store[crm.Contract, crm.ContractInput, crm.ContractPatch](deps.Contracts), deps.Engine, obs,
		func(c *crm.Contract) int64 { return c.ID })
	s.Contracts.authorizeCreate = func(ctx context.Context, principal *auth.User, in crm.ContractInput) error {
		return deps.Engine.AuthorizeContractCreate(ctx, principal, in.ClientID)
	}
	s.Contracts.authorizeUpdate = func(ctx context.Context, principal *auth.User, id int64, patch crm.ContractPatch) error {
		if patch.ClientID == nil {
			return nil
		}
		current, err := deps.Contracts.Get(ctx, id)
		if err != nil {
			return apperr.Internal(err)
		}
		if current != nil && current.ClientID == *patch.ClientID {
			return nil
		}
		return deps.Engine.AuthorizeContractClient(ctx, principal, id, *patch.ClientID)
	}
	s.Events = newCollection(rbac.ResourceEvent, crm.Store[crm.Event, crm.EventInput, crm.EventPatch](deps.Events), deps.Engine, obs,
		func(e *crm.Event) int64 { return e.ID })
	return s
}

// Login checks username and password and issues a token for the user.
func (s *Service) Login(ctx context.Context, username, password string) (string, *auth.User, error) {
	user, err := s.users.Authenticate(ctx, username, password)
	if err != nil {
		s.obs.login("error")
		return "", nil, apperr.Internal(fmt.Errorf("failed to authenticate: %w", err))
	}

	if user == nil {
		s.obs.login("failure")
		event := audit.NewEvent(ctx, audit.EventTypeAuthLoginFailed, audit.EventStatusFailure)
		event.Username = username
		event.Message = ErrInvalidCredentials.Error()
		s.obs.record(ctx, event)
		return "", nil, apperr.Unauthenticated(ErrInvalidCredentials)
	}

	token, err := s.issuer.Issue(user)
	if err != nil {
		s.obs.login("error")
		return "", nil, apperr.Internal(err)
	}

	s.obs.login("success")
	s.obs.record(ctx, audit.NewEvent(ctx, audit.EventTypeAuthLogin, audit.EventStatusSuccess).
		WithUser(user.ID, user.Username))
	return token, user, nil
}

// Principal resolves token to the calling user.
func (s *Service) Principal(ctx context.Context, token string) (*auth.User, error) {
	return s.engine.Principal(ctx, token)
}

// GateFor returns the authorization checks of resource type rt, for callers
// that gate a form before any field is known.
func (s *Service) GateFor(rt rbac.ResourceType) (Gate, error) {
	switch rt {
	case rbac.ResourceClient:
		return s.Clients, nil
	case rbac.ResourceContract:
		return s.Contracts, nil
	case rbac.ResourceEvent:
		return s.Events, nil
	case rbac.ResourceUser:
		return userGate{s}, nil
	}
	return nil, apperr.Validationf("unknown resource type %q", rt)
}

// Gate is the authorization surface shared by the four resource kinds.
type Gate interface {
	CanCreate(ctx context.Context, principal *auth.User) error
	CanModify(ctx context.Context, principal *auth.User, permission rbac.PermissionType, id int64) error
}

type userGate struct{ s *Service }

func (g userGate) CanCreate(ctx context.Context, principal *auth.User) error {
	return g.s.engine.Authorize(ctx, principal, rbac.PermissionCreate, rbac.ResourceUser)
}

func (g userGate) CanModify(ctx context.Context, principal *auth.User, permission rbac.PermissionType, id int64) error {
	return g.s.engine.AuthorizeOwner(ctx, principal, permission, rbac.ResourceUser, id)
}

// ListClients returns all clients, or the principal's own.
func (s *Service) ListClients(ctx context.Context, principal *auth.User, mine bool) ([]*crm.Client, error) {
	return s.Clients.List(ctx, principal, mine)
}

// GetClient returns client id.
func (s *Service) GetClient(ctx context.Context, principal *auth.User, id int64) (*crm.Client, error) {
	return s.Clients.Get(ctx, principal, id)
}

// CreateClient creates a client owned by principal.
func (s *Service) CreateClient(ctx context.Context, principal *auth.User, in crm.ClientInput) (*crm.Client, error) {
	return s.Clients.Create(ctx, principal, in)
}

// UpdateClient patches client id.
func (s *Service) UpdateClient(ctx context.Context, principal *auth.User, id int64, patch crm.ClientPatch) (*crm.Client, error) {
	return s.Clients.Update(ctx, principal, id, patch)
}

// DeleteClient deletes client id.
func (s *Service) DeleteClient(ctx context.Context, principal *auth.User, id int64) error {
	return s.Clients.Delete(ctx, principal, id)
}

// ListContracts returns all contracts, or the principal's own.
func (s *Service) ListContracts(ctx context.Context, principal *auth.User, mine bool) ([]*crm.Contract, error) {
	return s.Contracts.List(ctx, principal, mine)
}

// GetContract returns contract id.
func (s *Service) GetContract(ctx context.Context, principal *auth.User, id int64) (*crm.Contract, error) {
	return s.Contracts.Get(ctx, principal, id)
}

// CreateContract creates a contract for a client principal owns.
func (s *Service) CreateContract(ctx context.Context, principal *auth.User, in crm.ContractInput) (*crm.Contract, error) {
	return s.Contracts.Create(ctx, principal, in)
}

// UpdateContract patches contract id.
func (s *Service) UpdateContract(ctx context.Context, principal *auth.User, id int64, patch crm.ContractPatch) (*crm.Contract, error) {
	return s.Contracts.Update(ctx, principal, id, patch)
}

// DeleteContract deletes contract id.
func (s *Service) DeleteContract(ctx context.Context, principal *auth.User, id int64) error {
	return s.Contracts.Delete(ctx, principal, id)
}

// ListEvents returns all events, or the principal's own.
func (s *Service) ListEvents(ctx context.Context, principal *auth.User, mine bool) ([]*crm.Event, error) {
	return s.Events.List(ctx, principal, mine)
}

// GetEvent returns event id.
func (s *Service) GetEvent(ctx context.Context, principal *auth.User, id int64) (*crm.Event, error) {
	return s.Events.Get(ctx, principal, id)
}

// CreateEvent creates an event owned by principal.
func (s *Service) CreateEvent(ctx context.Context, principal *auth.User, in crm.EventInput) (*crm.Event, error) {
	return s.Events.Create(ctx, principal, in)
}

// UpdateEvent patches event id.
func (s *Service) UpdateEvent(ctx context.Context, principal *auth.User, id int64, patch crm.EventPatch) (*crm.Event, error) {
	return s.Events.Update(ctx, principal, id, patch)
}

// DeleteEvent deletes event id.
func (s *Service) DeleteEvent(ctx context.Context, principal *auth.User, id int64) error {
	return s.Events.Delete(ctx, principal, id)
}

// ListUsers returns every user.
func (s *Service) ListUsers(ctx context.Context, principal *auth.User) ([]*auth.User, error) {
	if err := s.engine.Authorize(ctx, principal, rbac.PermissionRead, rbac.ResourceUser); err != nil {
		return nil, err
	}
	users, err := s.users.ListUsers(ctx)
	s.obs.storeOp(rbac.ResourceUser, "list", err)
	return users, err
}

// GetUser returns user id.
func (s *Service) GetUser(ctx context.Context, principal *auth.User, id int64) (*auth.User, error) {
	if err := s.engine.Authorize(ctx, principal, rbac.PermissionRead, rbac.ResourceUser); err != nil {
		return nil, err
	}
	user, err := s.users.GetUser(ctx, id)
	s.obs.storeOp(rbac.ResourceUser, "get", err)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.NotFound(fmt.Errorf("%w: %d", auth.ErrUserNotFound, id))
	}
	return user, nil
}

// CreateUser creates a staff member and assigns the grants of its department.
func (s *Service) CreateUser(ctx context.Context, principal *auth.User, in auth.NewUser) (*auth.User, error) {
	if err := s.engine.Authorize(ctx, principal, rbac.PermissionCreate, rbac.ResourceUser); err != nil {
		return nil, err
	}
	user, err := s.users.CreateUser(ctx, in)
	s.obs.storeOp(rbac.ResourceUser, "create", err)
	if err != nil {
		return nil, err
	}
	s.obs.mutation(ctx, principal, audit.EventTypeDataCreate, rbac.ResourceUser, user.ID)
	return user, nil
}

// UpdateUser patches user id. A department change replaces its grants.
func (s *Service) UpdateUser(ctx context.Context, principal *auth.User, id int64, patch auth.UserPatch) (*auth.User, error) {
	if err := s.engine.AuthorizeOwner(ctx, principal, rbac.PermissionUpdate, rbac.ResourceUser, id); err != nil {
		return nil, err
	}
	user, err := s.users.UpdateUser(ctx, id, patch)
	s.obs.storeOp(rbac.ResourceUser, "update", err)
	if err != nil {
		return nil, err
	}
	s.obs.mutation(ctx, principal, audit.EventTypeDataUpdate, rbac.ResourceUser, id)
	return user, nil
}

// DeleteUser deletes user id.
func (s *Service) DeleteUser(ctx context.Context, principal *auth.User, id int64) error {
	if err := s.engine.AuthorizeOwner(ctx, principal, rbac.PermissionDelete, rbac.ResourceUser, id); err != nil {
		return err
	}
	deleted, err := s.users.DeleteUser(ctx, id)
	s.obs.storeOp(rbac.ResourceUser, "delete", err)
	if err != nil {
		return err
	}
	if !deleted {
		return apperr.NotFound(fmt.Errorf("%w: %d", auth.ErrUserNotFound, id))
	}
	s.obs.mutation(ctx, principal, audit.EventTypeDataDelete, rbac.ResourceUser, id)
	return nil
}

type instruments struct {
	audit   audit.Logger
	metrics *observability.Metrics
	logger  *observability.Logger
}

func (o *instruments) storeOp(rt rbac.ResourceType, op string, err error) {
	if o.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = string(apperr.KindOf(err))
	}
	o.metrics.StoreOperationsTotal.WithLabelValues(string(rt), op, status).Inc()
}

func (o *instruments) login(result string) {
	if o.metrics != nil {
		o.metrics.LoginsTotal.WithLabelValues(result).Inc()
	}
}

func (o *instruments) mutation(ctx context.Context, principal *auth.User, eventType audit.EventType, rt rbac.ResourceType, id int64) {
	event := audit.NewEvent(ctx, eventType, audit.EventStatusSuccess).WithUser(principal.ID, principal.Username)
	event.ResourceType = string(rt)
	event.ResourceID = strconv.FormatInt(id, 10)
	o.record(ctx, event)
}

func (o *instruments) record(ctx context.Context, event *audit.AuditEvent) {
	if err := o.audit.Log(ctx, event); err != nil {
		o.logger.WithError(err).Warn("failed to record audit event")
	}
}
