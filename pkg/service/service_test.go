package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/platinummonkey/tartalacrm/pkg/apperr"
	"github.com/platinummonkey/tartalacrm/pkg/audit"
	"github.com/platinummonkey/tartalacrm/pkg/auth"
	"github.com/platinummonkey/tartalacrm/pkg/authz"
	"github.com/platinummonkey/tartalacrm/pkg/crm"
	"github.com/platinummonkey/tartalacrm/pkg/observability"
	"github.com/platinummonkey/tartalacrm/pkg/rbac"
	"github.com/platinummonkey/tartalacrm/pkg/schema"
	"github.com/platinummonkey/tartalacrm/pkg/storage/storagetest"
)

type recorder struct {
	events []*audit.AuditEvent
}

func (r *recorder) Log(ctx context.Context, event *audit.AuditEvent) error {
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) Close() error { return nil }

func (r *recorder) count(eventType audit.EventType) int {
	n := 0
	for _, e := range r.events {
		if e.EventType == eventType {
			n++
		}
	}
	return n
}

type fixture struct {
	svc     *Service
	users   *auth.UserStore
	audit   *recorder
	metrics *observability.Metrics
	admin   *auth.User
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := storagetest.NewDB(t)
	require.NoError(t, schema.Apply(context.Background(), db))

	users := auth.NewUserStore(db.DB, auth.NewBcryptHasher(bcrypt.MinCost))
	issuer, err := auth.NewTokenIssuer([]byte("service-secret"), time.Hour, users)
	require.NoError(t, err)

	rec := &recorder{}
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	engine := authz.NewEngine(issuer, crm.NewOwnerIndex(db.DB), users, authz.WithAudit(rec))

	svc := New(Deps{
		Engine:    engine,
		Issuer:    issuer,
		Users:     users,
		Clients:   crm.NewClientStore(db.DB),
		Contracts: crm.NewContractStore(db.DB),
		Events:    crm.NewEventStore(db.DB),
		Audit:     rec,
		Metrics:   metrics,
	})

	admin, err := users.CreateUser(context.Background(), auth.NewUser{
		Name: "Admin", Email: "admin@tartala.fr", Username: "admin", Password: "admin", Department: rbac.DepartmentGestion,
	})
	require.NoError(t, err)

	return &fixture{svc: svc, users: users, audit: rec, metrics: metrics, admin: admin}
}

// login creates a user through the service and returns the principal its
// token resolves to.
func (f *fixture) login(t *testing.T, username string, dept rbac.Department) *auth.User {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.CreateUser(ctx, f.admin, auth.NewUser{
		Name: username, Email: username + "@tartala.fr", Username: username, Password: username + "-pw", Department: dept,
	})
	require.NoError(t, err)

	token, _, err := f.svc.Login(ctx, username, username+"-pw")
	require.NoError(t, err)
	principal, err := f.svc.Principal(ctx, token)
	require.NoError(t, err)
	return principal
}

func TestLogin(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	token, user, err := f.svc.Login(ctx, "admin", "admin")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, f.admin.ID, user.ID)

	principal, err := f.svc.Principal(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "admin", principal.Username)

	_, _, errWrongPassword := f.svc.Login(ctx, "admin", "nope")
	_, _, errUnknownUser := f.svc.Login(ctx, "ghost", "admin")
	assert.ErrorIs(t, errWrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, errWrongPassword, apperr.ErrUnauthenticated)
	assert.Equal(t, errWrongPassword.Error(), errUnknownUser.Error())

	assert.Equal(t, 1, f.audit.count(audit.EventTypeAuthLogin))
	assert.Equal(t, 2, f.audit.count(audit.EventTypeAuthLoginFailed))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.LoginsTotal.WithLabelValues("success")))
	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.LoginsTotal.WithLabelValues("failure")))
}

func TestSupportCannotCreateClient(t *testing.T) {
	f := setup(t)
	support := f.login(t, "support1", rbac.DepartmentSupport)

	gate, err := f.svc.GateFor(rbac.ResourceClient)
	require.NoError(t, err)
	err = gate.CanCreate(context.Background(), support)
	assert.ErrorIs(t, err, authz.ErrGrantMissing)

	_, err = f.svc.CreateClient(context.Background(), support, crm.ClientInput{FullName: "Acme", Email: "acme@acme.io"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.ErrorIs(t, err, authz.ErrGrantMissing)
}

func TestOwnershipRule(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	sales1 := f.login(t, "sales1", rbac.DepartmentCommercial)
	sales2 := f.login(t, "sales2", rbac.DepartmentCommercial)

	acme, err := f.svc.CreateClient(ctx, sales1, crm.ClientInput{FullName: "Acme", Email: "acme@acme.io"})
	require.NoError(t, err)
	assert.Equal(t, sales1.ID, acme.OwnerID)

	renamed := "Acme Corp"
	updated, err := f.svc.UpdateClient(ctx, sales1, acme.ID, crm.ClientPatch{FullName: &renamed})
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", updated.FullName)

	hijack := "Stolen"
	_, err = f.svc.UpdateClient(ctx, sales2, acme.ID, crm.ClientPatch{FullName: &hijack})
	assert.ErrorIs(t, err, authz.ErrNotOwner)

	current, err := f.svc.GetClient(ctx, sales2, acme.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", current.FullName)

	_, err = f.svc.UpdateClient(ctx, sales1, 9999, crm.ClientPatch{FullName: &renamed})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.Equal(t, 3, f.audit.count(audit.EventTypeDataCreate), "two users and one client")
	assert.Equal(t, 1, f.audit.count(audit.EventTypeDataUpdate))
}

func TestListMine(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	sales1 := f.login(t, "sales1", rbac.DepartmentCommercial)
	sales2 := f.login(t, "sales2", rbac.DepartmentCommercial)
	support := f.login(t, "support1", rbac.DepartmentSupport)

	_, err := f.svc.CreateClient(ctx, sales1, crm.ClientInput{FullName: "A", Email: "a@a.io"})
	require.NoError(t, err)
	_, err = f.svc.CreateClient(ctx, sales2, crm.ClientInput{FullName: "B", Email: "b@b.io"})
	require.NoError(t, err)

	all, err := f.svc.ListClients(ctx, support, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := f.svc.ListClients(ctx, sales1, true)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "A", mine[0].FullName)

	_, err = f.svc.ListUsers(ctx, support)
	assert.ErrorIs(t, err, authz.ErrGrantMissing)
}

func TestContractCreateRequiresClientOwner(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	manager := f.login(t, "manager1", rbac.DepartmentCommercial)
	other := f.login(t, "manager2", rbac.DepartmentGestion)

	acme, err := f.svc.CreateClient(ctx, manager, crm.ClientInput{FullName: "Acme", Email: "acme@acme.io"})
	require.NoError(t, err)

	gestion := rbac.DepartmentGestion
	_, err = f.svc.UpdateUser(ctx, f.admin, manager.ID, auth.UserPatch{Department: &gestion})
	require.NoError(t, err)
	manager, err = f.svc.GetUser(ctx, f.admin, manager.ID)
	require.NoError(t, err)

	_, err = f.svc.CreateContract(ctx, other, crm.ContractInput{Amount: 100, DueAmount: 100, ClientID: acme.ID})
	assert.ErrorIs(t, err, authz.ErrNotClientOwner)

	contract, err := f.svc.CreateContract(ctx, manager, crm.ContractInput{Amount: 100, DueAmount: 40, ClientID: acme.ID})
	require.NoError(t, err)
	assert.Equal(t, crm.ContractNotSigned, contract.Status)
	assert.Equal(t, manager.ID, contract.OwnerID)

	_, err = f.svc.CreateContract(ctx, manager, crm.ContractInput{Amount: 100, DueAmount: 400, ClientID: acme.ID})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	signed := crm.ContractSigned
	updated, err := f.svc.UpdateContract(ctx, manager, contract.ID, crm.ContractPatch{Status: &signed})
	require.NoError(t, err)
	assert.Equal(t, crm.ContractSigned, updated.Status)

	err = f.svc.DeleteContract(ctx, manager, contract.ID)
	assert.ErrorIs(t, err, authz.ErrGrantMissing, "no department deletes contracts")
}

func TestContractUpdateRequiresNewClientOwner(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	manager := f.login(t, "manager1", rbac.DepartmentCommercial)
	seller := f.login(t, "seller1", rbac.DepartmentCommercial)

	own, err := f.svc.CreateClient(ctx, manager, crm.ClientInput{FullName: "Acme", Email: "acme@acme.io"})
	require.NoError(t, err)
	foreign, err := f.svc.CreateClient(ctx, seller, crm.ClientInput{FullName: "Globex", Email: "globex@globex.io"})
	require.NoError(t, err)

	gestion := rbac.DepartmentGestion
	_, err = f.svc.UpdateUser(ctx, f.admin, manager.ID, auth.UserPatch{Department: &gestion})
	require.NoError(t, err)
	manager, err = f.svc.GetUser(ctx, f.admin, manager.ID)
	require.NoError(t, err)

	contract, err := f.svc.CreateContract(ctx, manager, crm.ContractInput{Amount: 100, DueAmount: 40, ClientID: own.ID})
	require.NoError(t, err)

	_, err = f.svc.UpdateContract(ctx, manager, contract.ID, crm.ContractPatch{ClientID: &foreign.ID})
	assert.ErrorIs(t, err, authz.ErrNotClientOwner)

	got, err := f.svc.GetContract(ctx, manager, contract.ID)
	require.NoError(t, err)
	assert.Equal(t, own.ID, got.ClientID)

	missing := int64(999)
	_, err = f.svc.UpdateContract(ctx, manager, contract.ID, crm.ContractPatch{ClientID: &missing})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	due := int64(10)
	updated, err := f.svc.UpdateContract(ctx, manager, contract.ID, crm.ContractPatch{ClientID: &own.ID, DueAmount: &due})
	require.NoError(t, err)
	assert.Equal(t, own.ID, updated.ClientID)
	assert.Equal(t, int64(10), updated.DueAmount)
}

func TestEvents(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	sales := f.login(t, "sales1", rbac.DepartmentCommercial)
	support := f.login(t, "support1", rbac.DepartmentSupport)

	acme, err := f.svc.CreateClient(ctx, sales, crm.ClientInput{FullName: "Acme", Email: "acme@acme.io"})
	require.NoError(t, err)

	start := time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)
	event, err := f.svc.CreateEvent(ctx, sales, crm.EventInput{
		Start: start, End: start.Add(4 * time.Hour), Location: "Candé-sur-Beuvron", Attendees: 80, ClientID: acme.ID,
	})
	require.NoError(t, err)

	notes := "Prévoir un traiteur"
	_, err = f.svc.UpdateEvent(ctx, support, event.ID, crm.EventPatch{Notes: &notes})
	assert.ErrorIs(t, err, authz.ErrNotOwner, "support holds UPDATE:EVENT but does not own it")

	updated, err := f.svc.UpdateEvent(ctx, sales, event.ID, crm.EventPatch{Notes: &notes})
	assert.ErrorIs(t, err, authz.ErrGrantMissing, "commercial holds no UPDATE:EVENT")
	assert.Nil(t, updated)

	events, err := f.svc.ListEvents(ctx, support, false)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	got, err := f.svc.GetEvent(ctx, support, event.ID)
	require.NoError(t, err)
	assert.Equal(t, "Candé-sur-Beuvron", got.Location)

	_, err = f.svc.GetEvent(ctx, support, 9999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUsers(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	sales := f.login(t, "sales1", rbac.DepartmentCommercial)

	users, err := f.svc.ListUsers(ctx, f.admin)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	support := rbac.DepartmentSupport
	moved, err := f.svc.UpdateUser(ctx, f.admin, sales.ID, auth.UserPatch{Department: &support})
	require.NoError(t, err)
	assert.True(t, moved.Grants.Equal(rbac.ResolveGrants(rbac.DepartmentSupport)))

	_, err = f.svc.CreateUser(ctx, sales, auth.NewUser{Name: "x", Email: "x@x.io", Username: "x", Password: "x", Department: rbac.DepartmentSupport})
	assert.ErrorIs(t, err, authz.ErrGrantMissing)

	_, err = f.svc.CreateUser(ctx, f.admin, auth.NewUser{Name: "x", Email: "x@x.io", Username: "sales1", Password: "x", Department: rbac.DepartmentSupport})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	require.NoError(t, f.svc.DeleteUser(ctx, f.admin, sales.ID))
	err = f.svc.DeleteUser(ctx, f.admin, sales.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.GetUser(ctx, f.admin, sales.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteClient(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	sales := f.login(t, "sales1", rbac.DepartmentCommercial)

	acme, err := f.svc.CreateClient(ctx, sales, crm.ClientInput{FullName: "Acme", Email: "acme@acme.io"})
	require.NoError(t, err)

	// No department holds DELETE:CLIENT, so even the owner is refused.
	err = f.svc.DeleteClient(ctx, sales, acme.ID)
	assert.ErrorIs(t, err, authz.ErrGrantMissing)

	gate, err := f.svc.GateFor(rbac.ResourceUser)
	require.NoError(t, err)
	assert.NoError(t, gate.CanModify(ctx, f.admin, rbac.PermissionDelete, sales.ID))

	_, err = f.svc.GateFor("invoice")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
