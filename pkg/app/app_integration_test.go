//go:build integration

package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"

	"github.com/platinummonkey/tartalacrm/pkg/apperr"
	"github.com/platinummonkey/tartalacrm/pkg/authz"
	"github.com/platinummonkey/tartalacrm/pkg/crm"
	"github.com/platinummonkey/tartalacrm/pkg/seed"
	"github.com/platinummonkey/tartalacrm/pkg/storage"
)

// setupPostgres starts a PostgreSQL container and opens a pool on it.
func setupPostgres(t *testing.T) *storage.DB {
	t.Helper()
	ctx := context.Background()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		t.Skip("Docker not available, skipping integration tests")
	}
	provider.Close()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("tartalacrm_test"),
		postgres.WithUsername("tartala"),
		postgres.WithPassword("tartala"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cfg := storage.DefaultConfig()
	cfg.URL = url
	db, err := storage.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.Equal(t, storage.DialectPostgres, db.Dialect)
	return db
}

func TestPostgres_SeededWorkflow(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()

	a, err := New(ctx, db, Options{
		JWTSecret:  []byte("integration-secret"),
		TokenTTL:   time.Hour,
		BcryptCost: bcrypt.MinCost,
		AuditDB:    true,
	})
	require.NoError(t, err)

	fixtures, err := seed.DefaultFixtures()
	require.NoError(t, err)
	populator := seed.NewPopulator(seed.Stores{
		Grants:    a.Grants,
		Users:     a.Users,
		Clients:   a.Clients,
		Contracts: a.Contracts,
		Events:    a.Events,
	}, fixtures, nil)
	report, err := populator.Populate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Users)
	assert.Equal(t, 1, report.Events)

	token, commercial, err := a.Service.Login(ctx, "commercial", "commercial")
	require.NoError(t, err)
	principal, err := a.Service.Principal(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, commercial.ID, principal.ID)

	clients, err := a.Service.Clients.List(ctx, principal, true)
	require.NoError(t, err)
	require.Len(t, clients, 2)

	_, support, err := a.Service.Login(ctx, "support", "support")
	require.NoError(t, err)

	phone := "+33 6 00 00 00 00"
	_, err = a.Service.Clients.Update(ctx, support, clients[0].ID, crm.ClientPatch{Phone: &phone})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = a.Service.Clients.Update(ctx, principal, clients[0].ID, crm.ClientPatch{Phone: &phone})
	require.NoError(t, err)

	_, gestion, err := a.Service.Login(ctx, "gestion", "gestion")
	require.NoError(t, err)
	_, err = a.Service.Contracts.Create(ctx, gestion, crm.ContractInput{
		Amount: 100, DueAmount: 0, ClientID: clients[0].ID,
	})
	assert.ErrorIs(t, err, authz.ErrNotClientOwner)

	events, err := a.Service.Events.List(ctx, support, true)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].ContractID)
	contractID := *events[0].ContractID

	deleted, err := a.Events.Delete(ctx, events[0].ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	contract, err := a.Contracts.Get(ctx, contractID)
	require.NoError(t, err)
	require.NotNil(t, contract)
	assert.Nil(t, contract.EventID)

	// Owning a client blocks the deletion of the user.
	err = a.Service.DeleteUser(ctx, gestion, commercial.ID)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}
