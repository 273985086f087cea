package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/platinummonkey/tartalacrm/pkg/apperr"
	"github.com/platinummonkey/tartalacrm/pkg/rbac"
	"github.com/platinummonkey/tartalacrm/pkg/storage"
	"github.com/platinummonkey/tartalacrm/pkg/storage/storagetest"
)

func setupUserStore(t *testing.T) (*UserStore, *storage.DB) {
	t.Helper()
	db := storagetest.NewDB(t)
	storagetest.Apply(t, db, Component, GetMigrations())
	storagetest.Apply(t, db, rbac.Component, rbac.GetMigrations())
	return NewUserStore(db.DB, NewBcryptHasher(bcrypt.MinCost)), db
}

func newUser(username string, dept rbac.Department) NewUser {
	return NewUser{
		Name:       "User " + username,
		Email:      username + "@tartala.fr",
		Username:   username,
		Password:   username + "-pw",
		Department: dept,
	}
}

func strPtr(s string) *string { return &s }

func TestUserStore_CreateUser(t *testing.T) {
	store, db := setupUserStore(t)
	ctx := context.Background()

	u, err := store.CreateUser(ctx, newUser("support1", rbac.DepartmentSupport))
	require.NoError(t, err)

	assert.NotZero(t, u.ID)
	assert.Equal(t, "support1", u.Username)
	assert.Equal(t, rbac.DepartmentSupport, u.Department)
	assert.True(t, u.Grants.Equal(rbac.ResolveGrants(rbac.DepartmentSupport)))
	assert.False(t, u.CreatedAt.IsZero())

	t.Run("password is hashed", func(t *testing.T) {
		var stored string
		require.NoError(t, db.QueryRow(`SELECT password_hash FROM users WHERE id = $1`, u.ID).Scan(&stored))
		assert.NotEqual(t, "support1-pw", stored)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored), []byte("support1-pw")))
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, err := store.CreateUser(ctx, newUser("support1", rbac.DepartmentGestion))
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		assert.ErrorIs(t, err, ErrDuplicateUsername)
	})

	t.Run("unknown department", func(t *testing.T) {
		_, err := store.CreateUser(ctx, newUser("hr1", rbac.Department("HR")))
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("invalid email", func(t *testing.T) {
		in := newUser("bademail", rbac.DepartmentSupport)
		in.Email = "not-an-email"
		_, err := store.CreateUser(ctx, in)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})
}

func TestUserStore_HasPermission(t *testing.T) {
	store, _ := setupUserStore(t)
	ctx := context.Background()

	for _, dept := range rbac.Departments() {
		u, err := store.CreateUser(ctx, newUser("user-"+string(dept), dept))
		require.NoError(t, err)

		// Reload so the check runs against persisted grants.
		u, err = store.GetUser(ctx, u.ID)
		require.NoError(t, err)

		expected := rbac.ResolveGrants(dept)
		for _, p := range rbac.PermissionTypes() {
			for _, r := range rbac.ResourceTypes() {
				assert.Equal(t, expected.Has(p, r), u.HasPermission(r, p), "%s %s:%s", dept, p, r)
			}
		}
	}

	var nobody *User
	assert.False(t, nobody.HasPermission(rbac.ResourceClient, rbac.PermissionRead))
}

func TestUserStore_Authenticate(t *testing.T) {
	store, _ := setupUserStore(t)
	ctx := context.Background()

	created, err := store.CreateUser(ctx, newUser("sales1", rbac.DepartmentCommercial))
	require.NoError(t, err)

	u, err := store.Authenticate(ctx, "sales1", "sales1-pw")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, created.ID, u.ID)

	wrongPassword, err := store.Authenticate(ctx, "sales1", "nope")
	assert.NoError(t, err)
	assert.Nil(t, wrongPassword)

	unknownUser, err := store.Authenticate(ctx, "ghost", "sales1-pw")
	assert.NoError(t, err)
	assert.Nil(t, unknownUser)
}

func TestUserStore_Lookups(t *testing.T) {
	store, _ := setupUserStore(t)
	ctx := context.Background()

	a, err := store.CreateUser(ctx, newUser("alice", rbac.DepartmentGestion))
	require.NoError(t, err)
	b, err := store.CreateUser(ctx, newUser("bob", rbac.DepartmentSupport))
	require.NoError(t, err)

	got, err := store.GetUserByIDAndUsername(ctx, a.ID, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.Username)

	got, err = store.GetUserByIDAndUsername(ctx, a.ID, "bob")
	require.NoError(t, err)
	assert.Nil(t, got)

	missing, err := store.GetUser(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, a.ID, users[0].ID)
	assert.Equal(t, b.ID, users[1].ID)
	assert.True(t, users[1].Grants.Equal(rbac.ResolveGrants(rbac.DepartmentSupport)))
}

func TestUserStore_UpdateUser(t *testing.T) {
	store, _ := setupUserStore(t)
	ctx := context.Background()
	store.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }

	u, err := store.CreateUser(ctx, newUser("switcher", rbac.DepartmentSupport))
	require.NoError(t, err)
	_, err = store.CreateUser(ctx, newUser("taken", rbac.DepartmentSupport))
	require.NoError(t, err)

	t.Run("department change swaps grants", func(t *testing.T) {
		store.now = func() time.Time { return time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC) }
		dept := rbac.DepartmentCommercial

		updated, err := store.UpdateUser(ctx, u.ID, UserPatch{Department: &dept})
		require.NoError(t, err)

		lost := u.Grants.Minus(updated.Grants)
		gained := updated.Grants.Minus(u.Grants)
		assert.True(t, lost.Equal(rbac.ResolveGrants(rbac.DepartmentSupport).Minus(rbac.ResolveGrants(rbac.DepartmentCommercial))))
		assert.True(t, gained.Equal(rbac.ResolveGrants(rbac.DepartmentCommercial).Minus(rbac.ResolveGrants(rbac.DepartmentSupport))))
		assert.True(t, updated.UpdatedAt.After(u.UpdatedAt))
	})

	t.Run("immutable fields are ignored", func(t *testing.T) {
		patch := UserPatch{
			Name: strPtr("Renamed"),
			UserImmutable: UserImmutable{
				ID:     []byte(`77`),
				Grants: []byte(`["DELETE:USER"]`),
			},
		}
		updated, err := store.UpdateUser(ctx, u.ID, patch)
		require.NoError(t, err)
		assert.Equal(t, u.ID, updated.ID)
		assert.Equal(t, "Renamed", updated.Name)
		assert.False(t, updated.HasPermission(rbac.ResourceUser, rbac.PermissionDelete))
	})

	t.Run("password change", func(t *testing.T) {
		_, err := store.UpdateUser(ctx, u.ID, UserPatch{Password: strPtr("new-secret")})
		require.NoError(t, err)

		got, err := store.Authenticate(ctx, "switcher", "new-secret")
		require.NoError(t, err)
		assert.NotNil(t, got)

		_, err = store.UpdateUser(ctx, u.ID, UserPatch{Password: strPtr("")})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("username collision", func(t *testing.T) {
		_, err := store.UpdateUser(ctx, u.ID, UserPatch{Username: strPtr("taken")})
		assert.ErrorIs(t, err, ErrDuplicateUsername)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := store.UpdateUser(ctx, 999, UserPatch{Name: strPtr("x")})
		require.Error(t, err)
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})
}

func TestUserStore_DeleteUser(t *testing.T) {
	store, db := setupUserStore(t)
	ctx := context.Background()

	u, err := store.CreateUser(ctx, newUser("leaver", rbac.DepartmentGestion))
	require.NoError(t, err)

	deleted, err := store.DeleteUser(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	var grants int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM users_permissions WHERE user_id = $1`, u.ID).Scan(&grants))
	assert.Zero(t, grants)

	deleted, err = store.DeleteUser(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}
