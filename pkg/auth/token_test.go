package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/platinummonkey/tartalacrm/pkg/rbac"
)

type stubLookup struct {
	users map[int64]*User
	err   error
}

func (s *stubLookup) GetUserByIDAndUsername(ctx context.Context, id int64, username string) (*User, error) {
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[id]
	if !ok || u.Username != username {
		return nil, nil
	}
	return u, nil
}

func newIssuer(t *testing.T, users ...*User) (*TokenIssuer, *stubLookup) {
	t.Helper()
	lookup := &stubLookup{users: make(map[int64]*User)}
	for _, u := range users {
		lookup.users[u.ID] = u
	}
	issuer, err := NewTokenIssuer([]byte("test-secret"), time.Hour, lookup)
	require.NoError(t, err)
	return issuer, lookup
}

func TestNewTokenIssuer_MissingSecret(t *testing.T) {
	_, err := NewTokenIssuer(nil, time.Hour, &stubLookup{})
	assert.ErrorIs(t, err, ErrMissingSecret)

	issuer, err := NewTokenIssuer([]byte("s"), 0, &stubLookup{})
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, issuer.TTL())
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	alice := &User{ID: 7, Username: "alice", Department: rbac.DepartmentGestion}
	issuer, _ := newIssuer(t, alice)

	token, err := issuer.Issue(alice)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(token, "."))

	principal, err := issuer.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, principal.ID)
	assert.Equal(t, alice.Username, principal.Username)
}

func TestTokenIssuer_ClaimsCarryOnlyIdentity(t *testing.T) {
	alice := &User{ID: 7, Username: "alice", Department: rbac.DepartmentGestion}
	issuer, _ := newIssuer(t, alice)

	token, err := issuer.Issue(alice)
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)

	keys := make([]string, 0, len(claims))
	for k := range claims {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{"id", "username", "iat", "exp"}, keys)
}

func TestTokenIssuer_Expired(t *testing.T) {
	alice := &User{ID: 7, Username: "alice"}
	issuer, _ := newIssuer(t, alice)

	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := issuer.Issue(alice)
	require.NoError(t, err)
	issuer.now = time.Now

	_, err = issuer.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenIssuer_InvalidSignature(t *testing.T) {
	alice := &User{ID: 7, Username: "alice"}
	issuer, lookup := newIssuer(t, alice)

	other, err := NewTokenIssuer([]byte("another-secret"), time.Hour, lookup)
	require.NoError(t, err)
	token, err := other.Issue(alice)
	require.NoError(t, err)

	_, err = issuer.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestTokenIssuer_WrongAlgorithm(t *testing.T) {
	alice := &User{ID: 7, Username: "alice"}
	issuer, _ := newIssuer(t, alice)

	claims := Claims{UserID: 7, Username: "alice", RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = issuer.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestTokenIssuer_Malformed(t *testing.T) {
	issuer, _ := newIssuer(t)

	for _, raw := range []string{"", "garbage", "a.b.c"} {
		_, err := issuer.Verify(context.Background(), raw)
		assert.ErrorIs(t, err, ErrMalformedToken, raw)
	}

	t.Run("missing expiry", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: 1, Username: "x"}).SignedString([]byte("test-secret"))
		require.NoError(t, err)
		_, err = issuer.Verify(context.Background(), token)
		assert.ErrorIs(t, err, ErrMalformedToken)
	})
}

func TestTokenIssuer_UnknownPrincipal(t *testing.T) {
	alice := &User{ID: 7, Username: "alice"}
	issuer, lookup := newIssuer(t, alice)

	token, err := issuer.Issue(alice)
	require.NoError(t, err)

	t.Run("renamed user", func(t *testing.T) {
		lookup.users[7] = &User{ID: 7, Username: "alice2"}
		_, err := issuer.Verify(context.Background(), token)
		assert.ErrorIs(t, err, ErrUnknownPrincipal)
	})

	t.Run("deleted user", func(t *testing.T) {
		delete(lookup.users, 7)
		_, err := issuer.Verify(context.Background(), token)
		assert.ErrorIs(t, err, ErrUnknownPrincipal)
	})

	t.Run("lookup failure is not unknown principal", func(t *testing.T) {
		lookup.err = errors.New("db down")
		_, err := issuer.Verify(context.Background(), token)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnknownPrincipal)
	})
}

func TestTokenIssuer_WithUserStore(t *testing.T) {
	store, _ := setupUserStore(t)
	ctx := context.Background()

	u, err := store.CreateUser(ctx, newUser("gestion1", rbac.DepartmentGestion))
	require.NoError(t, err)

	issuer, err := NewTokenIssuer([]byte("secret"), time.Hour, store)
	require.NoError(t, err)

	token, err := issuer.Issue(u)
	require.NoError(t, err)

	principal, err := issuer.Verify(ctx, token)
	require.NoError(t, err)
	assert.True(t, principal.HasPermission(rbac.ResourceUser, rbac.PermissionDelete))

	// Department changes apply without a new token.
	support := rbac.DepartmentSupport
	_, err = store.UpdateUser(ctx, u.ID, UserPatch{Department: &support})
	require.NoError(t, err)

	principal, err = issuer.Verify(ctx, token)
	require.NoError(t, err)
	assert.False(t, principal.HasPermission(rbac.ResourceUser, rbac.PermissionDelete))
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("secret")
	require.NoError(t, err)
	assert.True(t, h.Verify("secret", hash))
	assert.False(t, h.Verify("Secret", hash))
	assert.False(t, h.Verify("secret", "not-a-hash"))

	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).cost)
}
