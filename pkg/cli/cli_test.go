package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/platinummonkey/tartalacrm/pkg/app"
	"github.com/platinummonkey/tartalacrm/pkg/auth"
	"github.com/platinummonkey/tartalacrm/pkg/crm"
	"github.com/platinummonkey/tartalacrm/pkg/observability"
	"github.com/platinummonkey/tartalacrm/pkg/rbac"
	"github.com/platinummonkey/tartalacrm/pkg/storage/storagetest"
)

var fixedNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	app         *app.App
	sessionFile string
	password    string
	users       map[string]*auth.User
}

type result struct {
	code   int
	stdout string
	stderr string
}

func setupTestCLI(t *testing.T) *testEnv {
	t.Helper()
	db := storagetest.NewDB(t)
	a, err := app.New(context.Background(), db, app.Options{
		JWTSecret:  []byte("cli-secret"),
		TokenTTL:   time.Hour,
		BcryptCost: bcrypt.MinCost,
		Logger:     observability.NewLogger(observability.ErrorLevel, io.Discard),
	})
	require.NoError(t, err)

	env := &testEnv{
		app:         a,
		sessionFile: filepath.Join(t.TempDir(), ".tartalacrm_config"),
		users:       make(map[string]*auth.User),
	}
	for username, dept := range map[string]rbac.Department{
		"carla": rbac.DepartmentCommercial,
		"chris": rbac.DepartmentCommercial,
		"sam":   rbac.DepartmentSupport,
		"gaby":  rbac.DepartmentGestion,
	} {
		user, err := a.Users.CreateUser(context.Background(), auth.NewUser{
			Name:       strings.ToUpper(username[:1]) + username[1:],
			Email:      username + "@tartala.fr",
			Username:   username,
			Password:   username + "-pw",
			Department: dept,
		})
		require.NoError(t, err)
		env.users[username] = user
	}
	return env
}

// run executes one command with input typed on stdin.
func (e *testEnv) run(t *testing.T, input string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	c := New(e.app, Options{
		In:          strings.NewReader(input),
		Out:         &stdout,
		Err:         &stderr,
		SessionFile: e.sessionFile,
		ReadPassword: func(string) (string, error) {
			return e.password, nil
		},
		Now:    func() time.Time { return fixedNow },
		Logger: observability.NewLogger(observability.ErrorLevel, io.Discard),
	})
	code := c.Run(context.Background(), args)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

// loginAs stores a fresh token for username in the session file.
func (e *testEnv) loginAs(t *testing.T, username string) {
	t.Helper()
	token, err := e.app.Issuer.Issue(e.users[username])
	require.NoError(t, err)
	require.NoError(t, NewSession(e.sessionFile).Save(token))
}

func (e *testEnv) createClient(t *testing.T, owner, name string) *crm.Client {
	t.Helper()
	client, err := e.app.Clients.Create(context.Background(), crm.ClientInput{
		FullName:    name,
		Email:       strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		Phone:       "0102030405",
		CompanyName: name + " SARL",
	}, e.users[owner].ID)
	require.NoError(t, err)
	return client
}

func TestLogin(t *testing.T) {
	env := setupTestCLI(t)

	t.Run("success", func(t *testing.T) {
		env.password = "carla-pw"
		res := env.run(t, "carla\n", "login")
		require.Equal(t, 0, res.code, res.stderr)
		assert.Contains(t, res.stdout, msgLoggedIn)

		data, err := os.ReadFile(env.sessionFile)
		require.NoError(t, err)
		assert.Contains(t, string(data), "token:")
	})

	t.Run("empty username is asked again", func(t *testing.T) {
		env.password = "sam-pw"
		res := env.run(t, "\n  \nsam\n", "login")
		require.Equal(t, 0, res.code, res.stderr)
		assert.Equal(t, 3, strings.Count(res.stdout, "nom d'utilisateur"))
	})

	t.Run("bad password", func(t *testing.T) {
		env.password = "wrong"
		res := env.run(t, "carla\n", "login")
		assert.Equal(t, 1, res.code)
		assert.Contains(t, res.stderr, msgBadCredentials)
	})

	t.Run("unexpected argument", func(t *testing.T) {
		res := env.run(t, "", "login", "carla")
		assert.Equal(t, 2, res.code)
	})
}

func TestWhoami(t *testing.T) {
	env := setupTestCLI(t)
	env.loginAs(t, "sam")

	res := env.run(t, "", "whoami")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, msgWelcome)
	assert.Contains(t, res.stdout, "Connecté en tant que sam")
	assert.Contains(t, res.stdout, "Département support")
	assert.Contains(t, res.stdout, "UPDATE:EVENT")
	assert.NotContains(t, res.stdout, "CREATE:CLIENT")
}

func TestSessionErrors(t *testing.T) {
	env := setupTestCLI(t)

	t.Run("no session", func(t *testing.T) {
		res := env.run(t, "", "list_items", "clients")
		assert.Equal(t, 1, res.code)
		assert.Contains(t, res.stderr, msgNoSession)
	})

	t.Run("malformed token", func(t *testing.T) {
		require.NoError(t, NewSession(env.sessionFile).Save("not-a-token"))
		res := env.run(t, "", "list_items", "clients")
		assert.Equal(t, 1, res.code)
		assert.Contains(t, res.stderr, msgTokenMalformed)
	})

	t.Run("foreign signature", func(t *testing.T) {
		other, err := auth.NewTokenIssuer([]byte("another-secret"), time.Hour, env.app.Users)
		require.NoError(t, err)
		token, err := other.Issue(env.users["carla"])
		require.NoError(t, err)
		require.NoError(t, NewSession(env.sessionFile).Save(token))

		res := env.run(t, "", "list_items", "clients")
		assert.Equal(t, 1, res.code)
		assert.Contains(t, res.stderr, msgTokenInvalid)
	})

	t.Run("deleted user", func(t *testing.T) {
		env.loginAs(t, "chris")
		_, err := env.app.Users.DeleteUser(context.Background(), env.users["chris"].ID)
		require.NoError(t, err)

		res := env.run(t, "", "whoami")
		assert.Equal(t, 1, res.code)
		assert.Contains(t, res.stderr, msgUnknownUser)
	})
}

func TestLogout(t *testing.T) {
	env := setupTestCLI(t)
	env.loginAs(t, "carla")

	res := env.run(t, "", "logout")
	require.Equal(t, 0, res.code)
	assert.Contains(t, res.stdout, msgLoggedOut)
	_, err := os.Stat(env.sessionFile)
	assert.True(t, os.IsNotExist(err))

	res = env.run(t, "", "logout")
	require.Equal(t, 0, res.code)
	assert.Contains(t, res.stdout, msgNotLoggedIn)
}

func TestListItems(t *testing.T) {
	env := setupTestCLI(t)
	env.createClient(t, "carla", "Alice Martin")
	env.createClient(t, "chris", "Bruno Petit")

	t.Run("all clients", func(t *testing.T) {
		env.loginAs(t, "sam")
		res := env.run(t, "", "list_items", "clients")
		require.Equal(t, 0, res.code, res.stderr)
		assert.Contains(t, res.stdout, "Clients")
		assert.Contains(t, res.stdout, "Nom de l'entreprise")
		assert.Contains(t, res.stdout, "Alice Martin")
		assert.Contains(t, res.stdout, "Bruno Petit")
		assert.Contains(t, res.stdout, "Tableau généré le 2024-03-15")
	})

	t.Run("mine", func(t *testing.T) {
		env.loginAs(t, "carla")
		res := env.run(t, "", "list_items", "client", "--mine")
		require.Equal(t, 0, res.code, res.stderr)
		assert.Contains(t, res.stdout, "Alice Martin")
		assert.NotContains(t, res.stdout, "Bruno Petit")
	})

	t.Run("users need READ:USER", func(t *testing.T) {
		env.loginAs(t, "carla")
		res := env.run(t, "", "list_items", "users")
		assert.Equal(t, 1, res.code)
		assert.Contains(t, res.stderr, msgForbidden)

		env.loginAs(t, "gaby")
		res = env.run(t, "", "list_items", "users")
		require.Equal(t, 0, res.code, res.stderr)
		assert.Contains(t, res.stdout, "Département commercial")
		assert.Contains(t, res.stdout, "gaby")
	})

	t.Run("unknown type", func(t *testing.T) {
		res := env.run(t, "", "list_items", "invoices")
		assert.Equal(t, 2, res.code)
		assert.Contains(t, res.stderr, "Type inconnu")
	})
}

func TestCreateItem(t *testing.T) {
	env := setupTestCLI(t)

	t.Run("denied before any question", func(t *testing.T) {
		env.loginAs(t, "sam")
		res := env.run(t, "", "create_item", "client")
		assert.Equal(t, 1, res.code)
		assert.Contains(t, res.stderr, msgForbidden)
		assert.NotContains(t, res.stdout, "Nom complet")
	})

	t.Run("client", func(t *testing.T) {
		env.loginAs(t, "carla")
		input := "Alice Martin\nnot-an-email\nalice@martin.fr\n0601020304\nMartin & Fils\n"
		res := env.run(t, input, "create_item", "client")
		require.Equal(t, 0, res.code, res.stderr)
		assert.Contains(t, res.stdout, "Le format de cet email n'est pas valide.")
		assert.Contains(t, res.stdout, "Client créé avec succès")

		clients, err := env.app.Clients.List(context.Background(), crm.Filter{OwnerID: env.users["carla"].ID})
		require.NoError(t, err)
		require.Len(t, clients, 1)
		assert.Equal(t, "alice@martin.fr", clients[0].Email)
		assert.Equal(t, "Martin & Fils", clients[0].CompanyName)
	})

	t.Run("event", func(t *testing.T) {
		client := env.createClient(t, "carla", "Camille Roux")
		env.loginAs(t, "carla")
		input := strings.Join([]string{
			"2024-06-01 14:00",
			"2024-06-01 23:30",
			"Château de Candé",
			"quatre-vingts",
			"80",
			"",
			strconv.FormatInt(client.ID, 10),
		}, "\n") + "\n"
		res := env.run(t, input, "create_item", "event")
		require.Equal(t, 0, res.code, res.stderr)
		assert.Contains(t, res.stdout, "Merci de n'entrer que des chiffres.")

		events, err := env.app.Events.List(context.Background(), crm.Filter{OwnerID: env.users["carla"].ID})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, int64(80), events[0].Attendees)
		assert.Equal(t, time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC), events[0].Start.UTC())
	})

	t.Run("contract requires owning the client", func(t *testing.T) {
		mine := env.createClient(t, "gaby", "Denis Blanc")
		other := env.createClient(t, "carla", "Emma Noir")
		env.loginAs(t, "gaby")

		res := env.run(t, "1000\n500\nsigned\n"+strconv.FormatInt(other.ID, 10)+"\n0\n", "create_item", "contract")
		assert.Equal(t, 1, res.code)
		assert.Contains(t, res.stderr, msgNotClientOwner)

		res = env.run(t, "1000\n500\nsigned\n"+strconv.FormatInt(mine.ID, 10)+"\n0\n", "create_item", "contract")
		require.Equal(t, 0, res.code, res.stderr)
		assert.Contains(t, res.stdout, "Contrat créé avec succès")

		contracts, err := env.app.Contracts.List(context.Background(), crm.Filter{OwnerID: env.users["gaby"].ID})
		require.NoError(t, err)
		require.Len(t, contracts, 1)
		assert.Equal(t, crm.ContractSigned, contracts[0].Status)
		assert.Nil(t, contracts[0].EventID)
	})

	t.Run("user with proposed password", func(t *testing.T) {
		env.loginAs(t, "gaby")
		input := "Nina Vert\nnina@tartala.fr\nnina\n\nsupport\n"
		res := env.run(t, input, "create_item", "user")
		require.Equal(t, 0, res.code, res.stderr)

		users, err := env.app.Users.ListUsers(context.Background())
		require.NoError(t, err)
		var nina *auth.User
		for _, u := range users {
			if u.Username == "nina" {
				nina = u
			}
		}
		require.NotNil(t, nina)
		assert.Equal(t, rbac.DepartmentSupport, nina.Department)
		assert.True(t, nina.HasPermission(rbac.ResourceEvent, rbac.PermissionUpdate))
	})
}

func TestUpdateItem(t *testing.T) {
	env := setupTestCLI(t)
	client := env.createClient(t, "carla", "Alice Martin")
	id := strconv.FormatInt(client.ID, 10)

	t.Run("not owner", func(t *testing.T) {
		env.loginAs(t, "chris")
		res := env.run(t, "", "update_item", "client", id)
		assert.Equal(t, 1, res.code)
		assert.Contains(t, res.stderr, msgNotOwner)
		assert.NotContains(t, res.stdout, "Nom complet")
	})

	t.Run("not found", func(t *testing.T) {
		env.loginAs(t, "carla")
		res := env.run(t, "", "update_item", "client", "999")
		assert.Equal(t, 1, res.code)
		assert.Contains(t, res.stderr, msgNotFound)
	})

	t.Run("owner keeps defaults", func(t *testing.T) {
		env.loginAs(t, "carla")
		res := env.run(t, "\nalice@nouveau.fr\n\n\n", "update_item", "client", id)
		require.Equal(t, 0, res.code, res.stderr)
		assert.Contains(t, res.stdout, "[Alice Martin]")

		updated, err := env.app.Clients.Get(context.Background(), client.ID)
		require.NoError(t, err)
		assert.Equal(t, "Alice Martin", updated.FullName)
		assert.Equal(t, "alice@nouveau.fr", updated.Email)
		assert.Equal(t, client.CompanyName, updated.CompanyName)
	})

	t.Run("bad id", func(t *testing.T) {
		res := env.run(t, "", "update_item", "client", "abc")
		assert.Equal(t, 2, res.code)
	})

	t.Run("user department change", func(t *testing.T) {
		env.loginAs(t, "gaby")
		samID := strconv.FormatInt(env.users["sam"].ID, 10)
		res := env.run(t, "\n\n\n\ncommercial\n", "update_item", "user", samID)
		require.Equal(t, 0, res.code, res.stderr)

		sam, err := env.app.Users.GetUser(context.Background(), env.users["sam"].ID)
		require.NoError(t, err)
		assert.Equal(t, rbac.DepartmentCommercial, sam.Department)
		assert.True(t, sam.HasPermission(rbac.ResourceClient, rbac.PermissionCreate))
	})
}

func TestDeleteItem(t *testing.T) {
	env := setupTestCLI(t)
	client := env.createClient(t, "carla", "Alice Martin")

	t.Run("no department deletes clients", func(t *testing.T) {
		env.loginAs(t, "carla")
		res := env.run(t, "o\n", "delete_item", "client", strconv.FormatInt(client.ID, 10))
		assert.Equal(t, 1, res.code)
		assert.Contains(t, res.stderr, msgForbidden)
	})

	samID := strconv.FormatInt(env.users["sam"].ID, 10)

	t.Run("declined", func(t *testing.T) {
		env.loginAs(t, "gaby")
		res := env.run(t, "n\n", "delete_item", "user", samID)
		require.Equal(t, 0, res.code, res.stderr)
		assert.Contains(t, res.stdout, msgCancelled)

		sam, err := env.app.Users.GetUser(context.Background(), env.users["sam"].ID)
		require.NoError(t, err)
		assert.NotNil(t, sam)
	})

	t.Run("confirmed", func(t *testing.T) {
		env.loginAs(t, "gaby")
		res := env.run(t, "oui\n", "delete_item", "user", samID)
		require.Equal(t, 0, res.code, res.stderr)
		assert.Contains(t, res.stdout, "supprimé")

		sam, err := env.app.Users.GetUser(context.Background(), env.users["sam"].ID)
		require.NoError(t, err)
		assert.Nil(t, sam)
	})
}

func TestPopulate(t *testing.T) {
	env := setupTestCLI(t)

	res := env.run(t, "", "populate")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Utilisateurs créés : 3")
	assert.Contains(t, res.stdout, "Clients créés : 2")
	assert.Contains(t, res.stdout, "Contrats créés : 1")
	assert.Contains(t, res.stdout, "Événements créés : 1")

	env.password = "commercial"
	res = env.run(t, "commercial\n", "login")
	require.Equal(t, 0, res.code, res.stderr)

	res = env.run(t, "", "list_items", "contracts", "--mine")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Signé")

	res = env.run(t, "", "populate")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Utilisateurs créés : 0")
}

func TestRunUsage(t *testing.T) {
	env := setupTestCLI(t)

	res := env.run(t, "", "help")
	assert.Equal(t, 0, res.code)
	for _, name := range []string{"login", "logout", "whoami", "list_items", "create_item", "update_item", "delete_item", "populate"} {
		assert.Contains(t, res.stdout, name)
	}

	res = env.run(t, "", "dance")
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stderr, "Commande inconnue")
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, msgNoSession, Describe(ErrNoSession))
	assert.Equal(t, msgTokenExpired, Describe(auth.ErrTokenExpired))
	assert.Equal(t, msgInternal, Describe(io.ErrUnexpectedEOF))
}
