// Package storagetest provides in-memory databases for package tests.
package storagetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/tartalacrm/pkg/storage"
)

// NewDB opens a private in-memory SQLite database, closed when t finishes.
func NewDB(t testing.TB) *storage.DB {
	t.Helper()

	cfg := storage.DefaultConfig()
	cfg.URL = "sqlite://:memory:"

	db, err := storage.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

// Apply runs a component's migrations against db and fails t on error.
func Apply(t testing.TB, db *storage.DB, component string, migrations []storage.Migration) {
	t.Helper()
	require.NoError(t, storage.Migrate(context.Background(), db, component, migrations))
}
