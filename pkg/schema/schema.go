// Package schema applies the migrations of every TartalaCRM component in
// dependency order.
package schema

import (
	"context"

	"github.com/platinummonkey/tartalacrm/pkg/audit"
	"github.com/platinummonkey/tartalacrm/pkg/auth"
	"github.com/platinummonkey/tartalacrm/pkg/crm"
	"github.com/platinummonkey/tartalacrm/pkg/rbac"
	"github.com/platinummonkey/tartalacrm/pkg/storage"
)

// Component pairs a schema_migrations key with its migrations.
type Component struct {
	Name       string
	Migrations []storage.Migration
}

// Components returns every component in the order they must be applied.
// Resource tables reference users, and grants reference both users and
// permissions.
func Components() []Component {
	return []Component{
		{Name: auth.Component, Migrations: auth.GetMigrations()},
		{Name: rbac.Component, Migrations: rbac.GetMigrations()},
		{Name: crm.Component, Migrations: crm.GetMigrations()},
		{Name: audit.Component, Migrations: audit.GetMigrations()},
	}
}

// Apply migrates db to the latest schema. It is safe to call on every start.
func Apply(ctx context.Context, db *storage.DB) error {
	for _, c := range Components() {
		if err := storage.Migrate(ctx, db, c.Name, c.Migrations); err != nil {
			return err
		}
	}
	return nil
}
