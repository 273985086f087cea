package rbac

import "github.com/platinummonkey/tartalacrm/pkg/storage"

// Component is the schema_migrations key of the RBAC tables.
const Component = "rbac"

// GetMigrations returns all RBAC migrations. They reference the users table,
// so the auth migrations must run first.
func GetMigrations() []storage.Migration {
	return []storage.Migration{
		{
			Version:     1,
			Description: "Create permissions table",
			SQL: `
				CREATE TABLE IF NOT EXISTS permissions (
					id ` + storage.SerialPK + `,
					permission_type VARCHAR(16) NOT NULL,
					resource_type VARCHAR(16) NOT NULL,
					UNIQUE (permission_type, resource_type)
				);
			`,
		},
		{
			Version:     2,
			Description: "Create users_permissions table",
			SQL: `
				CREATE TABLE IF NOT EXISTS users_permissions (
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					permission_id BIGINT NOT NULL REFERENCES permissions(id) ON DELETE CASCADE,
					PRIMARY KEY (user_id, permission_id)
				);

				CREATE INDEX IF NOT EXISTS idx_users_permissions_permission_id ON users_permissions(permission_id);
			`,
		},
	}
}
