package auth

import "github.com/platinummonkey/tartalacrm/pkg/storage"

// Component is the schema_migrations key of the users table.
const Component = "auth"

// GetMigrations returns all user migrations
func GetMigrations() []storage.Migration {
	return []storage.Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id ` + storage.SerialPK + `,
					name VARCHAR(255) NOT NULL,
					email VARCHAR(255) NOT NULL,
					username VARCHAR(150) NOT NULL UNIQUE,
					password_hash VARCHAR(255) NOT NULL,
					department VARCHAR(16) NOT NULL,
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_users_department ON users(department);
			`,
		},
	}
}
