package crm

import "github.com/platinummonkey/tartalacrm/pkg/storage"

// Component is the schema_migrations key of the resource tables.
const Component = "crm"

// GetMigrations returns all resource migrations. They reference the users
// table and run after the auth migrations.
func GetMigrations() []storage.Migration {
	return []storage.Migration{
		{
			Version:     1,
			Description: "Create clients table",
			SQL: `
				CREATE TABLE IF NOT EXISTS clients (
					id ` + storage.SerialPK + `,
					full_name VARCHAR(255) NOT NULL,
					email VARCHAR(255) NOT NULL,
					phone VARCHAR(64) NOT NULL DEFAULT '',
					company_name VARCHAR(255) NOT NULL DEFAULT '',
					owner_id BIGINT NOT NULL REFERENCES users(id),
					created_at TIMESTAMP NOT NULL,
					modified_at TIMESTAMP NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_clients_owner ON clients(owner_id);
			`,
		},
		{
			Version:     2,
			Description: "Create events table",
			SQL: `
				CREATE TABLE IF NOT EXISTS events (
					id ` + storage.SerialPK + `,
					start_date TIMESTAMP NOT NULL,
					end_date TIMESTAMP NOT NULL,
					location TEXT NOT NULL DEFAULT '',
					attendees BIGINT NOT NULL DEFAULT 0 CHECK (attendees >= 0),
					notes TEXT NOT NULL DEFAULT '',
					client_id BIGINT NOT NULL REFERENCES clients(id),
					owner_id BIGINT NOT NULL REFERENCES users(id),
					created_at TIMESTAMP NOT NULL,
					modified_at TIMESTAMP NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_events_owner ON events(owner_id);
				CREATE INDEX IF NOT EXISTS idx_events_client ON events(client_id);
			`,
		},
		{
			Version:     3,
			Description: "Create contracts table",
			SQL: `
				CREATE TABLE IF NOT EXISTS contracts (
					id ` + storage.SerialPK + `,
					amount BIGINT NOT NULL CHECK (amount >= 0),
					due_amount BIGINT NOT NULL CHECK (due_amount >= 0 AND due_amount <= amount),
					status VARCHAR(16) NOT NULL CHECK (status IN ('SIGNED', 'NOT_SIGNED')),
					client_id BIGINT NOT NULL REFERENCES clients(id),
					event_id BIGINT REFERENCES events(id) ON DELETE SET NULL,
					owner_id BIGINT NOT NULL REFERENCES users(id),
					created_at TIMESTAMP NOT NULL,
					modified_at TIMESTAMP NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_contracts_owner ON contracts(owner_id);
				CREATE INDEX IF NOT EXISTS idx_contracts_client ON contracts(client_id);
				CREATE INDEX IF NOT EXISTS idx_contracts_event ON contracts(event_id);
			`,
		},
	}
}
