package audit

import "github.com/platinummonkey/tartalacrm/pkg/storage"

// Component is the schema_migrations key of the audit_logs table.
const Component = "audit"

// GetMigrations returns all audit migrations
func GetMigrations() []storage.Migration {
	return []storage.Migration{
		{
			Version:     1,
			Description: "Create audit_logs table",
			SQL: `
				CREATE TABLE IF NOT EXISTS audit_logs (
					id ` + storage.SerialPK + `,
					timestamp TIMESTAMP NOT NULL,
					event_type VARCHAR(100) NOT NULL,
					status VARCHAR(20) NOT NULL,
					user_id BIGINT,
					username VARCHAR(150) NOT NULL DEFAULT '',
					permission VARCHAR(16) NOT NULL DEFAULT '',
					resource_type VARCHAR(16) NOT NULL DEFAULT '',
					resource_id VARCHAR(64) NOT NULL DEFAULT '',
					ip_address VARCHAR(64) NOT NULL DEFAULT '',
					request_id VARCHAR(100) NOT NULL DEFAULT '',
					message TEXT NOT NULL DEFAULT '',
					error_message TEXT NOT NULL DEFAULT ''
				);

				CREATE INDEX IF NOT EXISTS idx_audit_logs_timestamp ON audit_logs(timestamp);
				CREATE INDEX IF NOT EXISTS idx_audit_logs_event_type ON audit_logs(event_type);
				CREATE INDEX IF NOT EXISTS idx_audit_logs_user_id ON audit_logs(user_id);
			`,
		},
	}
}
