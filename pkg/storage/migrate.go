package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Placeholders expanded per dialect before a migration runs.
const (
	// SerialPK declares an auto-incrementing integer primary key.
	SerialPK = "{{serial_pk}}"
)

const createMigrationsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		component VARCHAR(64) NOT NULL,
		version INTEGER NOT NULL,
		description TEXT NOT NULL,
		applied_at TIMESTAMP NOT NULL,
		PRIMARY KEY (component, version)
	)
`

// Render expands dialect placeholders in a migration statement.
func (d Dialect) Render(stmt string) string {
	serial := "BIGSERIAL PRIMARY KEY"
	if d == DialectSQLite {
		serial = "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	return strings.ReplaceAll(stmt, SerialPK, serial)
}

// Migrate applies every migration of component not yet recorded in
// schema_migrations, in version order, each inside its own transaction.
func Migrate(ctx context.Context, db *DB, component string, migrations []Migration) error {
	if _, err := db.ExecContext(ctx, createMigrationsTable); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	applied, err := appliedVersions(ctx, db.DB, component)
	if err != nil {
		return err
	}

	ordered := make([]Migration, len(migrations))
	copy(ordered, migrations)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Version < ordered[j].Version })

	for _, m := range ordered {
		if applied[m.Version] {
			continue
		}

		err := WithTx(ctx, db.DB, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, db.Dialect.Render(m.SQL)); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations (component, version, description, applied_at) VALUES ($1, $2, $3, $4)`,
				component, m.Version, m.Description, time.Now().UTC(),
			)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to apply %s migration %d (%s): %w", component, m.Version, m.Description, err)
		}
	}

	return nil
}

func appliedVersions(ctx context.Context, db *sql.DB, component string) (map[int]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations WHERE component = $1`, component)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[v] = true
	}
	return applied, rows.Err()
}
