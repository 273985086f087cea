package rbac

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/platinummonkey/tartalacrm/pkg/storage"
)

// Store handles RBAC data persistence
type Store struct {
	db *sql.DB
}

// NewStore creates a new RBAC store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// SeedCatalog inserts every catalog permission row that does not exist yet.
func (s *Store) SeedCatalog(ctx context.Context) error {
	return storage.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return ensurePermissions(ctx, tx, AllGrants())
	})
}

// ListPermissions returns the persisted permission catalog.
func (s *Store) ListPermissions(ctx context.Context) ([]Permission, error) {
	query := `
		SELECT id, permission_type, resource_type
		FROM permissions
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	defer rows.Close()

	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Grant.Permission, &p.Grant.Resource); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		perms = append(perms, p)
	}

	return perms, rows.Err()
}

// AssignGrants replaces the grant set of a user with the grants of dept.
func (s *Store) AssignGrants(ctx context.Context, userID int64, dept Department) error {
	return storage.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return AssignGrantsTx(ctx, tx, userID, dept)
	})
}

// AssignGrantsTx is AssignGrants running on the caller's transaction. Missing
// catalog rows are created on the way. The previous grant set is dropped
// entirely, so repeated calls with the same department converge on the same
// rows.
func AssignGrantsTx(ctx context.Context, q storage.Querier, userID int64, dept Department) error {
	if !dept.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownDepartment, dept)
	}

	grants := ResolveGrants(dept).Sorted()
	if err := ensurePermissions(ctx, q, grants); err != nil {
		return err
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM users_permissions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear grants of user %d: %w", userID, err)
	}

	insert := `
		INSERT INTO users_permissions (user_id, permission_id)
		SELECT $1, id FROM permissions
		WHERE permission_type = $2 AND resource_type = $3
	`
	for _, g := range grants {
		if _, err := q.ExecContext(ctx, insert, userID, g.Permission, g.Resource); err != nil {
			return fmt.Errorf("failed to grant %s to user %d: %w", g, userID, err)
		}
	}

	return nil
}

// UserGrants returns the grant set currently persisted for a user.
func UserGrants(ctx context.Context, q storage.Querier, userID int64) (GrantSet, error) {
	query := `
		SELECT p.permission_type, p.resource_type
		FROM permissions p
		JOIN users_permissions up ON up.permission_id = p.id
		WHERE up.user_id = $1
	`

	rows, err := q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load grants of user %d: %w", userID, err)
	}
	defer rows.Close()

	grants := make(GrantSet)
	for rows.Next() {
		var g Grant
		if err := rows.Scan(&g.Permission, &g.Resource); err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		grants[g] = struct{}{}
	}

	return grants, rows.Err()
}

// UserGrants returns the grant set currently persisted for a user.
func (s *Store) UserGrants(ctx context.Context, userID int64) (GrantSet, error) {
	return UserGrants(ctx, s.db, userID)
}

func ensurePermissions(ctx context.Context, q storage.Querier, grants []Grant) error {
	query := `
		INSERT INTO permissions (permission_type, resource_type)
		VALUES ($1, $2)
		ON CONFLICT (permission_type, resource_type) DO NOTHING
	`
	for _, g := range grants {
		if _, err := q.ExecContext(ctx, query, g.Permission, g.Resource); err != nil {
			return fmt.Errorf("failed to ensure permission %s: %w", g, err)
		}
	}
	return nil
}
