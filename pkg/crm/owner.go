package crm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/platinummonkey/tartalacrm/pkg/rbac"
)

// OwnerIndex answers ownership questions for clients, contracts and events
// without loading the full rows.
type OwnerIndex struct {
	db *sql.DB
}

// NewOwnerIndex creates a new owner index
func NewOwnerIndex(db *sql.DB) *OwnerIndex {
	return &OwnerIndex{db: db}
}

// Owner returns the owner of the resource of type rt with id. found is false
// when no such resource exists.
func (o *OwnerIndex) Owner(ctx context.Context, rt rbac.ResourceType, id int64) (owner int64, found bool, err error) {
	table, ok := tables[rt]
	if !ok {
		return 0, false, fmt.Errorf("resource type %q has no owner", rt)
	}

	err = o.db.QueryRowContext(ctx, `SELECT owner_id FROM `+table+` WHERE id = $1`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get owner of %s %d: %w", rt, id, err)
	}
	return owner, true, nil
}
