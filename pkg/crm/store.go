package crm

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/platinummonkey/tartalacrm/pkg/apperr"
	"github.com/platinummonkey/tartalacrm/pkg/rbac"
	"github.com/platinummonkey/tartalacrm/pkg/storage"
)

// Store is the persistence contract shared by the three resource stores.
// Get and Update return nil when id does not exist; Delete reports whether a
// row existed.
type Store[T, I, P any] interface {
	Create(ctx context.Context, in I, ownerID int64) (*T, error)
	Get(ctx context.Context, id int64) (*T, error)
	List(ctx context.Context, f Filter) ([]*T, error)
	Update(ctx context.Context, id int64, patch P) (*T, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

var (
	_ Store[Client, ClientInput, ClientPatch]       = (*ClientStore)(nil)
	_ Store[Contract, ContractInput, ContractPatch] = (*ContractStore)(nil)
	_ Store[Event, EventInput, EventPatch]          = (*EventStore)(nil)
)

var tables = map[rbac.ResourceType]string{
	rbac.ResourceClient:   "clients",
	rbac.ResourceContract: "contracts",
	rbac.ResourceEvent:    "events",
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// ownerClause appends an owner filter to a WHERE-less query.
func ownerClause(query string, f Filter, column string) (string, []interface{}) {
	if f.OwnerID == 0 {
		return query, nil
	}
	return query + ` WHERE ` + column + ` = $1`, []interface{}{f.OwnerID}
}

func exists(ctx context.Context, q storage.Querier, table string, id int64) (bool, error) {
	var count int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE id = $1`, id).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check %s %d: %w", table, id, err)
	}
	return count > 0, nil
}

// checkRef fails with a validation error when the referenced row is missing.
func checkRef(ctx context.Context, q storage.Querier, field string, rt rbac.ResourceType, id int64) error {
	ok, err := exists(ctx, q, tables[rt], id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Validationf("%s: %s %d does not exist", field, rt, id)
	}
	return nil
}

func deleteRow(ctx context.Context, db *sql.DB, rt rbac.ResourceType, id int64) (bool, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM `+tables[rt]+` WHERE id = $1`, id)
	if err != nil {
		if storage.IsForeignKeyViolation(err) {
			return false, apperr.Conflict(fmt.Errorf("%s %d is still referenced", rt, id))
		}
		return false, fmt.Errorf("failed to delete %s: %w", rt, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func writeErr(rt rbac.ResourceType, op string, err error) error {
	if storage.IsForeignKeyViolation(err) {
		return apperr.Validation(fmt.Errorf("%s references a missing row: %w", rt, err))
	}
	return fmt.Errorf("failed to %s %s: %w", op, rt, err)
}
