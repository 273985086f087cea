package crm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/platinummonkey/tartalacrm/pkg/apperr"
	"github.com/platinummonkey/tartalacrm/pkg/rbac"
	"github.com/platinummonkey/tartalacrm/pkg/storage"
)

const contractColumns = `id, amount, due_amount, status, client_id, event_id, owner_id, created_at, modified_at`

// ContractStore persists contracts
type ContractStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewContractStore creates a new contract store
func NewContractStore(db *sql.DB) *ContractStore {
	return &ContractStore{db: db, now: time.Now}
}

// Create stores a new contract owned by ownerID. The client and, when set,
// the event must exist.
func (s *ContractStore) Create(ctx context.Context, in ContractInput, ownerID int64) (*Contract, error) {
	now := s.now().UTC()
	c := &Contract{
		Resource:  Resource{CreatedAt: now, ModifiedAt: now, OwnerID: ownerID},
		Amount:    in.Amount,
		DueAmount: in.DueAmount,
		Status:    in.Status,
		ClientID:  in.ClientID,
		EventID:   in.EventID,
	}
	if c.Status == "" {
		c.Status = ContractNotSigned
	}
	if c.EventID != nil && *c.EventID == 0 {
		c.EventID = nil
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	err := storage.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := checkContractRefs(ctx, tx, c); err != nil {
			return err
		}

		query := `
			INSERT INTO contracts (amount, due_amount, status, client_id, event_id, owner_id, created_at, modified_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id
		`
		err := tx.QueryRowContext(ctx, query,
			c.Amount, c.DueAmount, c.Status, c.ClientID, nullableID(c.EventID),
			c.OwnerID, c.CreatedAt, c.ModifiedAt,
		).Scan(&c.ID)
		if err != nil {
			return writeErr(rbac.ResourceContract, "create", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return c, nil
}

// Get returns the contract with id, or nil if there is none.
func (s *ContractStore) Get(ctx context.Context, id int64) (*Contract, error) {
	return getContract(ctx, s.db, `id = $1`, id)
}

// GetByEvent returns the contract that references eventID, or nil.
func (s *ContractStore) GetByEvent(ctx context.Context, eventID int64) (*Contract, error) {
	return getContract(ctx, s.db, `event_id = $1 ORDER BY id LIMIT 1`, eventID)
}

// List returns the contracts matching f ordered by id.
func (s *ContractStore) List(ctx context.Context, f Filter) ([]*Contract, error) {
	query, args := ownerClause(`SELECT `+contractColumns+` FROM contracts`, f, "owner_id")
	rows, err := s.db.QueryContext(ctx, query+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	defer rows.Close()

	var contracts []*Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contract: %w", err)
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

// Update applies patch to the contract with id and stamps its modified date.
// It returns nil when id does not exist.
func (s *ContractStore) Update(ctx context.Context, id int64, patch ContractPatch) (*Contract, error) {
	var updated *Contract
	err := storage.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		c, err := getContract(ctx, tx, `id = $1`, id)
		if err != nil || c == nil {
			return err
		}

		if patch.Amount != nil {
			c.Amount = *patch.Amount
		}
		if patch.DueAmount != nil {
			c.DueAmount = *patch.DueAmount
		}
		if patch.Status != nil {
			c.Status = *patch.Status
		}
		if patch.ClientID != nil {
			c.ClientID = *patch.ClientID
		}
		if patch.EventID != nil {
			c.EventID = patch.EventID
			if *patch.EventID == 0 {
				c.EventID = nil
			}
		}
		if err := c.Validate(); err != nil {
			return err
		}
		if err := checkContractRefs(ctx, tx, c); err != nil {
			return err
		}

		c.ModifiedAt = s.now().UTC()
		query := `
			UPDATE contracts
			SET amount = $1, due_amount = $2, status = $3, client_id = $4, event_id = $5, modified_at = $6
			WHERE id = $7
		`
		if _, err := tx.ExecContext(ctx, query,
			c.Amount, c.DueAmount, c.Status, c.ClientID, nullableID(c.EventID), c.ModifiedAt, id,
		); err != nil {
			return writeErr(rbac.ResourceContract, "update", err)
		}

		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the contract with id and reports whether it existed.
func (s *ContractStore) Delete(ctx context.Context, id int64) (bool, error) {
	return deleteRow(ctx, s.db, rbac.ResourceContract, id)
}

func checkContractRefs(ctx context.Context, q storage.Querier, c *Contract) error {
	if err := checkRef(ctx, q, "client_id", rbac.ResourceClient, c.ClientID); err != nil {
		return err
	}
	if c.EventID == nil {
		return nil
	}
	e, err := getEvent(ctx, q, *c.EventID)
	if err != nil {
		return err
	}
	if e == nil {
		return apperr.Validationf("event_id: %s %d does not exist", rbac.ResourceEvent, *c.EventID)
	}
	if e.ClientID != c.ClientID {
		return apperr.Validationf("event_id: event %d belongs to client %d, not %d", e.ID, e.ClientID, c.ClientID)
	}
	return nil
}

func scanContract(row rowScanner) (*Contract, error) {
	var (
		c       Contract
		eventID sql.NullInt64
	)
	err := row.Scan(
		&c.ID,
		&c.Amount,
		&c.DueAmount,
		&c.Status,
		&c.ClientID,
		&eventID,
		&c.OwnerID,
		&c.CreatedAt,
		&c.ModifiedAt,
	)
	if err != nil {
		return nil, err
	}
	if eventID.Valid {
		c.EventID = &eventID.Int64
	}
	return &c, nil
}

func getContract(ctx context.Context, q storage.Querier, where string, args ...interface{}) (*Contract, error) {
	c, err := scanContract(q.QueryRowContext(ctx, `SELECT `+contractColumns+` FROM contracts WHERE `+where, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}
	return c, nil
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}
