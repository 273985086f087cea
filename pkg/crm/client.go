package crm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/platinummonkey/tartalacrm/pkg/rbac"
	"github.com/platinummonkey/tartalacrm/pkg/storage"
)

const clientColumns = `id, full_name, email, phone, company_name, owner_id, created_at, modified_at`

// ClientStore persists clients
type ClientStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewClientStore creates a new client store
func NewClientStore(db *sql.DB) *ClientStore {
	return &ClientStore{db: db, now: time.Now}
}

// Create stores a new client owned by ownerID.
func (s *ClientStore) Create(ctx context.Context, in ClientInput, ownerID int64) (*Client, error) {
	now := s.now().UTC()
	c := &Client{
		Resource:    Resource{CreatedAt: now, ModifiedAt: now, OwnerID: ownerID},
		FullName:    strings.TrimSpace(in.FullName),
		Email:       strings.TrimSpace(in.Email),
		Phone:       strings.TrimSpace(in.Phone),
		CompanyName: strings.TrimSpace(in.CompanyName),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO clients (full_name, email, phone, company_name, owner_id, created_at, modified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		c.FullName, c.Email, c.Phone, c.CompanyName, c.OwnerID, c.CreatedAt, c.ModifiedAt,
	).Scan(&c.ID)
	if err != nil {
		return nil, writeErr(rbac.ResourceClient, "create", err)
	}

	return c, nil
}

// Get returns the client with id, or nil if there is none.
func (s *ClientStore) Get(ctx context.Context, id int64) (*Client, error) {
	return getClient(ctx, s.db, id)
}

// List returns the clients matching f ordered by id.
func (s *ClientStore) List(ctx context.Context, f Filter) ([]*Client, error) {
	query, args := ownerClause(`SELECT `+clientColumns+` FROM clients`, f, "owner_id")
	rows, err := s.db.QueryContext(ctx, query+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var clients []*Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// Update applies patch to the client with id and stamps its modified date.
// It returns nil when id does not exist.
func (s *ClientStore) Update(ctx context.Context, id int64, patch ClientPatch) (*Client, error) {
	var updated *Client
	err := storage.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		c, err := getClient(ctx, tx, id)
		if err != nil || c == nil {
			return err
		}

		if patch.FullName != nil {
			c.FullName = strings.TrimSpace(*patch.FullName)
		}
		if patch.Email != nil {
			c.Email = strings.TrimSpace(*patch.Email)
		}
		if patch.Phone != nil {
			c.Phone = strings.TrimSpace(*patch.Phone)
		}
		if patch.CompanyName != nil {
			c.CompanyName = strings.TrimSpace(*patch.CompanyName)
		}
		if err := c.Validate(); err != nil {
			return err
		}

		c.ModifiedAt = s.now().UTC()
		query := `
			UPDATE clients
			SET full_name = $1, email = $2, phone = $3, company_name = $4, modified_at = $5
			WHERE id = $6
		`
		if _, err := tx.ExecContext(ctx, query,
			c.FullName, c.Email, c.Phone, c.CompanyName, c.ModifiedAt, id,
		); err != nil {
			return writeErr(rbac.ResourceClient, "update", err)
		}

		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the client with id and reports whether it existed. A client
// with contracts or events cannot be deleted.
func (s *ClientStore) Delete(ctx context.Context, id int64) (bool, error) {
	return deleteRow(ctx, s.db, rbac.ResourceClient, id)
}

func scanClient(row rowScanner) (*Client, error) {
	var c Client
	err := row.Scan(
		&c.ID,
		&c.FullName,
		&c.Email,
		&c.Phone,
		&c.CompanyName,
		&c.OwnerID,
		&c.CreatedAt,
		&c.ModifiedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func getClient(ctx context.Context, q storage.Querier, id int64) (*Client, error) {
	c, err := scanClient(q.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return c, nil
}
