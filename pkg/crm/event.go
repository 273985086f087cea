package crm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/platinummonkey/tartalacrm/pkg/apperr"
	"github.com/platinummonkey/tartalacrm/pkg/rbac"
	"github.com/platinummonkey/tartalacrm/pkg/storage"
)

// The contract reference of an event is derived from contracts.event_id.
const eventSelect = `
	SELECT e.id, e.start_date, e.end_date, e.location, e.attendees, e.notes, e.client_id,
	       (SELECT c.id FROM contracts c WHERE c.event_id = e.id ORDER BY c.id LIMIT 1),
	       e.owner_id, e.created_at, e.modified_at
	FROM events e`

// EventStore persists events
type EventStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewEventStore creates a new event store
func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db, now: time.Now}
}

// Create stores a new event owned by ownerID. The client must exist.
func (s *EventStore) Create(ctx context.Context, in EventInput, ownerID int64) (*Event, error) {
	now := s.now().UTC()
	e := &Event{
		Resource:  Resource{CreatedAt: now, ModifiedAt: now, OwnerID: ownerID},
		Start:     in.Start.UTC(),
		End:       in.End.UTC(),
		Location:  strings.TrimSpace(in.Location),
		Attendees: in.Attendees,
		Notes:     in.Notes,
		ClientID:  in.ClientID,
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}

	err := storage.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := checkRef(ctx, tx, "client_id", rbac.ResourceClient, e.ClientID); err != nil {
			return err
		}

		query := `
			INSERT INTO events (start_date, end_date, location, attendees, notes, client_id, owner_id, created_at, modified_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id
		`
		err := tx.QueryRowContext(ctx, query,
			e.Start, e.End, e.Location, e.Attendees, e.Notes, e.ClientID,
			e.OwnerID, e.CreatedAt, e.ModifiedAt,
		).Scan(&e.ID)
		if err != nil {
			return writeErr(rbac.ResourceEvent, "create", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return e, nil
}

// Get returns the event with id, or nil if there is none.
func (s *EventStore) Get(ctx context.Context, id int64) (*Event, error) {
	return getEvent(ctx, s.db, id)
}

// List returns the events matching f ordered by id.
func (s *EventStore) List(ctx context.Context, f Filter) ([]*Event, error) {
	query, args := ownerClause(eventSelect, f, "e.owner_id")
	rows, err := s.db.QueryContext(ctx, query+` ORDER BY e.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Update applies patch to the event with id and stamps its modified date.
// It returns nil when id does not exist.
func (s *EventStore) Update(ctx context.Context, id int64, patch EventPatch) (*Event, error) {
	var updated *Event
	err := storage.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		e, err := getEvent(ctx, tx, id)
		if err != nil || e == nil {
			return err
		}

		if patch.Start != nil {
			e.Start = patch.Start.UTC()
		}
		if patch.End != nil {
			e.End = patch.End.UTC()
		}
		if patch.Location != nil {
			e.Location = strings.TrimSpace(*patch.Location)
		}
		if patch.Attendees != nil {
			e.Attendees = *patch.Attendees
		}
		if patch.Notes != nil {
			e.Notes = *patch.Notes
		}
		if patch.ClientID != nil {
			e.ClientID = *patch.ClientID
		}
		if err := e.Validate(); err != nil {
			return err
		}
		if err := checkRef(ctx, tx, "client_id", rbac.ResourceClient, e.ClientID); err != nil {
			return err
		}
		linked, err := getContract(ctx, tx, `event_id = $1 ORDER BY id LIMIT 1`, id)
		if err != nil {
			return err
		}
		if linked != nil && linked.ClientID != e.ClientID {
			return apperr.Validationf("client_id: event %d is linked to contract %d of client %d", id, linked.ID, linked.ClientID)
		}

		e.ModifiedAt = s.now().UTC()
		query := `
			UPDATE events
			SET start_date = $1, end_date = $2, location = $3, attendees = $4, notes = $5, client_id = $6, modified_at = $7
			WHERE id = $8
		`
		if _, err := tx.ExecContext(ctx, query,
			e.Start, e.End, e.Location, e.Attendees, e.Notes, e.ClientID, e.ModifiedAt, id,
		); err != nil {
			return writeErr(rbac.ResourceEvent, "update", err)
		}

		updated = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the event with id and reports whether it existed. Contracts
// referencing the event are detached from it.
func (s *EventStore) Delete(ctx context.Context, id int64) (bool, error) {
	return deleteRow(ctx, s.db, rbac.ResourceEvent, id)
}

func scanEvent(row rowScanner) (*Event, error) {
	var (
		e          Event
		contractID sql.NullInt64
	)
	err := row.Scan(
		&e.ID,
		&e.Start,
		&e.End,
		&e.Location,
		&e.Attendees,
		&e.Notes,
		&e.ClientID,
		&contractID,
		&e.OwnerID,
		&e.CreatedAt,
		&e.ModifiedAt,
	)
	if err != nil {
		return nil, err
	}
	if contractID.Valid {
		e.ContractID = &contractID.Int64
	}
	return &e, nil
}

func getEvent(ctx context.Context, q storage.Querier, id int64) (*Event, error) {
	e, err := scanEvent(q.QueryRowContext(ctx, eventSelect+` WHERE e.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}
