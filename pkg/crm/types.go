package crm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is wrapped by errors about a missing client, contract or event.
var ErrNotFound = errors.New("resource not found")

// Resource holds the fields every client, contract and event carries.
type Resource struct {
	ID         int64     `json:"id"`
	CreatedAt  time.Time `json:"creation_date"`
	ModifiedAt time.Time `json:"modified_date"`
	OwnerID    int64     `json:"owner_id"`
}

// Owner returns the id of the user who created the resource.
func (r *Resource) Owner() int64 {
	return r.OwnerID
}

// Immutable lists resource fields a patch body may carry but that an update
// never applies.
type Immutable struct {
	ID           json.RawMessage `json:"id,omitempty"`
	CreationDate json.RawMessage `json:"creation_date,omitempty"`
	ModifiedDate json.RawMessage `json:"modified_date,omitempty"`
	OwnerID      json.RawMessage `json:"owner_id,omitempty"`
}

// Filter narrows a List call. The zero Filter lists everything.
type Filter struct {
	// OwnerID keeps only resources owned by this user when non-zero.
	OwnerID int64
}

// Client is a customer company contact.
type Client struct {
	Resource
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	Phone       string `json:"telephone"`
	CompanyName string `json:"company_name"`
}

// ClientInput holds the fields of a client to create
type ClientInput struct {
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	Phone       string `json:"telephone"`
	CompanyName string `json:"company_name"`

	Immutable
}

// ClientPatch is a partial client update. Nil fields are left unchanged.
type ClientPatch struct {
	FullName    *string `json:"full_name,omitempty"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"telephone,omitempty"`
	CompanyName *string `json:"company_name,omitempty"`

	Immutable
}

// ContractStatus is the signature state of a contract.
type ContractStatus string

const (
	ContractSigned    ContractStatus = "SIGNED"
	ContractNotSigned ContractStatus = "NOT_SIGNED"
)

// ContractStatuses returns every status in display order.
func ContractStatuses() []ContractStatus {
	return []ContractStatus{ContractSigned, ContractNotSigned}
}

// Valid reports whether s is a known status.
func (s ContractStatus) Valid() bool {
	return s == ContractSigned || s == ContractNotSigned
}

// Label returns the French display name of the status.
func (s ContractStatus) Label() string {
	switch s {
	case ContractSigned:
		return "Signé"
	case ContractNotSigned:
		return "Non signé"
	}
	return string(s)
}

// ParseContractStatus accepts a status name in any case, or its French label.
func ParseContractStatus(v string) (ContractStatus, error) {
	v = strings.TrimSpace(v)
	for _, s := range ContractStatuses() {
		if strings.EqualFold(v, string(s)) || strings.EqualFold(v, s.Label()) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown contract status %q", v)
}

// Contract is a commercial agreement with a client. Amounts are whole euros.
type Contract struct {
	Resource
	Amount    int64          `json:"amount"`
	DueAmount int64          `json:"due_amount"`
	Status    ContractStatus `json:"status"`
	ClientID  int64          `json:"client_id"`
	EventID   *int64         `json:"event_id"`
}

// ContractInput holds the fields of a contract to create
type ContractInput struct {
	Amount    int64          `json:"amount"`
	DueAmount int64          `json:"due_amount"`
	Status    ContractStatus `json:"status"`
	ClientID  int64          `json:"client_id"`
	EventID   *int64         `json:"event_id,omitempty"`

	Immutable
}

// ContractPatch is a partial contract update. Nil fields are left unchanged.
// An EventID of 0 detaches the event.
type ContractPatch struct {
	Amount    *int64          `json:"amount,omitempty"`
	DueAmount *int64          `json:"due_amount,omitempty"`
	Status    *ContractStatus `json:"status,omitempty"`
	ClientID  *int64          `json:"client_id,omitempty"`
	EventID   *int64          `json:"event_id,omitempty"`

	Immutable
}

// Event is a happening organized for a client. ContractID is filled on reads
// from the contract that references the event, if any.
type Event struct {
	Resource
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Location   string    `json:"location"`
	Attendees  int64     `json:"attendees"`
	Notes      string    `json:"notes"`
	ClientID   int64     `json:"client_id"`
	ContractID *int64    `json:"contract_id"`
}

// EventInput holds the fields of an event to create
type EventInput struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Location  string    `json:"location"`
	Attendees int64     `json:"attendees"`
	Notes     string    `json:"notes"`
	ClientID  int64     `json:"client_id"`

	EventImmutable
}

// EventPatch is a partial event update. Nil fields are left unchanged.
type EventPatch struct {
	Start     *time.Time `json:"start,omitempty"`
	End       *time.Time `json:"end,omitempty"`
	Location  *string    `json:"location,omitempty"`
	Attendees *int64     `json:"attendees,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
	ClientID  *int64     `json:"client_id,omitempty"`

	EventImmutable
}

// EventImmutable adds the derived contract reference to the ignored fields
// of an event body.
type EventImmutable struct {
	Immutable
	ContractID json.RawMessage `json:"contract_id,omitempty"`
}
