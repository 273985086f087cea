package crm

import (
	"github.com/platinummonkey/tartalacrm/pkg/validation"
)

// Validate checks the fields of a client.
func (c *Client) Validate() error {
	var r validation.Result
	r.Required("full_name", c.FullName)
	r.Email("email", c.Email)
	return r.Err()
}

// Validate checks the fields of a contract. References are checked by the
// store.
func (c *Contract) Validate() error {
	var r validation.Result
	r.NonNegative("amount", c.Amount)
	r.NonNegative("due_amount", c.DueAmount)
	r.Check(c.DueAmount <= c.Amount, "due_amount", "must not exceed amount (%d > %d)", c.DueAmount, c.Amount)
	r.Check(c.Status.Valid(), "status", "unknown contract status %q", c.Status)
	r.Check(c.ClientID > 0, "client_id", "is required")
	return r.Err()
}

// Validate checks the fields of an event. References are checked by the
// store.
func (e *Event) Validate() error {
	var r validation.Result
	r.Check(!e.Start.IsZero(), "start", "is required")
	r.Check(!e.End.IsZero(), "end", "is required")
	r.Check(!e.End.Before(e.Start), "end", "must not be before start")
	r.NonNegative("attendees", e.Attendees)
	r.Check(e.ClientID > 0, "client_id", "is required")
	return r.Err()
}
