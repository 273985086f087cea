// Package validation collects field-level input errors for users, clients,
// contracts and events.
//
// A Result accumulates every failing rule so a caller sees all problems at
// once instead of one per round-trip:
//
//	var r validation.Result
//	r.Required("full_name", in.FullName)
//	r.Email("email", in.Email)
//	r.Check(in.DueAmount <= in.Amount, "due_amount", "must not exceed amount")
//	if err := r.Err(); err != nil {
//		return err // apperr.KindValidation
//	}
package validation
