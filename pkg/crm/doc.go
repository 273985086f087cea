// Package crm stores the clients, contracts and events of TartalaCRM.
//
// Every resource is owned by the user who created it. The owner and the
// creation date are set once; the modified date is stamped by every update.
// Patches are typed: a nil field is left alone, and the Immutable fields
// (id, creation_date, modified_date, owner_id) are accepted in request bodies
// but never applied.
//
// References between resources are plain ids. A contract points at its
// client and optionally at the event it funds; an event's ContractID is read
// back from that contract, so it cannot drift:
//
//	contracts := crm.NewContractStore(db)
//	c, err := contracts.Create(ctx, crm.ContractInput{
//		Amount:    1000,
//		DueAmount: 500,
//		Status:    crm.ContractSigned,
//		ClientID:  clientID,
//		EventID:   &eventID,
//	}, ownerID)
//
// Stores do not check permissions. Callers go through the authz engine
// first.
package crm
