// Package cli implements tartalacrm, the French command-line client of
// TartalaCRM.
//
// Commands run in process against the service layer. login stores the
// issued token in a session file that every other command reads back:
//
//	tartalacrm login
//	tartalacrm list_items clients --mine
//	tartalacrm create_item event
//	tartalacrm update_item contract 3
//	tartalacrm delete_item client 2
//
// create_item, update_item and delete_item check permissions and ownership
// before asking any question.
package cli
