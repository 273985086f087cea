// Package rbac holds the TartalaCRM permission catalog.
//
// # Overview
//
// A grant is a (permission type, resource type) pair such as CREATE:CLIENT.
// Every user belongs to exactly one department and the department alone
// decides which grants the user holds:
//
//	GESTION     CREATE:USER CREATE:CONTRACT READ:EVENT READ:USER READ:CONTRACT
//	            UPDATE:USER UPDATE:CONTRACT UPDATE:EVENT DELETE:USER
//	COMMERCIAL  CREATE:CLIENT CREATE:EVENT READ:EVENT READ:CLIENT READ:CONTRACT
//	            UPDATE:CLIENT UPDATE:CONTRACT
//	SUPPORT     READ:EVENT READ:CLIENT READ:CONTRACT UPDATE:EVENT
//
// ResolveGrants is the pure lookup into that table.
//
// # Persistence
//
// The permissions table holds at most one row per pair, shared by every user
// through the users_permissions join table. AssignGrants replaces a user's
// rows with the grants of their department; it never merges, so it is safe to
// call again after any department change:
//
//	store := rbac.NewStore(db)
//	if err := store.SeedCatalog(ctx); err != nil { ... }
//	if err := store.AssignGrants(ctx, userID, rbac.DepartmentSupport); err != nil { ... }
//	grants, err := store.UserGrants(ctx, userID)
//	grants.Has(rbac.PermissionUpdate, rbac.ResourceEvent) // true
//
// Grants are never cached: callers re-read them for every decision, so a
// department change applies to the next request.
package rbac
