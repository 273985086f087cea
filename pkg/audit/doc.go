// Package audit records security-relevant events of TartalaCRM.
//
// # Event Types
//
// Authentication: auth.login, auth.login_failed, auth.login_throttled,
// auth.token_rejected
// Authorization: authz.access_denied
// Data: data.create, data.update, data.delete
//
// # Usage Example
//
//	logger := audit.NewMultiLogger(
//		audit.NewLogLogger(appLogger),
//		dbLogger,
//	)
//	event := audit.NewEvent(ctx, audit.EventTypeAuthzAccessDenied, audit.EventStatusDenied).
//		WithUser(user.ID, user.Username)
//	event.Permission, event.ResourceType = "update", "client"
//	event.Message = "not owner"
//	logger.Log(ctx, event)
//
// Events never carry passwords or tokens.
//
// # Related Packages
//
//   - pkg/authz: access denied events
//   - pkg/service: login and mutation events
package audit
