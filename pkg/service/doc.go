// Package service holds the TartalaCRM use cases shared by the HTTP API and
// the CLI. Each resource kind is a Collection bound to its store; every call
// goes through the authorization engine before reaching the store, and
// successful mutations are written to the audit trail.
package service
