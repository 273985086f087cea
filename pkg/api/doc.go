// Package api provides the HTTP API of TartalaCRM.
//
// # Overview
//
// The API mirrors the command-line client. A caller first exchanges its
// credentials for a bearer token, then sends the token with every other
// request:
//
//	POST /get_token            form fields username, password
//	                           -> {"access_token": "...", "token_type": "bearer"}
//
// Each resource type (client, contract, event, user) exposes the same routes:
//
//	GET    /{resource}/          list, ?mine=true keeps the caller's own
//	GET    /{resource}/{id}      read one
//	POST   /{resource}           create, owned by the caller
//	PUT    /{resource}/{id}      partial update, owner only
//	DELETE /{resource}/{id}      204 on success, owner only
//
// Bodies are JSON. Unknown fields are rejected; server-managed fields such as
// id, creation_date, modified_date and owner_id are accepted and ignored.
//
// # Errors
//
// Every error body is {"error": kind, "detail": message}. The status follows
// the error kind: 401 for a missing or invalid token (with
// WWW-Authenticate: Bearer), 403 for a missing grant or a non-owner, 404 for
// an unknown id, 400 for invalid input, 409 for conflicts and 500 otherwise.
//
// # Usage
//
//	server := api.NewServer(app.Service, api.Options{
//		Logger:   logger,
//		Metrics:  metrics,
//		Gatherer: registry,
//		Health:   observability.NewHealthChecker(db, redisClient, version),
//	})
//	http.ListenAndServe(":8000", server)
package api
