// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Response Helpers
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteCreated(w, resource)
//	httputil.WriteNoContent(w)
//
// Errors carry their category from pkg/apperr:
//
//	httputil.WriteAppError(w, err) // 401, 403, 404, 400, 409 or 500
//
// A 401 also sets "WWW-Authenticate: Bearer".
//
// # Request Parsing
//
//	var patch crm.ClientPatch
//	if err := httputil.DecodeJSON(r, &patch); err != nil {
//		httputil.WriteAppError(w, err)
//		return
//	}
//
// DecodeJSON rejects unknown fields.
//
// # Middleware
//
//	handler := httputil.Chain(
//		httputil.RequestIDMiddleware(logger),
//		httputil.LoggingMiddleware,
//	)(router)
package httputil
