package middleware

import (
	"context"
	"net/http"

	"github.com/platinummonkey/tartalacrm/pkg/auth"
	"github.com/platinummonkey/tartalacrm/pkg/contextkeys"
	"github.com/platinummonkey/tartalacrm/pkg/httputil"
	"github.com/platinummonkey/tartalacrm/pkg/observability"
)

// PrincipalResolver turns a bearer token into the calling user
type PrincipalResolver interface {
	Principal(ctx context.Context, token string) (*auth.User, error)
}

// BearerAuth rejects requests without a valid bearer token with 401 and
// stores the resolved principal in the request context.
func BearerAuth(resolver PrincipalResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := resolver.Principal(r.Context(), httputil.BearerToken(r))
			if err != nil {
				observability.FromContext(r.Context()).WithError(err).Debug("request rejected by bearer auth")
				httputil.WriteAppError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(contextkeys.WithPrincipal(r.Context(), principal)))
		})
	}
}

// GetPrincipal extracts the authenticated user from the request
func GetPrincipal(r *http.Request) *auth.User {
	return contextkeys.Principal(r.Context())
}
