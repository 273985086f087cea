package api

import (
	"net/http"

	"github.com/platinummonkey/tartalacrm/pkg/httputil"
	"github.com/platinummonkey/tartalacrm/pkg/observability"
)

// TokenResponse is the body of a successful POST /get_token
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// getToken handles POST /get_token with form fields username and password
func (s *Server) getToken(w http.ResponseWriter, r *http.Request) {
	username, err := httputil.FormValue(r, "username")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	password, err := httputil.FormValue(r, "password")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	token, user, err := s.svc.Login(r.Context(), username, password)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	observability.FromContext(r.Context()).WithField("user_id", user.ID).Info("token issued")
	httputil.WriteSuccess(w, TokenResponse{AccessToken: token, TokenType: "bearer"})
}
