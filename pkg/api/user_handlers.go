package api

import (
	"net/http"

	"github.com/platinummonkey/tartalacrm/pkg/auth"
	"github.com/platinummonkey/tartalacrm/pkg/httputil"
	"github.com/platinummonkey/tartalacrm/pkg/middleware"
	"github.com/platinummonkey/tartalacrm/pkg/rbac"
)

func (s *Server) registerUsers() {
	s.handle(rbac.ResourceUser, s.listUsers, s.createUser, s.getUser, s.updateUser, s.deleteUser)
}

// listUsers handles GET /user/
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.ListUsers(r.Context(), middleware.GetPrincipal(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if users == nil {
		users = []*auth.User{}
	}
	httputil.WriteSuccess(w, users)
}

// getUser handles GET /user/{id}
func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	user, err := s.svc.GetUser(r.Context(), middleware.GetPrincipal(r), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

// createUser handles POST /user
func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req auth.NewUser
	if err := httputil.DecodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	user, err := s.svc.CreateUser(r.Context(), middleware.GetPrincipal(r), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httputil.WriteCreated(w, user)
}

// updateUser handles PUT /user/{id}
func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var patch auth.UserPatch
	if err := httputil.DecodeJSON(r, &patch); err != nil {
		s.fail(w, r, err)
		return
	}

	user, err := s.svc.UpdateUser(r.Context(), middleware.GetPrincipal(r), id, patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

// deleteUser handles DELETE /user/{id}
func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.svc.DeleteUser(r.Context(), middleware.GetPrincipal(r), id); err != nil {
		s.fail(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}
