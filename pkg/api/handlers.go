package api

import (
	"net/http"

	"github.com/platinummonkey/tartalacrm/pkg/httputil"
	"github.com/platinummonkey/tartalacrm/pkg/middleware"
	"github.com/platinummonkey/tartalacrm/pkg/service"
)

// collectionHandlers serves the CRUD routes of a client, contract or event
// collection.
type collectionHandlers[T, I, P any] struct {
	s *Server
	c *service.Collection[T, I, P]
}

func registerCollection[T, I, P any](s *Server, c *service.Collection[T, I, P]) {
	h := &collectionHandlers[T, I, P]{s: s, c: c}
	s.handle(c.Resource(), h.list, h.create, h.get, h.update, h.delete)
}

// list handles GET /{resource}/?mine=true
func (h *collectionHandlers[T, I, P]) list(w http.ResponseWriter, r *http.Request) {
	mine, err := httputil.ParseQueryBool(r, "mine")
	if err != nil {
		h.s.fail(w, r, err)
		return
	}

	items, err := h.c.List(r.Context(), middleware.GetPrincipal(r), mine)
	if err != nil {
		h.s.fail(w, r, err)
		return
	}
	if items == nil {
		items = []*T{}
	}
	httputil.WriteSuccess(w, items)
}

// get handles GET /{resource}/{id}
func (h *collectionHandlers[T, I, P]) get(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		h.s.fail(w, r, err)
		return
	}

	item, err := h.c.Get(r.Context(), middleware.GetPrincipal(r), id)
	if err != nil {
		h.s.fail(w, r, err)
		return
	}
	httputil.WriteSuccess(w, item)
}

// create handles POST /{resource}
func (h *collectionHandlers[T, I, P]) create(w http.ResponseWriter, r *http.Request) {
	var in I
	if err := httputil.DecodeJSON(r, &in); err != nil {
		h.s.fail(w, r, err)
		return
	}

	item, err := h.c.Create(r.Context(), middleware.GetPrincipal(r), in)
	if err != nil {
		h.s.fail(w, r, err)
		return
	}
	httputil.WriteCreated(w, item)
}

// update handles PUT /{resource}/{id}
func (h *collectionHandlers[T, I, P]) update(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		h.s.fail(w, r, err)
		return
	}

	var patch P
	if err := httputil.DecodeJSON(r, &patch); err != nil {
		h.s.fail(w, r, err)
		return
	}

	item, err := h.c.Update(r.Context(), middleware.GetPrincipal(r), id, patch)
	if err != nil {
		h.s.fail(w, r, err)
		return
	}
	httputil.WriteSuccess(w, item)
}

// delete handles DELETE /{resource}/{id}
func (h *collectionHandlers[T, I, P]) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		h.s.fail(w, r, err)
		return
	}

	if err := h.c.Delete(r.Context(), middleware.GetPrincipal(r), id); err != nil {
		h.s.fail(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}
