package service

import (
	"context"
	"fmt"

	"github.com/platinummonkey/tartalacrm/pkg/apperr"
	"github.com/platinummonkey/tartalacrm/pkg/audit"
	"github.com/platinummonkey/tartalacrm/pkg/auth"
	"github.com/platinummonkey/tartalacrm/pkg/authz"
	"github.com/platinummonkey/tartalacrm/pkg/crm"
	"github.com/platinummonkey/tartalacrm/pkg/rbac"
)

// Collection binds one resource kind to its store. Every operation asks the
// engine first and only reaches the store on allow.
type Collection[T, I, P any] struct {
	resource rbac.ResourceType
	store    crm.Store[T, I, P]
	engine   *authz.Engine
	obs      *instruments
	idOf     func(*T) int64

	// authorizeCreate replaces the plain CREATE grant check when set.
	authorizeCreate func(ctx context.Context, principal *auth.User, in I) error
	// authorizeUpdate runs after the owner check of Update when set.
	authorizeUpdate func(ctx context.Context, principal *auth.User, id int64, patch P) error
}

func newCollection[T, I, P any](resource rbac.ResourceType, store crm.Store[T, I, P], engine *authz.Engine, obs *instruments, idOf func(*T) int64) *Collection[T, I, P] {
	return &Collection[T, I, P]{
		resource: resource,
		store:    store,
		engine:   engine,
		obs:      obs,
		idOf:     idOf,
	}
}

// Resource returns the resource type of the collection.
func (c *Collection[T, I, P]) Resource() rbac.ResourceType {
	return c.resource
}

// List returns every instance, or only the principal's own when mine is set.
func (c *Collection[T, I, P]) List(ctx context.Context, principal *auth.User, mine bool) ([]*T, error) {
	if err := c.engine.Authorize(ctx, principal, rbac.PermissionRead, c.resource); err != nil {
		return nil, err
	}

	var f crm.Filter
	if mine {
		f.OwnerID = principal.ID
	}
	items, err := c.store.List(ctx, f)
	c.obs.storeOp(c.resource, "list", err)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Get returns the instance with id.
func (c *Collection[T, I, P]) Get(ctx context.Context, principal *auth.User, id int64) (*T, error) {
	if err := c.engine.Authorize(ctx, principal, rbac.PermissionRead, c.resource); err != nil {
		return nil, err
	}

	item, err := c.store.Get(ctx, id)
	c.obs.storeOp(c.resource, "get", err)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, c.notFound(id)
	}
	return item, nil
}

// CanCreate reports whether principal may create instances at all, before
// any field is known.
func (c *Collection[T, I, P]) CanCreate(ctx context.Context, principal *auth.User) error {
	return c.engine.Authorize(ctx, principal, rbac.PermissionCreate, c.resource)
}

// CanModify checks the update or delete gate for instance id without
// touching it.
func (c *Collection[T, I, P]) CanModify(ctx context.Context, principal *auth.User, permission rbac.PermissionType, id int64) error {
	return c.engine.AuthorizeOwner(ctx, principal, permission, c.resource, id)
}

// Create stores in with principal as its owner.
func (c *Collection[T, I, P]) Create(ctx context.Context, principal *auth.User, in I) (*T, error) {
	var err error
	if c.authorizeCreate != nil {
		err = c.authorizeCreate(ctx, principal, in)
	} else {
		err = c.CanCreate(ctx, principal)
	}
	if err != nil {
		return nil, err
	}

	item, err := c.store.Create(ctx, in, principal.ID)
	c.obs.storeOp(c.resource, "create", err)
	if err != nil {
		return nil, err
	}
	c.obs.mutation(ctx, principal, audit.EventTypeDataCreate, c.resource, c.idOf(item))
	return item, nil
}

// Update applies patch to instance id. Only its owner may update it.
func (c *Collection[T, I, P]) Update(ctx context.Context, principal *auth.User, id int64, patch P) (*T, error) {
	if err := c.CanModify(ctx, principal, rbac.PermissionUpdate, id); err != nil {
		return nil, err
	}
	if c.authorizeUpdate != nil {
		if err := c.authorizeUpdate(ctx, principal, id, patch); err != nil {
			return nil, err
		}
	}

	item, err := c.store.Update(ctx, id, patch)
	c.obs.storeOp(c.resource, "update", err)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, c.notFound(id)
	}
	c.obs.mutation(ctx, principal, audit.EventTypeDataUpdate, c.resource, id)
	return item, nil
}

// Delete removes instance id. Only its owner may delete it.
func (c *Collection[T, I, P]) Delete(ctx context.Context, principal *auth.User, id int64) error {
	if err := c.CanModify(ctx, principal, rbac.PermissionDelete, id); err != nil {
		return err
	}

	deleted, err := c.store.Delete(ctx, id)
	c.obs.storeOp(c.resource, "delete", err)
	if err != nil {
		return err
	}
	if !deleted {
		return c.notFound(id)
	}
	c.obs.mutation(ctx, principal, audit.EventTypeDataDelete, c.resource, id)
	return nil
}

func (c *Collection[T, I, P]) notFound(id int64) error {
	return apperr.NotFound(fmt.Errorf("%s %d: %w", c.resource, id, crm.ErrNotFound))
}
