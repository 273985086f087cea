// Package authz is the single gate between a caller and the resource stores.
//
// A protected action is checked in this order, stopping at the first failure:
//
//  1. the caller must resolve to a principal (Unauthenticated otherwise)
//  2. the principal's department must grant the (permission, resource) pair
//     (Forbidden "role grant missing")
//  3. update and delete need an existing instance (NotFound) owned by the
//     principal (Forbidden "not owner")
//  4. a new contract must target a client the principal owns
//     (Forbidden "not client owner")
//
// Denials are counted in the authz decision metric and written to the audit
// trail.
package authz
