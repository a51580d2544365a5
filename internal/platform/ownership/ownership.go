// Package ownership implements the "owner may mutate own resource" check shared by marker and
// profile mutations.
package ownership

import (
	"context"

	"github.com/samber/oops"

	"markers-api/internal/platform/apperr"
)

// Actions checked by Require.
const (
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Owned is a resource with a single owning user.
type Owned interface {
	OwnerID() string
}

// Request is the authorization question: may ActorID perform Action on the resource owned by OwnerID?
type Request struct {
	ActorID      string
	Action       string
	ResourceType string
	ResourceID   string
	OwnerID      string
}

// Authorizer answers Requests.
type Authorizer interface {
	Allow(ctx context.Context, req Request) (bool, error)
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, req Request) (bool, error)

// Allow implements Authorizer.
func (f AuthorizerFunc) Allow(ctx context.Context, req Request) (bool, error) { return f(ctx, req) }

// SameOwner allows reads by anyone and mutations only by the owner.
var SameOwner = AuthorizerFunc(func(_ context.Context, req Request) (bool, error) {
	if req.Action == ActionRead {
		return true, nil
	}
	return req.ActorID != "" && req.ActorID == req.OwnerID, nil
})

// Target identifies the resource being checked. Name is used in the not-found message
// ("Marker not found").
type Target struct {
	Type string
	ID   string
	Name string
}

// Require fetches the resource and checks actorID may perform action on it. A missing resource
// is NotFound even when the actor would not own it; only an existing resource can be Forbidden.
// fetch returns (zero, false, nil) when the resource does not exist. A nil authz means SameOwner.
func Require[T Owned](ctx context.Context, authz Authorizer, actorID, action string, target Target, fetch func(context.Context) (T, bool, error)) (T, error) {
	var zero T
	res, found, err := fetch(ctx)
	if err != nil {
		return zero, err
	}
	if !found {
		return zero, apperr.NotFound(target.Name)
	}
	if authz == nil {
		authz = SameOwner
	}
	ok, err := authz.Allow(ctx, Request{
		ActorID:      actorID,
		Action:       action,
		ResourceType: target.Type,
		ResourceID:   target.ID,
		OwnerID:      res.OwnerID(),
	})
	if err != nil {
		return zero, oops.Code("AUTHZ_EVAL_FAILED").With("resource", target.Type).With("action", action).Wrap(err)
	}
	if !ok {
		return zero, apperr.Forbidden("Forbidden")
	}
	return res, nil
}
