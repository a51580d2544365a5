package ownership

import (
	"context"
	"errors"
	"testing"

	"markers-api/internal/platform/apperr"
)

type doc struct{ owner string }

func (d *doc) OwnerID() string { return d.owner }

var target = Target{Type: "marker", ID: "m1", Name: "Marker"}

func fetchDoc(d *doc, err error) func(context.Context) (*doc, bool, error) {
	return func(context.Context) (*doc, bool, error) {
		return d, d != nil, err
	}
}

func TestRequire(t *testing.T) {
	ctx := context.Background()
	owned := &doc{owner: "alice"}

	tests := []struct {
		name       string
		actor      string
		fetch      func(context.Context) (*doc, bool, error)
		wantStatus int
	}{
		{"owner allowed", "alice", fetchDoc(owned, nil), 0},
		{"other user forbidden", "bob", fetchDoc(owned, nil), 403},
		{"missing resource is 404 for anyone", "bob", fetchDoc(nil, nil), 404},
		{"missing resource is 404 for owner too", "alice", fetchDoc(nil, nil), 404},
		{"anonymous forbidden", "", fetchDoc(owned, nil), 403},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Require(ctx, nil, tt.actor, ActionUpdate, target, tt.fetch)
			if tt.wantStatus == 0 {
				if err != nil || got != owned {
					t.Fatalf("Require = %v, %v", got, err)
				}
				return
			}
			if apperr.Status(err) != tt.wantStatus {
				t.Fatalf("status = %d, want %d (err %v)", apperr.Status(err), tt.wantStatus, err)
			}
			if got != nil {
				t.Error("resource must not be returned on failure")
			}
		})
	}
}

func TestRequire_NotFoundMessage(t *testing.T) {
	_, err := Require(context.Background(), nil, "bob", ActionDelete, target, fetchDoc(nil, nil))
	if apperr.Message(err) != "Marker not found" {
		t.Errorf("message = %q", apperr.Message(err))
	}
}

func TestRequire_FetchError(t *testing.T) {
	boom := errors.New("db down")
	_, err := Require(context.Background(), nil, "alice", ActionUpdate, target, fetchDoc(nil, boom))
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestRequire_AuthorizerError(t *testing.T) {
	failing := AuthorizerFunc(func(context.Context, Request) (bool, error) {
		return false, errors.New("policy broken")
	})
	_, err := Require(context.Background(), failing, "alice", ActionUpdate, target, fetchDoc(&doc{owner: "alice"}, nil))
	if apperr.Status(err) != 500 {
		t.Errorf("status = %d, want 500", apperr.Status(err))
	}
}

func TestRequire_PassesRequestToAuthorizer(t *testing.T) {
	var seen Request
	spy := AuthorizerFunc(func(_ context.Context, req Request) (bool, error) {
		seen = req
		return true, nil
	})
	if _, err := Require(context.Background(), spy, "alice", ActionDelete, target, fetchDoc(&doc{owner: "carol"}, nil)); err != nil {
		t.Fatalf("Require: %v", err)
	}
	want := Request{ActorID: "alice", Action: ActionDelete, ResourceType: "marker", ResourceID: "m1", OwnerID: "carol"}
	if seen != want {
		t.Errorf("request = %+v, want %+v", seen, want)
	}
}

func TestSameOwner(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		req  Request
		want bool
	}{
		{Request{ActorID: "a", OwnerID: "a", Action: ActionUpdate}, true},
		{Request{ActorID: "b", OwnerID: "a", Action: ActionDelete}, false},
		{Request{ActorID: "", OwnerID: "", Action: ActionUpdate}, false},
		{Request{ActorID: "", OwnerID: "a", Action: ActionRead}, true},
	}
	for _, c := range cases {
		if got, _ := SameOwner.Allow(ctx, c.req); got != c.want {
			t.Errorf("SameOwner(%+v) = %v, want %v", c.req, got, c.want)
		}
	}
}
