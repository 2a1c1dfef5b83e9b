package rolereq

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xunintzx/antlove/internal/directory"
)

func newTestResolver(t *testing.T) (*Resolver, *directory.Fake, *Pending) {
	t.Helper()
	fake := directory.NewFake()
	fake.Roles["r1"] = directory.Role{ID: "r1", Name: "Citizen"}
	fake.Roles["init"] = directory.Role{ID: "init", Name: "Unverified"}
	fake.Members["222"] = directory.Member{ID: "222", Username: "bob", Roles: []string{"init"}}

	pending := NewPending()
	r := NewResolver(fake, pending, nil, "init", discard())
	return r, fake, pending
}

func queued(pending *Pending) *Request {
	req := &Request{
		ID:          "222_1757000000",
		UserID:      "222",
		Role:        directory.Role{ID: "r1", Name: "Citizen"},
		Recruiter:   "Eve",
		GameID:      "42",
		RPName:      "John Doe",
		SubmittedAt: time.Unix(1757000000, 0),
	}
	pending.Put(req)
	return req
}

func admin() directory.Member {
	return directory.Member{ID: "999", Username: "mod"}
}

func TestApprove(t *testing.T) {
	r, fake, pending := newTestResolver(t)
	req := queued(pending)

	got, err := r.Approve(context.Background(), req.ID, "review", "msg-1", admin())
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if got.ID != req.ID {
		t.Errorf("resolved %q, want %q", got.ID, req.ID)
	}

	member := fake.Members["222"]
	if !member.HasRole("r1") {
		t.Error("requested role not granted")
	}
	if member.HasRole("init") {
		t.Error("initial role not revoked")
	}
	if fake.Nicks["222"] != "MEM | John Doe" {
		t.Errorf("nickname = %q, want MEM | John Doe", fake.Nicks["222"])
	}
	if _, ok := pending.ByID(req.ID); ok {
		t.Error("request still pending after approval")
	}
	if len(fake.Edits) != 1 || fake.Edits[0].MessageID != "msg-1" {
		t.Errorf("review message not edited: %+v", fake.Edits)
	}
	if len(fake.Edits[0].Notice.Buttons) != 0 {
		t.Error("approval summary should carry no buttons")
	}
	if len(fake.Directs) != 1 || fake.Directs[0].UserID != "222" {
		t.Errorf("requester not notified: %+v", fake.Directs)
	}
}

func TestApproveUnknownRequest(t *testing.T) {
	r, _, _ := newTestResolver(t)

	if _, err := r.Approve(context.Background(), "nosuch", "review", "msg-1", admin()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Approve = %v, want ErrNotFound", err)
	}
}

func TestApproveGrantFailureKeepsPending(t *testing.T) {
	r, fake, pending := newTestResolver(t)
	req := queued(pending)
	fake.Fail["GrantRole"] = errors.New("missing permission")

	if _, err := r.Approve(context.Background(), req.ID, "review", "msg-1", admin()); err == nil {
		t.Fatal("Approve should fail when the grant fails")
	}
	if _, ok := pending.ByID(req.ID); !ok {
		t.Error("request must stay pending after a failed grant so it can be retried")
	}
}

func TestApproveBestEffortSideEffects(t *testing.T) {
	r, fake, pending := newTestResolver(t)
	req := queued(pending)
	fake.Fail["RevokeRole"] = errors.New("role hierarchy")
	fake.Fail["SetNickname"] = errors.New("role hierarchy")
	fake.Fail["Direct"] = errors.New("dms closed")

	if _, err := r.Approve(context.Background(), req.ID, "review", "msg-1", admin()); err != nil {
		t.Fatalf("Approve: %v (revoke/nickname/dm failures must be swallowed)", err)
	}
	if !fake.Members["222"].HasRole("r1") {
		t.Error("requested role not granted")
	}
	if _, ok := pending.ByID(req.ID); ok {
		t.Error("request still pending")
	}
}

func TestApproveTwiceReportsNotFound(t *testing.T) {
	r, _, pending := newTestResolver(t)
	req := queued(pending)

	if _, err := r.Approve(context.Background(), req.ID, "review", "msg-1", admin()); err != nil {
		t.Fatalf("first Approve: %v", err)
	}
	if _, err := r.Approve(context.Background(), req.ID, "review", "msg-1", admin()); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Approve = %v, want ErrNotFound", err)
	}
}

func TestDeny(t *testing.T) {
	r, fake, pending := newTestResolver(t)
	req := queued(pending)

	if _, err := r.Deny(context.Background(), req.ID, "review", "msg-1", admin()); err != nil {
		t.Fatalf("Deny: %v", err)
	}
	if _, ok := pending.ByID(req.ID); ok {
		t.Error("request still pending after denial")
	}
	if fake.Members["222"].HasRole("r1") {
		t.Error("denied request must not grant the role")
	}
	if len(fake.Edits) != 1 {
		t.Error("review message not edited")
	}
}

func TestDenyAlwaysCompletes(t *testing.T) {
	r, fake, pending := newTestResolver(t)
	req := queued(pending)

	// Member and role both gone; denial must still remove the record.
	delete(fake.Members, "222")
	delete(fake.Roles, "r1")
	fake.Fail["Direct"] = errors.New("no such user")

	if _, err := r.Deny(context.Background(), req.ID, "review", "msg-1", admin()); err != nil {
		t.Fatalf("Deny: %v", err)
	}
	if pending.Count() != 0 {
		t.Error("request still pending")
	}
}
