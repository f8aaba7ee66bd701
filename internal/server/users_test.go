package server

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/muurk/adminkit/internal/auth/httpauth"
)

func TestUserStore(t *testing.T) {
	s := NewUserStore(bcrypt.MinCost)

	u, err := s.Add(UserSpec{Username: " Alice ", Password: "pw", Roles: []string{"editor"}})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if u.Username != "alice" || u.Name != " Alice " {
		t.Errorf("user = %+v", u)
	}
	if !u.HasRole("editor") || u.HasRole("admin") {
		t.Error("HasRole mismatch")
	}
	if _, err := s.Add(UserSpec{Username: "ALICE", Password: "x"}); !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate Add() error = %v, want ErrUserExists", err)
	}
	if _, err := s.Add(UserSpec{Username: "bob"}); err == nil {
		t.Error("Add() without password should fail")
	}

	if _, err := s.Authenticate("alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Authenticate(wrong) error = %v", err)
	}
	if err := s.SetPassword("alice", "new"); err != nil {
		t.Fatalf("SetPassword() error = %v", err)
	}
	if _, err := s.Authenticate("alice", "pw"); err == nil {
		t.Error("old password still accepted")
	}
	if _, err := s.Authenticate("alice", "new"); err != nil {
		t.Errorf("Authenticate(new) error = %v", err)
	}
	if err := s.SetPassword("nobody", "x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("SetPassword(unknown) error = %v", err)
	}
}

func TestSessions(t *testing.T) {
	r := NewSessions([]byte("k"), 0)
	if r.TTL() != DefaultTokenTTL {
		t.Errorf("TTL() = %v, want default", r.TTL())
	}
	u := &User{ID: "1", Username: "alice", Name: "Alice", Roles: []string{"admin"}}

	t1, err := r.Issue(u)
	if err != nil {
		t.Fatal(err)
	}
	t2, _ := r.Issue(u)

	claims, err := r.Validate(t1)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if claims.Subject != "1" || claims.Name != "Alice" {
		t.Errorf("claims = %+v", claims)
	}
	if name, ok := r.Username(claims.ID); !ok || name != "alice" {
		t.Errorf("Username() = %q, %v", name, ok)
	}

	if !r.Revoke(claims.ID) || r.Revoke(claims.ID) {
		t.Error("Revoke should succeed exactly once")
	}
	if _, err := r.Validate(t1); !errors.Is(err, httpauth.ErrRevoked) {
		t.Errorf("Validate(revoked) error = %v", err)
	}

	c2, _ := r.Validate(t2)
	t3, _ := r.Issue(u)
	ids := r.RevokeUser("alice", c2.ID)
	if len(ids) != 1 || r.Len() != 1 {
		t.Errorf("RevokeUser() = %v, Len() = %d", ids, r.Len())
	}
	if _, err := r.Validate(t3); err == nil {
		t.Error("t3 should be revoked")
	}

	other := NewSessions([]byte("other"), 0)
	if _, err := other.Validate(t2); err == nil || sessionMessage(err) != "invalid session token" {
		t.Errorf("foreign token error = %v", err)
	}
	if sessionMessage(httpauth.ErrRevoked) != "session revoked" {
		t.Error("sessionMessage(ErrRevoked)")
	}
}
