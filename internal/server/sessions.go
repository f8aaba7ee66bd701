package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/muurk/adminkit/internal/auth/httpauth"
)

// DefaultTokenTTL is the lifetime of an issued session token.
const DefaultTokenTTL = time.Hour

type sessionEntry struct {
	userID    string
	username  string
	expiresAt time.Time
}

// Sessions tracks issued tokens by their jti so they can be revoked before
// they expire.
type Sessions struct {
	key []byte
	ttl time.Duration

	mu     sync.Mutex
	active map[string]sessionEntry
}

// NewSessions returns a registry signing with key.
func NewSessions(key []byte, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Sessions{key: key, ttl: ttl, active: make(map[string]sessionEntry)}
}

// Issue signs a new token for u.
func (r *Sessions) Issue(u *User) (string, error) {
	id := uuid.NewString()
	token, err := httpauth.IssueToken(r.key, httpauth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:      id,
			Subject: u.ID,
		},
		Name:        u.Name,
		Roles:       u.Roles,
		Permissions: u.Permissions,
	}, r.ttl)
	if err != nil {
		return "", err
	}

	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, e := range r.active {
		if now.After(e.expiresAt) {
			delete(r.active, k)
		}
	}
	r.active[id] = sessionEntry{userID: u.ID, username: u.Username, expiresAt: now.Add(r.ttl)}
	return token, nil
}

// Validate parses token and checks that its session is still active.
func (r *Sessions) Validate(token string) (*httpauth.Claims, error) {
	claims, err := httpauth.ParseToken(token, r.key)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	_, ok := r.active[claims.ID]
	r.mu.Unlock()
	if !ok {
		return nil, httpauth.ErrRevoked
	}
	return claims, nil
}

// Revoke ends one session.
func (r *Sessions) Revoke(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[id]
	delete(r.active, id)
	return ok
}

// RevokeUser ends every session of username except keep, returning the
// revoked ids.
func (r *Sessions) RevokeUser(username, keep string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, e := range r.active {
		if e.username == username && id != keep {
			delete(r.active, id)
			ids = append(ids, id)
		}
	}
	return ids
}

// Len returns the number of active sessions.
func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// TTL returns the token lifetime.
func (r *Sessions) TTL() time.Duration { return r.ttl }

// Username returns the account behind an active session id.
func (r *Sessions) Username(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.active[id]
	return e.username, ok
}

type claimsKey struct{}

func withClaims(ctx context.Context, c *httpauth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFromContext returns the validated claims of the request, if any.
func ClaimsFromContext(ctx context.Context) (*httpauth.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*httpauth.Claims)
	return c, ok
}

func sessionMessage(err error) string {
	switch {
	case errors.Is(err, httpauth.ErrRevoked):
		return "session revoked"
	case httpauth.IsExpired(err):
		return "session expired"
	default:
		return "invalid session token"
	}
}
