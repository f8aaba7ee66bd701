package httpauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/muurk/adminkit/internal/auth"
	"github.com/muurk/adminkit/internal/dataprovider"
)

var testKey = []byte("test-secret")

func issue(t *testing.T, ttl time.Duration) string {
	t.Helper()
	tok, err := IssueToken(testKey, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "1", ID: "sess-1"},
		Name:             "alice",
		Roles:            []string{"admin"},
	}, ttl)
	require.NoError(t, err)
	return tok
}

// fakeBackend serves the auth endpoints for user alice/secret.
type fakeBackend struct {
	t       *testing.T
	mu      sync.Mutex
	token   string
	revoke  chan string
	allowed map[string]bool
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON := func(status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	token := b.currentToken()
	authorized := r.Header.Get("Authorization") == "Bearer "+token

	switch r.URL.Path {
	case PathLogin:
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["username"] != "alice" || in["password"] != "secret" {
			writeJSON(http.StatusUnauthorized, map[string]string{"message": "invalid username or password"})
			return
		}
		writeJSON(http.StatusOK, map[string]string{"token": token})
	case PathLogout:
		w.WriteHeader(http.StatusNoContent)
	case PathCheck:
		if !authorized {
			writeJSON(http.StatusUnauthorized, map[string]string{"message": "session expired"})
			return
		}
		writeJSON(http.StatusOK, map[string]string{"token": token})
	case PathRegister:
		writeJSON(http.StatusConflict, map[string]string{"message": "username taken"})
	case PathForgotPassword:
		writeJSON(http.StatusAccepted, map[string]string{"message": "reset instructions sent"})
	case PathCan:
		var in struct {
			Permission string `json:"permission"`
		}
		_ = json.NewDecoder(r.Body).Decode(&in)
		b.mu.Lock()
		allowed := b.allowed[in.Permission]
		b.mu.Unlock()
		writeJSON(http.StatusOK, map[string]bool{"allowed": authorized && allowed})
	case PathSessionWatch:
		if !authorized {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		conn, err := (&websocket.Upgrader{}).Upgrade(w, r, nil)
		if err != nil {
			b.t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(SessionEvent{Type: EventHello})
		reason := <-b.revoke
		_ = conn.WriteJSON(SessionEvent{Type: EventRevoked, Reason: reason})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (b *fakeBackend) currentToken() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.token
}

func (b *fakeBackend) setToken(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = token
}

func newBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	b := &fakeBackend{t: t, token: issue(t, time.Hour), revoke: make(chan string, 1), allowed: map[string]bool{}}
	srv := httptest.NewServer(b)
	t.Cleanup(func() { close(b.revoke) })
	t.Cleanup(srv.Close)
	return b, srv
}

func login(t *testing.T, p *Provider) *auth.Store {
	t.Helper()
	s := auth.NewStore(p)
	res, err := s.Login(context.Background(), auth.Params{"username": "alice", "password": "secret"})
	require.NoError(t, err)
	require.True(t, res.Success)
	return s
}

func TestTokenRoundTrip(t *testing.T) {
	tok := issue(t, time.Hour)

	s, err := SessionFromToken(tok, testKey)
	require.NoError(t, err)
	require.Equal(t, "1", s.UserID)
	require.Equal(t, "alice", s.Name)
	require.Equal(t, []string{"admin"}, s.Roles)
	require.Equal(t, "sess-1", s.Extra["session_id"])
	require.WithinDuration(t, time.Now().Add(time.Hour), s.ExpiresAt, time.Minute)

	_, err = ParseToken(tok, []byte("other"))
	require.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	unverified, err := ParseToken(tok, nil)
	require.NoError(t, err)
	require.Equal(t, "alice", unverified.Name)
}

func TestParseToken_Expired(t *testing.T) {
	claims := Claims{Name: "old"}
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	claims.Issuer = Issuer
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testKey)
	require.NoError(t, err)

	_, err = ParseToken(tok, testKey)
	require.True(t, IsExpired(err))
	_, err = ParseToken(tok, nil)
	require.True(t, IsExpired(err))
}

func TestLogin(t *testing.T) {
	b, srv := newBackend(t)
	p := New(srv.URL, WithVerifyKey(testKey))

	s := login(t, p)
	require.Equal(t, auth.StateAuthenticated, s.State())
	require.Equal(t, "alice", s.Session().Name)
	require.Equal(t, b.currentToken(), p.Token())
}

func TestLogin_InvalidCredentials(t *testing.T) {
	_, srv := newBackend(t)
	s := auth.NewStore(New(srv.URL))

	res, err := s.Login(context.Background(), auth.Params{"username": "alice", "password": "nope"})
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Equal(t, "invalid username or password", res.Message)
	require.Equal(t, auth.StateUnauthenticated, s.State())
}

func TestLogin_Throttled(t *testing.T) {
	_, srv := newBackend(t)
	s := auth.NewStore(New(srv.URL, WithLoginRate(1)))
	ctx := context.Background()

	_, err := s.Login(ctx, auth.Params{"username": "alice", "password": "nope"})
	require.NoError(t, err)

	res, err := s.Login(ctx, auth.Params{"username": "alice", "password": "secret"})
	require.ErrorIs(t, err, ErrThrottled)
	require.Equal(t, "too many login attempts, try again later", res.Message)
	require.Equal(t, auth.StateUnauthenticated, s.State())
}

func TestLogin_BackendDown(t *testing.T) {
	_, srv := newBackend(t)
	url := srv.URL
	srv.Close()

	s := auth.NewStore(New(url))
	res, err := s.Login(context.Background(), auth.Params{"username": "alice", "password": "secret"})
	require.Error(t, err)
	require.False(t, res.Success)
	require.NotEmpty(t, res.Message)
}

func TestCheck(t *testing.T) {
	b, srv := newBackend(t)
	p := New(srv.URL, WithVerifyKey(testKey))
	s := login(t, p)

	res, err := s.Check(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, auth.StateAuthenticated, s.State())

	b.setToken("rotated")
	res, err = s.Check(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, res.Logout)
	require.Equal(t, "session expired", res.Message)
	require.Equal(t, auth.StateUnauthenticated, s.State())
	require.Empty(t, p.Token())
}

func TestLogout_ClearsToken(t *testing.T) {
	_, srv := newBackend(t)
	p := New(srv.URL)
	s := login(t, p)

	res, err := s.Logout(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Empty(t, p.Token())
	require.Equal(t, auth.StateUnauthenticated, s.State())
}

func TestOnError(t *testing.T) {
	p := New("http://127.0.0.1:1")
	p.SetToken("tok")
	ctx := context.Background()

	er := p.OnError(ctx, errors.New("disk full"))
	require.False(t, er.Logout)
	require.Equal(t, "tok", p.Token())

	er = p.OnError(ctx, dataprovider.NewAuthError("expired"))
	require.True(t, er.Logout)
	require.Equal(t, LoginRedirect, er.RedirectTo)
	require.Empty(t, p.Token())

	er = p.OnError(ctx, &Error{Op: "check", StatusCode: http.StatusUnauthorized})
	require.True(t, er.Logout)

	require.False(t, p.OnError(ctx, dataprovider.NewHTTPError(http.StatusForbidden, "no")).Logout)
}

func TestOptionalCapabilities(t *testing.T) {
	b, srv := newBackend(t)
	b.mu.Lock()
	b.allowed["users.manage"] = true
	b.mu.Unlock()
	p := New(srv.URL)
	s := login(t, p)
	ctx := context.Background()

	require.True(t, s.Capabilities().Has(auth.CapCan))
	require.True(t, s.Can(ctx, "users.manage", nil))
	require.False(t, s.Can(ctx, "billing.view", nil))

	res, err := s.Register(ctx, auth.Params{"username": "alice"})
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Equal(t, "username taken", res.Message)

	res, err = s.ForgotPassword(ctx, auth.Params{"username": "alice"})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, "reset instructions sent", res.Message)
}

func TestWatchStore_Revocation(t *testing.T) {
	b, srv := newBackend(t)
	p := New(srv.URL)
	s := login(t, p)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- WatchStore(ctx, p, s) }()

	b.revoke <- "password changed"
	require.NoError(t, <-done)
	require.Equal(t, auth.StateUnauthenticated, s.State())
	require.Empty(t, p.Token())
}

func TestWatch_ContextCancel(t *testing.T) {
	_, srv := newBackend(t)
	p := New(srv.URL)
	login(t, p)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Watch(ctx, nil) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatch_Unauthorized(t *testing.T) {
	_, srv := newBackend(t)
	p := New(srv.URL)
	p.SetToken("bogus")

	err := p.Watch(context.Background(), nil)
	require.True(t, IsUnauthorized(err))
}

func TestWebsocketURL(t *testing.T) {
	require.Equal(t, "ws://host:1", websocketURL("http://host:1"))
	require.Equal(t, "wss://host", websocketURL("https://host"))
	require.True(t, strings.HasPrefix(websocketURL("ws://x"), "ws://"))
}
