package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/muurk/adminkit/internal/auth"
	"github.com/muurk/adminkit/internal/auth/httpauth"
	"github.com/muurk/adminkit/internal/dataprovider"
)

func newTestServer(t *testing.T, mutate func(*Config)) (*Server, *httptest.Server) {
	t.Helper()
	cfg := &Config{
		Secret:     "test-secret",
		BcryptCost: bcrypt.MinCost,
		Users: []UserSpec{
			{Username: "admin", Password: "admin", Name: "Administrator", Roles: []string{"admin"}},
			{Username: "bob", Password: "hunter2", Permissions: []string{"posts.read"}},
		},
	}
	if mutate != nil {
		mutate(cfg)
	}
	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.hub.Close()
		ts.Close()
	})
	return srv, ts
}

func doJSON(t *testing.T, method, url, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func login(t *testing.T, base, username, password string) string {
	t.Helper()
	status, body := doJSON(t, http.MethodPost, base+"/auth/login", "", map[string]any{
		"username": username, "password": password,
	})
	if status != http.StatusOK {
		t.Fatalf("login status = %d, body = %v", status, body)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatal("login returned no token")
	}
	return token
}

func TestNew_Defaults(t *testing.T) {
	srv, err := New(&Config{BcryptCost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if srv.Users().Len() != 1 {
		t.Errorf("default users = %d, want 1", srv.Users().Len())
	}
	if len(srv.Key()) != 32 {
		t.Errorf("generated key length = %d, want 32", len(srv.Key()))
	}
	if _, err := srv.Users().Authenticate("admin", "admin"); err != nil {
		t.Errorf("default admin login failed: %v", err)
	}
}

func TestNew_BadPolicy(t *testing.T) {
	_, err := New(&Config{BcryptCost: bcrypt.MinCost, Policies: map[string]string{"x": "session +"}})
	if err == nil {
		t.Fatal("expected policy compile error")
	}
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t, nil)
	for _, path := range []string{"/healthz", "/api/healthz"} {
		status, body := doJSON(t, http.MethodGet, ts.URL+path, "", nil)
		if status != http.StatusOK || body["status"] != "ok" {
			t.Errorf("%s = %d %v", path, status, body)
		}
	}
}

func TestLogin(t *testing.T) {
	srv, ts := newTestServer(t, nil)

	tests := []struct {
		name       string
		body       any
		wantStatus int
	}{
		{"valid", map[string]any{"username": "admin", "password": "admin"}, http.StatusOK},
		{"case-insensitive username", map[string]any{"username": "Admin", "password": "admin"}, http.StatusOK},
		{"wrong password", map[string]any{"username": "admin", "password": "nope"}, http.StatusUnauthorized},
		{"unknown user", map[string]any{"username": "eve", "password": "x"}, http.StatusUnauthorized},
		{"no body", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := doJSON(t, http.MethodPost, ts.URL+"/auth/login", "", tt.body)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
		})
	}
	if srv.ActiveSessions() != 2 {
		t.Errorf("ActiveSessions() = %d, want 2", srv.ActiveSessions())
	}
}

func TestRequireSession(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	token := login(t, ts.URL, "admin", "admin")

	status, body := doJSON(t, http.MethodGet, ts.URL+"/auth/check", "", nil)
	if status != http.StatusUnauthorized || body["message"] != "missing bearer token" {
		t.Errorf("no token: %d %v", status, body)
	}

	status, body = doJSON(t, http.MethodGet, ts.URL+"/auth/check", "garbage", nil)
	if status != http.StatusUnauthorized || body["message"] != "invalid session token" {
		t.Errorf("garbage token: %d %v", status, body)
	}

	status, _ = doJSON(t, http.MethodGet, ts.URL+"/auth/check", token, nil)
	if status != http.StatusOK {
		t.Errorf("valid token: %d", status)
	}

	srv.Revoke("admin", "test")
	status, body = doJSON(t, http.MethodGet, ts.URL+"/auth/check", token, nil)
	if status != http.StatusUnauthorized || body["message"] != "session revoked" {
		t.Errorf("revoked token: %d %v", status, body)
	}
}

func TestCheck_RotatesNearExpiry(t *testing.T) {
	_, ts := newTestServer(t, func(c *Config) { c.TokenTTL = 4 * time.Second })
	token := login(t, ts.URL, "admin", "admin")

	_, body := doJSON(t, http.MethodGet, ts.URL+"/auth/check", token, nil)
	if _, ok := body["token"]; ok {
		t.Fatal("fresh token should not rotate")
	}

	time.Sleep(2100 * time.Millisecond)
	status, body := doJSON(t, http.MethodGet, ts.URL+"/auth/check", token, nil)
	if status != http.StatusOK {
		t.Fatalf("check status = %d", status)
	}
	rotated, _ := body["token"].(string)
	if rotated == "" || rotated == token {
		t.Errorf("expected a rotated token, got %v", body)
	}
}

func TestLogout(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	token := login(t, ts.URL, "admin", "admin")

	status, _ := doJSON(t, http.MethodPost, ts.URL+"/auth/logout", token, nil)
	if status != http.StatusNoContent {
		t.Errorf("logout status = %d", status)
	}
	if srv.ActiveSessions() != 0 {
		t.Errorf("ActiveSessions() = %d, want 0", srv.ActiveSessions())
	}
}

func TestRegister(t *testing.T) {
	_, ts := newTestServer(t, nil)

	status, body := doJSON(t, http.MethodPost, ts.URL+"/auth/register", "", map[string]any{
		"username": "carol", "password": "pw",
	})
	if status != http.StatusCreated {
		t.Fatalf("register = %d %v", status, body)
	}
	login(t, ts.URL, "carol", "pw")

	status, body = doJSON(t, http.MethodPost, ts.URL+"/auth/register", "", map[string]any{
		"username": "carol", "password": "pw",
	})
	if status != http.StatusConflict || body["message"] != "username taken" {
		t.Errorf("duplicate register = %d %v", status, body)
	}

	status, _ = doJSON(t, http.MethodPost, ts.URL+"/auth/register", "", map[string]any{"username": "dave"})
	if status != http.StatusBadRequest {
		t.Errorf("missing password = %d", status)
	}
}

func TestForgotPassword(t *testing.T) {
	_, ts := newTestServer(t, nil)
	for _, who := range []string{"admin", "nobody"} {
		status, body := doJSON(t, http.MethodPost, ts.URL+"/auth/forgot-password", "", map[string]any{"username": who})
		if status != http.StatusAccepted || body["message"] != "reset instructions sent" {
			t.Errorf("forgot(%s) = %d %v", who, status, body)
		}
	}
	status, _ := doJSON(t, http.MethodPost, ts.URL+"/auth/forgot-password", "", map[string]any{})
	if status != http.StatusBadRequest {
		t.Errorf("empty forgot = %d", status)
	}
}

func TestUpdatePassword_RevokesOtherSessions(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	first := login(t, ts.URL, "bob", "hunter2")
	second := login(t, ts.URL, "bob", "hunter2")

	status, body := doJSON(t, http.MethodPost, ts.URL+"/auth/update-password", second, map[string]any{
		"password": "new", "current_password": "wrong",
	})
	if status != http.StatusForbidden {
		t.Errorf("wrong current password = %d %v", status, body)
	}

	status, body = doJSON(t, http.MethodPost, ts.URL+"/auth/update-password", second, map[string]any{
		"password": "new", "current_password": "hunter2",
	})
	if status != http.StatusOK {
		t.Fatalf("update = %d %v", status, body)
	}
	if status, _ := doJSON(t, http.MethodGet, ts.URL+"/auth/check", first, nil); status != http.StatusUnauthorized {
		t.Errorf("other session still valid: %d", status)
	}
	if status, _ := doJSON(t, http.MethodGet, ts.URL+"/auth/check", second, nil); status != http.StatusOK {
		t.Errorf("current session revoked: %d", status)
	}
	if srv.ActiveSessions() != 1 {
		t.Errorf("ActiveSessions() = %d, want 1", srv.ActiveSessions())
	}
	login(t, ts.URL, "bob", "new")
}

func TestCan(t *testing.T) {
	_, ts := newTestServer(t, func(c *Config) {
		c.Policies = map[string]string{
			"posts.edit": `session.user_id != "" && params.owner == session.name`,
			"*":          `"admin" in session.roles`,
		}
	})
	admin := login(t, ts.URL, "admin", "admin")
	bob := login(t, ts.URL, "bob", "hunter2")

	tests := []struct {
		name       string
		token      string
		permission string
		params     map[string]any
		want       bool
	}{
		{"admin via default rule", admin, "users.delete", nil, true},
		{"token permission", bob, "posts.read", nil, true},
		{"denied", bob, "users.delete", nil, false},
		{"rule with params", bob, "posts.edit", map[string]any{"owner": "bob"}, true},
		{"rule with other owner", bob, "posts.edit", map[string]any{"owner": "x"}, false},
		{"anonymous", "", "users.delete", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doJSON(t, http.MethodPost, ts.URL+"/auth/can", tt.token, map[string]any{
				"permission": tt.permission, "params": tt.params,
			})
			if status != http.StatusOK {
				t.Fatalf("status = %d", status)
			}
			if body["allowed"] != tt.want {
				t.Errorf("allowed = %v, want %v", body["allowed"], tt.want)
			}
		})
	}
}

func TestRevokeUser(t *testing.T) {
	_, ts := newTestServer(t, nil)
	admin := login(t, ts.URL, "admin", "admin")
	bob := login(t, ts.URL, "bob", "hunter2")

	status, _ := doJSON(t, http.MethodDelete, ts.URL+"/auth/sessions/admin", bob, nil)
	if status != http.StatusForbidden {
		t.Errorf("non-admin revoke = %d", status)
	}
	status, _ = doJSON(t, http.MethodDelete, ts.URL+"/auth/sessions/nobody", admin, nil)
	if status != http.StatusNotFound {
		t.Errorf("unknown user revoke = %d", status)
	}
	status, body := doJSON(t, http.MethodDelete, ts.URL+"/auth/sessions/bob", admin, nil)
	if status != http.StatusOK || body["revoked"] != float64(1) {
		t.Errorf("revoke = %d %v", status, body)
	}
	if status, _ := doJSON(t, http.MethodGet, ts.URL+"/auth/check", bob, nil); status != http.StatusUnauthorized {
		t.Errorf("revoked session still valid: %d", status)
	}
}

func TestResources(t *testing.T) {
	_, ts := newTestServer(t, nil)
	token := login(t, ts.URL, "admin", "admin")

	status, _ := doJSON(t, http.MethodPost, ts.URL+"/api/posts", "", map[string]any{"name": "a"})
	if status != http.StatusUnauthorized {
		t.Errorf("anonymous create = %d", status)
	}

	status, body := doJSON(t, http.MethodPost, ts.URL+"/api/posts", token, map[string]any{"name": "a", "id": "forged"})
	if status != http.StatusCreated {
		t.Fatalf("create = %d %v", status, body)
	}
	created := body["data"].(map[string]any)
	id := created["id"].(string)
	if id == "forged" || id == "" {
		t.Errorf("id = %q, want a server id", id)
	}

	status, body = doJSON(t, http.MethodPost, ts.URL+"/api/posts", token, map[string]any{"name": "a"})
	if status != http.StatusConflict || body["message"] != "duplicate" {
		t.Errorf("duplicate create = %d %v", status, body)
	}

	status, body = doJSON(t, http.MethodPut, ts.URL+"/api/posts/"+id, token, map[string]any{"name": "b"})
	if status != http.StatusOK || body["data"].(map[string]any)["name"] != "b" {
		t.Errorf("update = %d %v", status, body)
	}

	status, body = doJSON(t, http.MethodGet, ts.URL+"/api/posts/"+id, token, nil)
	if status != http.StatusOK || body["data"].(map[string]any)["created_at"] != created["created_at"] {
		t.Errorf("get = %d %v", status, body)
	}

	status, _ = doJSON(t, http.MethodGet, ts.URL+"/api/posts/missing", token, nil)
	if status != http.StatusNotFound {
		t.Errorf("missing get = %d", status)
	}
	status, _ = doJSON(t, http.MethodPut, ts.URL+"/api/posts/missing", token, map[string]any{"name": "z"})
	if status != http.StatusNotFound {
		t.Errorf("missing update = %d", status)
	}

	status, body = doJSON(t, http.MethodGet, ts.URL+"/api/posts", token, nil)
	if status != http.StatusOK || body["total"] != float64(1) {
		t.Errorf("list = %d %v", status, body)
	}
}

func TestEndToEnd_ProviderStoreAndDataProvider(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	ctx := context.Background()

	p := httpauth.New(ts.URL, httpauth.WithVerifyKey(srv.Key()))
	store := auth.NewStore(p)

	if _, err := store.Login(ctx, auth.Params{"username": "admin", "password": "admin"}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if store.State() != auth.StateAuthenticated || store.Session().Name != "Administrator" {
		t.Fatalf("state = %v session = %+v", store.State(), store.Session())
	}
	if !store.Can(ctx, "anything", nil) {
		t.Error("admin should be allowed by the default policy")
	}

	client := dataprovider.NewClient(ts.URL + "/api")
	client.TokenSource = p.Token
	client.SetRetry(0, 0)

	resp, err := client.Create(ctx, "/posts", dataprovider.Record{"name": "hello"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("StatusCode = %d, want 201", resp.StatusCode)
	}
	id := resp.Data.ID()

	resp, err = client.Update(ctx, "/posts", id, dataprovider.Record{"name": "hello again"})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if resp.Data["name"] != "hello again" {
		t.Errorf("updated name = %v", resp.Data["name"])
	}

	_, err = client.Create(ctx, "/posts", dataprovider.Record{"name": "hello again"})
	if !dataprovider.IsValidationError(err) {
		t.Errorf("duplicate create error = %v, want validation error", err)
	}

	srv.Revoke("admin", "test")
	_, err = client.GetOne(ctx, "/posts", "fresh-id")
	if !dataprovider.IsAuthError(err) {
		t.Fatalf("GetOne() after revoke error = %v, want auth error", err)
	}
	res := store.HandleError(ctx, err)
	if !res.Logout || store.State() != auth.StateUnauthenticated {
		t.Errorf("HandleError() = %+v, state = %v", res, store.State())
	}
}

func TestEndToEnd_WatchRevocation(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p := httpauth.New(ts.URL)
	store := auth.NewStore(p)
	if _, err := store.Login(ctx, auth.Params{"username": "bob", "password": "hunter2"}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- httpauth.WatchStore(ctx, p, store) }()

	deadline := time.Now().Add(3 * time.Second)
	for srv.Watchers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("watcher never connected")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if n := srv.Revoke("bob", "revoked by administrator"); n != 1 {
		t.Errorf("Revoke() = %d, want 1", n)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("WatchStore() error = %v", err)
		}
	case <-ctx.Done():
		t.Fatal("WatchStore did not return after revocation")
	}
	if store.State() != auth.StateUnauthenticated {
		t.Errorf("state = %v, want unauthenticated", store.State())
	}
	if p.Token() != "" {
		t.Error("token should be cleared")
	}
}

func TestWatch_RequiresSession(t *testing.T) {
	_, ts := newTestServer(t, nil)
	p := httpauth.New(ts.URL)
	p.SetToken("not-a-token")

	err := p.Watch(context.Background(), nil)
	if !errors.Is(err, httpauth.ErrRevoked) {
		t.Errorf("Watch() error = %v, want ErrRevoked", err)
	}
}

func TestServeAndShutdown(t *testing.T) {
	srv, err := New(&Config{Host: "127.0.0.1", Port: 0, BcryptCost: bcrypt.MinCost})
	if err != nil {
		t.Fatal(err)
	}
	l, err := srv.Listen()
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	errChan := make(chan error, 1)
	go func() { errChan <- srv.Serve(l) }()

	url := "http://" + l.Addr().String() + "/healthz"
	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get(url)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	if err := <-errChan; err != nil {
		t.Errorf("Serve() error = %v", err)
	}
}
