package httpauth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/muurk/adminkit/internal/auth"
	"github.com/muurk/adminkit/internal/dataprovider"
	"github.com/muurk/adminkit/internal/logging"
	"github.com/muurk/adminkit/internal/version"
)

// Auth endpoint paths, relative to the backend URL.
const (
	PathLogin          = "/auth/login"
	PathLogout         = "/auth/logout"
	PathCheck          = "/auth/check"
	PathRegister       = "/auth/register"
	PathForgotPassword = "/auth/forgot-password"
	PathUpdatePassword = "/auth/update-password"
	PathCan            = "/auth/can"
	PathSessionWatch   = "/ws/session"
)

// LoginRedirect is where OnError sends the user after a forced logout.
const LoginRedirect = "/login"

// DefaultLoginsPerMinute bounds login attempts when no rate is configured.
const DefaultLoginsPerMinute = 5

// Provider implements auth.Provider and every optional capability against
// an adminkit HTTP backend.
type Provider struct {
	baseURL    string
	httpClient *http.Client
	verifyKey  []byte
	limiter    *rate.Limiter
	log        *zap.Logger

	mu    sync.RWMutex
	token string
}

// Option configures a Provider.
type Option func(*Provider)

// WithHTTPClient sets the HTTP client used for every call.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// WithVerifyKey makes the provider verify token signatures with key.
func WithVerifyKey(key []byte) Option {
	return func(p *Provider) { p.verifyKey = key }
}

// WithLoginRate allows perMinute login attempts, with a burst of the same
// size. Zero or less disables throttling.
func WithLoginRate(perMinute int) Option {
	return func(p *Provider) {
		if perMinute <= 0 {
			p.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		p.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	}
}

// WithLogger overrides the provider's logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Provider) { p.log = l }
}

// New returns a Provider for the backend at baseURL.
func New(baseURL string, opts ...Option) *Provider {
	p := &Provider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: dataprovider.DefaultTimeout},
		log:        logging.Named("httpauth"),
	}
	WithLoginRate(DefaultLoginsPerMinute)(p)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// BaseURL returns the backend URL.
func (p *Provider) BaseURL() string { return p.baseURL }

// Token returns the current session token, "" when logged out. It is meant
// to be used as a dataprovider.Client TokenSource.
func (p *Provider) Token() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.token
}

// SetToken restores a persisted session token.
func (p *Provider) SetToken(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = token
}

type tokenBody struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

// Login implements auth.Provider.
func (p *Provider) Login(ctx context.Context, params auth.Params, manage auth.ManageContext) (auth.LoginResult, error) {
	if !p.limiter.Allow() {
		p.log.Warn("Login throttled", zap.String("username", params.String("username")))
		return auth.LoginResult{}, &Error{Op: "login", Message: "too many login attempts, try again later", Err: ErrThrottled}
	}

	var body tokenBody
	status, err := p.call(ctx, http.MethodPost, PathLogin, "", map[string]any{
		"username": params.String("username"),
		"password": params.String("password"),
	}, &body)
	if err != nil {
		return auth.LoginResult{}, err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return auth.LoginResult{ActionResult: auth.ActionResult{Success: false, Message: body.Message}}, nil
	}
	if status != http.StatusOK {
		return auth.LoginResult{}, &Error{Op: "login", StatusCode: status, Message: body.Message}
	}

	session, err := SessionFromToken(body.Token, p.verifyKey)
	if err != nil {
		return auth.LoginResult{}, &Error{Op: "login", Message: "backend returned an unusable token", Err: err}
	}
	p.SetToken(body.Token)
	return auth.LoginResult{
		ActionResult: auth.ActionResult{Success: true, RedirectTo: "/"},
		Session:      session,
	}, nil
}

// Logout implements auth.Provider. The local token is dropped even when the
// backend cannot be reached.
func (p *Provider) Logout(ctx context.Context, params auth.Params, manage auth.ManageContext) (auth.LogoutResult, error) {
	token := p.Token()
	p.SetToken("")
	if token == "" {
		return auth.LogoutResult{ActionResult: auth.ActionResult{Success: true}, Logout: true}, nil
	}

	var body tokenBody
	status, err := p.call(ctx, http.MethodPost, PathLogout, token, nil, &body)
	if err != nil {
		return auth.LogoutResult{Logout: true}, err
	}
	if status >= 300 && status != http.StatusUnauthorized {
		return auth.LogoutResult{Logout: true}, &Error{Op: "logout", StatusCode: status, Message: body.Message}
	}
	return auth.LogoutResult{ActionResult: auth.ActionResult{Success: true, RedirectTo: LoginRedirect}, Logout: true}, nil
}

// OnError implements auth.Provider. Unauthorized responses, from auth
// endpoints or from data calls, and remote revocations force a logout.
func (p *Provider) OnError(ctx context.Context, err error) auth.ErrorResult {
	if IsUnauthorized(err) || dataprovider.IsAuthError(err) {
		p.SetToken("")
		return auth.ErrorResult{Logout: true, RedirectTo: LoginRedirect, Err: err}
	}
	return auth.ErrorResult{Err: err}
}

// Check implements auth.Checker.
func (p *Provider) Check(ctx context.Context, params auth.Params, manage auth.ManageContext, session *auth.Session) (auth.CheckResult, error) {
	token := p.Token()
	if token == "" && session != nil {
		token = session.Token
	}
	if token == "" {
		return auth.CheckResult{Logout: true, ActionResult: auth.ActionResult{Message: "not logged in"}}, nil
	}

	var body tokenBody
	status, err := p.call(ctx, http.MethodGet, PathCheck, token, nil, &body)
	if err != nil {
		return auth.CheckResult{}, err
	}
	if status == http.StatusUnauthorized {
		p.SetToken("")
		return auth.CheckResult{Logout: true, ActionResult: auth.ActionResult{Message: body.Message, RedirectTo: LoginRedirect}}, nil
	}
	if status != http.StatusOK {
		return auth.CheckResult{}, &Error{Op: "check", StatusCode: status, Message: body.Message}
	}

	if body.Token != "" {
		token = body.Token
	}
	s, err := SessionFromToken(token, p.verifyKey)
	if err != nil {
		p.SetToken("")
		return auth.CheckResult{Logout: true, ActionResult: auth.ActionResult{Message: "session token is no longer valid"}}, nil
	}
	p.SetToken(token)
	return auth.CheckResult{ActionResult: auth.ActionResult{Success: true}, Session: s}, nil
}

// Register implements auth.Registerer.
func (p *Provider) Register(ctx context.Context, params auth.Params, manage auth.ManageContext) (auth.ActionResult, error) {
	return p.action(ctx, "register", PathRegister, "", map[string]any(params))
}

// ForgotPassword implements auth.PasswordForgetter.
func (p *Provider) ForgotPassword(ctx context.Context, params auth.Params, manage auth.ManageContext) (auth.ActionResult, error) {
	return p.action(ctx, "forgot password", PathForgotPassword, "", map[string]any(params))
}

// UpdatePassword implements auth.PasswordUpdater.
func (p *Provider) UpdatePassword(ctx context.Context, params auth.Params, manage auth.ManageContext) (auth.ActionResult, error) {
	return p.action(ctx, "update password", PathUpdatePassword, p.Token(), map[string]any(params))
}

func (p *Provider) action(ctx context.Context, op, path, token string, payload map[string]any) (auth.ActionResult, error) {
	var body tokenBody
	status, err := p.call(ctx, http.MethodPost, path, token, payload, &body)
	if err != nil {
		return auth.ActionResult{}, err
	}
	if status == http.StatusUnauthorized {
		return auth.ActionResult{}, &Error{Op: op, StatusCode: status, Message: body.Message}
	}
	if status >= 300 {
		return auth.ActionResult{Success: false, Message: body.Message}, nil
	}
	return auth.ActionResult{Success: true, Message: body.Message}, nil
}

// Can implements auth.PermissionChecker. Any failure denies.
func (p *Provider) Can(ctx context.Context, permission string, params auth.Params, manage auth.ManageContext, session *auth.Session) bool {
	token := p.Token()
	if token == "" && session != nil {
		token = session.Token
	}
	var body struct {
		Allowed bool `json:"allowed"`
	}
	status, err := p.call(ctx, http.MethodPost, PathCan, token, map[string]any{
		"permission": permission,
		"params":     map[string]any(params),
	}, &body)
	if err != nil || status != http.StatusOK {
		p.log.Debug("Permission check denied",
			zap.String("permission", permission),
			zap.Int("status", status),
			zap.Error(err),
		)
		return false
	}
	return body.Allowed
}

// call performs one JSON request and decodes the response into out. A
// non-2xx status is returned, not turned into an error; transport and
// decoding failures are.
func (p *Provider) call(ctx context.Context, method, path, token string, payload any, out any) (int, error) {
	op := strings.TrimPrefix(path, "/")

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, &Error{Op: op, Message: "failed to encode request", Err: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return 0, &Error{Op: op, Message: "failed to create request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		classified := dataprovider.ClassifyNetworkError(err, path)
		return 0, &Error{Op: op, Message: classified.Message, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, &Error{Op: op, Message: "failed to read response", Err: err}
	}
	if len(bytes.TrimSpace(data)) > 0 && out != nil {
		if err := json.Unmarshal(data, out); err != nil && resp.StatusCode < 300 {
			return resp.StatusCode, &Error{Op: op, Message: "failed to parse response", Err: err}
		}
	}
	p.log.Debug("Auth call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)
	return resp.StatusCode, nil
}

var _ interface {
	auth.Provider
	auth.Registerer
	auth.PasswordForgetter
	auth.PasswordUpdater
	auth.Checker
	auth.PermissionChecker
} = (*Provider)(nil)
