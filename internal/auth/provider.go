package auth

import (
	"context"
	"errors"
	"sort"
	"time"
)

// Params is the free-form argument bag of a provider call (credentials,
// form values, permission arguments).
type Params map[string]any

// String returns the string value at key, or "".
func (p Params) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// ManageContext identifies the admin panel instance a call is made for.
type ManageContext struct {
	Name     string
	BasePath string
	Extra    map[string]any
}

// Session is the authenticated user's state, owned by the Store between a
// successful login/check and logout.
type Session struct {
	UserID      string
	Name        string
	Token       string
	Roles       []string
	Permissions []string
	ExpiresAt   time.Time
	Extra       map[string]any
}

// Expired reports whether the session has an expiry in the past.
func (s *Session) Expired(now time.Time) bool {
	return s != nil && !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// HasRole reports whether the session carries role.
func (s *Session) HasRole(role string) bool {
	if s == nil {
		return false
	}
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Map exposes the session to policy expressions.
func (s *Session) Map() map[string]any {
	if s == nil {
		return map[string]any{}
	}
	roles := make([]any, len(s.Roles))
	for i, r := range s.Roles {
		roles[i] = r
	}
	perms := make([]any, len(s.Permissions))
	for i, p := range s.Permissions {
		perms[i] = p
	}
	extra := make(map[string]any, len(s.Extra))
	for k, v := range s.Extra {
		extra[k] = v
	}
	return map[string]any{
		"user_id":     s.UserID,
		"name":        s.Name,
		"roles":       roles,
		"permissions": perms,
		"extra":       extra,
	}
}

// ErrMissingMessage is reported by Validate for a failed result without a message.
var ErrMissingMessage = errors.New("auth: failed result carries no message")

// ActionResult is the outcome of an auth action.
type ActionResult struct {
	Success    bool
	Message    string
	RedirectTo string
	Extra      map[string]any
}

// Validate enforces that failed results explain themselves.
func (r ActionResult) Validate() error {
	if !r.Success && r.Message == "" {
		return ErrMissingMessage
	}
	return nil
}

func (r *ActionResult) fill(fallback string) {
	if !r.Success && r.Message == "" {
		r.Message = fallback
	}
}

// LoginResult is returned by Provider.Login.
type LoginResult struct {
	ActionResult
	Session *Session
}

// CheckResult is returned by Checker.Check. Logout forces the session to end
// even when Success is true.
type CheckResult struct {
	ActionResult
	Session *Session
	Logout  bool
}

// LogoutResult is returned by Provider.Logout.
type LogoutResult struct {
	ActionResult
	Logout bool
}

// ErrorResult is the decision of Provider.OnError.
type ErrorResult struct {
	Logout     bool
	RedirectTo string
	Err        error
}

// Provider is the capability set every auth backend must supply.
type Provider interface {
	Login(ctx context.Context, params Params, manage ManageContext) (LoginResult, error)
	Logout(ctx context.Context, params Params, manage ManageContext) (LogoutResult, error)

	// OnError classifies an error raised anywhere in the toolkit and decides
	// whether it forces a logout and/or a redirect.
	OnError(ctx context.Context, err error) ErrorResult
}

// Registerer is the optional sign-up capability.
type Registerer interface {
	Register(ctx context.Context, params Params, manage ManageContext) (ActionResult, error)
}

// PasswordForgetter is the optional password-reset-request capability.
type PasswordForgetter interface {
	ForgotPassword(ctx context.Context, params Params, manage ManageContext) (ActionResult, error)
}

// PasswordUpdater is the optional password-change capability.
type PasswordUpdater interface {
	UpdatePassword(ctx context.Context, params Params, manage ManageContext) (ActionResult, error)
}

// Checker is the optional session validity probe.
type Checker interface {
	Check(ctx context.Context, params Params, manage ManageContext, session *Session) (CheckResult, error)
}

// PermissionChecker is the optional authorization decision.
type PermissionChecker interface {
	Can(ctx context.Context, permission string, params Params, manage ManageContext, session *Session) bool
}

// Capability names one provider operation.
type Capability string

const (
	CapLogin          Capability = "login"
	CapLogout         Capability = "logout"
	CapOnError        Capability = "onError"
	CapRegister       Capability = "register"
	CapForgotPassword Capability = "forgotPassword"
	CapUpdatePassword Capability = "updatePassword"
	CapCheck          Capability = "check"
	CapCan            Capability = "can"
)

// CapabilitySet is the set of operations a provider supports.
type CapabilitySet map[Capability]bool

// Has reports whether c is in the set.
func (s CapabilitySet) Has(c Capability) bool { return s[c] }

// List returns the capabilities sorted by name.
func (s CapabilitySet) List() []Capability {
	out := make([]Capability, 0, len(s))
	for c, ok := range s {
		if ok {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CapabilityReporter lets a provider declare its capabilities explicitly,
// for adapters that satisfy optional interfaces statically but may not
// support them at runtime.
type CapabilityReporter interface {
	Capabilities() CapabilitySet
}

// Capabilities queries what p supports.
func Capabilities(p Provider) CapabilitySet {
	if r, ok := p.(CapabilityReporter); ok {
		reported := r.Capabilities()
		set := make(CapabilitySet, len(reported)+3)
		for c, ok := range reported {
			set[c] = ok
		}
		set[CapLogin], set[CapLogout], set[CapOnError] = true, true, true
		return set
	}

	set := CapabilitySet{CapLogin: true, CapLogout: true, CapOnError: true}
	if _, ok := p.(Registerer); ok {
		set[CapRegister] = true
	}
	if _, ok := p.(PasswordForgetter); ok {
		set[CapForgotPassword] = true
	}
	if _, ok := p.(PasswordUpdater); ok {
		set[CapUpdatePassword] = true
	}
	if _, ok := p.(Checker); ok {
		set[CapCheck] = true
	}
	if _, ok := p.(PermissionChecker); ok {
		set[CapCan] = true
	}
	return set
}

// Has reports whether p supports c.
func Has(p Provider, c Capability) bool {
	return Capabilities(p).Has(c)
}
