package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/adminkit/internal/i18n"
	"github.com/muurk/adminkit/internal/logging"
)

// State is the session state of a Store.
type State int

const (
	StateUnknown State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// CanPolicy decides Can when no permission checker is available.
type CanPolicy string

const (
	PolicyAllow CanPolicy = "allow"
	PolicyDeny  CanPolicy = "deny"
)

// ParseCanPolicy parses "allow" or "deny". Empty input is PolicyAllow.
func ParseCanPolicy(s string) (CanPolicy, error) {
	switch CanPolicy(s) {
	case "", PolicyAllow:
		return PolicyAllow, nil
	case PolicyDeny:
		return PolicyDeny, nil
	}
	return "", fmt.Errorf("invalid can policy %q (want allow or deny)", s)
}

// Transition describes one state change.
type Transition struct {
	From    State
	To      State
	Reason  string
	Session *Session
}

// Store owns the session and drives it through a Provider.
type Store struct {
	mu       sync.RWMutex
	provider Provider
	manage   ManageContext
	policy   CanPolicy
	fallback PermissionChecker
	tr       i18n.Translator
	log      *zap.Logger

	state   State
	session *Session

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(Transition)
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithCanPolicy sets the decision used when no permission checker exists.
func WithCanPolicy(p CanPolicy) StoreOption {
	return func(s *Store) { s.policy = p }
}

// WithPermissionChecker sets a checker consulted when the provider itself
// has no Can capability.
func WithPermissionChecker(pc PermissionChecker) StoreOption {
	return func(s *Store) { s.fallback = pc }
}

// WithTranslator sets the translator for fallback messages.
func WithTranslator(tr i18n.Translator) StoreOption {
	return func(s *Store) { s.tr = tr }
}

// WithManageContext sets the panel context passed to every provider call.
func WithManageContext(m ManageContext) StoreOption {
	return func(s *Store) { s.manage = m }
}

// WithStoreLogger overrides the store's logger.
func WithStoreLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.log = l }
}

// NewStore creates a Store in StateUnknown.
func NewStore(p Provider, opts ...StoreOption) *Store {
	s := &Store{
		provider: p,
		policy:   PolicyAllow,
		tr:       i18n.Default(),
		log:      logging.Named("auth"),
		subs:     make(map[int]func(Transition)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Provider returns the underlying provider.
func (s *Store) Provider() Provider { return s.provider }

// Capabilities reports what the provider supports.
func (s *Store) Capabilities() CapabilitySet { return Capabilities(s.provider) }

// State returns the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Session returns the current session, nil unless authenticated.
func (s *Store) Session() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Login authenticates with params. A failed login leaves the store
// Unauthenticated and is routed through OnError.
func (s *Store) Login(ctx context.Context, params Params) (LoginResult, error) {
	res, err := s.provider.Login(ctx, params, s.manage)
	if err != nil {
		s.teardown("login failed")
		er := s.route(ctx, err)
		res.Success = false
		res.Message = MessageOf(err, s.tr.T(i18n.KeyLoginFailed))
		if res.RedirectTo == "" {
			res.RedirectTo = er.RedirectTo
		}
		return res, fmt.Errorf("login: %w", err)
	}

	if !res.Success {
		res.fill(s.tr.T(i18n.KeyLoginFailed))
		s.teardown("login rejected")
		s.route(ctx, &ResultError{Op: "login", Result: res.ActionResult})
		return res, nil
	}

	s.set(StateAuthenticated, res.Session, "login")
	return res, nil
}

// Check revalidates the session. Without a Checker the state is left
// unchanged and ErrCapabilityAbsent is returned.
func (s *Store) Check(ctx context.Context, params Params) (CheckResult, error) {
	checker, ok := s.provider.(Checker)
	if !ok || !Has(s.provider, CapCheck) {
		return CheckResult{}, &CapabilityError{Capability: CapCheck}
	}

	res, err := checker.Check(ctx, params, s.manage, s.Session())
	if err != nil {
		s.teardown("check failed")
		s.route(ctx, err)
		res.Success = false
		res.Message = MessageOf(err, s.tr.T(i18n.KeyCheckFailed))
		return res, fmt.Errorf("check: %w", err)
	}

	switch {
	case res.Logout:
		if res.Message == "" {
			res.Message = s.tr.T(i18n.KeySessionEnded)
		}
		s.teardown("check forced logout")
	case !res.Success:
		res.fill(s.tr.T(i18n.KeyCheckFailed))
		s.teardown("check rejected")
	default:
		session := res.Session
		if session == nil {
			session = s.Session()
		}
		s.set(StateAuthenticated, session, "check")
	}
	return res, nil
}

// Logout ends the session. The store is Unauthenticated afterwards even if
// the provider fails.
func (s *Store) Logout(ctx context.Context, params Params) (LogoutResult, error) {
	res, err := s.provider.Logout(ctx, params, s.manage)
	s.teardown("logout")
	if err != nil {
		res.Success = false
		res.Message = MessageOf(err, s.tr.T(i18n.KeyLogoutFailed))
		return res, fmt.Errorf("logout: %w", err)
	}
	res.fill(s.tr.T(i18n.KeyLogoutFailed))
	return res, nil
}

// HandleError routes err through the provider's OnError. A Logout decision
// tears the session down.
func (s *Store) HandleError(ctx context.Context, err error) ErrorResult {
	if err == nil {
		return ErrorResult{}
	}
	return s.route(ctx, err)
}

func (s *Store) route(ctx context.Context, err error) ErrorResult {
	er := s.provider.OnError(ctx, err)
	if er.Err == nil {
		er.Err = err
	}
	s.log.Debug("Auth error routed",
		zap.Error(err),
		zap.Bool("logout", er.Logout),
		zap.String("redirect", er.RedirectTo),
	)
	if er.Logout {
		s.teardown("error forced logout")
	}
	return er
}

// Can reports whether the current session may perform permission. The
// provider's PermissionChecker wins, then the fallback checker, then the
// configured CanPolicy.
func (s *Store) Can(ctx context.Context, permission string, params Params) bool {
	session := s.Session()
	if pc, ok := s.provider.(PermissionChecker); ok && Has(s.provider, CapCan) {
		return pc.Can(ctx, permission, params, s.manage, session)
	}
	if s.fallback != nil {
		return s.fallback.Can(ctx, permission, params, s.manage, session)
	}
	return s.policy != PolicyDeny
}

// Register calls the provider's sign-up capability.
func (s *Store) Register(ctx context.Context, params Params) (ActionResult, error) {
	r, ok := s.provider.(Registerer)
	if !ok || !Has(s.provider, CapRegister) {
		return ActionResult{}, &CapabilityError{Capability: CapRegister}
	}
	return s.action(ctx, "register", func() (ActionResult, error) {
		return r.Register(ctx, params, s.manage)
	})
}

// ForgotPassword calls the provider's reset-request capability.
func (s *Store) ForgotPassword(ctx context.Context, params Params) (ActionResult, error) {
	f, ok := s.provider.(PasswordForgetter)
	if !ok || !Has(s.provider, CapForgotPassword) {
		return ActionResult{}, &CapabilityError{Capability: CapForgotPassword}
	}
	return s.action(ctx, "forgot password", func() (ActionResult, error) {
		return f.ForgotPassword(ctx, params, s.manage)
	})
}

// UpdatePassword calls the provider's password-change capability.
func (s *Store) UpdatePassword(ctx context.Context, params Params) (ActionResult, error) {
	u, ok := s.provider.(PasswordUpdater)
	if !ok || !Has(s.provider, CapUpdatePassword) {
		return ActionResult{}, &CapabilityError{Capability: CapUpdatePassword}
	}
	return s.action(ctx, "update password", func() (ActionResult, error) {
		return u.UpdatePassword(ctx, params, s.manage)
	})
}

func (s *Store) action(ctx context.Context, op string, call func() (ActionResult, error)) (ActionResult, error) {
	res, err := call()
	if err != nil {
		if errors.Is(err, ErrCapabilityAbsent) {
			return ActionResult{}, err
		}
		s.route(ctx, err)
		res.Success = false
		res.Message = MessageOf(err, s.tr.T(i18n.KeyActionFailed))
		return res, fmt.Errorf("%s: %w", op, err)
	}
	res.fill(s.tr.T(i18n.KeyActionFailed))
	return res, nil
}

// Subscribe registers fn for state transitions. fn runs synchronously on the
// goroutine that caused the transition, outside the store's lock.
func (s *Store) Subscribe(fn func(Transition)) func() {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) teardown(reason string) {
	s.set(StateUnauthenticated, nil, reason)
}

func (s *Store) set(to State, session *Session, reason string) {
	s.mu.Lock()
	from := s.state
	s.state = to
	s.session = session
	s.mu.Unlock()

	s.log.Info("Auth state changed",
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.String("reason", reason),
	)

	t := Transition{From: from, To: to, Reason: reason, Session: session}
	s.subMu.Lock()
	fns := make([]func(Transition), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(t)
	}
}
