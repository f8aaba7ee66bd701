package auth

import (
	"context"
	"errors"
)

// Funcs builds a Provider from function fields. Nil optional fields are
// reported as absent capabilities. Login, Logout and OnError must be set.
type Funcs struct {
	LoginFunc          func(ctx context.Context, params Params, manage ManageContext) (LoginResult, error)
	LogoutFunc         func(ctx context.Context, params Params, manage ManageContext) (LogoutResult, error)
	OnErrorFunc        func(ctx context.Context, err error) ErrorResult
	RegisterFunc       func(ctx context.Context, params Params, manage ManageContext) (ActionResult, error)
	ForgotPasswordFunc func(ctx context.Context, params Params, manage ManageContext) (ActionResult, error)
	UpdatePasswordFunc func(ctx context.Context, params Params, manage ManageContext) (ActionResult, error)
	CheckFunc          func(ctx context.Context, params Params, manage ManageContext, session *Session) (CheckResult, error)
	CanFunc            func(ctx context.Context, permission string, params Params, manage ManageContext, session *Session) bool
}

var errNotImplemented = errors.New("auth: required function not set")

// Capabilities implements CapabilityReporter.
func (f *Funcs) Capabilities() CapabilitySet {
	return CapabilitySet{
		CapRegister:       f.RegisterFunc != nil,
		CapForgotPassword: f.ForgotPasswordFunc != nil,
		CapUpdatePassword: f.UpdatePasswordFunc != nil,
		CapCheck:          f.CheckFunc != nil,
		CapCan:            f.CanFunc != nil,
	}
}

func (f *Funcs) Login(ctx context.Context, params Params, manage ManageContext) (LoginResult, error) {
	if f.LoginFunc == nil {
		return LoginResult{}, errNotImplemented
	}
	return f.LoginFunc(ctx, params, manage)
}

func (f *Funcs) Logout(ctx context.Context, params Params, manage ManageContext) (LogoutResult, error) {
	if f.LogoutFunc == nil {
		return LogoutResult{ActionResult: ActionResult{Success: true}}, nil
	}
	return f.LogoutFunc(ctx, params, manage)
}

func (f *Funcs) OnError(ctx context.Context, err error) ErrorResult {
	if f.OnErrorFunc == nil {
		return ErrorResult{Err: err}
	}
	return f.OnErrorFunc(ctx, err)
}

func (f *Funcs) Register(ctx context.Context, params Params, manage ManageContext) (ActionResult, error) {
	if f.RegisterFunc == nil {
		return ActionResult{}, &CapabilityError{Capability: CapRegister}
	}
	return f.RegisterFunc(ctx, params, manage)
}

func (f *Funcs) ForgotPassword(ctx context.Context, params Params, manage ManageContext) (ActionResult, error) {
	if f.ForgotPasswordFunc == nil {
		return ActionResult{}, &CapabilityError{Capability: CapForgotPassword}
	}
	return f.ForgotPasswordFunc(ctx, params, manage)
}

func (f *Funcs) UpdatePassword(ctx context.Context, params Params, manage ManageContext) (ActionResult, error) {
	if f.UpdatePasswordFunc == nil {
		return ActionResult{}, &CapabilityError{Capability: CapUpdatePassword}
	}
	return f.UpdatePasswordFunc(ctx, params, manage)
}

func (f *Funcs) Check(ctx context.Context, params Params, manage ManageContext, session *Session) (CheckResult, error) {
	if f.CheckFunc == nil {
		return CheckResult{}, &CapabilityError{Capability: CapCheck}
	}
	return f.CheckFunc(ctx, params, manage, session)
}

func (f *Funcs) Can(ctx context.Context, permission string, params Params, manage ManageContext, session *Session) bool {
	if f.CanFunc == nil {
		return false
	}
	return f.CanFunc(ctx, permission, params, manage, session)
}
