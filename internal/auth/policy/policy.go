// Package policy decides auth.Store permission checks with CEL expressions.
//
// Each rule maps a permission name to a boolean expression over three
// variables:
//
//	session     map: user_id, name, roles, permissions, extra
//	params      map: the arguments passed to Can
//	permission  string: the permission being checked
//
// Example rules:
//
//	posts.delete: '"admin" in session.roles'
//	posts.edit:   'session.user_id == params.owner || "editor" in session.roles'
//	"*":          'permission.startsWith("read.")'
//
// The "*" rule applies to permissions without their own rule. Without a "*"
// rule the Checker falls back to its CanPolicy. Evaluation errors deny.
package policy

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/cel-go/cel"
	"go.uber.org/zap"

	"github.com/muurk/adminkit/internal/auth"
	"github.com/muurk/adminkit/internal/logging"
)

// DefaultRule is the rule key used for permissions without a rule of their own.
const DefaultRule = "*"

// Checker implements auth.PermissionChecker.
type Checker struct {
	programs map[string]cel.Program
	policy   auth.CanPolicy
	log      *zap.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithFallback sets the decision for permissions with no rule and no "*" rule.
func WithFallback(p auth.CanPolicy) Option {
	return func(c *Checker) { c.policy = p }
}

// WithLogger overrides the checker's logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Checker) { c.log = l }
}

// New compiles rules. Any rule that fails to compile or does not produce a
// bool is reported and no Checker is returned.
func New(rules map[string]string, opts ...Option) (*Checker, error) {
	env, err := cel.NewEnv(
		cel.Variable("session", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("params", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("permission", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	c := &Checker{
		programs: make(map[string]cel.Program, len(rules)),
		policy:   auth.PolicyAllow,
		log:      logging.Named("policy"),
	}
	for _, opt := range opts {
		opt(c)
	}

	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ast, issues := env.Compile(rules[name])
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("rule %q: compile: %w", name, issues.Err())
		}
		if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
			return nil, fmt.Errorf("rule %q: must evaluate to bool, got %s", name, out)
		}
		prg, err := env.Program(ast,
			cel.InterruptCheckFrequency(100),
			cel.CostLimit(10000),
		)
		if err != nil {
			return nil, fmt.Errorf("rule %q: program: %w", name, err)
		}
		c.programs[name] = prg
	}
	return c, nil
}

// Rules lists the compiled permission names.
func (c *Checker) Rules() []string {
	out := make([]string, 0, len(c.programs))
	for name := range c.programs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Can implements auth.PermissionChecker.
func (c *Checker) Can(ctx context.Context, permission string, params auth.Params, manage auth.ManageContext, session *auth.Session) bool {
	prg, ok := c.programs[permission]
	if !ok {
		prg, ok = c.programs[DefaultRule]
	}
	if !ok {
		return c.policy != auth.PolicyDeny
	}

	if params == nil {
		params = auth.Params{}
	}
	out, _, err := prg.ContextEval(ctx, map[string]any{
		"session":    session.Map(),
		"params":     map[string]any(params),
		"permission": permission,
	})
	if err != nil {
		c.log.Warn("Policy evaluation failed",
			zap.String("permission", permission),
			zap.Error(err),
		)
		return false
	}

	allowed, ok := out.Value().(bool)
	if !ok {
		c.log.Warn("Policy result not bool", zap.String("permission", permission))
		return false
	}
	c.log.Debug("Policy decision",
		zap.String("permission", permission),
		zap.Bool("allowed", allowed),
	)
	return allowed
}
