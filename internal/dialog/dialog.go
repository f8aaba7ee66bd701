package dialog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/muurk/adminkit/internal/overlay"
)

// Components maps each variant to the component ref mounted for it.
type Components struct {
	mu   sync.RWMutex
	refs map[Type]*overlay.ComponentRef
}

// NewComponents returns a table with placeholder refs. Rendering hosts
// replace them with Register.
func NewComponents() *Components {
	c := &Components{refs: make(map[Type]*overlay.ComponentRef, len(Types))}
	for _, t := range Types {
		name := "dialog." + string(t)
		c.refs[t] = overlay.Lazy(name, func() (any, error) {
			return nil, fmt.Errorf("no renderer registered for %s", name)
		})
	}
	return c
}

// Register sets the component for a variant.
func (c *Components) Register(t Type, ref *overlay.ComponentRef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refs[t] = ref
}

// Ref returns the component for a variant.
func (c *Components) Ref(t Type) *overlay.ComponentRef {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refs[t]
}

// Dialogs is the typed façade over an overlay manager. It keeps no state of
// its own beyond the component table.
type Dialogs struct {
	manager    *overlay.Manager
	components *Components
}

// New creates a façade over m. A nil table uses NewComponents.
func New(m *overlay.Manager, components *Components) *Dialogs {
	if components == nil {
		components = NewComponents()
	}
	return &Dialogs{manager: m, components: components}
}

type componentsKey struct{}

// WithComponents stores a component table in ctx for FromContext.
func WithComponents(ctx context.Context, c *Components) context.Context {
	return context.WithValue(ctx, componentsKey{}, c)
}

// FromContext builds a façade over the manager and component table in ctx.
// It returns nil when ctx carries no manager.
func FromContext(ctx context.Context) *Dialogs {
	m := overlay.FromContext(ctx)
	if m == nil {
		return nil
	}
	c, _ := ctx.Value(componentsKey{}).(*Components)
	return New(m, c)
}

// Manager returns the underlying registry.
func (d *Dialogs) Manager() *overlay.Manager { return d.manager }

// Components returns the component table.
func (d *Dialogs) Components() *Components { return d.components }

// Show mounts req as-is. Prefer the typed entry points.
func (d *Dialogs) Show(req Request) *overlay.Future {
	req = req.clone()
	if req.Type == "" {
		req.Type = TypeConfirm
	}
	return d.manager.Show(overlay.Spec{
		Component: d.components.Ref(req.Type),
		Props:     req.props(),
	})
}

func (d *Dialogs) show(t Type, req Request) *overlay.Future {
	req.Type = t
	return d.Show(req)
}

// Confirm resolves with nil when confirmed and is cancelled otherwise.
func (d *Dialogs) Confirm(req Request) *overlay.Future { return d.show(TypeConfirm, req) }

// Success shows an acknowledgement and resolves with nil.
func (d *Dialogs) Success(req Request) *overlay.Future { return d.show(TypeSuccess, req) }

// Error shows an error and resolves with nil once acknowledged.
func (d *Dialogs) Error(req Request) *overlay.Future { return d.show(TypeError, req) }

// Prompt resolves with the entered string, or with a map[string]any when
// req.FormSchema is set.
func (d *Dialogs) Prompt(req Request) *overlay.Future { return d.show(TypePrompt, req) }

// Node shows the output of req.Render and resolves with whatever the host
// accepts it with.
func (d *Dialogs) Node(req Request) *overlay.Future { return d.show(TypeNode, req) }

// Accept settles a dialog surface with user input, as hosts do on submit.
// Prompt input is a string, or a map[string]string for schema prompts; a
// *ValidationError leaves the surface mounted.
func Accept(m *overlay.Manager, s *overlay.Surface, input any) error {
	req, ok := RequestOf(s)
	if !ok {
		return fmt.Errorf("surface %s is not a dialog", s.ID)
	}

	var value any
	switch req.Type {
	case TypeConfirm, TypeSuccess, TypeError:
		value = nil
	case TypePrompt:
		v, err := promptValue(req, input)
		if err != nil {
			return err
		}
		value = v
	default:
		value = input
	}

	m.Resolve(s.ID, value)
	return nil
}

// Dismiss cancels a dialog surface. Acknowledge-only dialogs resolve instead,
// since closing them is their completion.
func Dismiss(m *overlay.Manager, s *overlay.Surface) {
	if req, ok := RequestOf(s); ok && !req.Cancellable() {
		m.Resolve(s.ID, nil)
		return
	}
	m.Cancel(s.ID)
}

func promptValue(req Request, input any) (any, error) {
	if req.FormSchema == nil {
		switch v := input.(type) {
		case string:
			return v, nil
		case nil:
			return "", nil
		default:
			return nil, &ValidationError{Err: fmt.Errorf("expected text input, got %T", input)}
		}
	}

	raw, ok := input.(map[string]string)
	if !ok {
		return nil, &ValidationError{Err: errors.New("expected form input")}
	}
	values, err := req.FormSchema.Coerce(raw)
	if err != nil {
		return nil, &ValidationError{Err: err}
	}
	if err := req.FormSchema.Validate(values); err != nil {
		return nil, &ValidationError{Err: err}
	}
	return values, nil
}
