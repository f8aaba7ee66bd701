package overlay

import (
	"fmt"
	"sync"
)

// ComponentRef names a UI unit and loads it on first use. The loaded value is
// opaque to the manager; hosts type-assert it to whatever their rendering
// framework mounts.
type ComponentRef struct {
	Name string

	load func() (any, error)
	once sync.Once
	comp any
	err  error
}

// Component returns a ref to an already constructed component.
func Component(name string, c any) *ComponentRef {
	return &ComponentRef{Name: name, load: func() (any, error) { return c, nil }}
}

// Lazy returns a ref whose loader runs at most once, on the first Resolve.
func Lazy(name string, load func() (any, error)) *ComponentRef {
	return &ComponentRef{Name: name, load: load}
}

// Resolve loads the component, caching the result and any error.
func (r *ComponentRef) Resolve() (any, error) {
	r.once.Do(func() {
		if r.load == nil {
			r.err = fmt.Errorf("component %q has no loader", r.Name)
			return
		}
		r.comp, r.err = r.load()
		if r.err != nil {
			r.err = fmt.Errorf("failed to load component %q: %w", r.Name, r.err)
		}
	})
	return r.comp, r.err
}

// Props is the bag of values a surface is mounted with.
type Props map[string]any

// Clone returns a shallow copy so callers cannot mutate a mounted surface's props.
func (p Props) Clone() Props {
	if p == nil {
		return Props{}
	}
	out := make(Props, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// String returns the string value at key, or "".
func (p Props) String(key string) string {
	s, _ := p[key].(string)
	return s
}
