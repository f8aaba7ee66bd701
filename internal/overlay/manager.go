package overlay

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/adminkit/internal/logging"
)

// ErrNoComponent is the failure of a Show call without a component.
var ErrNoComponent = errors.New("overlay: spec has no component")

// eventBuffer bounds each subscriber channel. Hosts re-read Surfaces on every
// event, so a dropped event is healed by the next one.
const eventBuffer = 64

// Spec describes the surface to mount.
type Spec struct {
	Component *ComponentRef
	Props     Props
}

// Surface is a mounted transient UI unit.
type Surface struct {
	ID        string
	Component *ComponentRef
	Props     Props
	MountedAt time.Time

	future *Future
}

// Future returns the surface's settlement handle.
func (s *Surface) Future() *Future { return s.future }

// EventKind distinguishes registry events.
type EventKind int

const (
	EventMounted EventKind = iota
	EventSettled
)

// Event reports a registry change to subscribers.
type Event struct {
	Kind    EventKind
	Surface *Surface
	Outcome Outcome // set for EventSettled
}

// Manager is the registry of mounted surfaces. It is safe for concurrent use;
// registration, settlement and deregistration happen under one lock.
type Manager struct {
	mu       sync.Mutex
	surfaces map[string]*Surface
	order    []string
	subs     map[int]chan Event
	nextSub  int

	log   *zap.Logger
	newID func() string
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithIDGenerator replaces uuid surface ids, mainly for tests.
func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) { m.newID = gen }
}

// NewManager creates an empty registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		surfaces: make(map[string]*Surface),
		subs:     make(map[int]chan Event),
		log:      logging.Named("overlay"),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Show mounts a surface and returns its future. The surface stays registered
// until it is resolved, rejected, cancelled or the host calls CloseAll.
func (m *Manager) Show(spec Spec) *Future {
	if spec.Component == nil {
		f := newFuture("")
		f.settle(Outcome{Status: StatusFailed, Err: ErrNoComponent})
		return f
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.newID()
	for m.surfaces[id] != nil {
		id = m.newID()
	}

	s := &Surface{
		ID:        id,
		Component: spec.Component,
		Props:     spec.Props.Clone(),
		MountedAt: time.Now(),
		future:    newFuture(id),
	}
	m.surfaces[id] = s
	m.order = append(m.order, id)

	m.log.Debug("Surface mounted",
		zap.String("surface_id", id),
		zap.String("component", spec.Component.Name),
		zap.Int("active", len(m.order)),
	)
	m.publishLocked(Event{Kind: EventMounted, Surface: s})

	return s.future
}

// Resolve settles a surface with a value. Unknown or already settled ids are
// a no-op and return false.
func (m *Manager) Resolve(id string, value any) bool {
	return m.settle(id, Outcome{Status: StatusResolved, Value: value})
}

// Reject settles a surface with an error. Rejecting with ErrCancelled (or an
// error wrapping it) is a cancellation.
func (m *Manager) Reject(id string, err error) bool {
	if err == nil {
		err = errors.New("rejected without reason")
	}
	if IsCancelled(err) {
		return m.settle(id, Outcome{Status: StatusCancelled, Err: ErrCancelled})
	}
	return m.settle(id, Outcome{Status: StatusFailed, Err: err})
}

// Cancel dismisses a surface before the user completed it.
func (m *Manager) Cancel(id string) bool {
	return m.settle(id, Outcome{Status: StatusCancelled, Err: ErrCancelled})
}

// CloseAll cancels every mounted surface, newest first. Hosts call it on teardown.
func (m *Manager) CloseAll() int {
	m.mu.Lock()
	ids := make([]string, len(m.order))
	copy(ids, m.order)
	m.mu.Unlock()

	n := 0
	for i := len(ids) - 1; i >= 0; i-- {
		if m.Cancel(ids[i]) {
			n++
		}
	}
	return n
}

func (m *Manager) settle(id string, o Outcome) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.surfaces[id]
	if !ok {
		m.log.Debug("Settle ignored for unknown surface",
			zap.String("surface_id", id),
			zap.Stringer("status", o.Status),
		)
		return false
	}

	delete(m.surfaces, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	s.future.settle(o)

	m.log.Debug("Surface settled",
		zap.String("surface_id", id),
		zap.String("component", s.Component.Name),
		zap.Stringer("status", o.Status),
		zap.Duration("open_for", time.Since(s.MountedAt)),
	)
	m.publishLocked(Event{Kind: EventSettled, Surface: s, Outcome: o})

	return true
}

// Surface returns a mounted surface by id.
func (m *Manager) Surface(id string) (*Surface, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.surfaces[id]
	return s, ok
}

// Surfaces returns the mounted surfaces in mount order.
func (m *Manager) Surfaces() []*Surface {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Surface, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.surfaces[id])
	}
	return out
}

// Top returns the most recently mounted surface.
func (m *Manager) Top() (*Surface, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.order) == 0 {
		return nil, false
	}
	return m.surfaces[m.order[len(m.order)-1]], true
}

// Len returns the number of mounted surfaces.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}

// Subscribe returns a channel of registry events and a function that ends
// the subscription and closes the channel.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	ch := make(chan Event, eventBuffer)
	m.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.subs, id)
			close(ch)
		})
	}
}

func (m *Manager) publishLocked(ev Event) {
	for id, ch := range m.subs {
		select {
		case ch <- ev:
		default:
			m.log.Warn("Dropping overlay event for slow subscriber", zap.Int("subscriber", id))
		}
	}
}

type contextKey struct{}

// WithManager returns a context carrying m. Surface producers look the
// registry up with FromContext instead of reaching for a global.
func WithManager(ctx context.Context, m *Manager) context.Context {
	return context.WithValue(ctx, contextKey{}, m)
}

// FromContext returns the manager stored in ctx, or nil.
func FromContext(ctx context.Context) *Manager {
	m, _ := ctx.Value(contextKey{}).(*Manager)
	return m
}
