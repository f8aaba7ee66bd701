package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/muurk/adminkit/internal/i18n"
	"github.com/muurk/adminkit/internal/logging"
	"github.com/muurk/adminkit/internal/overlay"
)

// SurfaceModel is the Bubble Tea model rendering one mounted surface.
// Models settle their surface through the host's manager; the host drops
// them once the registry reports the surface gone.
type SurfaceModel interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (SurfaceModel, tea.Cmd)
	View() string
}

// Component creates the model for a surface. Values registered as overlay
// component refs for the TUI implement it. A nil model rejects the surface.
type Component interface {
	NewSurfaceModel(h *Host, s *overlay.Surface) SurfaceModel
}

// ComponentFunc adapts a function to Component.
type ComponentFunc func(h *Host, s *overlay.Surface) SurfaceModel

func (f ComponentFunc) NewSurfaceModel(h *Host, s *overlay.Surface) SurfaceModel {
	return f(h, s)
}

// keyMapper is implemented by surface models that advertise key help.
type keyMapper interface {
	KeyMap() help.KeyMap
}

type hostKeyMap struct {
	ForceQuit key.Binding
	Quit      key.Binding
}

func (k hostKeyMap) ShortHelp() []key.Binding  { return []key.Binding{k.Quit} }
func (k hostKeyMap) FullHelp() [][]key.Binding { return [][]key.Binding{{k.Quit, k.ForceQuit}} }

func newHostKeyMap() hostKeyMap {
	return hostKeyMap{
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
	}
}

// eventMsg carries a registry event into the program. ok is false once
// the subscription is closed.
type eventMsg struct {
	ev overlay.Event
	ok bool
}

// Host is the top-level model: it draws an optional base screen and
// composites every mounted surface over it, oldest first, routing keys to
// the top-most one.
type Host struct {
	manager     *overlay.Manager
	tr          i18n.Translator
	ctx         context.Context
	base        tea.Model
	status      *StatusBar
	events      <-chan overlay.Event
	unsubscribe func()

	models map[string]SurfaceModel
	order  []string

	keys         hostKeyMap
	help         help.Model
	width        int
	height       int
	quitWhenIdle bool
	seenSurface  bool
	log          *zap.Logger
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithBase sets the screen drawn under the surfaces.
func WithBase(m tea.Model) HostOption {
	return func(h *Host) { h.base = m }
}

// WithTranslator sets the translator used for labels.
func WithTranslator(tr i18n.Translator) HostOption {
	return func(h *Host) {
		if tr != nil {
			h.tr = tr
		}
	}
}

// WithStatusBar shares a status bar with the host.
func WithStatusBar(b *StatusBar) HostOption {
	return func(h *Host) {
		if b != nil {
			h.status = b
		}
	}
}

// WithQuitWhenIdle ends the program once every surface that has been shown
// is settled. Used for one-shot dialogs from the CLI.
func WithQuitWhenIdle() HostOption {
	return func(h *Host) { h.quitWhenIdle = true }
}

// NewHost subscribes to m. Call Close, or use Run, to end the
// subscription.
func NewHost(m *overlay.Manager, opts ...HostOption) *Host {
	h := &Host{
		manager: m,
		tr:      i18n.Default(),
		ctx:     context.Background(),
		status:  NewStatusBar(),
		models:  make(map[string]SurfaceModel),
		keys:    newHostKeyMap(),
		help:    help.New(),
		width:   80,
		height:  24,
		log:     logging.Named("tui"),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.events, h.unsubscribe = m.Subscribe()
	return h
}

// Manager returns the registry the host renders.
func (h *Host) Manager() *overlay.Manager { return h.manager }

// Translator returns the host's translator.
func (h *Host) Translator() i18n.Translator { return h.tr }

// StatusBar returns the host's status bar. It implements form.Notifier.
func (h *Host) StatusBar() *StatusBar { return h.status }

// Context returns the context work started from the UI should use.
func (h *Host) Context() context.Context { return h.ctx }

// DialogWidth returns the width surfaces should render at.
func (h *Host) DialogWidth() int { return DialogWidth(h.width) }

// Close ends the subscription and cancels every mounted surface.
func (h *Host) Close() {
	h.unsubscribe()
	if n := h.manager.CloseAll(); n > 0 {
		h.log.Debug("Cancelled surfaces on close", zap.Int("count", n))
	}
}

func (h *Host) waitForEvent() tea.Cmd {
	events := h.events
	return func() tea.Msg {
		ev, ok := <-events
		return eventMsg{ev: ev, ok: ok}
	}
}

func (h *Host) Init() tea.Cmd {
	cmds := []tea.Cmd{h.waitForEvent(), h.sync()}
	if h.base != nil {
		cmds = append(cmds, h.base.Init())
	}
	return tea.Batch(cmds...)
}

func (h *Host) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h.width, h.height = msg.Width, msg.Height
		h.help.Width = msg.Width
		return h, h.broadcast(msg)

	case eventMsg:
		if !msg.ok {
			return h, nil
		}
		cmd := h.sync()
		if h.quitWhenIdle && h.seenSurface && len(h.order) == 0 {
			return h, tea.Quit
		}
		return h, tea.Batch(cmd, h.waitForEvent())

	case tea.KeyMsg:
		if key.Matches(msg, h.keys.ForceQuit) {
			return h, tea.Quit
		}
		if id, ok := h.top(); ok {
			return h, h.updateSurface(id, msg)
		}
		if h.base != nil {
			var cmd tea.Cmd
			h.base, cmd = h.base.Update(msg)
			return h, cmd
		}
		if key.Matches(msg, h.keys.Quit) {
			return h, tea.Quit
		}
		return h, nil
	}

	return h, h.broadcast(msg)
}

// broadcast hands a non-key message to the base and every surface model.
func (h *Host) broadcast(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	if h.base != nil {
		var cmd tea.Cmd
		h.base, cmd = h.base.Update(msg)
		cmds = append(cmds, cmd)
	}
	for _, id := range append([]string(nil), h.order...) {
		cmds = append(cmds, h.updateSurface(id, msg))
	}
	return tea.Batch(cmds...)
}

func (h *Host) updateSurface(id string, msg tea.Msg) tea.Cmd {
	m, ok := h.models[id]
	if !ok {
		return nil
	}
	next, cmd := m.Update(msg)
	h.models[id] = next
	if _, mounted := h.manager.Surface(id); !mounted {
		// settled by the model itself; stop routing keys to it
		h.drop(id)
	}
	return cmd
}

func (h *Host) drop(id string) {
	delete(h.models, id)
	for i, o := range h.order {
		if o == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			return
		}
	}
}

func (h *Host) top() (string, bool) {
	if len(h.order) == 0 {
		return "", false
	}
	return h.order[len(h.order)-1], true
}

// sync brings the model set in line with the registry: models for settled
// surfaces are dropped and new surfaces get a model. Events only trigger a
// sync, so a dropped event is caught up on the next one.
func (h *Host) sync() tea.Cmd {
	live := h.manager.Surfaces()
	mounted := make(map[string]bool, len(live))
	for _, s := range live {
		mounted[s.ID] = true
	}

	order := h.order[:0]
	for _, id := range h.order {
		if mounted[id] {
			order = append(order, id)
			continue
		}
		delete(h.models, id)
	}
	h.order = order

	var cmds []tea.Cmd
	for _, s := range live {
		h.seenSurface = true
		if _, ok := h.models[s.ID]; ok {
			continue
		}
		model, err := h.mount(s)
		if err != nil {
			h.log.Warn("Cannot render surface", zap.String("surface_id", s.ID), zap.Error(err))
			h.manager.Reject(s.ID, err)
			continue
		}
		h.models[s.ID] = model
		h.order = append(h.order, s.ID)
		logging.LogSurface("render", s.ID, s.Component.Name)
		cmds = append(cmds, model.Init())
	}
	return tea.Batch(cmds...)
}

func (h *Host) mount(s *overlay.Surface) (SurfaceModel, error) {
	comp, err := s.Component.Resolve()
	if err != nil {
		return nil, err
	}
	c, ok := comp.(Component)
	if !ok {
		return nil, fmt.Errorf("component %q cannot render in the terminal UI", s.Component.Name)
	}
	model := c.NewSurfaceModel(h, s)
	if model == nil {
		return nil, fmt.Errorf("component %q cannot render surface %s", s.Component.Name, s.ID)
	}
	return model, nil
}

func (h *Host) footer() string {
	var km help.KeyMap = h.keys
	if id, ok := h.top(); ok {
		if m, ok := h.models[id].(keyMapper); ok {
			km = m.KeyMap()
		}
	} else if m, ok := h.base.(keyMapper); ok {
		km = m.KeyMap()
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		h.status.View(h.width-4),
		h.help.View(km),
	)
}

func (h *Host) View() string {
	content := ""
	if h.base != nil {
		content = h.base.View()
	}
	view := RenderApplicationContainer(content, h.footer(), h.width, h.height)

	for i, id := range h.order {
		// stacked surfaces step down and right so the one below stays visible
		view = overlayCenter(view, h.models[id].View(), i, h.width, h.height)
	}
	return view
}
