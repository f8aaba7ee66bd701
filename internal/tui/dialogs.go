package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/adminkit/internal/dialog"
	"github.com/muurk/adminkit/internal/i18n"
	"github.com/muurk/adminkit/internal/overlay"
)

// RegisterComponents installs the terminal UI renderers for every dialog
// variant.
func RegisterComponents(c *dialog.Components) {
	c.Register(dialog.TypeConfirm, overlay.Component("tui.confirm", ComponentFunc(newConfirmModel)))
	c.Register(dialog.TypeSuccess, overlay.Component("tui.success", ComponentFunc(newMessageModel)))
	c.Register(dialog.TypeError, overlay.Component("tui.error", ComponentFunc(newMessageModel)))
	c.Register(dialog.TypePrompt, overlay.Component("tui.prompt", ComponentFunc(newPromptModel)))
	c.Register(dialog.TypeNode, overlay.Component("tui.node", ComponentFunc(newNodeModel)))
}

// dialogKeyMap defines key bindings shared by the dialog models
type dialogKeyMap struct {
	Accept key.Binding
	Cancel key.Binding
	Next   key.Binding
	Prev   key.Binding
	Yes    key.Binding
	No     key.Binding

	short []key.Binding
}

func (k dialogKeyMap) ShortHelp() []key.Binding  { return k.short }
func (k dialogKeyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.short} }

func newDialogKeyMap(tr i18n.Translator) dialogKeyMap {
	return dialogKeyMap{
		Accept: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", strings.ToLower(tr.T(i18n.KeyConfirm))),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", strings.ToLower(tr.T(i18n.KeyCancel))),
		),
		Next: key.NewBinding(
			key.WithKeys("tab", "right", "down"),
			key.WithHelp("tab", "next"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab", "left", "up"),
			key.WithHelp("shift+tab", "previous"),
		),
		Yes: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "yes"),
		),
		No: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "no"),
		),
	}
}

// dialogBase is the state every dialog model carries.
type dialogBase struct {
	host    *Host
	surface *overlay.Surface
	req     dialog.Request
	keys    dialogKeyMap
}

func newDialogBase(h *Host, s *overlay.Surface) dialogBase {
	req, _ := dialog.RequestOf(s)
	return dialogBase{host: h, surface: s, req: req, keys: newDialogKeyMap(h.Translator())}
}

func (d dialogBase) KeyMap() help.KeyMap { return d.keys }

func (d dialogBase) t(k string, args ...any) string { return d.host.Translator().T(k, args...) }

func (d dialogBase) accept(input any) error {
	return dialog.Accept(d.host.Manager(), d.surface, input)
}

func (d dialogBase) dismiss() {
	dialog.Dismiss(d.host.Manager(), d.surface)
}

// box renders a titled dialog frame around the given sections.
func (d dialogBase) box(title string, color lipgloss.Color, sections ...string) string {
	width := d.host.DialogWidth()
	parts := []string{lipgloss.NewStyle().Foreground(color).Bold(true).Render(title)}
	if body := d.req.Body(); body != "" {
		parts = append(parts, "", BodyStyle.Width(width-6).Render(body))
	}
	for _, s := range sections {
		if s != "" {
			parts = append(parts, "", s)
		}
	}
	return DialogBoxStyle(color, width).Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// confirmModel asks the user to confirm or cancel. The confirm button is
// not preselected.
type confirmModel struct {
	dialogBase
	active int // 0 confirm, 1 cancel
}

func newConfirmModel(h *Host, s *overlay.Surface) SurfaceModel {
	m := &confirmModel{dialogBase: newDialogBase(h, s), active: 1}
	m.keys.short = []key.Binding{m.keys.Next, m.keys.Accept, m.keys.Yes, m.keys.No, m.keys.Cancel}
	return m
}

func (m *confirmModel) Init() tea.Cmd { return nil }

func (m *confirmModel) Update(msg tea.Msg) (SurfaceModel, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(km, m.keys.Next), key.Matches(km, m.keys.Prev):
		m.active = 1 - m.active
	case key.Matches(km, m.keys.Yes):
		_ = m.accept(nil)
	case key.Matches(km, m.keys.No), key.Matches(km, m.keys.Cancel):
		m.dismiss()
	case key.Matches(km, m.keys.Accept):
		if m.active == 0 {
			_ = m.accept(nil)
		} else {
			m.dismiss()
		}
	}
	return m, nil
}

func (m *confirmModel) View() string {
	buttons := RenderButtons([]string{
		label(m.req.ConfirmText, m.t(i18n.KeyConfirm)),
		label(m.req.CancelText, m.t(i18n.KeyCancel)),
	}, m.active)
	return m.box("⚠  "+label(m.req.Title, m.t(i18n.KeyConfirmTitle)), WarningColor, buttons)
}

// messageModel shows a success or error message until acknowledged.
type messageModel struct {
	dialogBase
}

func newMessageModel(h *Host, s *overlay.Surface) SurfaceModel {
	m := &messageModel{dialogBase: newDialogBase(h, s)}
	m.keys.Accept.SetHelp("enter", strings.ToLower(m.t(i18n.KeyOK)))
	m.keys.short = []key.Binding{m.keys.Accept}
	return m
}

func (m *messageModel) Init() tea.Cmd { return nil }

func (m *messageModel) Update(msg tea.Msg) (SurfaceModel, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		if key.Matches(km, m.keys.Accept) || key.Matches(km, m.keys.Cancel) {
			_ = m.accept(nil)
		}
	}
	return m, nil
}

func (m *messageModel) View() string {
	marker, color, k := "✓  ", SecondaryColor, i18n.KeySuccessTitle
	if m.req.Type == dialog.TypeError {
		marker, color, k = "✗  ", ErrorColor, i18n.KeyErrorTitle
	}
	ok := RenderButtons([]string{label(m.req.ConfirmText, m.t(i18n.KeyOK))}, 0)
	return m.box(marker+label(m.req.Title, m.t(k)), color, ok)
}

// promptModel collects one value, or one per schema field.
type promptModel struct {
	dialogBase
	fields []dialog.Field
	inputs []textinput.Model
	focus  int
	err    string
}

func newPromptModel(h *Host, s *overlay.Surface) SurfaceModel {
	m := &promptModel{dialogBase: newDialogBase(h, s)}
	width := h.DialogWidth() - 10

	if m.req.FormSchema == nil {
		in := newInput(width)
		in.SetValue(m.req.Default)
		m.inputs = []textinput.Model{in}
	} else {
		m.fields = m.req.FormSchema.Fields
		for _, f := range m.fields {
			in := newInput(width)
			in.Placeholder = f.Type
			if f.Secret {
				in.EchoMode = textinput.EchoPassword
				in.EchoCharacter = '•'
			}
			m.inputs = append(m.inputs, in)
		}
	}
	m.keys.Accept.SetHelp("enter", strings.ToLower(m.t(i18n.KeySubmit)))
	m.keys.short = []key.Binding{m.keys.Accept, m.keys.Cancel}
	if len(m.inputs) > 1 {
		m.keys.Next.SetKeys("tab", "down")
		m.keys.Prev.SetKeys("shift+tab", "up")
		m.keys.short = []key.Binding{m.keys.Next, m.keys.Accept, m.keys.Cancel}
	}
	return m
}

func newInput(width int) textinput.Model {
	in := textinput.New()
	in.Prompt = "› "
	in.Width = width
	in.PromptStyle = BlurredInputStyle
	return in
}

func (m *promptModel) Init() tea.Cmd {
	return m.setFocus(0)
}

func (m *promptModel) setFocus(i int) tea.Cmd {
	m.focus = i
	var cmd tea.Cmd
	for j := range m.inputs {
		if j == i {
			cmd = m.inputs[j].Focus()
			m.inputs[j].PromptStyle = FocusedInputStyle
			continue
		}
		m.inputs[j].Blur()
		m.inputs[j].PromptStyle = BlurredInputStyle
	}
	return cmd
}

func (m *promptModel) Update(msg tea.Msg) (SurfaceModel, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, m.keys.Cancel):
			m.dismiss()
			return m, nil
		case len(m.inputs) > 1 && key.Matches(km, m.keys.Next):
			return m, m.setFocus((m.focus + 1) % len(m.inputs))
		case len(m.inputs) > 1 && key.Matches(km, m.keys.Prev):
			return m, m.setFocus((m.focus - 1 + len(m.inputs)) % len(m.inputs))
		case key.Matches(km, m.keys.Accept):
			if m.focus < len(m.inputs)-1 {
				return m, m.setFocus(m.focus + 1)
			}
			m.submit()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *promptModel) submit() {
	var input any
	if m.req.FormSchema == nil {
		input = m.inputs[0].Value()
	} else {
		values := make(map[string]string, len(m.fields))
		for i, f := range m.fields {
			if v := m.inputs[i].Value(); v != "" {
				values[f.Name] = v
			}
		}
		input = values
	}

	err := m.accept(input)
	var verr *dialog.ValidationError
	if errors.As(err, &verr) {
		m.err = m.t(i18n.KeyInvalidInput, verr.Err)
	}
}

func (m *promptModel) View() string {
	var rows []string
	if m.req.FormSchema == nil {
		rows = append(rows, m.inputs[0].View())
	} else {
		for i, f := range m.fields {
			name := label(f.Title, f.Name)
			if f.Required {
				name += " *"
			}
			style := BlurredInputStyle
			if i == m.focus {
				style = FocusedInputStyle
			}
			rows = append(rows, style.Render(name), m.inputs[i].View())
		}
	}
	if m.err != "" {
		rows = append(rows, "", FieldErrorStyle.Width(m.host.DialogWidth()-6).Render(m.err))
	}
	return m.box(label(m.req.Title, m.t(i18n.KeyPromptTitle)), PrimaryColor, lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// nodeModel shows caller-rendered content with a single input line.
type nodeModel struct {
	dialogBase
	input textinput.Model
}

func newNodeModel(h *Host, s *overlay.Surface) SurfaceModel {
	m := &nodeModel{dialogBase: newDialogBase(h, s), input: newInput(h.DialogWidth() - 10)}
	m.keys.short = []key.Binding{m.keys.Accept, m.keys.Cancel}
	return m
}

func (m *nodeModel) Init() tea.Cmd {
	m.input.PromptStyle = FocusedInputStyle
	return m.input.Focus()
}

func (m *nodeModel) Update(msg tea.Msg) (SurfaceModel, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, m.keys.Cancel):
			m.dismiss()
			return m, nil
		case key.Matches(km, m.keys.Accept):
			_ = m.accept(m.input.Value())
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *nodeModel) View() string {
	return m.box(m.req.Title, PrimaryColor, m.input.View())
}

func label(custom, fallback string) string {
	if custom != "" {
		return custom
	}
	return fallback
}
