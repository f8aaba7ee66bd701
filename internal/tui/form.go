package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/adminkit/internal/dataprovider"
	"github.com/muurk/adminkit/internal/dialog"
	"github.com/muurk/adminkit/internal/form"
	"github.com/muurk/adminkit/internal/i18n"
	"github.com/muurk/adminkit/internal/overlay"
)

const propForm = "tui.form"

// FormComponent renders FormSpec surfaces.
var FormComponent = overlay.Component("tui.form", ComponentFunc(newFormModel))

// FormSpec describes a form surface. The host supplies the title and
// footer slots around the fields.
type FormSpec struct {
	Title      string
	Footer     string
	Schema     *dialog.Schema
	Controller *form.Controller

	// Notifier receives success and error messages. Defaults to the
	// host's status bar.
	Notifier form.Notifier
}

// ShowForm mounts a form surface. The future resolves with the saved
// record once a submission succeeds, or is cancelled when the user leaves.
func ShowForm(m *overlay.Manager, spec FormSpec) *overlay.Future {
	return m.Show(overlay.Spec{
		Component: FormComponent,
		Props: overlay.Props{
			propForm:         &spec,
			dialog.PropTitle: spec.Title,
		},
	})
}

type formKeyMap struct {
	Next   key.Binding
	Prev   key.Binding
	Submit key.Binding
	Reset  key.Binding
	Cancel key.Binding
}

func (k formKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Submit, k.Reset, k.Cancel}
}

func (k formKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Next, k.Prev}, {k.Submit, k.Reset, k.Cancel}}
}

func newFormKeyMap(tr i18n.Translator) formKeyMap {
	return formKeyMap{
		Next: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "next field"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "previous field"),
		),
		Submit: key.NewBinding(
			key.WithKeys("ctrl+s", "enter"),
			key.WithHelp("ctrl+s", strings.ToLower(tr.T(i18n.KeySubmit))),
		),
		Reset: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "reset"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", strings.ToLower(tr.T(i18n.KeyCancel))),
		),
	}
}

// submitDoneMsg reports the end of a submission started by a form surface.
type submitDoneMsg struct {
	surfaceID string
	err       error
}

// FormModel edits a form.Controller's values. Enter on the last field, or
// ctrl+s anywhere, submits. On success the host notifies, runs the
// controller's own OnSuccess, and closes the surface.
type FormModel struct {
	host    *Host
	surface *overlay.Surface
	spec    *FormSpec
	ctrl    *form.Controller

	inputs      []textinput.Model
	focus       int
	spinner     spinner.Model
	submitting  bool
	err         string
	fieldErrors map[string]string
	keys        formKeyMap
}

// newFormModel returns nil for surfaces mounted without a complete spec.
func newFormModel(h *Host, s *overlay.Surface) SurfaceModel {
	spec, _ := s.Props[propForm].(*FormSpec)
	if spec == nil || spec.Controller == nil || spec.Schema == nil {
		return nil
	}

	n := spec.Notifier
	if n == nil {
		n = h.StatusBar()
	}
	ctrl := spec.Controller
	form.HostCallbacks(n, h.Translator(), ctrl.Callbacks(), form.SurfaceCloser(h.Manager(), s.ID)).Apply(ctrl)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = SpinnerStyle

	m := &FormModel{
		host:    h,
		surface: s,
		spec:    spec,
		ctrl:    spec.Controller,
		spinner: sp,
		keys:    newFormKeyMap(h.Translator()),
	}
	width := h.DialogWidth() - 10
	for _, f := range spec.Schema.Fields {
		in := newInput(width)
		if f.Secret {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '•'
		}
		m.inputs = append(m.inputs, in)
	}
	m.fill()
	return m
}

// fill copies the bound values into the inputs.
func (m *FormModel) fill() {
	for i, f := range m.spec.Schema.Fields {
		v, ok := m.ctrl.Form().Get(f.Name)
		if !ok || v == nil {
			m.inputs[i].SetValue("")
			continue
		}
		m.inputs[i].SetValue(fmt.Sprint(v))
	}
}

func (m *FormModel) KeyMap() help.KeyMap { return m.keys }

func (m *FormModel) Init() tea.Cmd {
	if len(m.inputs) == 0 {
		return nil
	}
	return m.setFocus(0)
}

func (m *FormModel) setFocus(i int) tea.Cmd {
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

func (m *FormModel) Update(msg tea.Msg) (SurfaceModel, tea.Cmd) {
	if len(m.inputs) == 0 {
		return m, nil
	}

	switch msg := msg.(type) {
	case submitDoneMsg:
		if msg.surfaceID != m.surface.ID {
			return m, nil
		}
		m.submitting = false
		m.applyError(msg.err)
		return m, nil

	case spinner.TickMsg:
		if !m.submitting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Cancel):
			if !m.submitting {
				m.host.Manager().Cancel(m.surface.ID)
			}
			return m, nil
		case key.Matches(msg, m.keys.Reset):
			if !m.submitting {
				m.ctrl.Reset()
				m.fill()
				m.err, m.fieldErrors = "", nil
			}
			return m, nil
		case key.Matches(msg, m.keys.Next):
			return m, m.setFocus((m.focus + 1) % len(m.inputs))
		case key.Matches(msg, m.keys.Prev):
			return m, m.setFocus((m.focus - 1 + len(m.inputs)) % len(m.inputs))
		case key.Matches(msg, m.keys.Submit):
			if msg.String() == "enter" && m.focus < len(m.inputs)-1 {
				return m, m.setFocus(m.focus + 1)
			}
			return m, m.submit()
		}
	}

	if m.submitting {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

// submit binds the inputs and starts the controller in a command. Input
// that fails the schema is reported without contacting the provider.
func (m *FormModel) submit() tea.Cmd {
	if m.submitting || m.ctrl.Busy() {
		m.host.StatusBar().Error(m.host.Translator().T(i18n.KeyFormBusy))
		return nil
	}

	raw := make(map[string]string, len(m.inputs))
	for i, f := range m.spec.Schema.Fields {
		if v := m.inputs[i].Value(); v != "" {
			raw[f.Name] = v
		}
	}
	values, err := m.spec.Schema.Coerce(raw)
	if err == nil {
		err = m.spec.Schema.Validate(values)
	}
	if err != nil {
		m.err = m.host.Translator().T(i18n.KeyInvalidInput, err)
		return nil
	}

	binding := m.ctrl.Form()
	for _, f := range m.spec.Schema.Fields {
		if v, ok := values[f.Name]; ok {
			binding.Set(f.Name, v)
			continue
		}
		binding.Delete(f.Name)
	}

	m.submitting = true
	m.err, m.fieldErrors = "", nil
	ctx, ctrl, id := m.host.Context(), m.ctrl, m.surface.ID
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return submitDoneMsg{surfaceID: id, err: ctrl.Submit(ctx)}
	})
}

func (m *FormModel) applyError(err error) {
	if err == nil || errors.Is(err, form.ErrBusy) {
		return
	}
	var perr *dataprovider.Error
	if !errors.As(err, &perr) {
		m.err = err.Error()
		return
	}
	m.err = perr.Message
	if len(perr.Extra) > 0 {
		m.fieldErrors = make(map[string]string, len(perr.Extra))
		for k, v := range perr.Extra {
			m.fieldErrors[k] = fmt.Sprint(v)
		}
	}
}

func (m *FormModel) View() string {
	width := m.host.DialogWidth()
	title := m.spec.Title
	if title == "" {
		title = m.host.Translator().T(i18n.KeyFormCreateTitle)
		if m.ctrl.IsEdit() {
			title = m.host.Translator().T(i18n.KeyFormEditTitle)
		}
	}

	var fields []dialog.Field
	if m.spec.Schema != nil {
		fields = m.spec.Schema.Fields
	}

	rows := []string{TitleStyle.Render(title)}
	for i, f := range fields {
		name := label(f.Title, f.Name)
		if f.Required {
			name += " *"
		}
		style := BlurredInputStyle
		if i == m.focus {
			style = FocusedInputStyle
		}
		rows = append(rows, "", style.Render(name), m.inputs[i].View())
		if msg, ok := m.fieldErrors[f.Name]; ok {
			rows = append(rows, FieldErrorStyle.Render("  "+msg))
		}
	}

	if m.err != "" {
		rows = append(rows, "", FieldErrorStyle.Width(width-6).Render(m.err))
	}
	if m.submitting {
		rows = append(rows, "", m.spinner.View()+" "+m.host.Translator().T(i18n.KeyFormBusy))
	}
	if m.spec.Footer != "" {
		rows = append(rows, "", HelpStyle.Width(width-6).Render(m.spec.Footer))
	}
	return DialogBoxStyle(PrimaryColor, width).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
