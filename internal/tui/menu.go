package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/adminkit/internal/overlay"
)

// MenuItem is one entry of a Menu. Action runs in a command goroutine, so
// it may block on surface futures; a non-empty result is shown in the
// status bar.
type MenuItem struct {
	Title       string
	Description string
	Action      func(ctx context.Context) (string, error)
}

type menuKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Quit   key.Binding
}

func (k menuKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Quit}
}

func (k menuKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down, k.Select, k.Quit}}
}

func newMenuKeyMap() menuKeyMap {
	return menuKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "run"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
	}
}

// actionDoneMsg reports the end of a menu action.
type actionDoneMsg struct {
	index  int
	result string
	err    error
}

// Menu is a base screen listing actions.
type Menu struct {
	ctx     context.Context
	title   string
	items   []MenuItem
	cursor  int
	running map[int]bool
	status  *StatusBar
	spinner spinner.Model
	keys    menuKeyMap
}

// NewMenu creates a menu whose actions report to status.
func NewMenu(ctx context.Context, title string, status *StatusBar, items ...MenuItem) *Menu {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = SpinnerStyle
	if status == nil {
		status = NewStatusBar()
	}
	return &Menu{
		ctx:     ctx,
		title:   title,
		items:   items,
		running: make(map[int]bool),
		status:  status,
		spinner: sp,
		keys:    newMenuKeyMap(),
	}
}

func (m *Menu) Init() tea.Cmd { return nil }

func (m *Menu) KeyMap() help.KeyMap { return m.keys }

func (m *Menu) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case actionDoneMsg:
		delete(m.running, msg.index)
		switch {
		case msg.err != nil && !overlay.IsCancelled(msg.err):
			m.status.Error(msg.err.Error())
		case msg.err == nil && msg.result != "":
			m.status.Success(msg.result)
		}
		return m, nil

	case spinner.TickMsg:
		if len(m.running) == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Select):
			return m, m.run(m.cursor)
		}
	}
	return m, nil
}

func (m *Menu) run(i int) tea.Cmd {
	if i < 0 || i >= len(m.items) || m.running[i] || m.items[i].Action == nil {
		return nil
	}
	first := len(m.running) == 0
	m.running[i] = true
	ctx, action := m.ctx, m.items[i].Action
	cmd := func() tea.Msg {
		result, err := action(ctx)
		return actionDoneMsg{index: i, result: result, err: err}
	}
	if first {
		return tea.Batch(m.spinner.Tick, cmd)
	}
	return cmd
}

func (m *Menu) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(m.title))
	b.WriteString("\n\n")
	for i, item := range m.items {
		line := item.Title
		if m.running[i] {
			line += " " + m.spinner.View()
		}
		b.WriteString(RenderMenuItem(line, i == m.cursor))
		b.WriteString("\n")
	}
	if m.cursor < len(m.items) && m.items[m.cursor].Description != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().PaddingLeft(4).Render(SubtitleStyle.Render(m.items[m.cursor].Description)))
	}
	return b.String()
}
