package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/adminkit/internal/version"
)

// Application branding
const (
	AppName = "ADMINKIT"
	RepoURL = "github.com/muurk/adminkit"
)

// Layout constants
const (
	MinTerminalWidth = 60
	MinDialogWidth   = 40
	MaxDialogWidth   = 72
)

// Color palette
var (
	PrimaryColor   = lipgloss.Color("#7D56F4") // Purple
	SecondaryColor = lipgloss.Color("#43BF6D") // Green
	WarningColor   = lipgloss.Color("#FFA500") // Orange
	ErrorColor     = lipgloss.Color("#FF5555") // Red

	TextColor       = lipgloss.Color("#FFFFFF")
	SubtleColor     = lipgloss.Color("#626262")
	BorderColor     = lipgloss.Color("#7D56F4")
	BackgroundColor = lipgloss.Color("#1A1A1A")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Italic(true)

	MenuItemStyle = lipgloss.NewStyle().
			PaddingLeft(4).
			Foreground(TextColor)

	SelectedMenuItemStyle = lipgloss.NewStyle().
				PaddingLeft(2).
				Foreground(SecondaryColor).
				Bold(true)

	BodyStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	HelpStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Background(BackgroundColor).
			Padding(0, 1)

	StatusSuccessStyle = lipgloss.NewStyle().
				Foreground(SecondaryColor).
				Background(BackgroundColor).
				Bold(true).
				Padding(0, 1)

	StatusErrorStyle = lipgloss.NewStyle().
				Foreground(ErrorColor).
				Background(BackgroundColor).
				Bold(true).
				Padding(0, 1)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)

	FocusedInputStyle = lipgloss.NewStyle().
				Foreground(PrimaryColor).
				Bold(true)

	BlurredInputStyle = lipgloss.NewStyle().
				Foreground(SubtleColor)

	FieldErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	ButtonStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Padding(0, 2)

	ActiveButtonStyle = lipgloss.NewStyle().
				Foreground(TextColor).
				Background(PrimaryColor).
				Bold(true).
				Padding(0, 2)
)

// DialogBoxStyle returns the bordered box used for every surface, tinted
// with the given color.
func DialogBoxStyle(color lipgloss.Color, width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(1, 2).
		Width(width)
}

// DialogWidth picks a surface width for the terminal width.
func DialogWidth(terminalWidth int) int {
	w := terminalWidth - 8
	if w > MaxDialogWidth {
		w = MaxDialogWidth
	}
	if w < MinDialogWidth {
		w = MinDialogWidth
	}
	return w
}

// RenderMenuItem renders a menu item with selection indicator
func RenderMenuItem(text string, selected bool) string {
	if selected {
		return SelectedMenuItemStyle.Render("→ " + text)
	}
	return MenuItemStyle.Render("  " + text)
}

// RenderButtons renders a row of labels, highlighting the active one.
func RenderButtons(labels []string, active int) string {
	parts := make([]string, 0, len(labels))
	for i, l := range labels {
		if i == active {
			parts = append(parts, ActiveButtonStyle.Render(l))
			continue
		}
		parts = append(parts, ButtonStyle.Render(l))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func buildHeaderContent() string {
	left := lipgloss.NewStyle().
		Foreground(TextColor).
		Bold(true).
		Render(AppName + " " + version.Version)

	right := lipgloss.NewStyle().
		Foreground(SubtleColor).
		Render(RepoURL)

	return lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)
}

// RenderApplicationContainer wraps a screen in the application frame:
// header, content and a footer pinned to the bottom, filling the terminal.
func RenderApplicationContainer(content, footer string, width, height int) string {
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}
	if height < 6 {
		height = 6
	}

	header := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Bottom: "─"}).
		BorderForeground(BorderColor).
		Width(width-4).
		Padding(0, 1).
		Render(buildHeaderContent())

	foot := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Top: "─"}).
		BorderForeground(BorderColor).
		Width(width-4).
		Padding(0, 1).
		Render(footer)

	// content fills whatever the header and footer leave
	bodyHeight := height - 2 - lipgloss.Height(header) - lipgloss.Height(foot)
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	body := lipgloss.NewStyle().
		Width(width - 4).
		Height(bodyHeight).
		MaxHeight(bodyHeight).
		Render(content)

	inner := lipgloss.JoinVertical(lipgloss.Left, header, body, foot)

	return lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(BorderColor).
		Width(width - 2).
		Render(inner)
}
