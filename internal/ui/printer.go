package ui

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/adminkit/internal/auth"
	"github.com/muurk/adminkit/internal/dataprovider"
)

// Printer provides methods for printing UI components to a writer.
// It is safe for concurrent use.
type Printer struct {
	mu    sync.Mutex
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// Width returns the current terminal width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// SetWidth overrides the detected width.
func (p *Printer) SetWidth(width int) *Printer {
	p.width = width
	return p
}

// Print writes content to the output
func (p *Printer) Print(content string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprint(p.out, content)
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintln(p.out, content)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	p.Println("")
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, params map[string]string) {
	p.Println(RenderHeader(title, command, params, p.width))
}

// PrintResult prints a result box
func (p *Printer) PrintResult(r *Result) {
	p.Println(r.SetWidth(p.width).Render())
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details map[string]string) {
	p.PrintResult(NewSuccessResult(title, details))
}

// PrintError prints a failure box with hints derived from err
func (p *Printer) PrintError(title string, err error) {
	p.PrintResult(NewErrorResult(title, err))
}

// PrintRecord prints a record as a success box
func (p *Printer) PrintRecord(title string, rec dataprovider.Record) {
	p.PrintSuccess(title, RecordDetails(rec))
}

// PrintSession prints the state of an auth store
func (p *Printer) PrintSession(state auth.State, s *auth.Session) {
	if s == nil {
		p.PrintResult(NewWarningResult("Not logged in", map[string]string{"State": state.String()}))
		return
	}
	details := map[string]string{
		"State": state.String(),
		"User":  s.UserID,
		"Name":  s.Name,
	}
	if len(s.Roles) > 0 {
		details["Roles"] = strings.Join(s.Roles, ", ")
	}
	if len(s.Permissions) > 0 {
		details["Permissions"] = strings.Join(s.Permissions, ", ")
	}
	if !s.ExpiresAt.IsZero() {
		details["Expires"] = s.ExpiresAt.Local().Format("2006-01-02 15:04:05")
	}
	p.PrintSuccess("Logged in", details)
}

// Success implements form.Notifier with a one-line message
func (p *Printer) Success(msg string) {
	p.Println(SuccessTitleStyle.Render(SuccessMarker + " " + msg))
}

// Error implements form.Notifier with a one-line message
func (p *Printer) Error(msg string) {
	p.Println(ErrorTitleStyle.Render(FailureMarker + " " + msg))
}

// RenderHeader renders a command header box. Params are listed sorted by key.
func RenderHeader(title, command string, params map[string]string, width int) string {
	width = clampWidth(width)

	titleLine := HeaderTitleStyle.Render(strings.ToUpper(title))
	commandLine := HeaderCommandStyle.Render(command)
	content := lipgloss.JoinVertical(lipgloss.Left, titleLine, commandLine)

	if len(params) > 0 {
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		paramLines := make([]string, 0, len(keys))
		for _, key := range keys {
			keyStyled := HeaderParamKeyStyle.Render(key + ":")
			paramLines = append(paramLines, keyStyled+" "+HeaderParamValueStyle.Render(params[key]))
		}

		dividerWidth := width - 6 // Account for border and padding
		if dividerWidth < 10 {
			dividerWidth = 10
		}
		divider := lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Render(strings.Repeat("─", dividerWidth))
		content = lipgloss.JoinVertical(lipgloss.Left, content, divider, strings.Join(paramLines, "\n"))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Width(width - 2). // Account for border characters
		Render(content)
}
