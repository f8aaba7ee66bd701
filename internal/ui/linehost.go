package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/muurk/adminkit/internal/dialog"
	"github.com/muurk/adminkit/internal/i18n"
	"github.com/muurk/adminkit/internal/logging"
	"github.com/muurk/adminkit/internal/overlay"
)

// LineComponent renders a surface on a plain line terminal and settles it.
type LineComponent interface {
	RunLine(h *LineHost, s *overlay.Surface)
}

// LineHost renders mounted surfaces one at a time on a reader and writer,
// for pipes and terminals where the full-screen TUI is unavailable.
type LineHost struct {
	manager *overlay.Manager
	in      *bufio.Reader
	fd      int // terminal fd for secret input, -1 when in is not a terminal
	out     *Printer
	tr      i18n.Translator
	log     *zap.Logger
}

// NewLineHost returns a host over m. Secret prompt fields are read without
// echo when in is a terminal.
func NewLineHost(m *overlay.Manager, in io.Reader, out io.Writer, tr i18n.Translator) *LineHost {
	if tr == nil {
		tr = i18n.Default()
	}
	fd := -1
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd = int(f.Fd())
	}
	return &LineHost{
		manager: m,
		in:      bufio.NewReader(in),
		fd:      fd,
		out:     NewPrinter(out),
		tr:      tr,
		log:     logging.Named("ui"),
	}
}

// Printer returns the host's output printer.
func (h *LineHost) Printer() *Printer { return h.out }

// Translator returns the host's translator.
func (h *LineHost) Translator() i18n.Translator { return h.tr }

// Manager returns the registry the host renders.
func (h *LineHost) Manager() *overlay.Manager { return h.manager }

// Run renders surfaces as they are mounted until ctx ends, then cancels
// whatever is still mounted. Surfaces already mounted when Run starts are
// rendered first. A blocked read is not interrupted by ctx.
func (h *LineHost) Run(ctx context.Context) error {
	events, unsubscribe := h.manager.Subscribe()
	defer unsubscribe()
	defer h.manager.CloseAll()

	seen := make(map[string]bool)
	for {
		h.renderPending(seen)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-events:
			if !ok {
				return nil
			}
		}
	}
}

// renderPending renders every mounted surface not rendered yet, oldest
// first. Settled ids are forgotten.
func (h *LineHost) renderPending(seen map[string]bool) {
	for {
		var next *overlay.Surface
		live := make(map[string]bool)
		for _, s := range h.manager.Surfaces() {
			live[s.ID] = true
			if next == nil && !seen[s.ID] {
				next = s
			}
		}
		for id := range seen {
			if !live[id] {
				delete(seen, id)
			}
		}
		if next == nil {
			return
		}
		seen[next.ID] = true
		h.render(next)
	}
}

func (h *LineHost) render(s *overlay.Surface) {
	comp, err := s.Component.Resolve()
	if err != nil {
		h.log.Warn("Cannot render surface", zap.String("surface_id", s.ID), zap.Error(err))
		h.manager.Reject(s.ID, err)
		return
	}
	lc, ok := comp.(LineComponent)
	if !ok {
		err := fmt.Errorf("component %q cannot render in line mode", s.Component.Name)
		h.log.Warn("Cannot render surface", zap.String("surface_id", s.ID), zap.Error(err))
		h.manager.Reject(s.ID, err)
		return
	}
	logging.LogSurface("render", s.ID, s.Component.Name)
	lc.RunLine(h, s)
}

// ReadLine prints prompt and reads one line without its newline.
func (h *LineHost) ReadLine(prompt string) (string, error) {
	h.out.Print(PromptStyle.Render(prompt))
	line, err := h.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		h.out.Newline()
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ReadSecret reads a line without echo on terminals.
func (h *LineHost) ReadSecret(prompt string) (string, error) {
	if h.fd < 0 {
		return h.ReadLine(prompt)
	}
	h.out.Print(PromptStyle.Render(prompt))
	b, err := term.ReadPassword(h.fd)
	h.out.Newline()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// RegisterLineComponents installs the line renderers for every dialog
// variant.
func RegisterLineComponents(c *dialog.Components) {
	c.Register(dialog.TypeConfirm, overlay.Component("line.confirm", confirmLine{}))
	c.Register(dialog.TypeSuccess, overlay.Component("line.success", messageLine{}))
	c.Register(dialog.TypeError, overlay.Component("line.error", messageLine{}))
	c.Register(dialog.TypePrompt, overlay.Component("line.prompt", promptLine{}))
	c.Register(dialog.TypeNode, overlay.Component("line.node", nodeLine{}))
}

func label(custom, fallback string) string {
	if custom != "" {
		return custom
	}
	return fallback
}

func dialogBox(h *LineHost, title, body string, color lipgloss.Color) string {
	width := clampWidth(h.out.Width())
	lines := []string{"", lipgloss.NewStyle().Foreground(color).Bold(true).Render("   " + title), ""}
	if body != "" {
		lines = append(lines, lipgloss.NewStyle().
			Foreground(TextColor).
			Width(width-12).
			PaddingLeft(3).
			Render(body), "")
	}
	return boxStyle(width, color).Render(strings.Join(lines, "\n"))
}

// confirmLine asks for an explicit yes. Anything else cancels.
type confirmLine struct{}

func (confirmLine) RunLine(h *LineHost, s *overlay.Surface) {
	req, _ := dialog.RequestOf(s)
	title := label(req.Title, h.tr.T(i18n.KeyConfirmTitle))
	h.out.Println(dialogBox(h, WarningMarker+"  "+title, req.Body(), WarningColor))

	confirm := label(req.ConfirmText, h.tr.T(i18n.KeyConfirm))
	cancel := label(req.CancelText, h.tr.T(i18n.KeyCancel))
	answer, err := h.ReadLine(fmt.Sprintf("%s? [y = %s / N = %s]: ", title, confirm, cancel))
	if err != nil {
		dialog.Dismiss(h.manager, s)
		return
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes", strings.ToLower(confirm):
		_ = dialog.Accept(h.manager, s, nil)
	default:
		h.out.Println(MutedStyle.Render("  " + cancel))
		dialog.Dismiss(h.manager, s)
	}
}

// messageLine shows a success or error box and waits for Enter.
type messageLine struct{}

func (messageLine) RunLine(h *LineHost, s *overlay.Surface) {
	req, _ := dialog.RequestOf(s)
	marker, color, key := SuccessMarker, SuccessColor, i18n.KeySuccessTitle
	if req.Type == dialog.TypeError {
		marker, color, key = FailureMarker, ErrorColor, i18n.KeyErrorTitle
	}
	h.out.Println(dialogBox(h, marker+"  "+label(req.Title, h.tr.T(key)), req.Body(), color))
	_, _ = h.ReadLine(fmt.Sprintf("[%s] ", label(req.ConfirmText, h.tr.T(i18n.KeyOK))))
	_ = dialog.Accept(h.manager, s, nil)
}

// promptLine reads a single value, or one line per schema field. Invalid
// schema input is reported and asked again.
type promptLine struct{}

func (promptLine) RunLine(h *LineHost, s *overlay.Surface) {
	req, _ := dialog.RequestOf(s)
	title := label(req.Title, h.tr.T(i18n.KeyPromptTitle))
	h.out.Println(dialogBox(h, title, req.Body(), PrimaryColor))

	if req.FormSchema == nil {
		prompt := "> "
		if req.Default != "" {
			prompt = fmt.Sprintf("[%s] > ", req.Default)
		}
		value, err := h.ReadLine(prompt)
		if err != nil {
			dialog.Dismiss(h.manager, s)
			return
		}
		if value == "" {
			value = req.Default
		}
		_ = dialog.Accept(h.manager, s, value)
		return
	}

	for {
		values := make(map[string]string, len(req.FormSchema.Fields))
		for _, f := range req.FormSchema.Fields {
			name := label(f.Title, f.Name)
			if f.Required {
				name += " *"
			}
			read := h.ReadLine
			if f.Secret {
				read = h.ReadSecret
			}
			v, err := read(name + ": ")
			if err != nil {
				dialog.Dismiss(h.manager, s)
				return
			}
			if v != "" {
				values[f.Name] = v
			}
		}

		err := dialog.Accept(h.manager, s, values)
		var verr *dialog.ValidationError
		if !errors.As(err, &verr) {
			return
		}
		h.out.Error(h.tr.T(i18n.KeyInvalidInput, verr.Err))
	}
}

// nodeLine prints the rendered body and resolves with the typed line.
type nodeLine struct{}

func (nodeLine) RunLine(h *LineHost, s *overlay.Surface) {
	req, _ := dialog.RequestOf(s)
	h.out.Println(dialogBox(h, req.Title, req.Body(), PrimaryColor))
	value, err := h.ReadLine("> ")
	if err != nil {
		dialog.Dismiss(h.manager, s)
		return
	}
	_ = dialog.Accept(h.manager, s, value)
}
