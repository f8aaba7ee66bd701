package tui

import (
	"sync"
	"time"

	"github.com/charmbracelet/x/ansi"
)

// DefaultStatusTTL is how long a notification stays in the status bar.
const DefaultStatusTTL = 5 * time.Second

// StatusBar holds the latest transient notification. It implements
// form.Notifier and may be written from command goroutines.
type StatusBar struct {
	mu    sync.Mutex
	msg   string
	isErr bool
	at    time.Time
	ttl   time.Duration
	now   func() time.Time
}

// NewStatusBar returns an empty status bar.
func NewStatusBar() *StatusBar {
	return &StatusBar{ttl: DefaultStatusTTL, now: time.Now}
}

// Success shows msg as a success notification.
func (b *StatusBar) Success(msg string) { b.set(msg, false) }

// Error shows msg as an error notification.
func (b *StatusBar) Error(msg string) { b.set(msg, true) }

func (b *StatusBar) set(msg string, isErr bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msg, b.isErr, b.at = msg, isErr, b.now()
}

// Message returns the current notification. ok is false when there is
// none or it has expired.
func (b *StatusBar) Message() (msg string, isErr bool, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.msg == "" || b.now().Sub(b.at) > b.ttl {
		return "", false, false
	}
	return b.msg, b.isErr, true
}

// View renders the notification line, truncated to width.
func (b *StatusBar) View(width int) string {
	msg, isErr, ok := b.Message()
	if !ok {
		return ""
	}
	if width > 4 {
		msg = ansi.Truncate(msg, width-4, "…")
	}
	if isErr {
		return StatusErrorStyle.Render("✗ " + msg)
	}
	return StatusSuccessStyle.Render("✓ " + msg)
}
