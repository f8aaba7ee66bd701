package httpauth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/adminkit/internal/auth"
)

// Session event types pushed on the watch socket.
const (
	EventRevoked = "revoked"
	EventHello   = "hello"
)

// SessionEvent is one message on the watch socket.
type SessionEvent struct {
	Type   string `json:"type"`
	Reason string `json:"reason,omitempty"`
}

const handshakeTimeout = 10 * time.Second

// Watch holds a websocket open to the backend and calls onRevoke when the
// backend revokes the current session. It returns nil after a revocation or
// a normal close, ctx.Err() when ctx ends, and an *Error otherwise.
func (p *Provider) Watch(ctx context.Context, onRevoke func(reason string)) error {
	token := p.Token()
	if token == "" {
		return &Error{Op: "watch", Message: "not logged in"}
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	header := http.Header{"Authorization": {"Bearer " + token}}
	conn, resp, err := dialer.DialContext(ctx, websocketURL(p.baseURL)+PathSessionWatch, header)
	if err != nil {
		e := &Error{Op: "watch", Message: "failed to open session watch", Err: err}
		if resp != nil {
			e.StatusCode = resp.StatusCode
			if resp.StatusCode == http.StatusUnauthorized {
				e.Err = ErrRevoked
			}
		}
		return e
	}
	defer func() { _ = conn.Close() }()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
		}
	}()

	p.log.Debug("Session watch connected", zap.String("backend", p.baseURL))
	for {
		var ev SessionEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return &Error{Op: "watch", Message: "session watch connection lost", Err: err}
		}

		switch ev.Type {
		case EventRevoked:
			p.log.Info("Session revoked by backend", zap.String("reason", ev.Reason))
			p.SetToken("")
			if onRevoke != nil {
				onRevoke(ev.Reason)
			}
			return nil
		case EventHello:
		default:
			p.log.Debug("Ignoring session event", zap.String("type", ev.Type))
		}
	}
}

// WatchStore tears the store's session down when the backend revokes it.
func WatchStore(ctx context.Context, p *Provider, s *auth.Store) error {
	err := p.Watch(ctx, func(reason string) {
		if reason == "" {
			reason = "session revoked"
		}
		s.HandleError(ctx, &Error{Op: "watch", Message: reason, Err: ErrRevoked})
	})
	if errors.Is(err, ErrRevoked) {
		s.HandleError(ctx, err)
		return nil
	}
	return err
}

func websocketURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return base
	}
}
