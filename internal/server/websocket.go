package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/adminkit/internal/auth/httpauth"
)

const writeWait = 5 * time.Second

// watcher is one open session socket. gorilla connections allow a single
// concurrent writer, so writes go through mu.
type watcher struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *watcher) send(ev httpauth.SessionEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteJSON(ev)
}

func (w *watcher) close(code int, text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text), time.Now().Add(writeWait))
	_ = w.conn.Close()
}

// Hub pushes session events to connected clients, keyed by session id.
type Hub struct {
	upgrader websocket.Upgrader
	log      *zap.Logger
	active   func(id string) bool

	mu       sync.Mutex
	watchers map[string]map[*watcher]struct{}
}

// NewHub returns an empty hub. active reports whether a session id is
// still valid; it is consulted once a watcher has registered.
func NewHub(log *zap.Logger, active func(id string) bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin:      func(r *http.Request) bool { return true },
		},
		log:      log,
		active:   active,
		watchers: make(map[string]map[*watcher]struct{}),
	}
}

func (h *Hub) add(id string, w *watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.watchers[id]
	if !ok {
		set = make(map[*watcher]struct{})
		h.watchers[id] = set
	}
	set[w] = struct{}{}
}

func (h *Hub) remove(id string, w *watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.watchers[id]; ok {
		delete(set, w)
		if len(set) == 0 {
			delete(h.watchers, id)
		}
	}
}

// ServeHTTP upgrades an authenticated request and holds the socket open
// until the client leaves or the session is revoked.
func (h *Hub) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeMessage(rw, http.StatusUnauthorized, "missing bearer token")
		return
	}

	conn, err := h.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	w := &watcher{conn: conn}
	if err := w.send(httpauth.SessionEvent{Type: httpauth.EventHello}); err != nil {
		_ = conn.Close()
		return
	}
	h.add(claims.ID, w)
	defer h.remove(claims.ID, w)
	if h.active != nil && !h.active(claims.ID) {
		h.Revoke([]string{claims.ID}, "session revoked")
		return
	}

	h.log.Debug("Session watcher connected",
		zap.String("session_id", claims.ID),
		zap.String("remote_addr", r.RemoteAddr),
	)

	// Clients never send data; reading only surfaces close frames and errors.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.log.Debug("Session watcher disconnected",
				zap.String("session_id", claims.ID),
				zap.Error(err),
			)
			_ = conn.Close()
			return
		}
	}
}

// Revoke tells every watcher of the given sessions that they ended and
// closes their sockets. It returns the number of notified sockets.
func (h *Hub) Revoke(ids []string, reason string) int {
	h.mu.Lock()
	var targets []*watcher
	for _, id := range ids {
		for w := range h.watchers[id] {
			targets = append(targets, w)
		}
		delete(h.watchers, id)
	}
	h.mu.Unlock()

	for _, w := range targets {
		if err := w.send(httpauth.SessionEvent{Type: httpauth.EventRevoked, Reason: reason}); err != nil {
			h.log.Debug("Failed to push revocation", zap.Error(err))
		}
		w.close(websocket.CloseNormalClosure, reason)
	}
	return len(targets)
}

// Len returns the number of connected watchers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, set := range h.watchers {
		n += len(set)
	}
	return n
}

// Close disconnects every watcher with a going-away frame.
func (h *Hub) Close() {
	h.mu.Lock()
	var targets []*watcher
	for id, set := range h.watchers {
		for w := range set {
			targets = append(targets, w)
		}
		delete(h.watchers, id)
	}
	h.mu.Unlock()

	for _, w := range targets {
		w.close(websocket.CloseGoingAway, "server shutting down")
	}
}
