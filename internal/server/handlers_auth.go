package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/muurk/adminkit/internal/auth"
	"github.com/muurk/adminkit/internal/auth/httpauth"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	u, err := s.users.Authenticate(req.Username, req.Password)
	if err != nil {
		s.log.Info("Login rejected", zap.String("username", req.Username))
		writeMessage(w, http.StatusUnauthorized, ErrInvalidCredentials.Error())
		return
	}
	token, err := s.sessions.Issue(u)
	if err != nil {
		s.log.Error("Failed to issue token", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	s.log.Info("Login", zap.String("username", u.Username))
	writeJSON(w, http.StatusOK, map[string]any{"token": token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	s.sessions.Revoke(claims.ID)
	s.hub.Revoke([]string{claims.ID}, "logged out")
	w.WriteHeader(http.StatusNoContent)
}

// handleCheck confirms the session and rotates the token once less than
// half of its lifetime is left. The previous token stays valid until it
// expires.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	body := map[string]any{}

	if claims.ExpiresAt != nil && time.Until(claims.ExpiresAt.Time) < s.sessions.TTL()/2 {
		username, _ := s.sessions.Username(claims.ID)
		if u, ok := s.users.Get(username); ok {
			token, err := s.sessions.Issue(u)
			if err != nil {
				s.log.Error("Failed to rotate token", zap.Error(err))
			} else {
				body["token"] = token
			}
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "username and password are required")
		return
	}
	_, err := s.users.Add(UserSpec{
		Username: req.Username,
		Password: req.Password,
		Name:     req.Name,
		Roles:    s.config.DefaultRoles,
	})
	if errors.Is(err, ErrUserExists) {
		writeMessage(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	s.log.Info("Account registered", zap.String("username", req.Username))
	writeMessage(w, http.StatusCreated, "account created")
}

// handleForgotPassword never reveals whether the account exists.
func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	who := req.Username
	if who == "" {
		who = req.Email
	}
	if who == "" {
		writeMessage(w, http.StatusBadRequest, "username or email is required")
		return
	}
	if _, ok := s.users.Get(who); ok {
		s.log.Info("Password reset requested", zap.String("username", who))
	}
	writeMessage(w, http.StatusAccepted, "reset instructions sent")
}

// handleUpdatePassword changes the caller's password and ends their other
// sessions.
func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	var req struct {
		Password        string `json:"password"`
		CurrentPassword string `json:"current_password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "password is required")
		return
	}
	username, ok := s.sessions.Username(claims.ID)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "session revoked")
		return
	}
	if req.CurrentPassword != "" {
		if _, err := s.users.Authenticate(username, req.CurrentPassword); err != nil {
			writeMessage(w, http.StatusForbidden, "current password is incorrect")
			return
		}
	}
	if err := s.users.SetPassword(username, req.Password); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	ids := s.sessions.RevokeUser(username, claims.ID)
	s.hub.Revoke(ids, "password changed")
	s.log.Info("Password updated",
		zap.String("username", username),
		zap.Int("revoked_sessions", len(ids)),
	)
	writeMessage(w, http.StatusOK, "password updated")
}

func (s *Server) handleCan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Permission string         `json:"permission"`
		Params     map[string]any `json:"params"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Permission == "" {
		writeMessage(w, http.StatusBadRequest, "permission is required")
		return
	}
	claims, _ := ClaimsFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"allowed": s.allowed(r, claims, req.Permission, auth.Params(req.Params)),
	})
}

// allowed grants permissions listed in the token, then defers to the
// configured policies. Anonymous callers only pass policies that accept a
// null session.
func (s *Server) allowed(r *http.Request, claims *httpauth.Claims, permission string, params auth.Params) bool {
	var session *auth.Session
	if claims != nil {
		for _, p := range claims.Permissions {
			if p == permission || p == "*" {
				return true
			}
		}
		session = &auth.Session{
			UserID:      claims.Subject,
			Name:        claims.Name,
			Roles:       claims.Roles,
			Permissions: claims.Permissions,
		}
	}
	return s.policy.Can(r.Context(), permission, params, auth.ManageContext{Name: "server"}, session)
}

// handleRevokeUser ends every session of the named account.
func (s *Server) handleRevokeUser(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	username := chi.URLParam(r, "user")
	if !s.allowed(r, claims, PermissionRevokeSessions, auth.Params{"user": username}) {
		writeMessage(w, http.StatusForbidden, "not allowed to revoke sessions")
		return
	}
	if _, ok := s.users.Get(username); !ok {
		writeMessage(w, http.StatusNotFound, "unknown user")
		return
	}
	ids := s.sessions.RevokeUser(normalizeUsername(username), "")
	pushed := s.hub.Revoke(ids, "revoked by administrator")
	s.log.Info("Sessions revoked",
		zap.String("username", username),
		zap.Int("sessions", len(ids)),
		zap.Int("watchers", pushed),
	)
	writeJSON(w, http.StatusOK, map[string]any{"revoked": len(ids)})
}
