package server

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/muurk/adminkit/internal/auth"
	"github.com/muurk/adminkit/internal/auth/httpauth"
	"github.com/muurk/adminkit/internal/auth/policy"
	"github.com/muurk/adminkit/internal/discovery"
	"github.com/muurk/adminkit/internal/logging"
	"github.com/muurk/adminkit/internal/version"
)

// DefaultPort is the port the development backend listens on.
const DefaultPort = 8780

// PermissionRevokeSessions guards DELETE /auth/sessions/{user}.
const PermissionRevokeSessions = "sessions.revoke"

// DefaultPolicies grant everything to the admin role.
func DefaultPolicies() map[string]string {
	return map[string]string{policy.DefaultRule: `"admin" in session.roles`}
}

// Config holds the server configuration
type Config struct {
	Host     string
	Port     int
	CertPath string // Serve HTTPS when both CertPath and KeyPath are set
	KeyPath  string

	Secret       string        // HS256 signing key; random per process when empty
	TokenTTL     time.Duration // Session token lifetime
	Users        []UserSpec    // Seed accounts; DefaultUsers when nil
	DefaultRoles []string      // Roles of self-registered accounts
	BcryptCost   int

	Policies map[string]string // CEL rules for /auth/can; DefaultPolicies when nil

	Advertise    bool   // Register the backend over mDNS
	InstanceName string // mDNS instance name

	LogLevel string
}

// Server is the development admin backend.
type Server struct {
	config    *Config
	tlsConfig *tls.Config
	key       []byte
	log       *zap.Logger

	users     *UserStore
	sessions  *Sessions
	hub       *Hub
	resources *Resources
	policy    *policy.Checker
	router    chi.Router

	httpServer *http.Server

	mu sync.Mutex
	ad *discovery.Advertisement
}

// New creates a new Server instance
func New(config *Config) (*Server, error) {
	if config.LogLevel != "" {
		if err := logging.Initialize(config.LogLevel); err != nil {
			return nil, fmt.Errorf("failed to initialize logging: %w", err)
		}
	}

	var tlsConfig *tls.Config
	if config.CertPath != "" && config.KeyPath != "" {
		var err error
		tlsConfig, err = NewTLSConfig(config.CertPath, config.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	}

	key := []byte(config.Secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate signing key: %w", err)
		}
	}

	rules := config.Policies
	if rules == nil {
		rules = DefaultPolicies()
	}
	log := logging.Named("server")
	checker, err := policy.New(rules, policy.WithFallback(auth.PolicyDeny), policy.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("failed to compile policies: %w", err)
	}

	cost := config.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	users := NewUserStore(cost)
	seeds := config.Users
	if seeds == nil {
		seeds = DefaultUsers()
	}
	for _, spec := range seeds {
		if _, err := users.Add(spec); err != nil {
			return nil, fmt.Errorf("failed to seed user %q: %w", spec.Username, err)
		}
	}

	sessions := NewSessions(key, config.TokenTTL)
	s := &Server{
		config:    config,
		tlsConfig: tlsConfig,
		key:       key,
		log:       log,
		users:     users,
		sessions:  sessions,
		hub: NewHub(log, func(id string) bool {
			_, ok := sessions.Username(id)
			return ok
		}),
		resources: NewResources(),
		policy:    checker,
	}
	s.router = s.routes()
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	health := func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "version": version.Version})
	}
	r.Get("/healthz", health)
	// clients rooted at /api probe here
	r.Get("/api/healthz", health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/register", s.handleRegister)
		r.Post("/forgot-password", s.handleForgotPassword)
		r.With(s.optionalSession).Post("/can", s.handleCan)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)
			r.Post("/logout", s.handleLogout)
			r.Get("/check", s.handleCheck)
			r.Post("/update-password", s.handleUpdatePassword)
			r.Delete("/sessions/{user}", s.handleRevokeUser)
		})
	})

	r.With(s.requireSession).Handle(httpauth.PathSessionWatch, s.hub)

	r.Route("/api/{resource}", func(r chi.Router) {
		r.Use(s.requireSession)
		r.Get("/", s.handleList)
		r.Post("/", s.handleCreate)
		r.Get("/{id}", s.handleGet)
		r.Put("/{id}", s.handleUpdate)
	})
	return r
}

// Handler returns the HTTP handler, for embedding or httptest.
func (s *Server) Handler() http.Handler { return s.router }

// Key returns the token signing key.
func (s *Server) Key() []byte { return s.key }

// Users returns the account store.
func (s *Server) Users() *UserStore { return s.users }

// Revoke ends every session of username and notifies their watchers.
func (s *Server) Revoke(username, reason string) int {
	ids := s.sessions.RevokeUser(normalizeUsername(username), "")
	s.hub.Revoke(ids, reason)
	return len(ids)
}

// Listen opens the configured address, with TLS when configured.
func (s *Server) Listen() (net.Listener, error) {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to create listener: %w", err)
	}
	if s.tlsConfig != nil {
		listener = tls.NewListener(listener, s.tlsConfig)
	}
	return listener, nil
}

// Serve handles requests on l until Shutdown. It advertises the backend
// over mDNS when configured; a failed advertisement is only logged.
func (s *Server) Serve(l net.Listener) error {
	if s.config.Advertise {
		s.advertise(l.Addr())
	}

	logging.Info("Server listening for connections",
		zap.String("addr", l.Addr().String()),
		zap.Any("tls_info", GetTLSInfo(s.tlsConfig)),
	)
	if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func (s *Server) advertise(addr net.Addr) {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return
	}
	instance := s.config.InstanceName
	if instance == "" {
		host, _ := os.Hostname()
		instance = "adminkit-" + host
	}
	scheme := "http"
	if s.tlsConfig != nil {
		scheme = "https"
	}
	ad, err := discovery.Advertise(instance, tcp.Port, map[string]string{
		"version": version.Version,
		"scheme":  scheme,
		"path":    "/",
	})
	if err != nil {
		s.log.Warn("mDNS advertisement failed", zap.Error(err))
		return
	}
	s.mu.Lock()
	s.ad = ad
	s.mu.Unlock()
	s.log.Info("Advertising over mDNS",
		zap.String("instance", instance),
		zap.String("service", discovery.ServiceType),
	)
}

// Start starts the server and blocks until shutdown
func (s *Server) Start() error {
	logging.Info("Starting adminkit development backend",
		zap.String("host", s.config.Host),
		zap.Int("port", s.config.Port),
		zap.Int("users", s.users.Len()),
		zap.Strings("policies", s.policy.Rules()),
		zap.String("log_level", s.config.LogLevel),
	)

	listener, err := s.Listen()
	if err != nil {
		return err
	}

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Serve(listener)
	}()

	// Wait for shutdown signal or error
	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping server...")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	s.mu.Lock()
	s.ad.Shutdown()
	s.ad = nil
	s.mu.Unlock()
	s.hub.Close()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		logging.Warn("Shutdown timeout, forcing close", zap.Error(err))
		_ = s.httpServer.Close()
	} else {
		logging.Info("All connections closed gracefully")
	}

	// Sync logger
	logging.Sync()

	return err
}

// ActiveSessions returns the number of unrevoked sessions
func (s *Server) ActiveSessions() int {
	return s.sessions.Len()
}

// Watchers returns the number of connected session watchers
func (s *Server) Watchers() int {
	return s.hub.Len()
}
