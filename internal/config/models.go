package config

import (
	"fmt"
	"time"
)

// CurrentVersion is the config file schema version.
const CurrentVersion = 1

// Config represents the entire user configuration file.
type Config struct {
	Version  int                 `yaml:"version"`
	Current  string              `yaml:"current,omitempty"`  // Name of the backend used when --backend is absent
	Backends map[string]*Backend `yaml:"backends,omitempty"` // Keyed by backend name
	Auth     *AuthPrefs          `yaml:"auth,omitempty"`
	Client   *ClientPrefs        `yaml:"client,omitempty"`
	UI       *UIPrefs            `yaml:"ui,omitempty"`
}

// Backend describes an admin backend the toolkit talks to.
type Backend struct {
	URL        string    `yaml:"url"`                   // Base URL, e.g. "http://127.0.0.1:8780"
	Username   string    `yaml:"username,omitempty"`    // Default login identifier
	LastUsed   time.Time `yaml:"last_used,omitempty"`   // Last successful login
	Discovered bool      `yaml:"discovered,omitempty"`  // Added from an mDNS scan
	Resources  []string  `yaml:"resources,omitempty"`   // Known resource paths, e.g. "/users"
	SessionRef string    `yaml:"session_ref,omitempty"` // File name of the stored session token
}

// AuthPrefs configures the auth store.
type AuthPrefs struct {
	// CanPolicy decides permission checks when the provider has no Can
	// capability and no policy matches: "allow" or "deny".
	CanPolicy string `yaml:"can_policy"`

	// Policies maps permission names to CEL expressions evaluated against
	// the session and the call parameters.
	Policies map[string]string `yaml:"policies,omitempty"`

	// LoginRate is the maximum number of login attempts per minute.
	LoginRate int `yaml:"login_rate,omitempty"`
}

// ClientPrefs configures the HTTP providers.
type ClientPrefs struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
	MaxRetries     int `yaml:"max_retries"`
	CacheSeconds   int `yaml:"cache_seconds"`
}

// UIPrefs configures rendering.
type UIPrefs struct {
	Language string `yaml:"language"`            // BCP 47 tag, e.g. "en", "de"
	LineMode bool   `yaml:"line_mode,omitempty"` // Render dialogs on stdin/stdout instead of the TUI
}

// Can policy values.
const (
	CanPolicyAllow = "allow"
	CanPolicyDeny  = "deny"
)

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	c := &Config{Version: CurrentVersion}
	c.applyDefaults()
	return c
}

// applyDefaults fills sections that are missing from an older or hand-written file.
func (c *Config) applyDefaults() {
	if c.Backends == nil {
		c.Backends = make(map[string]*Backend)
	}
	if c.Auth == nil {
		c.Auth = &AuthPrefs{}
	}
	if c.Auth.CanPolicy == "" {
		c.Auth.CanPolicy = CanPolicyAllow
	}
	if c.Auth.LoginRate == 0 {
		c.Auth.LoginRate = 5
	}
	if c.Client == nil {
		c.Client = &ClientPrefs{
			TimeoutSeconds: 10,
			MaxRetries:     3,
			CacheSeconds:   30,
		}
	}
	if c.UI == nil {
		c.UI = &UIPrefs{Language: "en"}
	}
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", c.Version, CurrentVersion)
	}
	switch c.Auth.CanPolicy {
	case CanPolicyAllow, CanPolicyDeny:
	default:
		return fmt.Errorf("invalid auth.can_policy %q (expected %q or %q)", c.Auth.CanPolicy, CanPolicyAllow, CanPolicyDeny)
	}
	for name, b := range c.Backends {
		if b == nil || b.URL == "" {
			return fmt.Errorf("backend %q has no url", name)
		}
	}
	if c.Current != "" && c.Backends[c.Current] == nil {
		return fmt.Errorf("current backend %q is not configured", c.Current)
	}
	return nil
}

// GetBackend retrieves a backend by name.
// Returns nil if the backend doesn't exist.
func (c *Config) GetBackend(name string) *Backend {
	return c.Backends[name]
}

// CurrentBackend returns the selected backend, or nil when none is selected.
func (c *Config) CurrentBackend() *Backend {
	if c.Current == "" {
		return nil
	}
	return c.Backends[c.Current]
}

// EnsureBackend ensures a backend entry exists, creating it with the given URL.
// An existing entry keeps its metadata but takes the new URL.
func (c *Config) EnsureBackend(name, url string) *Backend {
	if c.Backends == nil {
		c.Backends = make(map[string]*Backend)
	}

	if b, exists := c.Backends[name]; exists {
		if url != "" {
			b.URL = url
		}
		return b
	}

	b := &Backend{URL: url, SessionRef: "session-" + name}
	c.Backends[name] = b
	return b
}

// UseBackend selects the backend used by default.
func (c *Config) UseBackend(name string) error {
	if c.Backends[name] == nil {
		return fmt.Errorf("backend %q is not configured", name)
	}
	c.Current = name
	return nil
}

// MarkLogin records a successful login against a backend.
func (c *Config) MarkLogin(name, username string) {
	b := c.EnsureBackend(name, "")
	b.LastUsed = time.Now()
	if username != "" {
		b.Username = username
	}
}

// AddResource remembers a resource path for completion in the CLI.
func (c *Config) AddResource(name, path string) {
	b := c.EnsureBackend(name, "")
	for _, r := range b.Resources {
		if r == path {
			return
		}
	}
	b.Resources = append(b.Resources, path)
}

// RequestTimeout returns the configured client timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Client.TimeoutSeconds) * time.Second
}

// CacheDuration returns the configured read cache validity.
func (c *Config) CacheDuration() time.Duration {
	return time.Duration(c.Client.CacheSeconds) * time.Second
}
