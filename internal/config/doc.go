// Package config provides user configuration management for adminkit.
//
// This package manages a YAML configuration file that stores the admin
// backends the toolkit talks to, auth store preferences (the default
// permission policy and CEL permission rules), HTTP client tuning and UI
// preferences. The configuration follows OS-specific conventions for
// storage location.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/adminkit/config.yaml or $HOME/.config/adminkit/config.yaml
//   - macOS: $HOME/.config/adminkit/config.yaml
//   - Windows: %LOCALAPPDATA%\adminkit\config.yaml
//
// ADMINKIT_CONFIG_DIR overrides the directory on every platform.
//
// # Example
//
//	version: 1
//	current: local
//	backends:
//	  local:
//	    url: http://127.0.0.1:8780
//	    username: admin
//	auth:
//	  can_policy: deny
//	  policies:
//	    users.delete: '"admin" in session.roles'
//	client:
//	  timeout_seconds: 10
//	  max_retries: 3
//	  cache_seconds: 30
//	ui:
//	  language: de
//
// # Security
//
// Passwords are never written. Session tokens are stored in per-backend files
// with 0600 permissions and removed on logout.
//
// # Thread Safety
//
// The global config uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex and writes are atomic (temp file
// plus rename).
package config
