package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestGetConfigDir(t *testing.T) {
	t.Setenv(DirEnvVar, "")

	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "adminkit") {
		t.Errorf("GetConfigDir() = %v, should contain 'adminkit'", configDir)
	}

	switch runtime.GOOS {
	case "darwin", "linux":
		if os.Getenv("XDG_CONFIG_HOME") == "" && !strings.Contains(configDir, ".config") {
			t.Errorf("Unix config dir should contain '.config', got: %v", configDir)
		}
	}
}

func TestGetConfigDir_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(DirEnvVar, dir)

	got, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if got != dir {
		t.Errorf("GetConfigDir() = %v, want %v", got, dir)
	}

	path, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", path)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig()

	if cfg.Version != CurrentVersion {
		t.Errorf("Version = %v, want %v", cfg.Version, CurrentVersion)
	}
	if cfg.Backends == nil {
		t.Error("Backends should not be nil")
	}
	if cfg.Auth.CanPolicy != CanPolicyAllow {
		t.Errorf("CanPolicy = %q, want %q", cfg.Auth.CanPolicy, CanPolicyAllow)
	}
	if cfg.RequestTimeout() != 10*time.Second {
		t.Errorf("RequestTimeout() = %v, want 10s", cfg.RequestTimeout())
	}
	if cfg.UI.Language != "en" {
		t.Errorf("Language = %q, want en", cfg.UI.Language)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestEnsureBackend(t *testing.T) {
	cfg := NewConfig()

	b1 := cfg.EnsureBackend("local", "http://127.0.0.1:8780")
	if b1 == nil {
		t.Fatal("EnsureBackend() returned nil")
	}
	if b1.SessionRef != "session-local" {
		t.Errorf("SessionRef = %q, want session-local", b1.SessionRef)
	}

	b2 := cfg.EnsureBackend("local", "")
	if b1 != b2 {
		t.Error("EnsureBackend() should return same instance for same name")
	}
	if b2.URL != "http://127.0.0.1:8780" {
		t.Errorf("empty URL should keep existing URL, got %q", b2.URL)
	}

	cfg.EnsureBackend("local", "http://10.0.0.2:8780")
	if b1.URL != "http://10.0.0.2:8780" {
		t.Errorf("URL = %q, want updated URL", b1.URL)
	}
}

func TestUseBackend(t *testing.T) {
	cfg := NewConfig()

	if err := cfg.UseBackend("missing"); err == nil {
		t.Error("UseBackend() should fail for unknown backend")
	}

	cfg.EnsureBackend("staging", "https://staging.example.com")
	if err := cfg.UseBackend("staging"); err != nil {
		t.Fatalf("UseBackend() error = %v", err)
	}
	if cfg.CurrentBackend() == nil || cfg.CurrentBackend().URL != "https://staging.example.com" {
		t.Errorf("CurrentBackend() = %+v", cfg.CurrentBackend())
	}
}

func TestAddResource_Dedupes(t *testing.T) {
	cfg := NewConfig()
	cfg.EnsureBackend("local", "http://127.0.0.1:8780")

	cfg.AddResource("local", "/users")
	cfg.AddResource("local", "/users")
	cfg.AddResource("local", "/posts")

	got := cfg.GetBackend("local").Resources
	if len(got) != 2 {
		t.Errorf("Resources = %v, want 2 entries", got)
	}
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "future version",
			yaml:    "version: 2\n",
			wantErr: "unsupported config version",
		},
		{
			name:    "bad policy",
			yaml:    "version: 1\nauth:\n  can_policy: maybe\n",
			wantErr: "invalid auth.can_policy",
		},
		{
			name:    "backend without url",
			yaml:    "version: 1\nbackends:\n  local: {}\n",
			wantErr: "has no url",
		},
		{
			name:    "dangling current",
			yaml:    "version: 1\ncurrent: prod\n",
			wantErr: "is not configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Parse() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestParse_FillsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("backends:\n  local:\n    url: http://127.0.0.1:8780\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Version != CurrentVersion {
		t.Errorf("Version = %d, want %d", cfg.Version, CurrentVersion)
	}
	if cfg.Client == nil || cfg.Client.MaxRetries != 3 {
		t.Errorf("Client defaults not applied: %+v", cfg.Client)
	}
}

func TestSaveAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := NewConfig()
	cfg.EnsureBackend("local", "http://127.0.0.1:8780")
	cfg.Auth.CanPolicy = CanPolicyDeny
	cfg.Auth.Policies = map[string]string{"users.delete": `"admin" in session.roles`}
	if err := cfg.UseBackend("local"); err != nil {
		t.Fatal(err)
	}

	if err := cfg.SaveFile(path); err != nil {
		t.Fatalf("SaveFile() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file missing: %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0600 {
		t.Errorf("config file mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if loaded.Current != "local" {
		t.Errorf("Current = %q, want local", loaded.Current)
	}
	if loaded.Auth.CanPolicy != CanPolicyDeny {
		t.Errorf("CanPolicy = %q, want deny", loaded.Auth.CanPolicy)
	}
	if loaded.Auth.Policies["users.delete"] != `"admin" in session.roles` {
		t.Errorf("Policies = %v", loaded.Auth.Policies)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Version != CurrentVersion {
		t.Errorf("missing file should yield defaults, got version %d", cfg.Version)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	t.Setenv(DirEnvVar, t.TempDir())

	cfg := NewConfig()
	b := cfg.EnsureBackend("local", "http://127.0.0.1:8780")

	token, err := LoadSession(b)
	if err != nil || token != "" {
		t.Fatalf("LoadSession() before save = %q, %v", token, err)
	}

	if err := SaveSession(b, "abc.def.ghi"); err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}
	token, err = LoadSession(b)
	if err != nil {
		t.Fatalf("LoadSession() error = %v", err)
	}
	if token != "abc.def.ghi" {
		t.Errorf("LoadSession() = %q, want abc.def.ghi", token)
	}

	if err := ClearSession(b); err != nil {
		t.Fatalf("ClearSession() error = %v", err)
	}
	if err := ClearSession(b); err != nil {
		t.Errorf("ClearSession() twice should be a no-op, got %v", err)
	}
}

func BenchmarkEnsureBackend(b *testing.B) {
	cfg := NewConfig()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cfg.EnsureBackend("local", "http://127.0.0.1:8780")
	}
}
