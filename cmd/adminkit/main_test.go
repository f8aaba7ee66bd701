package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/muurk/adminkit/internal/config"
	"github.com/muurk/adminkit/internal/dialog"
)

func setBackendFlags(t *testing.T, name, url string) {
	t.Helper()
	prevName, prevURL := backendName, backendURL
	backendName, backendURL = name, url
	t.Cleanup(func() { backendName, backendURL = prevName, prevURL })
}

func TestResolveBackend(t *testing.T) {
	t.Run("url creates default entry", func(t *testing.T) {
		setBackendFlags(t, "", "http://127.0.0.1:8780/")
		cfg := config.NewConfig()

		name, b, err := resolveBackend(cfg)
		require.NoError(t, err)
		require.Equal(t, defaultBackendName, name)
		require.Equal(t, "http://127.0.0.1:8780", b.URL)
		require.Same(t, b, cfg.GetBackend(defaultBackendName))
	})

	t.Run("current backend", func(t *testing.T) {
		setBackendFlags(t, "", "")
		cfg := config.NewConfig()
		cfg.EnsureBackend("lab", "http://lab:8780")
		require.NoError(t, cfg.UseBackend("lab"))

		name, b, err := resolveBackend(cfg)
		require.NoError(t, err)
		require.Equal(t, "lab", name)
		require.Equal(t, "http://lab:8780", b.URL)
	})

	t.Run("nothing selected", func(t *testing.T) {
		setBackendFlags(t, "", "")
		_, _, err := resolveBackend(config.NewConfig())
		require.Error(t, err)
	})

	t.Run("unknown name", func(t *testing.T) {
		setBackendFlags(t, "missing", "")
		_, _, err := resolveBackend(config.NewConfig())
		require.ErrorContains(t, err, `"missing"`)
	})
}

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments([]string{"name=Ann", "note=a=b", "empty="})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"name": "Ann", "note": "a=b", "empty": ""}, got)

	_, err = parseAssignments([]string{"=x"})
	require.Error(t, err)
	_, err = parseAssignments([]string{"flag"})
	require.Error(t, err)
}

func TestTypedValues(t *testing.T) {
	schema := dialog.MustCompileSchema(`{
	  "type": "object",
	  "properties": {
	    "age":   {"type": "integer"},
	    "admin": {"type": "boolean"}
	  }
	}`)

	got, err := typedValues(schema, map[string]string{"age": "30", "admin": "true", "role": "editor"})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"age": int64(30), "admin": true, "role": "editor"}, got)

	_, err = typedValues(schema, map[string]string{"age": "old"})
	require.Error(t, err)

	got, err = typedValues(nil, map[string]string{"age": "30"})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"age": "30"}, got)
}

func TestDescribeChanges(t *testing.T) {
	require.Equal(t, "name → Ann\nrole → admin", describeChanges(map[string]any{"role": "admin", "name": "Ann"}))
}

func TestResourcePath(t *testing.T) {
	require.Equal(t, "/users", resourcePath("users"))
	require.Equal(t, "/users", resourcePath("/users/"))
}

func TestReadAccounts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "accounts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
users:
  - username: ann
    password: secret
    roles: [editor]
default_roles: [viewer]
policies:
  users.create: '"editor" in session.roles'
`), 0o600))

	f, err := readAccounts(path)
	require.NoError(t, err)
	require.Len(t, f.Users, 1)
	require.Equal(t, []string{"editor"}, f.Users[0].Roles)
	require.Equal(t, []string{"viewer"}, f.DefaultRoles)
	require.Contains(t, f.Policies, "users.create")

	require.NoError(t, os.WriteFile(path, []byte("users:\n  - username: bob\n"), 0o600))
	_, err = readAccounts(path)
	require.ErrorContains(t, err, "needs a username and a password")
}
