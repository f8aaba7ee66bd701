package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/muurk/adminkit/internal/auth"
)

var (
	admin  = &auth.Session{UserID: "1", Name: "alice", Roles: []string{"admin"}}
	editor = &auth.Session{UserID: "2", Name: "bob", Roles: []string{"editor"}}
)

func TestChecker_Rules(t *testing.T) {
	c, err := New(map[string]string{
		"posts.delete": `"admin" in session.roles`,
		"posts.edit":   `session.user_id == params.owner || "admin" in session.roles`,
		DefaultRule:    `permission.startsWith("read.")`,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"*", "posts.delete", "posts.edit"}, c.Rules())

	ctx := context.Background()
	tests := []struct {
		name       string
		permission string
		params     auth.Params
		session    *auth.Session
		want       bool
	}{
		{"admin deletes", "posts.delete", nil, admin, true},
		{"editor cannot delete", "posts.delete", nil, editor, false},
		{"owner edits", "posts.edit", auth.Params{"owner": "2"}, editor, true},
		{"non-owner cannot edit", "posts.edit", auth.Params{"owner": "9"}, editor, false},
		{"default rule allows reads", "read.users", nil, editor, true},
		{"default rule denies others", "users.create", nil, editor, false},
		{"missing param denies", "posts.edit", nil, editor, false},
		{"anonymous denied", "posts.delete", nil, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Can(ctx, tt.permission, tt.params, auth.ManageContext{}, tt.session)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestChecker_Fallback(t *testing.T) {
	ctx := context.Background()

	allow, err := New(map[string]string{"x": "true"})
	require.NoError(t, err)
	require.True(t, allow.Can(ctx, "unlisted", nil, auth.ManageContext{}, admin))

	deny, err := New(map[string]string{"x": "true"}, WithFallback(auth.PolicyDeny))
	require.NoError(t, err)
	require.False(t, deny.Can(ctx, "unlisted", nil, auth.ManageContext{}, admin))
	require.True(t, deny.Can(ctx, "x", nil, auth.ManageContext{}, admin))
}

func TestNew_Errors(t *testing.T) {
	_, err := New(map[string]string{"bad": `session.roles +`})
	require.ErrorContains(t, err, `rule "bad": compile`)

	_, err = New(map[string]string{"str": `"yes"`})
	require.ErrorContains(t, err, "must evaluate to bool")
}

func TestChecker_WithStore(t *testing.T) {
	c, err := New(map[string]string{"users.manage": `"admin" in session.roles`})
	require.NoError(t, err)

	p := &auth.Funcs{
		LoginFunc: func(ctx context.Context, params auth.Params, manage auth.ManageContext) (auth.LoginResult, error) {
			return auth.LoginResult{ActionResult: auth.ActionResult{Success: true}, Session: editor}, nil
		},
	}
	s := auth.NewStore(p, auth.WithPermissionChecker(c))
	_, err = s.Login(context.Background(), auth.Params{})
	require.NoError(t, err)
	require.False(t, s.Can(context.Background(), "users.manage", nil))
}
