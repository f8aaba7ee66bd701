package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muurk/adminkit/internal/auth"
	"github.com/muurk/adminkit/internal/auth/httpauth"
	"github.com/muurk/adminkit/internal/dialog"
	"github.com/muurk/adminkit/internal/i18n"
	"github.com/muurk/adminkit/internal/ui"
)

// PasswordEnvVar supplies the password for non-interactive logins.
const PasswordEnvVar = "ADMINKIT_PASSWORD"

var loginSchema = dialog.MustCompileSchema(`{
  "type": "object",
  "required": ["username", "password"],
  "properties": {
    "username": {"type": "string", "title": "Username", "minLength": 1},
    "password": {"type": "string", "title": "Password", "format": "password", "minLength": 1}
  }
}`)

var registerSchema = dialog.MustCompileSchema(`{
  "type": "object",
  "required": ["username", "password"],
  "properties": {
    "username": {"type": "string", "title": "Username", "minLength": 3},
    "password": {"type": "string", "title": "Password", "format": "password", "minLength": 8},
    "name":     {"type": "string", "title": "Display name"}
  }
}`)

var passwordSchema = dialog.MustCompileSchema(`{
  "type": "object",
  "required": ["current_password", "password"],
  "properties": {
    "current_password": {"type": "string", "title": "Current password", "format": "password", "minLength": 1},
    "password":         {"type": "string", "title": "New password", "format": "password", "minLength": 8}
  }
}`)

// Session command flags
var (
	loginUsername string
	loginPassword string
	checkWatch    bool
	canLocal      bool
	forgotEmail   string
)

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(canCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(forgotPasswordCmd)
	rootCmd.AddCommand(passwdCmd)

	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Username (prompted when absent)")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Password (default: $"+PasswordEnvVar+", prompted when absent)")
	checkCmd.Flags().BoolVar(&checkWatch, "watch", false, "Keep watching the session until the backend revokes it")
	canCmd.Flags().BoolVar(&canLocal, "local", false, "Evaluate the configured policies instead of asking the backend")
	forgotPasswordCmd.Flags().StringVar(&forgotEmail, "email", "", "Email address of the account")
}

// promptParams asks for the fields of schema and returns them as params.
func promptParams(ctx context.Context, a *app, title string, schema *dialog.Schema) (auth.Params, error) {
	var params auth.Params
	err := withDialogs(ctx, a.cfg, a.tr, func(ctx context.Context, d *dialog.Dialogs, _ dialogHost) error {
		v, err := d.Prompt(dialog.Request{Title: title, FormSchema: schema}).Await(ctx)
		if err != nil {
			return err
		}
		params = auth.Params(v.(map[string]any))
		return nil
	})
	return params, err
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the backend",
	Long: `Sign in to the selected backend and store the session token.

Missing credentials are asked for in a dialog. The password can also be
passed through the ` + PasswordEnvVar + ` environment variable.`,
	Example: `  # Sign in to a local development backend
  adminkit login --url http://127.0.0.1:8780 -u admin

  # Non-interactive
  ADMINKIT_PASSWORD=secret adminkit login -u admin --line`,
	RunE: runLogin,
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp()
	if err != nil {
		return err
	}

	password := loginPassword
	if password == "" {
		password = os.Getenv(PasswordEnvVar)
	}
	username := loginUsername
	if username == "" {
		username = a.backend.Username
	}

	params := auth.Params{"username": username, "password": password}
	if username == "" || password == "" {
		params, err = promptParams(ctx, a, "Sign in to "+a.name, loginSchema)
		if err != nil {
			return err
		}
	}

	res, err := a.store.Login(ctx, params)
	if err != nil {
		a.out.PrintResult(ui.NewErrorResult(res.Message, err))
		return fmt.Errorf("login to %s failed", a.name)
	}
	if !res.Success {
		a.out.Error(res.Message)
		return fmt.Errorf("login to %s failed", a.name)
	}

	a.cfg.MarkLogin(a.name, params.String("username"))
	if err := a.cfg.UseBackend(a.name); err != nil {
		return err
	}
	if err := a.save(); err != nil {
		return err
	}
	a.out.PrintSession(a.store.State(), a.store.Session())
	return nil
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		res, err := a.store.Logout(cmd.Context(), nil)
		// the local token is gone either way
		a.persistSession()
		if err != nil {
			a.out.Error(res.Message)
			return err
		}
		a.out.Success(fmt.Sprintf("Signed out of %s", a.name))
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the stored session",
	Long: `Verify the stored session against the backend and renew its token.

With --watch the command stays connected and exits once the backend revokes
the session or Ctrl+C is pressed.`,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp()
	if err != nil {
		return err
	}

	if err := a.client.Ping(ctx); err != nil {
		a.out.PrintResult(ui.NewErrorResult("Backend unreachable", err))
		return fmt.Errorf("backend %s is unreachable", a.name)
	}

	checkErr := a.ensureSession(ctx)
	a.out.PrintSession(a.store.State(), a.store.Session())
	if checkErr != nil || !checkWatch {
		return checkErr
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	a.out.Println("Watching session, press Ctrl+C to stop")
	if err := httpauth.WatchStore(ctx, a.provider, a.store); err != nil && ctx.Err() == nil {
		return err
	}
	a.out.PrintSession(a.store.State(), a.store.Session())
	return nil
}

var canCmd = &cobra.Command{
	Use:   "can <permission> [key=value...]",
	Short: "Check a permission for the current session",
	Example: `  adminkit can users.create
  adminkit can records.edit resource=users owner=alice
  adminkit can users.delete --local`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCan,
}

func runCan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp()
	if err != nil {
		return err
	}
	permission := args[0]
	raw, err := parseAssignments(args[1:])
	if err != nil {
		return err
	}
	params := make(auth.Params, len(raw))
	for k, v := range raw {
		params[k] = v
	}

	var allowed bool
	if canLocal {
		if a.checker == nil {
			return fmt.Errorf("no auth.policies configured")
		}
		// an absent or expired token is evaluated as anonymous
		session, _ := httpauth.SessionFromToken(a.provider.Token(), nil)
		allowed = a.checker.Can(ctx, permission, params, auth.ManageContext{}, session)
	} else {
		if err := a.ensureSession(ctx); err != nil {
			return err
		}
		allowed = a.store.Can(ctx, permission, params)
	}

	if !allowed {
		a.out.Error(fmt.Sprintf("%s: denied", permission))
		return fmt.Errorf("permission %q denied", permission)
	}
	a.out.Success(fmt.Sprintf("%s: allowed", permission))
	return nil
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account on the backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp()
		if err != nil {
			return err
		}
		params, err := promptParams(ctx, a, "Create account", registerSchema)
		if err != nil {
			return err
		}
		return reportAction(a, "Account created", func() (auth.ActionResult, error) {
			return a.store.Register(ctx, params)
		})
	},
}

var forgotPasswordCmd = &cobra.Command{
	Use:   "forgot-password",
	Short: "Request a password reset",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp()
		if err != nil {
			return err
		}
		params := auth.Params{"username": a.backend.Username}
		if forgotEmail != "" {
			params = auth.Params{"email": forgotEmail}
		}
		return reportAction(a, "Reset requested", func() (auth.ActionResult, error) {
			return a.store.ForgotPassword(ctx, params)
		})
	},
}

var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change the password of the signed-in account",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.ensureSession(ctx); err != nil {
			return err
		}
		params, err := promptParams(ctx, a, "Change password", passwordSchema)
		if err != nil {
			return err
		}
		return reportAction(a, "Password changed", func() (auth.ActionResult, error) {
			return a.store.UpdatePassword(ctx, params)
		})
	},
}

// reportAction runs an optional auth action and prints its outcome. An
// absent capability is reported in the user's language.
func reportAction(a *app, done string, action func() (auth.ActionResult, error)) error {
	res, err := action()
	switch {
	case auth.IsCapabilityAbsent(err):
		var ce *auth.CapabilityError
		if errors.As(err, &ce) {
			a.out.Error(a.tr.T(i18n.KeyCapabilityNo, string(ce.Capability)))
		}
		return err
	case err != nil:
		a.out.PrintResult(ui.NewErrorResult(res.Message, err))
		return err
	case !res.Success:
		a.out.Error(res.Message)
		return errors.New(res.Message)
	}
	msg := done
	if res.Message != "" {
		msg = res.Message
	}
	a.out.Success(msg)
	return nil
}

// parseAssignments parses key=value arguments.
func parseAssignments(args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		out[k] = v
	}
	return out, nil
}
