package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/adminkit/internal/auth"
	"github.com/muurk/adminkit/internal/auth/httpauth"
	"github.com/muurk/adminkit/internal/dataprovider"
	"github.com/muurk/adminkit/internal/dialog"
	"github.com/muurk/adminkit/internal/form"
	"github.com/muurk/adminkit/internal/i18n"
	"github.com/muurk/adminkit/internal/overlay"
	"github.com/muurk/adminkit/internal/server"
	"github.com/muurk/adminkit/internal/tui"
)

var demoLocal bool

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.Flags().BoolVar(&demoLocal, "local", false, "Start an in-process development backend and sign in as admin")
}

var demoSchema = dialog.MustCompileSchema(`{
  "type": "object",
  "required": ["name", "email"],
  "properties": {
    "name":  {"type": "string", "title": "Name", "minLength": 1},
    "email": {"type": "string", "title": "Email", "minLength": 3},
    "age":   {"type": "integer", "title": "Age", "minimum": 0},
    "admin": {"type": "boolean", "title": "Administrator"}
  }
}`)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Try the dialogs and forms interactively",
	Long: `Open a menu that exercises every dialog type, stacked dialogs and,
with a backend, the record form and session checks.

--local starts a development backend inside the process, so nothing else
needs to be running.`,
	Example: `  adminkit demo --local
  adminkit demo --url http://127.0.0.1:8780`,
	RunE: runDemo,
}

// demoBackend is the backend the demo's record and session items talk to.
type demoBackend struct {
	store  *auth.Store
	client *dataprovider.Client
	close  func()
}

// startLocalBackend serves a development backend on a loopback port and
// signs in with the default admin account.
func startLocalBackend(ctx context.Context, tr i18n.Translator) (*demoBackend, error) {
	srv, err := server.New(&server.Config{Host: "127.0.0.1", Port: 0})
	if err != nil {
		return nil, err
	}
	l, err := srv.Listen()
	if err != nil {
		return nil, err
	}
	go func() { _ = srv.Serve(l) }()

	url := "http://" + l.Addr().String()
	provider := httpauth.New(url)
	store := auth.NewStore(provider, auth.WithTranslator(tr))
	client := dataprovider.NewClient(url + "/api")
	client.TokenSource = provider.Token

	b := &demoBackend{
		store:  store,
		client: client,
		close:  func() { _ = srv.Shutdown(context.Background()) },
	}
	admin := server.DefaultUsers()[0]
	res, err := store.Login(ctx, auth.Params{"username": admin.Username, "password": admin.Password})
	if err == nil && !res.Success {
		err = errors.New(res.Message)
	}
	if err != nil {
		b.close()
		return nil, fmt.Errorf("demo login failed: %w", err)
	}
	return b, nil
}

func runDemo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tr := translator(cfg)

	var backend *demoBackend
	switch {
	case demoLocal:
		backend, err = startLocalBackend(ctx, tr)
		if err != nil {
			return err
		}
		defer backend.close()
	case backendURL != "" || backendName != "" || cfg.Current != "":
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.ensureSession(ctx); err != nil {
			return err
		}
		backend = &demoBackend{store: a.store, client: a.client, close: func() {}}
	}

	if useLineMode(cfg) {
		return withDialogs(ctx, cfg, tr, func(ctx context.Context, d *dialog.Dialogs, _ dialogHost) error {
			return runDemoSequence(ctx, d)
		})
	}

	m := overlay.NewManager()
	comps := dialog.NewComponents()
	tui.RegisterComponents(comps)
	d := dialog.New(m, comps)

	status := tui.NewStatusBar()
	menu := tui.NewMenu(ctx, "Demo", status, demoItems(d, backend)...)
	h := tui.NewHost(m,
		tui.WithBase(menu),
		tui.WithStatusBar(status),
		tui.WithTranslator(tr),
	)
	return tui.Run(ctx, h)
}

func demoItems(d *dialog.Dialogs, backend *demoBackend) []tui.MenuItem {
	items := []tui.MenuItem{
		{
			Title:       "Confirm",
			Description: "Resolves on confirm, cancels on escape",
			Action: func(ctx context.Context) (string, error) {
				if _, err := d.Confirm(dialog.Request{Content: "Delete 3 users?"}).Await(ctx); err != nil {
					return "", err
				}
				return "Confirmed", nil
			},
		},
		{
			Title:       "Prompt",
			Description: "Single line with a default value",
			Action: func(ctx context.Context) (string, error) {
				v, err := d.Prompt(dialog.Request{Content: "Your name", Default: "Ann"}).Await(ctx)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Hello, %v", v), nil
			},
		},
		{
			Title:       "Schema prompt",
			Description: "Typed fields validated against a JSON Schema",
			Action: func(ctx context.Context) (string, error) {
				v, err := d.Prompt(dialog.Request{Title: "New user", FormSchema: demoSchema}).Await(ctx)
				if err != nil {
					return "", err
				}
				return summarize(v.(map[string]any)), nil
			},
		},
		{
			Title:       "Success and error",
			Description: "Acknowledge-only dialogs",
			Action: func(ctx context.Context) (string, error) {
				if _, err := d.Success(dialog.Request{Content: "Saved 3 records"}).Await(ctx); err != nil {
					return "", err
				}
				_, err := d.Error(dialog.Request{Content: "Backend unreachable"}).Await(ctx)
				return "", err
			},
		},
		{
			Title:       "Custom node",
			Description: "Caller-rendered body",
			Action: func(ctx context.Context) (string, error) {
				v, err := d.Node(dialog.Request{
					Title:  "Pick a color",
					Render: func() string { return "1) red\n2) green\n3) blue" },
				}).Await(ctx)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Picked %v", v), nil
			},
		},
		{
			Title:       "Stacked dialogs",
			Description: "Two surfaces at once; keys go to the top one",
			Action: func(ctx context.Context) (string, error) {
				first := d.Confirm(dialog.Request{Title: "First", Content: "Mounted first"})
				second := d.Confirm(dialog.Request{Title: "Second", Content: "Mounted on top"})
				var answers []string
				for _, f := range []*overlay.Future{second, first} {
					_, err := f.Await(ctx)
					switch {
					case err == nil:
						answers = append(answers, "yes")
					case overlay.IsCancelled(err):
						answers = append(answers, "no")
					default:
						return "", err
					}
				}
				return "Answers: " + strings.Join(answers, ", "), nil
			},
		},
	}
	if backend == nil {
		return items
	}

	return append(items,
		tui.MenuItem{
			Title:       "Create record",
			Description: "Form bound to the backend's /users resource",
			Action: func(ctx context.Context) (string, error) {
				ctrl := form.New(backend.client, form.Options{Path: "/users"})
				v, err := tui.ShowForm(d.Manager(), tui.FormSpec{
					Title:      "New user",
					Footer:     "Fields marked * are required",
					Schema:     demoSchema,
					Controller: ctrl,
				}).Await(ctx)
				if err != nil {
					return "", err
				}
				rec, _ := v.(dataprovider.Record)
				return fmt.Sprintf("Created %v", rec["id"]), nil
			},
		},
		tui.MenuItem{
			Title:       "Check session",
			Description: "Revalidate and rotate the session token",
			Action: func(ctx context.Context) (string, error) {
				res, err := backend.store.Check(ctx, nil)
				if err != nil {
					return "", err
				}
				session := backend.store.Session()
				if !res.Success || session == nil {
					return "", errors.New(res.Message)
				}
				return fmt.Sprintf("Session %s for %s", backend.store.State(), session.Name), nil
			},
		},
		tui.MenuItem{
			Title:       "Can revoke sessions?",
			Description: "Ask the backend's permission policy",
			Action: func(ctx context.Context) (string, error) {
				if backend.store.Can(ctx, server.PermissionRevokeSessions, nil) {
					return server.PermissionRevokeSessions + ": allowed", nil
				}
				return "", fmt.Errorf("%s: denied", server.PermissionRevokeSessions)
			},
		},
	)
}

// runDemoSequence walks through the dialogs once, for line mode.
func runDemoSequence(ctx context.Context, d *dialog.Dialogs) error {
	if _, err := d.Confirm(dialog.Request{Content: "Start the demo?"}).Await(ctx); err != nil {
		return err
	}
	name, err := d.Prompt(dialog.Request{Content: "Your name", Default: "Ann"}).Await(ctx)
	if err != nil {
		return err
	}
	v, err := d.Prompt(dialog.Request{Title: "New user", FormSchema: demoSchema}).Await(ctx)
	if err != nil {
		return err
	}
	color, err := d.Node(dialog.Request{
		Title:  "Pick a color",
		Render: func() string { return "1) red\n2) green\n3) blue" },
	}).Await(ctx)
	if err != nil {
		return err
	}
	_, err = d.Success(dialog.Request{
		Content: fmt.Sprintf("Hello %v, you picked %v and entered %s", name, color, summarize(v.(map[string]any))),
	}).Await(ctx)
	return err
}

func summarize(values map[string]any) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, values[k]))
	}
	return strings.Join(parts, " ")
}
