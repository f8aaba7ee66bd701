package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/muurk/adminkit/internal/auth"
	"github.com/muurk/adminkit/internal/auth/httpauth"
	"github.com/muurk/adminkit/internal/auth/policy"
	"github.com/muurk/adminkit/internal/config"
	"github.com/muurk/adminkit/internal/dataprovider"
	"github.com/muurk/adminkit/internal/dialog"
	"github.com/muurk/adminkit/internal/form"
	"github.com/muurk/adminkit/internal/i18n"
	"github.com/muurk/adminkit/internal/logging"
	"github.com/muurk/adminkit/internal/overlay"
	"github.com/muurk/adminkit/internal/tui"
	"github.com/muurk/adminkit/internal/ui"
)

// defaultBackendName names a backend given only by --url.
const defaultBackendName = "default"

// app bundles everything a command needs to talk to one backend.
type app struct {
	cfg     *config.Config
	name    string
	backend *config.Backend
	tr      i18n.Translator
	out     *ui.Printer
	log     *zap.Logger

	provider *httpauth.Provider
	store    *auth.Store
	checker  *policy.Checker // nil without configured policies
	client   *dataprovider.Client
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load()
}

func saveConfig(cfg *config.Config) error {
	if configPath != "" {
		return cfg.SaveFile(configPath)
	}
	return cfg.Save()
}

func translator(cfg *config.Config) i18n.Translator {
	lang := language
	if lang == "" {
		lang = cfg.UI.Language
	}
	return i18n.New(lang)
}

// resolveBackend picks the backend from --backend/--url or the current one.
func resolveBackend(cfg *config.Config) (string, *config.Backend, error) {
	name := backendName
	if name == "" {
		name = cfg.Current
	}
	if backendURL != "" {
		if name == "" {
			name = defaultBackendName
		}
		return name, cfg.EnsureBackend(name, strings.TrimRight(backendURL, "/")), nil
	}
	if name == "" {
		return "", nil, fmt.Errorf("no backend selected (use --url, --backend, or 'adminkit discover --save')")
	}
	b := cfg.GetBackend(name)
	if b == nil {
		return "", nil, fmt.Errorf("backend %q is not configured", name)
	}
	return name, b, nil
}

// newApp loads the configuration, wires the auth store and data client
// for the selected backend, and restores its stored session token.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	name, b, err := resolveBackend(cfg)
	if err != nil {
		return nil, err
	}
	canPolicy, err := auth.ParseCanPolicy(cfg.Auth.CanPolicy)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		name:    name,
		backend: b,
		tr:      translator(cfg),
		out:     ui.NewPrinter(os.Stdout),
		log:     logging.Named("cli"),
	}

	a.provider = httpauth.New(b.URL,
		httpauth.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout()}),
		httpauth.WithLoginRate(cfg.Auth.LoginRate),
	)

	opts := []auth.StoreOption{
		auth.WithCanPolicy(canPolicy),
		auth.WithTranslator(a.tr),
	}
	if len(cfg.Auth.Policies) > 0 {
		a.checker, err = policy.New(cfg.Auth.Policies, policy.WithFallback(canPolicy))
		if err != nil {
			return nil, fmt.Errorf("invalid auth.policies: %w", err)
		}
		opts = append(opts, auth.WithPermissionChecker(a.checker))
	}
	a.store = auth.NewStore(a.provider, opts...)

	a.client = dataprovider.NewClient(b.URL + "/api")
	a.client.SetTimeout(cfg.RequestTimeout())
	a.client.SetRetry(cfg.Client.MaxRetries, dataprovider.DefaultRetryDelay)
	a.client.SetCacheDuration(cfg.CacheDuration())
	a.client.TokenSource = a.provider.Token

	token, err := config.LoadSession(b)
	if err != nil {
		a.log.Warn("Ignoring unreadable session", zap.String("backend", name), zap.Error(err))
	}
	a.provider.SetToken(token)

	// keep the stored token in step with the store
	a.store.Subscribe(func(t auth.Transition) {
		a.log.Debug("Session transition",
			zap.Stringer("from", t.From),
			zap.Stringer("to", t.To),
			zap.String("reason", t.Reason),
		)
		a.persistSession()
	})
	return a, nil
}

// persistSession stores the provider's current token, or removes the
// stored one when there is none.
func (a *app) persistSession() {
	token := a.provider.Token()
	var err error
	if token == "" {
		err = config.ClearSession(a.backend)
	} else {
		err = config.SaveSession(a.backend, token)
	}
	if err != nil {
		a.log.Warn("Failed to persist session", zap.String("backend", a.name), zap.Error(err))
	}
}

func (a *app) save() error {
	return saveConfig(a.cfg)
}

// ensureSession revalidates the stored token. Check rotates it, so the
// new token is persisted through the store subscription.
func (a *app) ensureSession(ctx context.Context) error {
	if a.provider.Token() == "" {
		return fmt.Errorf("not logged in to %s (run 'adminkit login')", a.name)
	}
	res, err := a.store.Check(ctx, nil)
	if err != nil {
		return err
	}
	if a.store.State() != auth.StateAuthenticated {
		return fmt.Errorf("%s (run 'adminkit login')", res.Message)
	}
	return nil
}

// reportDataError routes a data provider failure through the auth store,
// which logs out on an unauthorized response.
func (a *app) reportDataError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if dataprovider.IsAuthError(err) {
		a.store.HandleError(ctx, err)
	}
	return err
}

// useLineMode reports whether dialogs render as plain prompts.
func useLineMode(cfg *config.Config) bool {
	return lineMode || cfg.UI.LineMode || !ui.IsTerminal()
}

// withDialogs runs work against a dialog façade rendered in the terminal
// UI, or on stdin/stdout in line mode.
func withDialogs(ctx context.Context, cfg *config.Config, tr i18n.Translator, work func(ctx context.Context, d *dialog.Dialogs, h dialogHost) error) error {
	m := overlay.NewManager()
	comps := dialog.NewComponents()

	if useLineMode(cfg) {
		ui.RegisterLineComponents(comps)
		d := dialog.New(m, comps)
		host := ui.NewLineHost(m, os.Stdin, os.Stdout, tr)

		ctx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = host.Run(ctx)
		}()
		err := work(ctx, d, dialogHost{manager: m, notifier: host.Printer()})
		cancel()
		<-done
		return err
	}

	tui.RegisterComponents(comps)
	d := dialog.New(m, comps)
	status := tui.NewStatusBar()
	h := tui.NewHost(m, tui.WithTranslator(tr), tui.WithStatusBar(status))
	return tui.RunWhile(ctx, h, func(ctx context.Context) error {
		return work(ctx, d, dialogHost{manager: m, notifier: status, tui: true})
	})
}

// dialogHost tells work how its dialogs are rendered.
type dialogHost struct {
	manager  *overlay.Manager
	notifier form.Notifier
	tui      bool
}
