package form

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/muurk/adminkit/internal/dataprovider"
	"github.com/muurk/adminkit/internal/i18n"
	"github.com/muurk/adminkit/internal/logging"
)

// ErrBusy is returned by Submit and Load while another request is running.
var ErrBusy = errors.New("form: request already in progress")

// Action selects create or edit mode explicitly.
type Action string

const (
	ActionDefault Action = ""
	ActionCreate  Action = "create"
	ActionEdit    Action = "edit"
)

// Options configures a Controller.
type Options struct {
	// ID of the record being edited. Non-empty implies edit mode unless
	// Action says otherwise.
	ID string

	// Path is the resource path passed to the provider.
	Path string

	// Form holds the values. A nil Form gets an empty Binding.
	Form *Binding

	// Action overrides the mode derived from ID.
	Action Action

	OnSuccess func(resp *dataprovider.Response)
	OnError   func(err *dataprovider.Error)

	// Translator supplies fallback error messages. Defaults to English.
	Translator i18n.Translator
}

// Controller runs create/edit submissions against a data provider.
type Controller struct {
	provider dataprovider.Provider
	opts     Options
	busy     atomic.Bool
	cbMu     sync.Mutex // guards opts.OnSuccess and opts.OnError
	log      *zap.Logger
}

// New creates a Controller.
func New(provider dataprovider.Provider, opts Options) *Controller {
	if opts.Form == nil {
		opts.Form = NewBinding(nil)
	}
	if opts.Translator == nil {
		opts.Translator = i18n.Default()
	}
	return &Controller{
		provider: provider,
		opts:     opts,
		log:      logging.Named("form"),
	}
}

// Form returns the bound values.
func (c *Controller) Form() *Binding { return c.opts.Form }

// ID returns the edited record id.
func (c *Controller) ID() string { return c.opts.ID }

// Path returns the resource path.
func (c *Controller) Path() string { return c.opts.Path }

// IsEdit reports whether Submit updates an existing record.
func (c *Controller) IsEdit() bool {
	switch c.opts.Action {
	case ActionEdit:
		return true
	case ActionCreate:
		return false
	default:
		return c.opts.ID != ""
	}
}

// Busy reports whether a request is in flight.
func (c *Controller) Busy() bool { return c.busy.Load() }

// Callbacks returns the installed success and error callbacks.
func (c *Controller) Callbacks() Callbacks {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	return Callbacks{OnSuccess: c.opts.OnSuccess, OnError: c.opts.OnError}
}

// SetCallbacks replaces the success and error callbacks. A submission
// already in flight keeps the callbacks it started with.
func (c *Controller) SetCallbacks(onSuccess func(*dataprovider.Response), onError func(*dataprovider.Error)) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.opts.OnSuccess = onSuccess
	c.opts.OnError = onError
}

// Submit sends the form to the provider. It returns ErrBusy, without
// contacting the provider, when a request is already running. Busy is
// cleared only after OnSuccess or OnError has returned.
func (c *Controller) Submit(ctx context.Context) error {
	if !c.busy.CompareAndSwap(false, true) {
		c.log.Debug("Submit rejected while busy", zap.String("path", c.opts.Path))
		return ErrBusy
	}
	defer c.busy.Store(false)

	cb := c.Callbacks()
	payload := c.opts.Form.Data()
	edit := c.IsEdit()
	c.log.Info("Submitting form",
		zap.String("path", c.opts.Path),
		zap.String("id", c.opts.ID),
		zap.Bool("edit", edit),
	)

	var (
		resp *dataprovider.Response
		err  error
	)
	switch {
	case edit && c.opts.ID == "":
		err = dataprovider.NewValidationError("edit requires a record id")
	case edit:
		resp, err = c.provider.Update(ctx, c.opts.Path, c.opts.ID, payload)
	default:
		resp, err = c.provider.Create(ctx, c.opts.Path, payload)
	}

	if err != nil {
		e := dataprovider.Normalize(err, c.opts.Translator.T(i18n.KeyFormFailed))
		c.log.Warn("Form submission failed",
			zap.String("path", c.opts.Path),
			zap.Stringer("type", e.Type),
			zap.String("message", e.Message),
		)
		if cb.OnError != nil {
			cb.OnError(e)
		}
		return e
	}

	if resp == nil {
		resp = &dataprovider.Response{}
	}
	c.opts.Form.Rebase(payload)
	c.log.Debug("Form submitted", zap.String("path", c.opts.Path), zap.Int("status", resp.StatusCode))
	if cb.OnSuccess != nil {
		cb.OnSuccess(resp)
	}
	return nil
}

// Reset restores the form to its snapshot without contacting the provider.
func (c *Controller) Reset() {
	c.opts.Form.Reset()
}

// Load fetches the edited record and makes it both the values and the
// snapshot. Only valid in edit mode.
func (c *Controller) Load(ctx context.Context) error {
	if !c.IsEdit() || c.opts.ID == "" {
		return dataprovider.NewValidationError("load requires edit mode and a record id")
	}
	if !c.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer c.busy.Store(false)

	resp, err := c.provider.GetOne(ctx, c.opts.Path, c.opts.ID)
	if err != nil {
		return dataprovider.Normalize(err, c.opts.Translator.T(i18n.KeyFormFailed))
	}
	c.opts.Form.Load(resp.Data)
	return nil
}
