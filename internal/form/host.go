package form

import (
	"net/http"

	"github.com/muurk/adminkit/internal/dataprovider"
	"github.com/muurk/adminkit/internal/i18n"
	"github.com/muurk/adminkit/internal/logging"
	"github.com/muurk/adminkit/internal/overlay"
)

// Notifier shows transient success and error messages.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct{}

func (LogNotifier) Success(msg string) { logging.Info(msg) }
func (LogNotifier) Error(msg string)   { logging.Warn(msg) }

// Callbacks is a pair of controller callbacks.
type Callbacks struct {
	OnSuccess func(resp *dataprovider.Response)
	OnError   func(err *dataprovider.Error)
}

// Apply installs the callbacks on c.
func (cb Callbacks) Apply(c *Controller) {
	c.SetCallbacks(cb.OnSuccess, cb.OnError)
}

// HostCallbacks builds the default host behavior around the caller's own
// callbacks. On success it notifies, runs caller.OnSuccess, then closes the
// hosting surface with the saved record. On failure it notifies with the
// error's message, then runs caller.OnError. closer may be nil.
func HostCallbacks(n Notifier, tr i18n.Translator, caller Callbacks, closer func(value any)) Callbacks {
	if tr == nil {
		tr = i18n.Default()
	}
	return Callbacks{
		OnSuccess: func(resp *dataprovider.Response) {
			key := i18n.KeyFormUpdated
			if resp.StatusCode == http.StatusCreated {
				key = i18n.KeyFormCreated
			}
			n.Success(tr.T(key))
			if caller.OnSuccess != nil {
				caller.OnSuccess(resp)
			}
			if closer != nil {
				closer(resp.Data)
			}
		},
		OnError: func(err *dataprovider.Error) {
			msg := err.Message
			if msg == "" {
				msg = tr.T(i18n.KeyFormFailed)
			}
			n.Error(msg)
			if caller.OnError != nil {
				caller.OnError(err)
			}
		},
	}
}

// SurfaceCloser resolves the surface id on m with the closer's value.
func SurfaceCloser(m *overlay.Manager, id string) func(value any) {
	return func(value any) {
		m.Resolve(id, value)
	}
}
