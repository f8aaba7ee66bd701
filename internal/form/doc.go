// Package form drives create and edit forms against a dataprovider.Provider.
//
// A Controller is created per form instance:
//
//	c := form.New(client, form.Options{
//	    Path: "/users",
//	    ID:   "42", // edit mode; omit to create
//	    Form: form.NewBinding(nil),
//	})
//	form.HostCallbacks(notifier, tr, c.Callbacks(), form.SurfaceCloser(m, surfaceID)).Apply(c)
//	if err := c.Load(ctx); err != nil { ... }
//	c.Form().Set("name", "Bob")
//	err := c.Submit(ctx)
//
// Submit claims the busy flag atomically, so a second Submit while the first
// is in flight returns ErrBusy and never reaches the provider. A failed
// submit leaves the form values untouched; a successful one re-bases the
// snapshot so Reset returns to the saved state.
package form
