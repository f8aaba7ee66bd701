// Package dialog is the typed façade over the overlay manager: callers ask
// for a confirm, success, error, prompt or node dialog and get back the
// surface's future.
//
//	d := dialog.New(manager, components)
//	_, err := d.Confirm(dialog.Request{Title: "Delete?"}).Await(ctx)
//	if overlay.IsCancelled(err) {
//	    return nil
//	}
//
//	name, err := d.Prompt(dialog.Request{Title: "Name"}).Await(ctx)
//
// The façade never fails on its own; all failures arrive through the future.
// Rendering hosts register the components mounted for each variant and call
// Accept or Dismiss when the user acts.
package dialog
