// Package overlay keeps the registry of transient UI surfaces (dialogs,
// modals, prompts) and hands each caller a Future for the surface's outcome.
//
// A surface is mounted with Show and settled exactly once with Resolve,
// Reject or Cancel. Settlement removes the surface from the registry, so
// settling an id twice, or an id the registry never knew, is a silent no-op
// that returns false. This absorbs double clicks and unmount races in hosts.
//
//	m := overlay.NewManager()
//	fut := m.Show(overlay.Spec{
//	    Component: overlay.Lazy("dialog.confirm", loadConfirm),
//	    Props:     overlay.Props{"title": "Delete?"},
//	})
//
//	// somewhere in the host, when the user presses enter:
//	m.Resolve(fut.ID(), nil)
//
//	_, err := fut.Await(ctx)
//	switch {
//	case overlay.IsCancelled(err):
//	    // dismissed
//	case err != nil:
//	    // rejected with a provider error
//	}
//
// # Outcomes
//
// Every future ends in one of three states: Resolved(value), Cancelled, or
// Failed(err). Cancellation is reported as ErrCancelled and never wraps a
// provider error; failures are reported as *RejectError wrapping the reason.
//
// # Hosts
//
// Rendering hosts subscribe to registry events and redraw from Surfaces().
// The registry travels through context.Context (WithManager, FromContext)
// rather than a package-level singleton. CloseAll cancels every pending
// surface when the host is torn down, so no caller is left waiting.
package overlay
