// Package tui renders overlay surfaces in a full-screen Bubble Tea program.
//
// Host is the top-level model. It subscribes to an overlay.Manager, builds a
// SurfaceModel for every mounted surface and composites them, oldest first,
// over an optional base screen. Keys go to the top-most surface. Quitting
// the program cancels whatever is still mounted.
//
// # Framework Components
//
//   - bubbles/textinput: prompt and form fields, password echo for secret fields
//   - bubbles/spinner: busy indicator while a form submits or a menu action runs
//   - bubbles/key and bubbles/help: key bindings and the footer help line
//   - lipgloss and x/ansi: boxes, frame and overlay compositing
//
// # Usage Example
//
//	m := overlay.NewManager()
//	comps := dialog.NewComponents()
//	tui.RegisterComponents(comps)
//	d := dialog.New(m, comps)
//
//	status := tui.NewStatusBar()
//	menu := tui.NewMenu(ctx, "Users", status, tui.MenuItem{
//	    Title: "Delete all",
//	    Action: func(ctx context.Context) (string, error) {
//	        if _, err := d.Confirm(dialog.Request{Content: "Delete all users?"}).Await(ctx); err != nil {
//	            return "", err
//	        }
//	        return "deleted", nil
//	    },
//	})
//	host := tui.NewHost(m, tui.WithBase(menu), tui.WithStatusBar(status))
//	err := tui.Run(ctx, host)
//
// Menu actions run in command goroutines, so they can block on surface
// futures while the program keeps rendering.
//
// # Forms
//
// ShowForm mounts a FormModel around a form.Controller. The host supplies
// the title and footer slots; the controller's callbacks are wired to the
// status bar and resolve the surface with the saved record.
package tui
