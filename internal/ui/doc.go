// Package ui provides plain terminal output for the adminkit CLI.
//
// It has two parts:
//
//   - Styled, run-once output (Printer, Result, RenderHeader) built with
//     Lipgloss. Printer also implements form.Notifier.
//   - LineHost, a dialog host for pipes and dumb terminals. It subscribes to
//     an overlay.Manager and renders each mounted surface in turn, reading
//     answers line by line.
//
// # Line Mode
//
// Register the line renderers on a dialog component table and run the
// host while dialogs are awaited from another goroutine:
//
//	m := overlay.NewManager()
//	comps := dialog.NewComponents()
//	ui.RegisterLineComponents(comps)
//	d := dialog.New(m, comps)
//
//	host := ui.NewLineHost(m, os.Stdin, os.Stdout, i18n.Default())
//	go host.Run(ctx)
//
//	if _, err := d.Confirm(dialog.Request{Content: "Delete 3 users"}).Await(ctx); overlay.IsCancelled(err) {
//	    return nil
//	}
//
// A confirmation needs an explicit "y". End of input cancels cancellable
// dialogs.
//
// # Logging Integration
//
// This package expects logging to be controlled via the ADMINKIT_LOG_LEVEL
// environment variable. When unset or empty, zap logging is silent, allowing
// the curated UI output to be displayed cleanly.
package ui
