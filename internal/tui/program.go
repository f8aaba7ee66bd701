package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
)

// Run drives h as a full-screen program until it quits or ctx ends. Every
// surface still mounted afterwards is cancelled.
func Run(ctx context.Context, h *Host, opts ...tea.ProgramOption) error {
	h.ctx = ctx
	defer h.Close()

	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	if _, err := tea.NewProgram(h, opts...).Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// RunWhile drives h while work runs in its own goroutine and quits the
// program once work returns. Quitting early cancels the surfaces work may
// be waiting on, and the context handed to work. Work's error wins over
// the program's.
func RunWhile(ctx context.Context, h *Host, work func(ctx context.Context) error, opts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	h.ctx = ctx

	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(h, opts...)

	done := make(chan error, 1)
	go func() {
		err := work(ctx)
		p.Quit()
		done <- err
	}()

	_, runErr := p.Run()
	h.Close()
	cancel()
	workErr := <-done

	if workErr != nil {
		return workErr
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return runErr
	}
	return nil
}
