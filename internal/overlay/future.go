package overlay

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrCancelled is the rejection reason of a surface that was dismissed or
// torn down before the user completed its action.
var ErrCancelled = errors.New("overlay: surface cancelled")

// IsCancelled reports whether err is a cancellation rather than a failure.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// RejectError wraps the reason a surface was rejected with.
type RejectError struct {
	SurfaceID string
	Err       error
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("surface %s rejected: %v", e.SurfaceID, e.Err)
}

func (e *RejectError) Unwrap() error { return e.Err }

// Status is the terminal state of a settled surface.
type Status int

const (
	StatusPending Status = iota
	StatusResolved
	StatusCancelled
	StatusFailed
)

// String returns a human-readable name for the status
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusResolved:
		return "resolved"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", s)
	}
}

// Outcome is the tri-state result of a surface.
type Outcome struct {
	Status Status
	Value  any   // set when Resolved
	Err    error // set when Failed or Cancelled
}

// Future is the caller's handle on a mounted surface. It settles exactly once.
type Future struct {
	id      string
	done    chan struct{}
	once    sync.Once
	outcome Outcome
}

func newFuture(id string) *Future {
	return &Future{id: id, done: make(chan struct{})}
}

// ID returns the surface id the future belongs to.
func (f *Future) ID() string { return f.id }

// Done is closed when the future settles.
func (f *Future) Done() <-chan struct{} { return f.done }

// Outcome returns the settled outcome. ok is false while pending.
func (f *Future) Outcome() (Outcome, bool) {
	select {
	case <-f.done:
		return f.outcome, true
	default:
		return Outcome{Status: StatusPending}, false
	}
}

// Await blocks until the surface settles or ctx ends. Resolution returns the
// value; cancellation returns ErrCancelled; rejection returns a *RejectError.
// ctx expiry returns ctx.Err() and leaves the surface mounted.
func (f *Future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	switch f.outcome.Status {
	case StatusResolved:
		return f.outcome.Value, nil
	case StatusCancelled:
		return nil, ErrCancelled
	default:
		return nil, &RejectError{SurfaceID: f.id, Err: f.outcome.Err}
	}
}

// settle records the outcome once; later calls report false.
func (f *Future) settle(o Outcome) bool {
	settled := false
	f.once.Do(func() {
		f.outcome = o
		close(f.done)
		settled = true
	})
	return settled
}
