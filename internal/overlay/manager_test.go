package overlay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func confirmRef() *ComponentRef {
	return Component("dialog.confirm", struct{}{})
}

func TestShow_RegistersSurface(t *testing.T) {
	m := NewManager()

	fut := m.Show(Spec{Component: confirmRef(), Props: Props{"title": "Delete?"}})

	require.NotEmpty(t, fut.ID())
	require.Equal(t, 1, m.Len())

	s, ok := m.Surface(fut.ID())
	require.True(t, ok)
	require.Equal(t, "Delete?", s.Props.String("title"))
	require.Same(t, fut, s.Future())

	_, settled := fut.Outcome()
	require.False(t, settled)
}

func TestShow_CopiesProps(t *testing.T) {
	m := NewManager()
	props := Props{"title": "Before"}

	fut := m.Show(Spec{Component: confirmRef(), Props: props})
	props["title"] = "After"

	s, _ := m.Surface(fut.ID())
	require.Equal(t, "Before", s.Props.String("title"))
}

func TestShow_NoComponentFails(t *testing.T) {
	m := NewManager()

	fut := m.Show(Spec{})

	_, err := fut.Await(context.Background())
	require.ErrorIs(t, err, ErrNoComponent)
	require.Zero(t, m.Len())
}

func TestResolve_SettlesAndDeregisters(t *testing.T) {
	m := NewManager()
	fut := m.Show(Spec{Component: confirmRef()})

	require.True(t, m.Resolve(fut.ID(), "Alice"))
	require.Zero(t, m.Len())

	v, err := fut.Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Alice", v)
}

func TestSettle_SecondCallIsNoOp(t *testing.T) {
	m := NewManager()
	fut := m.Show(Spec{Component: confirmRef()})

	require.True(t, m.Resolve(fut.ID(), 1))
	require.False(t, m.Resolve(fut.ID(), 2))
	require.False(t, m.Reject(fut.ID(), errors.New("late")))
	require.False(t, m.Cancel(fut.ID()))

	o, ok := fut.Outcome()
	require.True(t, ok)
	require.Equal(t, StatusResolved, o.Status)
	require.Equal(t, 1, o.Value)
}

func TestSettle_UnknownIDIsNoOp(t *testing.T) {
	m := NewManager()

	require.False(t, m.Resolve("does-not-exist", nil))
	require.False(t, m.Reject("does-not-exist", errors.New("x")))
	require.False(t, m.Cancel("does-not-exist"))
}

func TestCancel_DistinguishableFromFailure(t *testing.T) {
	m := NewManager()
	cancelled := m.Show(Spec{Component: confirmRef()})
	failed := m.Show(Spec{Component: confirmRef()})
	providerErr := errors.New("duplicate")

	m.Cancel(cancelled.ID())
	m.Reject(failed.ID(), providerErr)

	_, err := cancelled.Await(context.Background())
	require.True(t, IsCancelled(err))
	require.False(t, errors.Is(err, providerErr))

	_, err = failed.Await(context.Background())
	require.False(t, IsCancelled(err))
	require.ErrorIs(t, err, providerErr)

	var rej *RejectError
	require.ErrorAs(t, err, &rej)
	require.Equal(t, failed.ID(), rej.SurfaceID)
}

func TestReject_WithCancelledIsCancellation(t *testing.T) {
	m := NewManager()
	fut := m.Show(Spec{Component: confirmRef()})

	m.Reject(fut.ID(), fmt.Errorf("user closed dialog: %w", ErrCancelled))

	o, _ := fut.Outcome()
	require.Equal(t, StatusCancelled, o.Status)
}

func TestCloseAll_CancelsPending(t *testing.T) {
	m := NewManager()
	a := m.Show(Spec{Component: confirmRef()})
	b := m.Show(Spec{Component: confirmRef()})
	m.Resolve(a.ID(), nil)
	c := m.Show(Spec{Component: confirmRef()})

	require.Equal(t, 2, m.CloseAll())
	require.Zero(t, m.Len())

	for _, f := range []*Future{b, c} {
		_, err := f.Await(context.Background())
		require.ErrorIs(t, err, ErrCancelled)
	}
	_, err := a.Await(context.Background())
	require.NoError(t, err)
}

func TestSurfaces_MountOrder(t *testing.T) {
	ids := []string{"a", "b", "c"}
	next := 0
	m := NewManager(WithIDGenerator(func() string {
		id := ids[next]
		next++
		return id
	}))

	m.Show(Spec{Component: confirmRef()})
	m.Show(Spec{Component: confirmRef()})
	m.Show(Spec{Component: confirmRef()})
	m.Cancel("b")

	var got []string
	for _, s := range m.Surfaces() {
		got = append(got, s.ID)
	}
	require.Equal(t, []string{"a", "c"}, got)

	top, ok := m.Top()
	require.True(t, ok)
	require.Equal(t, "c", top.ID)
}

func TestAwait_ContextExpiryLeavesSurfaceMounted(t *testing.T) {
	m := NewManager()
	fut := m.Show(Spec{Component: confirmRef()})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := fut.Await(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, m.Len())
}

func TestSubscribe_ReceivesEvents(t *testing.T) {
	m := NewManager()
	events, unsubscribe := m.Subscribe()
	defer unsubscribe()

	fut := m.Show(Spec{Component: confirmRef()})
	m.Resolve(fut.ID(), "ok")

	ev := <-events
	require.Equal(t, EventMounted, ev.Kind)
	require.Equal(t, fut.ID(), ev.Surface.ID)

	ev = <-events
	require.Equal(t, EventSettled, ev.Kind)
	require.Equal(t, StatusResolved, ev.Outcome.Status)
}

func TestSubscribe_UnsubscribeClosesChannel(t *testing.T) {
	m := NewManager()
	events, unsubscribe := m.Subscribe()

	unsubscribe()
	unsubscribe()

	_, open := <-events
	require.False(t, open)

	// publishing after unsubscribe must not panic
	m.Show(Spec{Component: confirmRef()})
}

func TestConcurrentSurfacesAreIndependent(t *testing.T) {
	m := NewManager()
	const n = 50

	futures := make([]*Future, n)
	for i := range futures {
		futures[i] = m.Show(Spec{Component: confirmRef()})
	}

	var wg sync.WaitGroup
	for i, f := range futures {
		wg.Add(2)
		go func(i int, id string) {
			defer wg.Done()
			m.Resolve(id, i)
		}(i, f.ID())
		go func(id string) {
			defer wg.Done()
			m.Cancel(id)
		}(f.ID())
	}
	wg.Wait()

	require.Zero(t, m.Len())
	for i, f := range futures {
		o, ok := f.Outcome()
		require.True(t, ok)
		switch o.Status {
		case StatusResolved:
			require.Equal(t, i, o.Value)
		case StatusCancelled:
		default:
			t.Fatalf("future %d: unexpected status %v", i, o.Status)
		}
	}
}

func TestContextInjection(t *testing.T) {
	require.Nil(t, FromContext(context.Background()))

	m := NewManager()
	ctx := WithManager(context.Background(), m)
	require.Same(t, m, FromContext(ctx))
}

func TestLazyComponent_LoadsOnce(t *testing.T) {
	calls := 0
	ref := Lazy("dialog.prompt", func() (any, error) {
		calls++
		return "model", nil
	})

	for i := 0; i < 3; i++ {
		c, err := ref.Resolve()
		require.NoError(t, err)
		require.Equal(t, "model", c)
	}
	require.Equal(t, 1, calls)
}

func TestLazyComponent_Error(t *testing.T) {
	ref := Lazy("dialog.node", func() (any, error) { return nil, errors.New("boom") })

	_, err := ref.Resolve()
	require.ErrorContains(t, err, `failed to load component "dialog.node"`)

	_, err = (&ComponentRef{Name: "bare"}).Resolve()
	require.ErrorContains(t, err, "has no loader")
}
