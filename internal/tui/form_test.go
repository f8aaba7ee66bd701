package tui

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/muurk/adminkit/internal/dataprovider"
	"github.com/muurk/adminkit/internal/dialog"
	"github.com/muurk/adminkit/internal/form"
	"github.com/muurk/adminkit/internal/overlay"
)

type stubProvider struct {
	mu       sync.Mutex
	payloads []dataprovider.Record
	err      error
}

func (p *stubProvider) save(status int, payload dataprovider.Record) (*dataprovider.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	if p.err != nil {
		return nil, p.err
	}
	data := payload.Clone()
	data["id"] = "u1"
	return &dataprovider.Response{StatusCode: status, Data: data}, nil
}

func (p *stubProvider) Create(ctx context.Context, path string, payload dataprovider.Record) (*dataprovider.Response, error) {
	return p.save(http.StatusCreated, payload)
}

func (p *stubProvider) Update(ctx context.Context, path, id string, payload dataprovider.Record) (*dataprovider.Response, error) {
	return p.save(http.StatusOK, payload)
}

func (p *stubProvider) GetOne(ctx context.Context, path, id string) (*dataprovider.Response, error) {
	return &dataprovider.Response{StatusCode: http.StatusOK, Data: dataprovider.Record{"id": id}}, nil
}

func (p *stubProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.payloads)
}

func showForm(t *testing.T, p dataprovider.Provider, opts form.Options) (*Host, *overlay.Future) {
	t.Helper()
	h, _ := newTestHost(t)
	ctrl := form.New(p, opts)
	f := ShowForm(h.Manager(), FormSpec{
		Title:      "User",
		Footer:     "Fields marked * are required",
		Schema:     dialog.MustCompileSchema(personSchema),
		Controller: ctrl,
	})
	pump(h)
	return h, f
}

// submit presses ctrl+s and feeds the completion back to the host.
func submit(h *Host) {
	for _, msg := range drain(press(h, "ctrl+s")) {
		if done, ok := msg.(submitDoneMsg); ok {
			h.Update(done)
		}
	}
}

func formModel(t *testing.T, h *Host) *FormModel {
	t.Helper()
	id, ok := h.top()
	require.True(t, ok)
	m, ok := h.models[id].(*FormModel)
	require.True(t, ok)
	return m
}

func TestFormModel_CreateResolvesWithRecord(t *testing.T) {
	p := &stubProvider{}
	h, f := showForm(t, p, form.Options{Path: "/users"})
	require.Contains(t, h.View(), "Fields marked * are required")

	press(h, "Ann", "tab", "30")
	submit(h)

	o := settled(t, f)
	require.Equal(t, overlay.StatusResolved, o.Status)
	require.Equal(t, "u1", o.Value.(dataprovider.Record)["id"])

	require.Equal(t, 1, p.calls())
	require.Equal(t, int64(30), p.payloads[0]["age"])

	msg, isErr, ok := h.StatusBar().Message()
	require.True(t, ok)
	require.False(t, isErr)
	require.Equal(t, "Created successfully", msg)
}

func TestFormModel_InvalidInputNeverReachesProvider(t *testing.T) {
	p := &stubProvider{}
	h, f := showForm(t, p, form.Options{Path: "/users"})

	press(h, "Ann", "tab", "old")
	require.Nil(t, press(h, "ctrl+s"))
	require.Zero(t, p.calls())
	require.Contains(t, h.View(), "Invalid input")

	select {
	case <-f.Done():
		t.Fatal("invalid form closed")
	default:
	}
}

func TestFormModel_ProviderErrorKeepsSurface(t *testing.T) {
	p := &stubProvider{err: &dataprovider.Error{
		Type:       dataprovider.ErrTypeValidation,
		Message:    "duplicate",
		StatusCode: http.StatusConflict,
		Extra:      map[string]any{"name": "already exists"},
	}}
	h, f := showForm(t, p, form.Options{Path: "/users"})

	press(h, "Ann", "tab", "30")
	submit(h)

	select {
	case <-f.Done():
		t.Fatal("failed submission closed the form")
	default:
	}
	view := h.View()
	require.Contains(t, view, "already exists")

	msg, isErr, _ := h.StatusBar().Message()
	require.True(t, isErr)
	require.Equal(t, "duplicate", msg)
	require.False(t, formModel(t, h).submitting)
}

func TestFormModel_EditFillsAndResets(t *testing.T) {
	p := &stubProvider{}
	h, f := showForm(t, p, form.Options{
		Path: "/users",
		ID:   "u1",
		Form: form.NewBinding(map[string]any{"name": "Ann", "age": int64(30)}),
	})

	m := formModel(t, h)
	require.Equal(t, "Ann", m.inputs[0].Value())
	require.Equal(t, "30", m.inputs[1].Value())

	press(h, "ie")
	require.Equal(t, "Annie", m.inputs[0].Value())

	press(h, "ctrl+r")
	require.Equal(t, "Ann", m.inputs[0].Value())

	press(h, "esc")
	require.True(t, overlay.IsCancelled(settled(t, f).Err))
	require.Zero(t, p.calls())
}

func TestFormModel_EditUpdatesRecord(t *testing.T) {
	p := &stubProvider{}
	h, f := showForm(t, p, form.Options{
		Path: "/users",
		ID:   "u1",
		Form: form.NewBinding(map[string]any{"name": "Ann", "age": int64(30)}),
	})

	press(h, "ie")
	submit(h)

	require.Equal(t, overlay.StatusResolved, settled(t, f).Status)
	require.Equal(t, "Annie", p.payloads[0]["name"])
	msg, _, _ := h.StatusBar().Message()
	require.Equal(t, "Saved successfully", msg)
}

func TestShowForm_RejectsIncompleteSpec(t *testing.T) {
	h, _ := newTestHost(t)
	f := ShowForm(h.Manager(), FormSpec{Title: "broken"})
	pump(h)

	require.Equal(t, overlay.StatusFailed, settled(t, f).Status)
}

func TestFormModel_IgnoresOtherSurfacesCompletion(t *testing.T) {
	p := &stubProvider{}
	h, _ := showForm(t, p, form.Options{Path: "/users"})
	m := formModel(t, h)
	m.submitting = true

	h.Update(submitDoneMsg{surfaceID: "someone-else"})
	require.True(t, m.submitting)
}

func TestFormModel_RunsControllerCallbacks(t *testing.T) {
	var succeeded, failed int
	opts := form.Options{
		Path:      "/users",
		OnSuccess: func(*dataprovider.Response) { succeeded++ },
		OnError:   func(*dataprovider.Error) { failed++ },
	}

	p := &stubProvider{err: errors.New("duplicate")}
	h, f := showForm(t, p, opts)
	press(h, "Ann", "tab", "30")
	submit(h)
	require.Equal(t, 1, p.calls())
	require.Equal(t, 1, failed)
	require.Zero(t, succeeded)

	p.mu.Lock()
	p.err = nil
	p.mu.Unlock()
	submit(h)
	require.Equal(t, overlay.StatusResolved, settled(t, f).Status)
	require.Equal(t, 1, succeeded)
	require.Equal(t, 1, failed)
}

func TestFormModel_UntitledFormUsesModeTitle(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want string
	}{
		{"create", "", "Create"},
		{"edit", "u1", "Edit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHost(t)
			ShowForm(h.Manager(), FormSpec{
				Schema:     dialog.MustCompileSchema(personSchema),
				Controller: form.New(&stubProvider{}, form.Options{Path: "/users", ID: tt.id}),
			})
			pump(h)

			view := h.View()
			require.Contains(t, view, tt.want)
			require.NotContains(t, view, "/users")
		})
	}
}
