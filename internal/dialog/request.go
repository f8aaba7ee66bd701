package dialog

import (
	"fmt"

	"github.com/muurk/adminkit/internal/overlay"
)

// Type is the semantic dialog variant.
type Type string

const (
	TypeConfirm Type = "confirm"
	TypeSuccess Type = "success"
	TypeError   Type = "error"
	TypePrompt  Type = "prompt"
	TypeNode    Type = "node"
)

// Types lists every variant in display order.
var Types = []Type{TypeConfirm, TypeSuccess, TypeError, TypePrompt, TypeNode}

// Props keys set on every dialog surface.
const (
	PropRequest = "dialog.request"
	PropType    = "dialog.type"
	PropTitle   = "title"
	PropContent = "content"
)

// Request describes a dialog. The façade copies it on Show; later changes by
// the caller do not reach the mounted surface.
type Request struct {
	Title   string
	Content string
	Type    Type

	// FormSchema turns a prompt into a multi-field form whose resolved value
	// is a map[string]any validated against the schema.
	FormSchema *Schema

	// Render produces the body of a node dialog.
	Render func() string

	// Default is the initial value of a single-line prompt.
	Default string

	// ConfirmText and CancelText override the localized button labels.
	ConfirmText string
	CancelText  string

	// Props are passed through to the component untouched.
	Props overlay.Props
}

// Cancellable reports whether the variant offers a cancel action. Success and
// error dialogs only acknowledge.
func (r Request) Cancellable() bool {
	switch r.Type {
	case TypeConfirm, TypePrompt, TypeNode:
		return true
	default:
		return false
	}
}

// Body renders the dialog content, calling Render for node dialogs.
func (r Request) Body() string {
	if r.Type == TypeNode && r.Render != nil {
		return r.Render()
	}
	return r.Content
}

func (r Request) clone() Request {
	out := r
	out.Props = r.Props.Clone()
	return out
}

func (r Request) props() overlay.Props {
	p := r.Props.Clone()
	p[PropRequest] = r
	p[PropType] = string(r.Type)
	p[PropTitle] = r.Title
	p[PropContent] = r.Content
	return p
}

// RequestOf extracts the request a dialog surface was mounted with.
func RequestOf(s *overlay.Surface) (Request, bool) {
	if s == nil {
		return Request{}, false
	}
	r, ok := s.Props[PropRequest].(Request)
	return r, ok
}

// ValidationError is returned by Accept when prompt input does not satisfy
// the form schema. The surface stays mounted.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
