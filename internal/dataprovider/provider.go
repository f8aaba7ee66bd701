package dataprovider

import (
	"context"
	"fmt"
)

// Record is one resource as exchanged with the backend.
type Record map[string]any

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ID returns the record's "id" field as a string, or "".
func (r Record) ID() string {
	switch v := r["id"].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Response is the result of a successful provider call.
type Response struct {
	StatusCode int
	Data       Record
}

// Provider is the backend a form controller writes through. Every failure
// is returned as an *Error.
type Provider interface {
	Create(ctx context.Context, path string, payload Record) (*Response, error)
	Update(ctx context.Context, path, id string, payload Record) (*Response, error)
	GetOne(ctx context.Context, path, id string) (*Response, error)
}
